package clock

import "math"

const DefaultDaySeconds = 300.0

// Clock is the in-world time source. It only moves when Advance is called; wall-clock pacing
// belongs to the host.
type Clock struct {
	daySeconds float64

	now    float64
	dt     float64
	day    int
	dayAcc float64 // seconds elapsed in the current day

	onDay []func(day int)
}

func New(daySeconds float64) *Clock {
	if daySeconds <= 0 {
		daySeconds = DefaultDaySeconds
	}
	return &Clock{daySeconds: daySeconds}
}

func (c *Clock) Now() float64        { return c.now }
func (c *Clock) DT() float64         { return c.dt }
func (c *Clock) Day() int            { return c.day }
func (c *Clock) DaySeconds() float64 { return c.daySeconds }
func (c *Clock) DayProgress() float64 {
	return c.dayAcc
}

// OnDay registers a subscriber fired once per day rollover, in registration order.
func (c *Clock) OnDay(fn func(day int)) {
	if fn != nil {
		c.onDay = append(c.onDay, fn)
	}
}

// Advance moves time forward by dt and returns the day numbers that started during the step.
// Non-positive or non-finite dt leaves the clock untouched.
func (c *Clock) Advance(dt float64) []int {
	if !ValidStep(dt) {
		return nil
	}
	c.dt = dt
	c.now += dt
	c.dayAcc += dt

	var rolled []int
	for c.dayAcc >= c.daySeconds {
		c.dayAcc -= c.daySeconds
		c.day++
		rolled = append(rolled, c.day)
		for _, fn := range c.onDay {
			fn(c.day)
		}
	}
	return rolled
}

// ValidStep reports whether dt is a usable step: positive and finite.
func ValidStep(dt float64) bool { return dt > 0 && !math.IsInf(dt, 0) }

// Restore sets the clock state from a snapshot. Subscribers are kept.
func (c *Clock) Restore(now, dt float64, day int, dayAcc float64) {
	c.now = now
	c.dt = dt
	c.day = day
	c.dayAcc = dayAcc
}
