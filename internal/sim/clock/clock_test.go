package clock

import (
	"math"
	"testing"
)

func TestAdvance_DayRollover(t *testing.T) {
	c := New(300)
	var fired []int
	c.OnDay(func(day int) { fired = append(fired, day) })

	for i := 0; i < 2999; i++ {
		c.Advance(0.1)
	}
	if c.Day() != 0 {
		t.Fatalf("day rolled early: day=%d now=%v", c.Day(), c.Now())
	}
	// Float accumulation may land just short of 300; a couple more steps must roll it.
	for i := 0; i < 3 && c.Day() == 0; i++ {
		c.Advance(0.1)
	}
	if c.Day() != 1 || len(fired) != 1 || fired[0] != 1 {
		t.Fatalf("expected exactly one rollover to day 1, got day=%d fired=%v", c.Day(), fired)
	}
}

func TestAdvance_LargeStepCrossesSeveralDays(t *testing.T) {
	c := New(100)
	rolled := c.Advance(350)
	if len(rolled) != 3 || rolled[2] != 3 {
		t.Fatalf("rolled=%v", rolled)
	}
	if c.DayProgress() != 50 {
		t.Fatalf("day progress=%v want 50", c.DayProgress())
	}
}

func TestAdvance_ZeroIsNoop(t *testing.T) {
	c := New(300)
	c.Advance(1)
	now, dt, day := c.Now(), c.DT(), c.Day()
	if rolled := c.Advance(0); rolled != nil {
		t.Fatalf("zero step rolled days: %v", rolled)
	}
	if c.Now() != now || c.DT() != dt || c.Day() != day {
		t.Fatalf("zero step changed state")
	}
}

func TestAdvance_NonFiniteIsNoop(t *testing.T) {
	c := New(300)
	c.Advance(1)
	for _, dt := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if rolled := c.Advance(dt); rolled != nil {
			t.Fatalf("Advance(%v) rolled days: %v", dt, rolled)
		}
		if c.Now() != 1 || c.DT() != 1 || c.Day() != 0 {
			t.Fatalf("Advance(%v) changed state: now=%v dt=%v day=%d", dt, c.Now(), c.DT(), c.Day())
		}
	}
}
