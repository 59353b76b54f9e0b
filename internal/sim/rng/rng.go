package rng

import (
	"math/rand/v2"
	"time"
)

// Rand is the single source of randomness threaded through the simulation.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// PCG is the default Rand. Its state can be marshalled into snapshots so a resumed world
// continues the exact same draw sequence.
type PCG struct {
	src *rand.PCG
	r   *rand.Rand
}

const seedStream = 0x9e3779b97f4a7c15

func New(seed int64) *PCG {
	src := rand.NewPCG(uint64(seed), seedStream)
	return &PCG{src: src, r: rand.New(src)}
}

// NewUnseeded seeds from the wall clock; replays are not possible.
func NewUnseeded() *PCG {
	return New(time.Now().UnixNano())
}

func (p *PCG) Float64() float64 { return p.r.Float64() }
func (p *PCG) IntN(n int) int   { return p.r.IntN(n) }

func (p *PCG) MarshalBinary() ([]byte, error) { return p.src.MarshalBinary() }

func (p *PCG) UnmarshalBinary(b []byte) error {
	if err := p.src.UnmarshalBinary(b); err != nil {
		return err
	}
	p.r = rand.New(p.src)
	return nil
}

// Uniform draws from [lo, hi).
func Uniform(r Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// Chance reports whether a single draw falls below p.
func Chance(r Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	return r.Float64() < p
}
