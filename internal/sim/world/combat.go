package world

import "blackflag.space/internal/sim/rng"

// CombatResult records one raider-versus-freighter engagement.
type CombatResult struct {
	Attack   float64
	Defense  float64
	PSuccess float64
	Roll     float64
	Success  bool
}

// ResolveCombat draws the freighter's defense, then the outcome roll. It never fails.
func ResolveCombat(weapons, crew int, r rng.Rand) CombatResult {
	attack := float64(weapons + 2*crew)
	defense := 25 + rng.Uniform(r, 10, 30)
	p := 0.0
	if attack > 0 {
		p = attack / (attack + defense)
	}
	roll := r.Float64()
	return CombatResult{
		Attack:   attack,
		Defense:  defense,
		PSuccess: p,
		Roll:     roll,
		Success:  roll < p,
	}
}
