package population

import "github.com/pthm-cable/frogpond/components"

// Points awarded by Fitness.
const (
	KillReward   = 10
	DeathPenalty = 10
)

// Fitness scores a performance record. It is unclamped and may be negative.
func Fitness(p components.Performance) int {
	f := p.Kills*KillReward + p.DamageDealt
	if p.GotKilled {
		f -= DeathPenalty
	}
	return f
}
