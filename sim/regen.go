package sim

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/frogpond/components"
)

// RegenSystem heals wounded characters on the map by one hit point every
// RegenInterval turns.
type RegenSystem struct {
	filter ecs.Filter2[components.Health, components.Presence]
}

// NewRegenSystem creates a new regeneration system.
func NewRegenSystem(w *ecs.World) *RegenSystem {
	return &RegenSystem{
		filter: *ecs.NewFilter2[components.Health, components.Presence](w),
	}
}

// Update runs one turn of regeneration.
func (s *RegenSystem) Update() {
	query := s.filter.Query()
	for query.Next() {
		health, presence := query.Get()
		if !presence.OnMap || health.RegenInterval <= 0 {
			continue
		}

		if health.HP < health.MaxHP {
			health.TurnsSinceRegen++
		}
		if health.TurnsSinceRegen >= health.RegenInterval {
			health.HP = min(health.HP+1, health.MaxHP)
			health.TurnsSinceRegen = 0
		}
	}
}
