package population

import (
	"fmt"
	"sort"

	"github.com/pthm-cable/frogpond/components"
	"github.com/pthm-cable/frogpond/dtree"
)

// generationStep scores and mutates every agent, then breeds the breed pool
// into the replace pool.
func (m *Manager) generationStep() error {
	m.generations++
	n := len(m.agents)

	report := GenerationReport{
		Generation: m.generations,
		Fitness:    make([]int, n),
	}

	sum := 0
	for i, a := range m.agents {
		perf := m.env.Performance(a.ID)
		perf.Fitness = Fitness(*perf)
		report.Fitness[i] = perf.Fitness
		sum += perf.Fitness
		report.MutatedNodes += a.Tree.Mutate(m.rng, m.mutationRate, m.predicates, m.actions)
	}
	report.MeanFitness = float64(sum) / float64(n)

	m.sortByFitness(m.agents)
	worst, best := m.agents[0], m.agents[n-1]
	report.Worst = m.fitness(worst)
	report.Best = m.fitness(best)
	report.BestAgent = best.ID
	report.BestTree = best.Tree.Clone()

	sample := m.sample(m.cfg.SampleSize)
	m.sortByFitness(sample)
	report.Sampled = ids(sample)

	// Two independent draws per slot: an agent can land in both pools or in neither.
	var breed, replace []*Agent
	for i, a := range sample {
		p := m.cfg.BreedProbabilities[i]
		if m.rng.Float64() < p {
			breed = append(breed, a)
		}
		if m.rng.Float64() > p {
			replace = append(replace, a)
		}
	}
	report.Classified = len(replace)

	worse, better := m.agents[:n/2], m.agents[n/2:]
	for len(breed) > len(replace) {
		replace = append(replace, worse[m.rng.Intn(len(worse))])
		report.Padded++
	}
	if len(replace) > len(breed) {
		report.Truncated = len(replace) - len(breed)
		replace = replace[:len(breed)]
	}

	offspring := make([]*dtree.Tree, 0, len(breed))
	for _, a := range breed {
		partner := better[m.rng.Intn(len(better))]
		child, err := dtree.Cross(m.rng, a.Tree, partner.Tree, len(m.predicates))
		if err != nil {
			return fmt.Errorf("generation %d: breeding agent %d with %d: %w", m.generations, a.ID, partner.ID, err)
		}
		offspring = append(offspring, child)
	}
	if len(offspring) != len(replace) {
		return fmt.Errorf("%w: %d offspring, %d slots", ErrPoolMismatch, len(offspring), len(replace))
	}

	for i, child := range offspring {
		target := replace[i]
		child.Owner = uint32(target.ID)
		target.Tree = child
		m.env.Performance(target.ID).Reset()
	}
	report.Breed = ids(breed)
	report.Replaced = ids(replace)

	m.logger.Info("generation",
		"generation", report.Generation,
		"mean_fitness", report.MeanFitness,
		"worst", report.Worst,
		"best", report.Best,
		"mutated_nodes", report.MutatedNodes,
		"breed", len(breed),
		"classified_replace", report.Classified,
		"padded", report.Padded,
		"truncated", report.Truncated,
	)
	for _, o := range m.observers {
		o.GenerationCompleted(report)
	}
	return nil
}

func (m *Manager) fitness(a *Agent) int {
	return m.env.Performance(a.ID).Fitness
}

// sortByFitness orders agents worst first, keeping ties in place.
func (m *Manager) sortByFitness(agents []*Agent) {
	sort.SliceStable(agents, func(i, j int) bool {
		return m.fitness(agents[i]) < m.fitness(agents[j])
	})
}

// sample draws k distinct agents uniformly with a partial Fisher-Yates shuffle.
func (m *Manager) sample(k int) []*Agent {
	pool := make([]*Agent, len(m.agents))
	copy(pool, m.agents)
	for i := 0; i < k; i++ {
		j := i + m.rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

func ids(agents []*Agent) []components.AgentID {
	out := make([]components.AgentID, len(agents))
	for i, a := range agents {
		out[i] = a.ID
	}
	return out
}
