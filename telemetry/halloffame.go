package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pthm-cable/frogpond/dtree"
)

// HallEntry is a tree that scored well, with where and when it did.
type HallEntry struct {
	Generation int
	Agent      uint32
	Fitness    int
	Tree       *dtree.Tree
}

// HallOfFame keeps the best trees seen during a run, best first.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
	names   dtree.Names
}

// NewHallOfFame creates a hall holding at most maxSize trees. names labels
// predicates and actions in the JSON export.
func NewHallOfFame(maxSize int, names dtree.Names) *HallOfFame {
	return &HallOfFame{
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
		names:   names,
	}
}

// Consider offers a tree to the hall. The tree is copied on entry.
// Returns true if it was added.
func (hof *HallOfFame) Consider(generation int, agent uint32, fitness int, tree *dtree.Tree) bool {
	if hof.maxSize <= 0 || tree == nil {
		return false
	}

	// Find insertion point (sorted descending by fitness, older entries first on ties)
	idx := sort.Search(len(hof.entries), func(i int) bool {
		return hof.entries[i].Fitness < fitness
	})

	// If hall is full and entry would be last (lowest), skip it
	if len(hof.entries) >= hof.maxSize && idx >= hof.maxSize {
		return false
	}

	entry := HallEntry{Generation: generation, Agent: agent, Fitness: fitness, Tree: tree.Clone()}
	hof.entries = append(hof.entries, HallEntry{})
	copy(hof.entries[idx+1:], hof.entries[idx:])
	hof.entries[idx] = entry

	// Trim if over capacity
	if len(hof.entries) > hof.maxSize {
		hof.entries = hof.entries[:hof.maxSize]
	}
	return true
}

// Entries returns the hall, best first.
func (hof *HallOfFame) Entries() []HallEntry {
	return append([]HallEntry(nil), hof.entries...)
}

// Size returns the number of entries.
func (hof *HallOfFame) Size() int {
	return len(hof.entries)
}

// TopFitness returns the best fitness in the hall, or 0 if it is empty.
func (hof *HallOfFame) TopFitness() int {
	if len(hof.entries) == 0 {
		return 0
	}
	return hof.entries[0].Fitness
}

// hallEntryJSON is the JSON-serializable representation of a hall entry.
type hallEntryJSON struct {
	Generation int         `json:"generation"`
	Agent      uint32      `json:"agent"`
	Fitness    int         `json:"fitness"`
	Tree       *dtree.Tree `json:"tree"`
	Rendered   string      `json:"rendered,omitempty"`
}

// MarshalJSON serializes the hall of fame with a readable rendering of each tree.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	export := make([]hallEntryJSON, len(hof.entries))
	for i, e := range hof.entries {
		export[i] = hallEntryJSON{
			Generation: e.Generation,
			Agent:      e.Agent,
			Fitness:    e.Fitness,
			Tree:       e.Tree,
			Rendered:   e.Tree.Format(hof.names),
		}
	}
	return json.MarshalIndent(export, "", "  ")
}

// LoadHallOfFameFromFile reads a hall of fame JSON file written by
// OutputManager.WriteHallOfFame.
func LoadHallOfFameFromFile(path string, names dtree.Names) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var raw []hallEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	hof := NewHallOfFame(max(len(raw), 1), names)
	for i, e := range raw {
		if e.Tree == nil {
			return nil, fmt.Errorf("hall of fame entry %d has no tree", i)
		}
		hof.Consider(e.Generation, e.Agent, e.Fitness, e.Tree)
	}
	return hof, nil
}
