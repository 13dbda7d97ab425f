package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkNewBest             BookmarkType = "new_best"
	BookmarkFitnessBreakthrough BookmarkType = "fitness_breakthrough"
	BookmarkFitnessCollapse     BookmarkType = "fitness_collapse"
	BookmarkPlayerKilled        BookmarkType = "player_killed"
	BookmarkConverged           BookmarkType = "converged"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Generation  int          `csv:"generation"`
	Turn        int          `csv:"turn"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"generation", b.Generation,
		"turn", b.Turn,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting generations in a run.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	bestEver        float64
	seenAny         bool
	flatGenerations int
}

// convergedAfter is how many consecutive zero-spread generations trigger
// a converged bookmark.
const convergedAfter = 5

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]GenerationStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats GenerationStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.seenAny {
		if b := bd.checkNewBest(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkBreakthrough(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkCollapse(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}
	if b := bd.checkPlayerKilled(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkConverged(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	if !bd.seenAny || stats.FitnessMax > bd.bestEver {
		bd.bestEver = stats.FitnessMax
	}
	bd.seenAny = true

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats GenerationStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []GenerationStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) meanOfMeans() float64 {
	history := bd.getHistory()
	var total float64
	for _, h := range history {
		total += h.FitnessMean
	}
	return total / float64(len(history))
}

func (bd *BookmarkDetector) checkNewBest(stats GenerationStats) *Bookmark {
	if stats.FitnessMax <= bd.bestEver {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkNewBest,
		Generation:  stats.Generation,
		Turn:        stats.Turn,
		Description: fmt.Sprintf("Agent %d reached fitness %.0f (previous best %.0f)", stats.BestAgent, stats.FitnessMax, bd.bestEver),
	}
}

func (bd *BookmarkDetector) checkBreakthrough(stats GenerationStats) *Bookmark {
	if len(bd.getHistory()) < 3 {
		return nil
	}
	avg := bd.meanOfMeans()
	if avg <= 0 {
		return nil
	}
	if stats.FitnessMean > avg*2.0 && stats.FitnessMean >= 5 {
		return &Bookmark{
			Type:        BookmarkFitnessBreakthrough,
			Generation:  stats.Generation,
			Turn:        stats.Turn,
			Description: fmt.Sprintf("Mean fitness %.2f is %.1fx rolling average (%.2f)", stats.FitnessMean, stats.FitnessMean/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkCollapse(stats GenerationStats) *Bookmark {
	if len(bd.getHistory()) < 3 {
		return nil
	}
	avg := bd.meanOfMeans()
	if avg < 5 {
		return nil
	}
	if stats.FitnessMean < avg*0.5 {
		return &Bookmark{
			Type:        BookmarkFitnessCollapse,
			Generation:  stats.Generation,
			Turn:        stats.Turn,
			Description: fmt.Sprintf("Mean fitness %.2f fell below half the rolling average (%.2f)", stats.FitnessMean, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPlayerKilled(stats GenerationStats) *Bookmark {
	if stats.PlayerDeaths == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkPlayerKilled,
		Generation:  stats.Generation,
		Turn:        stats.Turn,
		Description: fmt.Sprintf("Player killed %d time(s) since previous generation", stats.PlayerDeaths),
	}
}

func (bd *BookmarkDetector) checkConverged(stats GenerationStats) *Bookmark {
	if stats.Agents < 2 || stats.FitnessStd > 0 {
		bd.flatGenerations = 0
		return nil
	}
	bd.flatGenerations++
	if bd.flatGenerations == convergedAfter { // trigger exactly once per flat stretch
		return &Bookmark{
			Type:        BookmarkConverged,
			Generation:  stats.Generation,
			Turn:        stats.Turn,
			Description: fmt.Sprintf("Every agent scored %.0f for %d generations", stats.FitnessMean, convergedAfter),
		}
	}
	return nil
}
