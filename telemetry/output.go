package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/frogpond/config"
)

// RespawnRecord is one row of respawns.csv.
type RespawnRecord struct {
	Turn       int    `csv:"turn"`
	Generation int    `csv:"generation"`
	Agent      uint32 `csv:"agent"`
	Mark       int    `csv:"mark"`
	X          int    `csv:"x"`
	Y          int    `csv:"y"`
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir            string
	generationFile *os.File
	respawnFile    *os.File
	perfFile       *os.File
	bookmarkFile   *os.File

	// Track if headers have been written
	generationHeaderWritten bool
	respawnHeaderWritten    bool
	perfHeaderWritten       bool
	bookmarkHeaderWritten   bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  **os.File
	}{
		{"generations.csv", &om.generationFile},
		{"respawns.csv", &om.respawnFile},
		{"perf.csv", &om.perfFile},
		{"bookmarks.csv", &om.bookmarkFile},
	}
	for _, f := range files {
		fh, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		*f.dst = fh
	}

	return om, nil
}

// writeCSV appends records to f, writing the header on the first call.
func writeCSV[T any](f *os.File, headerWritten *bool, records []T) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteGeneration writes a generation stats record to generations.csv.
func (om *OutputManager) WriteGeneration(stats GenerationStats) error {
	if om == nil {
		return nil
	}
	if err := writeCSV(om.generationFile, &om.generationHeaderWritten, []GenerationStats{stats}); err != nil {
		return fmt.Errorf("writing generation: %w", err)
	}
	return nil
}

// WriteRespawn writes a respawn record to respawns.csv.
func (om *OutputManager) WriteRespawn(r RespawnRecord) error {
	if om == nil {
		return nil
	}
	if err := writeCSV(om.respawnFile, &om.respawnHeaderWritten, []RespawnRecord{r}); err != nil {
		return fmt.Errorf("writing respawn: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, turn int) error {
	if om == nil {
		return nil
	}
	if err := writeCSV(om.perfFile, &om.perfHeaderWritten, []PerfStatsCSV{stats.ToCSV(turn)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := writeCSV(om.bookmarkFile, &om.bookmarkHeaderWritten, []Bookmark{b}); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// WriteHallOfFame saves the hall of fame as JSON.
func (om *OutputManager) WriteHallOfFame(hof *HallOfFame) error {
	if om == nil || hof == nil {
		return nil
	}

	data, err := hof.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}

	if err := os.WriteFile(filepath.Join(om.dir, "hall_of_fame.json"), data, 0644); err != nil {
		return fmt.Errorf("writing hall_of_fame.json: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.generationFile, om.respawnFile, om.perfFile, om.bookmarkFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
