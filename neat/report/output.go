package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/baldhumanity/neatevo/neat"
)

// OutputManager writes run artifacts into a directory: a stats.csv with
// one row per generation and a config.yaml snapshot of the resolved
// configuration.
type OutputManager struct {
	dir       string
	statsFile *os.File

	statsHeaderWritten bool
	firstErr           error
}

// NewOutputManager creates the output directory and opens stats.csv.
// Returns nil (output disabled) if dir is empty.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating stats.csv: %w", err)
	}
	return &OutputManager{dir: dir, statsFile: f}, nil
}

// WriteConfig saves the resolved configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *neat.Config) error {
	if om == nil {
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	return os.WriteFile(filepath.Join(om.dir, "config.yaml"), data, 0o644)
}

// WriteStats appends a generation record to stats.csv, writing the header
// on first use.
func (om *OutputManager) WriteStats(stats GenerationStats) error {
	if om == nil {
		return nil
	}

	records := []GenerationStats{stats}
	var err error
	if !om.statsHeaderWritten {
		err = gocsv.Marshal(records, om.statsFile)
		om.statsHeaderWritten = true
	} else {
		err = gocsv.MarshalWithoutHeaders(records, om.statsFile)
	}
	if err != nil {
		err = fmt.Errorf("writing stats: %w", err)
		if om.firstErr == nil {
			om.firstErr = err
		}
	}
	return err
}

// Err returns the first write error encountered, if any.
func (om *OutputManager) Err() error {
	if om == nil {
		return nil
	}
	return om.firstErr
}

// Close flushes and closes the output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return om.statsFile.Close()
}
