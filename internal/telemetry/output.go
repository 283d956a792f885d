package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// OutputManager writes monitor samples as CSV files in one directory.
type OutputManager struct {
	dir         string
	shipsFile   *os.File
	summaryFile *os.File

	// Track if headers have been written
	shipsHeaderWritten   bool
	summaryHeaderWritten bool
}

// NewOutputManager creates the output directory with ships.csv and summary.csv.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "ships.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating ships.csv: %w", err)
	}
	om.shipsFile = f

	f, err = os.Create(filepath.Join(dir, "summary.csv"))
	if err != nil {
		om.shipsFile.Close()
		return nil, fmt.Errorf("creating summary.csv: %w", err)
	}
	om.summaryFile = f

	return om, nil
}

// WriteShips appends vessel rows to ships.csv.
func (om *OutputManager) WriteShips(rows []ShipRow) error {
	if om == nil || len(rows) == 0 {
		return nil
	}

	if !om.shipsHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(rows, om.shipsFile); err != nil {
			return fmt.Errorf("writing ships: %w", err)
		}
		om.shipsHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(rows, om.shipsFile); err != nil {
		return fmt.Errorf("writing ships: %w", err)
	}
	return nil
}

// WriteSummary appends one row to summary.csv.
func (om *OutputManager) WriteSummary(row SummaryRow) error {
	if om == nil {
		return nil
	}

	records := []SummaryRow{row}
	if !om.summaryHeaderWritten {
		if err := gocsv.Marshal(records, om.summaryFile); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		om.summaryHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.summaryFile); err != nil {
		return fmt.Errorf("writing summary: %w", err)
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

// Close closes both files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.shipsFile, om.summaryFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
