// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shipcore/shipcore/pkg/core"
)

// MissionExport is the root JSON structure of an exported mission
type MissionExport struct {
	Mission core.MissionSave `json:"mission"`
	Events  []core.Event     `json:"events"`
	Samples []SampleRecord   `json:"samples"`
}

// exportFileName builds "<name>_<savedAt>.json[.gz]" with a filesystem-safe name.
func exportFileName(save core.MissionSave, compress bool) string {
	name := strings.ReplaceAll(save.Name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	name = strings.ReplaceAll(name, string(filepath.Separator), "_")
	if name == "" {
		name = "mission"
	}
	timestamp := save.SavedAt.Format("20060102_150405")

	if compress {
		return fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	}
	return fmt.Sprintf("%s_%s.json", name, timestamp)
}

// exportJSON writes a record to OutputDir. Callers hold b.mu.
func (b *Backend) exportJSON(rec *MissionRecord) error {
	export := MissionExport{
		Mission: *rec.Save,
		Events:  rec.Events,
		Samples: rec.Samples,
	}
	if export.Events == nil {
		export.Events = make([]core.Event, 0)
	}
	if export.Samples == nil {
		export.Samples = make([]SampleRecord, 0)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(*rec.Save, b.cfg.CompressOutput))

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	rec.dirty = false
	b.lastExportPath = outputPath
	return nil
}

// loadExported scans OutputDir for the newest export matching ref.
func (b *Backend) loadExported(ref string) (core.MissionSave, error) {
	entries, err := os.ReadDir(b.cfg.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return core.MissionSave{}, core.ErrSaveNotFound
		}
		return core.MissionSave{}, fmt.Errorf("failed to read output directory: %w", err)
	}

	var found *core.MissionSave
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")) {
			continue
		}
		export, err := ReadExport(filepath.Join(b.cfg.OutputDir, name))
		if err != nil {
			continue
		}
		if matches(export.Mission, ref) && newer(&export.Mission, found) {
			save := export.Mission
			found = &save
		}
	}

	if found == nil {
		return core.MissionSave{}, core.ErrSaveNotFound
	}
	return *found, nil
}

// ReadExport decodes an exported mission file, gzipped or plain.
func ReadExport(path string) (MissionExport, error) {
	var export MissionExport

	f, err := os.Open(path)
	if err != nil {
		return export, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return export, err
		}
		defer gz.Close()
		r = gz
	}

	err = json.NewDecoder(r).Decode(&export)
	return export, err
}

func writeJSON(path string, data MissionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data MissionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
