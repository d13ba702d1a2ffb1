package quarry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// dumpEntry is the externalized form of one model entry.
type dumpEntry struct {
	Port      string `json:"port"`
	Direction string `json:"direction"`
	Kind      string `json:"kind"`
	Subkind   string `json:"subkind,omitempty"`
}

// dumpRecord is one externalized element model.
type dumpRecord struct {
	Callable string      `json:"callable"`
	Model    []dumpEntry `json:"model"`
}

// WriteModels serializes the mapping as one JSON record per element,
// ordered by target so output is deterministic. This is a diagnostic
// artifact; the solver consumes the in-memory mapping directly.
func WriteModels(w io.Writer, models ModelMap) error {
	enc := json.NewEncoder(w)
	for _, target := range models.Targets() {
		model := models[target]
		rec := dumpRecord{
			Callable: target.Name,
			Model:    make([]dumpEntry, 0, len(model.Entries)),
		}
		for _, e := range model.Entries {
			rec.Model = append(rec.Model, dumpEntry{
				Port:      e.Port.String(),
				Direction: e.Annotation.Direction.String(),
				Kind:      e.Annotation.Kind,
				Subkind:   e.Annotation.Subkind,
			})
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("quarry: encoding model for %s: %w", target.Name, err)
		}
	}
	return nil
}

// DumpModels writes the mapping to path, creating or truncating the file.
func DumpModels(path string, models ModelMap) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("quarry: creating dump file: %w", err)
	}
	if err := WriteModels(f, models); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("quarry: closing dump file: %w", err)
	}
	return nil
}
