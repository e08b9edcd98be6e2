package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const manifestFile = "manifest.json"

// Manifest lists the live segments of one committed generation, oldest
// first. Replacing manifest.json is the commit point of every write.
type Manifest struct {
	Generation uint64   `json:"generation"`
	Segments   []string `json:"segments"`
}

// readManifest returns the persisted manifest, or ok=false if none exists.
func readManifest(dir string) (Manifest, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, false, nil
		}
		return Manifest{}, false, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, false, fmt.Errorf("parsing manifest: %w", err)
	}
	return m, true, nil
}

func writeManifest(dir string, m Manifest) error {
	if m.Segments == nil {
		m.Segments = []string{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, manifestFile), data)
}
