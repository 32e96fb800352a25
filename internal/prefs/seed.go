// Package prefs keeps a user-editable seed of extra sandbox attributes in the
// config directory.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jask/attredit/internal/attribute"
)

const seedFile = "seed.json"

func seedPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "attredit")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, seedFile), nil
}

// SaveSeed writes attrs to the seed file.
func SaveSeed(attrs []attribute.Attribute) (string, error) {
	path, err := seedPath()
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(attrs, "", "  ")
	if err != nil {
		return "", err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", err
	}
	return path, os.Rename(tmp, path)
}

// LoadSeed reads the seed file. A missing file is an empty seed.
func LoadSeed() ([]attribute.Attribute, error) {
	path, err := seedPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var attrs []attribute.Attribute
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return attrs, nil
}

// Missing returns the seed attributes whose keys are not in have, in seed
// order. Blank keys are skipped.
func Missing(seed, have []attribute.Attribute) []attribute.Attribute {
	present := make(map[string]bool, len(have))
	for _, a := range have {
		present[a.Key] = true
	}
	var out []attribute.Attribute
	for _, a := range seed {
		if a.Key == "" || present[a.Key] {
			continue
		}
		present[a.Key] = true
		out = append(out, a)
	}
	return out
}
