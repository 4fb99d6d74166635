// Package source reads and writes the psychologie.ch vendor export. The
// export is a component/effect/dispatch tree; the profile seeds live in
// dispatches named "display-markers". The whole tree is kept as decoded JSON
// so that scrape annotations round-trip without losing unknown keys.
package source

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"psychscraper/internal/model"
)

const dispatchName = "display-markers"

// Export is the loaded vendor tree plus the flattened seed profiles, in
// source order. Profiles are live views into the tree: annotating one and
// calling Save persists the annotation.
type Export struct {
	tree     any
	Profiles []model.Profile
}

// Load decodes the export file. A read or parse failure of the file itself
// is the one fatal structural error of a run; a malformed inner structure
// just yields zero profiles.
func Load(path string, logger *slog.Logger) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse export %s: %w", path, err)
	}

	e := &Export{tree: tree}
	e.Profiles = collectProfiles(tree)
	if len(e.Profiles) == 0 {
		logger.Error("no display-markers profiles found in export", "path", path)
	}
	return e, nil
}

// collectProfiles walks components[].effects.dispatches[] and flattens the
// first parameter of every display-markers dispatch. Any shape mismatch
// along the way is skipped, never raised.
func collectProfiles(tree any) []model.Profile {
	root, ok := tree.(map[string]any)
	if !ok {
		return nil
	}
	components, ok := root["components"].([]any)
	if !ok {
		return nil
	}

	var profiles []model.Profile
	for _, c := range components {
		component, ok := c.(map[string]any)
		if !ok {
			continue
		}
		effects, ok := component["effects"].(map[string]any)
		if !ok {
			continue
		}
		dispatches, ok := effects["dispatches"].([]any)
		if !ok {
			continue
		}
		for _, d := range dispatches {
			dispatch, ok := d.(map[string]any)
			if !ok || dispatch["name"] != dispatchName {
				continue
			}
			params, ok := dispatch["params"].([]any)
			if !ok || len(params) == 0 {
				continue
			}
			markers, ok := params[0].([]any)
			if !ok {
				continue
			}
			for _, m := range markers {
				if p, ok := m.(map[string]any); ok {
					profiles = append(profiles, model.Profile(p))
				}
			}
		}
	}
	return profiles
}

// Save writes the tree back pretty-printed. Non-ASCII stays literal and
// HTML characters are not escaped, matching what the upstream tooling
// expects to re-read.
func (e *Export) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e.tree); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// Backup snapshots the tree to a sibling file before a merge run mutates it.
func (e *Export) Backup(path string) error {
	return e.Save(path)
}
