// Package schema declares the per-entity-type projection schemas: the ordered
// field paths extracted from the raw SFG20 graph for each cached record type.
// The set is closed and checked at init time so a typo in an entity type name
// fails at startup, not on the first request.
package schema

import (
	"fmt"

	"github.com/IoFMT/Inception/internal/model"
)

// PathSeparator splits a two-level field path into outer and inner segments.
const PathSeparator = "."

// fieldPaths maps each storable entity type to its projection paths.
// Quirks are inherited from the upstream schema and are intentional:
// frequencies declares "label" twice (last write wins) and classifications
// projects the tasks array under a different schema.
var fieldPaths = map[model.EntityType][]string{
	model.EntitySchedules:       {"id", "code", "title", "rawTitle"},
	model.EntitySkills:          {"skill.CoreSkillingID", "skill.Skilling", "skill.SkillingCode"},
	model.EntityTasks:           {"id", "title"},
	model.EntityAssets:          {"id", "description"},
	model.EntityFrequencies:     {"label", "label"},
	model.EntityClassifications: {"classification", "classification"},
}

func init() {
	for _, t := range model.StorableTypes() {
		if _, ok := fieldPaths[t]; !ok {
			panic(fmt.Sprintf("schema: no field paths declared for entity type %q", t))
		}
	}
}

// FieldPaths returns the ordered projection paths for an entity type.
func FieldPaths(t model.EntityType) ([]string, error) {
	paths, ok := fieldPaths[t]
	if !ok {
		return nil, fmt.Errorf("no projection schema for entity type %q", t)
	}
	return paths, nil
}

// TerminalSegments returns the output key set for an entity type: the last
// segment of each declared path, deduplicated in first-seen order.
func TerminalSegments(t model.EntityType) ([]string, error) {
	paths, err := FieldPaths(t)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		key := Terminal(p)
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out, nil
}

// Terminal returns the output key for a single path.
func Terminal(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if string(path[i]) == PathSeparator {
			return path[i+1:]
		}
	}
	return path
}
