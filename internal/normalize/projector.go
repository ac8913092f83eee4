// Package normalize turns the raw nested SFG20 schedule graph into flat,
// deduplicated records ready for the cache store. It performs no I/O.
package normalize

import (
	"strings"

	"github.com/IoFMT/Inception/internal/apierrors"
	"github.com/IoFMT/Inception/internal/schema"
)

// Project flattens one raw object according to an ordered list of field
// paths. A dotted path "outer.inner" reads raw[outer][inner]; missing or
// null sources project to nil. When two paths share a terminal segment the
// later one wins; the upstream schema declares such duplicates and the
// ambiguity is kept as-is.
//
// The only failure mode is a declared outer segment that is present but not
// an object; that indicates a malformed upstream payload and is surfaced.
func Project(raw map[string]any, paths []string) (map[string]any, error) {
	out := make(map[string]any, len(paths))
	for _, path := range paths {
		outer, inner, nested := strings.Cut(path, schema.PathSeparator)
		if !nested {
			out[path] = raw[path]
			continue
		}

		parent := raw[outer]
		if parent == nil {
			out[inner] = nil
			continue
		}
		obj, ok := parent.(map[string]any)
		if !ok {
			return nil, apierrors.Validation("field %q: expected object at %q, got %T", path, outer, parent)
		}
		out[inner] = obj[inner]
	}
	return out, nil
}
