package alerts

import (
	"math"
	"sort"
	"strconv"

	"github.com/threatbridge/threatbridge/internal/techid"
)

// maxDepth bounds the recursive walk over untrusted alert payloads.
const maxDepth = 64

// Free-text fields scanned for technique identifiers mentioned only in
// human-readable descriptions. Upstream alerting systems inconsistently
// populate structured MITRE metadata, so the text scan is a deliberate
// second strategy, not a fallback of last resort.
var textFields = []string{"message", "description", "full_log"}

// ExtractTechniqueIDs harvests technique identifiers from every record in the
// batch: structured lookups under rule.mitre plus a free-text scan of known
// message fields, at every nesting level. The result is normalized,
// deduplicated and sorted.
func ExtractTechniqueIDs(b Batch) []string {
	seen := make(map[string]struct{})
	for _, rec := range b.Records() {
		collect(rec, 0, seen)
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// collect walks mapping and sequence nodes depth-first, harvesting
// identifiers from every mapping encountered.
func collect(node any, depth int, seen map[string]struct{}) {
	if depth > maxDepth {
		return
	}
	switch t := node.(type) {
	case map[string]any:
		harvest(t, seen)
		for _, v := range t {
			collect(v, depth+1, seen)
		}
	case []any:
		for _, v := range t {
			collect(v, depth+1, seen)
		}
	}
}

// harvest pulls identifiers out of one mapping node.
func harvest(node map[string]any, seen map[string]struct{}) {
	if rule, ok := node["rule"].(map[string]any); ok {
		if mitre, ok := rule["mitre"].(map[string]any); ok {
			addValue(mitre["id"], seen)
			for _, key := range []string{"technique", "techniques"} {
				arr, ok := mitre[key].([]any)
				if !ok {
					continue
				}
				for _, item := range arr {
					if m, ok := item.(map[string]any); ok {
						addScalar(m["id"], seen)
					} else {
						addScalar(item, seen)
					}
				}
			}
		}
	}

	for _, key := range textFields {
		if s, ok := node[key].(string); ok {
			for _, id := range techid.FindAll(s) {
				seen[id] = struct{}{}
			}
		}
	}

	// Some shippers nest the rule metadata under "fields" or "data".
	for _, key := range []string{"fields", "data"} {
		sub, ok := node[key].(map[string]any)
		if !ok {
			continue
		}
		cand := pickPath(sub, "rule.mitre.id", "mitre.id")
		addValue(cand, seen)
	}
}

// addValue accepts an identifier-bearing value that may be a scalar or a
// list of scalars.
func addValue(v any, seen map[string]struct{}) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			addScalar(item, seen)
		}
	default:
		addScalar(v, seen)
	}
}

// addScalar normalizes and records a single identifier literal. Non-string,
// non-integer values are skipped silently.
func addScalar(v any, seen map[string]struct{}) {
	switch t := v.(type) {
	case string:
		if id := techid.Normalize(t); id != "" {
			seen[id] = struct{}{}
		}
	case float64:
		// JSON numbers decode as float64; only integral values are
		// plausible identifiers.
		if t == math.Trunc(t) {
			seen[techid.Normalize(strconv.FormatFloat(t, 'f', -1, 64))] = struct{}{}
		}
	}
}
