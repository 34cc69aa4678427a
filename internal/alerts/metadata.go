package alerts

import (
	"fmt"
	"strings"
)

// Metadata is the per-alert summary handed to presentation layers. Field
// values are kept exactly as they appear in the source record; technique
// identifiers in particular are not normalized here.
type Metadata struct {
	Timestamp    any      `json:"timestamp"`
	RuleID       any      `json:"rule.id"`
	Description  any      `json:"rule.description"`
	AgentName    any      `json:"agent.name"`
	TechniqueIDs []string `json:"rule.mitre.id"`
}

// ExtractMetadata picks, for a single record, the first present value among
// ordered candidate paths for each field. Absent paths resolve to nil.
func ExtractMetadata(record map[string]any) Metadata {
	meta := Metadata{
		Timestamp:    pickPath(record, "@timestamp", "timestamp", "event.created", "event.ingested"),
		RuleID:       pickPath(record, "rule.id"),
		Description:  pickPath(record, "rule.description", "rule.full_log", "message"),
		AgentName:    pickPath(record, "agent.name", "host.name"),
		TechniqueIDs: []string{},
	}

	switch ids := pickPath(record, "rule.mitre.id", "mitre.id").(type) {
	case string:
		meta.TechniqueIDs = []string{ids}
	case []any:
		for _, v := range ids {
			meta.TechniqueIDs = append(meta.TechniqueIDs, stringify(v))
		}
	}
	return meta
}

// ExtractAllMetadata applies ExtractMetadata to every record in the batch.
func ExtractAllMetadata(b Batch) []Metadata {
	records := b.Records()
	if len(records) == 0 {
		return nil
	}
	out := make([]Metadata, 0, len(records))
	for _, rec := range records {
		out = append(out, ExtractMetadata(rec))
	}
	return out
}

// pickPath tries each dot-separated path in order against nested mappings
// and returns the first value found. A key absent at any level moves on to
// the next candidate; exhausting all candidates yields nil.
func pickPath(node map[string]any, paths ...string) any {
	for _, path := range paths {
		var cur any = node
		found := true
		for _, key := range strings.Split(path, ".") {
			m, ok := cur.(map[string]any)
			if !ok {
				found = false
				break
			}
			v, ok := m[key]
			if !ok {
				found = false
				break
			}
			cur = v
		}
		if found {
			return cur
		}
	}
	return nil
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
