// Package alerts ingests heterogeneous alert payloads (single JSON objects,
// newline-delimited record streams, search-engine hit envelopes) and harvests
// MITRE technique identifiers and alert metadata from them. Extraction is
// total with respect to arbitrarily shaped input: missing keys, wrong types
// and empty collections resolve to absence, never to an error.
package alerts

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Kind tags the shape of an alert batch. The shape is decided once at load
// time and carried on the batch so downstream consumers never re-sniff the
// payload.
type Kind int

const (
	// KindSingle is one alert record (or any other parsed value).
	KindSingle Kind = iota
	// KindSequence is a plain JSON array of alert records.
	KindSequence
	// KindSourcedHits is the list of _source objects recovered from a
	// search-engine result envelope (hits.hits[]._source).
	KindSourcedHits
	// KindRecordStream is a newline-delimited stream of JSON records.
	KindRecordStream
)

func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindSourcedHits:
		return "sourced-hits"
	case KindRecordStream:
		return "record-stream"
	default:
		return "single"
	}
}

// Batch is the uniform shape produced by ingestion.
type Batch struct {
	Kind Kind

	value   any
	records []any
}

// Records returns the batch's alert records as objects. Entries that are not
// objects are dropped, mirroring the tolerance of the extraction layer.
func (b Batch) Records() []map[string]any {
	if b.Kind == KindSingle {
		if m, ok := b.value.(map[string]any); ok {
			return []map[string]any{m}
		}
		return nil
	}
	out := make([]map[string]any, 0, len(b.records))
	for _, r := range b.records {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Empty reports whether the batch holds no records at all.
func (b Batch) Empty() bool {
	if b.Kind == KindSingle {
		return b.value == nil
	}
	return len(b.records) == 0
}

// Load wraps an already-parsed value in a Batch. Arrays become sequence
// batches; anything else is carried as a single record.
func Load(v any) Batch {
	if seq, ok := v.([]any); ok {
		return Batch{Kind: KindSequence, records: seq}
	}
	return Batch{Kind: KindSingle, value: v}
}

// Loader parses raw alert payloads into batches.
type Loader struct {
	log *slog.Logger
}

// NewLoader returns a Loader. A nil logger falls back to slog.Default.
func NewLoader(log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{log: log}
}

// LoadString parses a textual alert payload. See LoadBytes.
func (l *Loader) LoadString(s string) Batch {
	return l.LoadBytes([]byte(s))
}

// LoadBytes parses a textual alert payload into a Batch. Three shapes are
// recognized, in order: a newline-delimited record stream (every non-blank
// line starts with '{' and there is more than one line), a search-engine hit
// envelope, and a plain JSON document. Malformed stream lines are skipped
// with a warning; a fully unparseable payload yields an empty batch.
func (l *Loader) LoadBytes(raw []byte) Batch {
	txt := strings.TrimSpace(string(raw))
	if txt == "" {
		return Batch{Kind: KindSingle}
	}

	if lines, ok := streamLines(txt); ok {
		records := make([]any, 0, len(lines))
		for i, line := range lines {
			var rec any
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				l.log.Warn("skipping unparseable record-stream line",
					"line", i+1, "error", err)
				continue
			}
			records = append(records, rec)
		}
		return Batch{Kind: KindRecordStream, records: records}
	}

	var v any
	if err := json.Unmarshal([]byte(txt), &v); err != nil {
		l.log.Warn("unparseable alert payload, treating as empty batch", "error", err)
		return Batch{Kind: KindSingle}
	}

	if sources, ok := hitSources(v); ok {
		return Batch{Kind: KindSourcedHits, records: sources}
	}
	return Load(v)
}

// streamLines returns the payload's non-blank lines when they form a
// newline-delimited record stream.
func streamLines(txt string) ([]string, bool) {
	var lines []string
	for _, line := range strings.Split(txt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "{") {
			return nil, false
		}
		lines = append(lines, line)
	}
	return lines, len(lines) > 1
}

// hitSources extracts the _source objects from a search-engine result
// envelope ({"hits": {"hits": [{"_source": {...}}, ...]}}). The envelope is
// recognized by the presence of an object-valued "hits" field.
func hitSources(v any) ([]any, bool) {
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	hits, ok := doc["hits"].(map[string]any)
	if !ok {
		return nil, false
	}
	inner, _ := hits["hits"].([]any)
	sources := make([]any, 0, len(inner))
	for _, hit := range inner {
		if hm, ok := hit.(map[string]any); ok {
			if src, ok := hm["_source"].(map[string]any); ok && len(src) > 0 {
				sources = append(sources, src)
			}
		}
	}
	return sources, true
}
