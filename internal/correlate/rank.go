package correlate

import (
	"context"
	"sort"

	"github.com/threatbridge/threatbridge/internal/ontology"
)

// RankedIncident is one incident prepared for presentation: its label, its
// actions and its full technique set (direct relations unioned with those
// derived through actions).
type RankedIncident struct {
	IRI        ontology.IRI   `json:"iri"`
	Label      string         `json:"label"`
	Actions    []ontology.IRI `json:"actions"`
	Techniques []ontology.IRI `json:"techniques"`
}

// RankIncidents orders matched incidents for display: by number of
// associated actions descending, then by label ascending.
func (e *Engine) RankIncidents(ctx context.Context, incidents []ontology.IRI) []RankedIncident {
	out := make([]RankedIncident, 0, len(incidents))
	for _, inc := range incidents {
		direct := e.TechniquesForIncident(ctx, inc)
		deduced := e.DeduceTechniquesForIncident(ctx, inc)
		out = append(out, RankedIncident{
			IRI:        inc,
			Label:      e.Label(inc),
			Actions:    e.ActionsForIncident(ctx, inc),
			Techniques: sortedUnique(append(direct, deduced...)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Actions) != len(out[j].Actions) {
			return len(out[i].Actions) > len(out[j].Actions)
		}
		return out[i].Label < out[j].Label
	})
	return out
}
