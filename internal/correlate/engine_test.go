package correlate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatbridge/threatbridge/internal/ontology"
)

// edgeOnly hides the select interface of a store, leaving only edge
// enumeration, the minimal backend the fallback path must handle.
type edgeOnly struct {
	store *ontology.MemStore
}

func (g edgeOnly) Objects(s, p ontology.IRI) []ontology.IRI  { return g.store.Objects(s, p) }
func (g edgeOnly) Subjects(p, o ontology.IRI) []ontology.IRI { return g.store.Subjects(p, o) }

// brokenSelect exposes a select interface that always fails, simulating a
// backend whose query layer is down while traversal still works.
type brokenSelect struct {
	*ontology.MemStore
}

func (g brokenSelect) Select(context.Context, ontology.SelectQuery) ([]ontology.Binding, error) {
	return nil, errors.New("query layer unavailable")
}

const engineKB = `
incidents:
  - id: incident-sqli
    label: "Portal breach"
    techniques: [T1190]
    actions:
      - id: action-sqli
        label: "SQL injection"
        techniques: [T1190]
      - id: action-webshell
        label: "Webshell deployment"
        techniques: ["T1505.003"]
  - id: incident-phish
    label: "Phishing wave"
    actions:
      - id: action-phish
        label: "Spearphishing attachment"
        techniques: ["t1566.001"]
  - id: incident-mixed
    label: "Ransomware intrusion"
    techniques: ["http://attack.example/ns#T1486"]
    actions:
      - id: action-encrypt
        label: "Data encrypted for impact"
        techniques: [T1486]
`

func engineStore(t *testing.T) *ontology.MemStore {
	t.Helper()
	store, err := ontology.ParseYAML([]byte(engineKB))
	require.NoError(t, err)
	return store
}

func newEngine(t *testing.T, graph ontology.Graph, opts ...Option) *Engine {
	t.Helper()
	e, err := New(graph, opts...)
	require.NoError(t, err)
	return e
}

func incidentStrings(incidents []ontology.IRI) []string {
	out := make([]string, 0, len(incidents))
	for _, inc := range incidents {
		out = append(out, string(inc))
	}
	return out
}

func TestNewRequiresGraph(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestIncidentsForTechniquesEmptyInput(t *testing.T) {
	e := newEngine(t, engineStore(t))

	res, err := e.IncidentsForTechniques(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Incidents)

	// Identifiers that normalize to nothing count as empty input too.
	res, err = e.IncidentsForTechniques(context.Background(), []string{"", "   "})
	require.NoError(t, err)
	assert.Empty(t, res.Incidents)
}

func TestIncidentsForTechniquesEmptyGraph(t *testing.T) {
	e := newEngine(t, ontology.NewMemStore())
	res, err := e.IncidentsForTechniques(context.Background(), []string{"T1190"})
	require.NoError(t, err)
	assert.Empty(t, res.Incidents)
}

func TestIncidentsForTechniquesSelectPath(t *testing.T) {
	e := newEngine(t, engineStore(t))
	res, err := e.IncidentsForTechniques(context.Background(), []string{"T1190"})
	require.NoError(t, err)

	assert.Equal(t, PathSelect, res.Path)
	assert.Equal(t, []string{ontology.VerisNS + "incident-sqli"}, incidentStrings(res.Incidents))
}

func TestIncidentsForTechniquesNotationTolerance(t *testing.T) {
	e := newEngine(t, engineStore(t))

	for _, query := range []string{
		"t1566.001",
		"T1566_001",
		"http://x/ns#t1566.001",
	} {
		res, err := e.IncidentsForTechniques(context.Background(), []string{query})
		require.NoError(t, err)
		assert.Equal(t, []string{ontology.VerisNS + "incident-phish"},
			incidentStrings(res.Incidents), "query %q", query)
	}
}

func TestIncidentsForTechniquesIRITechniqueInGraph(t *testing.T) {
	// incident-mixed materializes its direct relation as a full IRI; the
	// engine must still match the bare identifier.
	e := newEngine(t, edgeOnly{engineStore(t)})
	res, err := e.IncidentsForTechniques(context.Background(), []string{"T1486"})
	require.NoError(t, err)
	assert.Equal(t, []string{ontology.VerisNS + "incident-mixed"}, incidentStrings(res.Incidents))
}

func TestIncidentsForTechniquesScanFallbackOnEdgeOnlyBackend(t *testing.T) {
	e := newEngine(t, edgeOnly{engineStore(t)})
	res, err := e.IncidentsForTechniques(context.Background(), []string{"T1190"})
	require.NoError(t, err)

	assert.Equal(t, PathScan, res.Path)
	assert.Equal(t, []string{ontology.VerisNS + "incident-sqli"}, incidentStrings(res.Incidents))
}

func TestIncidentsForTechniquesScanFallbackOnBrokenSelect(t *testing.T) {
	e := newEngine(t, brokenSelect{engineStore(t)})
	res, err := e.IncidentsForTechniques(context.Background(), []string{"T1190"})
	require.NoError(t, err)

	assert.Equal(t, PathScan, res.Path)
	assert.Equal(t, []string{ontology.VerisNS + "incident-sqli"}, incidentStrings(res.Incidents))
}

// Select and scan must agree on every non-empty query whenever both are
// computable: the select path is purely a performance optimization.
func TestSelectAndScanPathsAgree(t *testing.T) {
	store := engineStore(t)
	selectEngine := newEngine(t, store)
	scanEngine := newEngine(t, edgeOnly{store})

	queries := [][]string{
		{"T1190"},
		{"T1505_003"},
		{"t1566.001"},
		{"T1486"},
		{"T1190", "T1486"},
		{"T9999"},
		{"T1190", "unrelated", ""},
	}
	for _, q := range queries {
		selRes, err := selectEngine.IncidentsForTechniques(context.Background(), q)
		require.NoError(t, err)
		scanRes, err := scanEngine.IncidentsForTechniques(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, incidentStrings(scanRes.Incidents), incidentStrings(selRes.Incidents),
			"paths disagree for query %v", q)
	}
}

func TestActionsForIncident(t *testing.T) {
	store := engineStore(t)
	inc := ontology.IRI(ontology.VerisNS + "incident-sqli")
	want := []string{ontology.VerisNS + "action-sqli", ontology.VerisNS + "action-webshell"}

	for name, graph := range map[string]ontology.Graph{
		"select":    store,
		"edge-only": edgeOnly{store},
		"broken":    brokenSelect{store},
	} {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t, graph)
			assert.Equal(t, want, incidentStrings(e.ActionsForIncident(context.Background(), inc)))
		})
	}
}

func TestTechniquesForIncidentDirectOnly(t *testing.T) {
	store := engineStore(t)
	e := newEngine(t, store)

	// incident-phish has no direct relation; only deduction finds it.
	phish := ontology.IRI(ontology.VerisNS + "incident-phish")
	assert.Empty(t, e.TechniquesForIncident(context.Background(), phish))
	assert.Equal(t, []string{ontology.BridgeNS + "t1566.001"},
		incidentStrings(e.DeduceTechniquesForIncident(context.Background(), phish)))

	sqli := ontology.IRI(ontology.VerisNS + "incident-sqli")
	assert.Equal(t, []string{ontology.BridgeNS + "T1190"},
		incidentStrings(e.TechniquesForIncident(context.Background(), sqli)))
}

func TestActionTechniquePairs(t *testing.T) {
	store := engineStore(t)
	actions := []ontology.IRI{
		ontology.IRI(ontology.VerisNS + "action-sqli"),
		ontology.IRI(ontology.VerisNS + "action-webshell"),
	}
	want := []Pair{
		{Action: ontology.IRI(ontology.VerisNS + "action-sqli"), Technique: ontology.IRI(ontology.BridgeNS + "T1190")},
		{Action: ontology.IRI(ontology.VerisNS + "action-webshell"), Technique: ontology.IRI(ontology.BridgeNS + "T1505.003")},
	}

	for name, graph := range map[string]ontology.Graph{
		"select":    store,
		"edge-only": edgeOnly{store},
	} {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t, graph)
			assert.Equal(t, want, e.ActionTechniquePairs(context.Background(), actions))
		})
	}

	e := newEngine(t, store)
	assert.Nil(t, e.ActionTechniquePairs(context.Background(), nil))
}

func TestLabel(t *testing.T) {
	e := newEngine(t, engineStore(t))

	assert.Equal(t, "Portal breach", e.Label(ontology.IRI(ontology.VerisNS+"incident-sqli")))
	// No rdfs:label triple: fall back to the IRI fragment.
	assert.Equal(t, "T1190", e.Label(ontology.IRI(ontology.BridgeNS+"T1190")))
	// Second lookup hits the memo cache and must agree.
	assert.Equal(t, "Portal breach", e.Label(ontology.IRI(ontology.VerisNS+"incident-sqli")))
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewMapCache()
	e := newEngine(t, engineStore(t), WithCache(cache))

	first, err := e.IncidentsForTechniques(context.Background(), []string{"T1190"})
	require.NoError(t, err)
	assert.Equal(t, PathSelect, first.Path)

	second, err := e.IncidentsForTechniques(context.Background(), []string{"t1190"})
	require.NoError(t, err)
	assert.Equal(t, PathCache, second.Path)
	assert.Equal(t, incidentStrings(first.Incidents), incidentStrings(second.Incidents))
}

func TestRankIncidents(t *testing.T) {
	e := newEngine(t, engineStore(t))
	incidents := []ontology.IRI{
		ontology.IRI(ontology.VerisNS + "incident-phish"),
		ontology.IRI(ontology.VerisNS + "incident-sqli"),
		ontology.IRI(ontology.VerisNS + "incident-mixed"),
	}

	ranked := e.RankIncidents(context.Background(), incidents)
	require.Len(t, ranked, 3)

	// incident-sqli has two actions; the one-action incidents follow in
	// label order ("Phishing wave" < "Ransomware intrusion").
	assert.Equal(t, "Portal breach", ranked[0].Label)
	assert.Equal(t, "Phishing wave", ranked[1].Label)
	assert.Equal(t, "Ransomware intrusion", ranked[2].Label)

	assert.Len(t, ranked[0].Actions, 2)
	assert.Len(t, ranked[0].Techniques, 2)
}

func TestIncidentsForTechniquesCancelledContext(t *testing.T) {
	e := newEngine(t, edgeOnly{engineStore(t)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.IncidentsForTechniques(ctx, []string{"T1190"})
	assert.ErrorIs(t, err, context.Canceled)
}
