// Package correlate matches extracted technique identifiers against the
// incident knowledge graph. Every read has two execution tiers: a select
// query issued against backends that support one, and a plain edge-traversal
// scan that is the source of truth. The scan needs nothing beyond the
// ontology.Graph contract, so the engine degrades gracefully on any minimal
// backend.
package correlate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/threatbridge/threatbridge/internal/logging"
	"github.com/threatbridge/threatbridge/internal/metrics"
	"github.com/threatbridge/threatbridge/internal/ontology"
	"github.com/threatbridge/threatbridge/internal/techid"
)

// Path records which execution tier produced a correlation result.
type Path string

const (
	// PathSelect means the backend's query engine answered.
	PathSelect Path = "select"
	// PathScan means the edge-traversal fallback answered.
	PathScan Path = "scan"
	// PathCache means the memo cache answered.
	PathCache Path = "cache"
)

// Result is the outcome of one correlation request. Incidents is sorted but
// otherwise unordered in the ranking sense; presentation ordering is applied
// separately via RankIncidents.
type Result struct {
	Incidents []ontology.IRI `json:"incidents"`
	Path      Path           `json:"path"`
}

// Pair links an action to one of the techniques it implements.
type Pair struct {
	Action    ontology.IRI `json:"action"`
	Technique ontology.IRI `json:"technique"`
}

// Engine correlates technique identifier sets against a read-only graph.
type Engine struct {
	graph ontology.Graph
	log   *logging.Logger
	cache Cache

	mu     sync.Mutex
	labels map[ontology.IRI]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithCache attaches a memo cache for correlation results.
func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// New builds an Engine over the given graph.
func New(graph ontology.Graph, opts ...Option) (*Engine, error) {
	if graph == nil {
		return nil, errors.New("correlate: graph backend is required")
	}
	e := &Engine{
		graph:  graph,
		log:    logging.Default(),
		labels: make(map[ontology.IRI]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// IncidentsForTechniques returns every incident whose technique set (the
// union of its direct relations and those reachable via its actions)
// intersects the query set. Both sides are normalized before comparison.
// An empty query always yields an empty result.
func (e *Engine) IncidentsForTechniques(ctx context.Context, ids []string) (Result, error) {
	norm := normalizeSet(ids)
	if len(norm) == 0 {
		return Result{}, nil
	}

	key := cacheKey(norm)
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, key); ok {
			metrics.CacheHits.Inc()
			metrics.CorrelationsTotal.WithLabelValues(string(PathCache)).Inc()
			return Result{Incidents: toIRIs(cached), Path: PathCache}, nil
		}
	}

	if sg, ok := e.graph.(ontology.SelectGraph); ok {
		incidents, err := e.selectIncidents(ctx, sg, norm)
		switch {
		case err == nil && len(incidents) > 0:
			e.storeCache(ctx, key, incidents)
			metrics.CorrelationsTotal.WithLabelValues(string(PathSelect)).Inc()
			return Result{Incidents: incidents, Path: PathSelect}, nil
		case err != nil && errors.Is(err, context.Canceled):
			return Result{}, err
		case err != nil:
			e.log.DebugContext(ctx, "select correlation failed, falling back to scan", "error", err)
		}
		metrics.FallbackScans.Inc()
	}

	incidents, err := e.scanIncidents(ctx, norm)
	if err != nil {
		return Result{}, err
	}
	e.storeCache(ctx, key, incidents)
	metrics.CorrelationsTotal.WithLabelValues(string(PathScan)).Inc()
	return Result{Incidents: incidents, Path: PathScan}, nil
}

// selectIncidents issues the tolerant correlation query: incidents typed
// veris:Incident whose technique, direct or via an action, normalizes into
// the query set. Notation differences (case, '.' vs '_', literal vs IRI)
// never cause false negatives because both sides normalize symmetrically.
func (e *Engine) selectIncidents(ctx context.Context, sg ontology.SelectGraph, norm map[string]struct{}) ([]ontology.IRI, error) {
	q := ontology.SelectQuery{
		Vars: []string{"incident"},
		Patterns: []ontology.Pattern{
			{
				Subject: ontology.V("incident"),
				Paths:   [][]ontology.IRI{{ontology.RDFType}},
				Object:  ontology.I(ontology.IncidentClass),
			},
			{
				Subject: ontology.V("incident"),
				Paths: [][]ontology.IRI{
					{ontology.InvolvesTechnique},
					{ontology.HasAction, ontology.RelatesToTechnique},
				},
				Object: ontology.V("t"),
			},
		},
		Filters: []ontology.Filter{{
			Var: "t",
			Accept: func(v ontology.IRI) bool {
				_, ok := norm[techid.Normalize(string(v))]
				return ok
			},
		}},
	}

	rows, err := sg.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("correlation query: %w", err)
	}
	seen := make(map[ontology.IRI]struct{}, len(rows))
	var incidents []ontology.IRI
	for _, row := range rows {
		inc := row["incident"]
		if _, dup := seen[inc]; dup {
			continue
		}
		seen[inc] = struct{}{}
		incidents = append(incidents, inc)
	}
	sortIRIs(incidents)
	return incidents, nil
}

// scanIncidents is the source of truth: enumerate every incident, compute
// its normalized technique set by traversal and test intersection.
func (e *Engine) scanIncidents(ctx context.Context, norm map[string]struct{}) ([]ontology.IRI, error) {
	var incidents []ontology.IRI
	for _, inc := range e.graph.Subjects(ontology.RDFType, ontology.IncidentClass) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if intersects(e.incidentTechniqueSet(inc), norm) {
			incidents = append(incidents, inc)
		}
	}
	sortIRIs(incidents)
	return incidents, nil
}

// incidentTechniqueSet unions an incident's direct technique relations with
// those derived through its actions, normalized.
func (e *Engine) incidentTechniqueSet(inc ontology.IRI) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range e.graph.Objects(inc, ontology.InvolvesTechnique) {
		set[techid.Normalize(string(t))] = struct{}{}
	}
	for _, a := range e.graph.Objects(inc, ontology.HasAction) {
		for _, t := range e.graph.Objects(a, ontology.RelatesToTechnique) {
			set[techid.Normalize(string(t))] = struct{}{}
		}
	}
	return set
}

// ActionsForIncident lists the actions of an incident, sorted.
func (e *Engine) ActionsForIncident(ctx context.Context, incident ontology.IRI) []ontology.IRI {
	if sg, ok := e.graph.(ontology.SelectGraph); ok {
		rows, err := sg.Select(ctx, ontology.SelectQuery{
			Vars: []string{"a"},
			Patterns: []ontology.Pattern{{
				Subject: ontology.I(incident),
				Paths:   [][]ontology.IRI{{ontology.HasAction}},
				Object:  ontology.V("a"),
			}},
		})
		if err == nil {
			return rowValues(rows, "a")
		}
		e.log.DebugContext(ctx, "select actions failed, using traversal", "error", err)
	}
	return sortedUnique(e.graph.Objects(incident, ontology.HasAction))
}

// TechniquesForIncident lists the directly materialized technique relations
// of an incident, sorted.
func (e *Engine) TechniquesForIncident(ctx context.Context, incident ontology.IRI) []ontology.IRI {
	if sg, ok := e.graph.(ontology.SelectGraph); ok {
		rows, err := sg.Select(ctx, ontology.SelectQuery{
			Vars: []string{"t"},
			Patterns: []ontology.Pattern{{
				Subject: ontology.I(incident),
				Paths:   [][]ontology.IRI{{ontology.InvolvesTechnique}},
				Object:  ontology.V("t"),
			}},
		})
		if err == nil {
			return rowValues(rows, "t")
		}
		e.log.DebugContext(ctx, "select techniques failed, using traversal", "error", err)
	}
	return sortedUnique(e.graph.Objects(incident, ontology.InvolvesTechnique))
}

// DeduceTechniquesForIncident derives an incident's techniques through its
// actions, for graphs where the direct relation is not materialized.
func (e *Engine) DeduceTechniquesForIncident(ctx context.Context, incident ontology.IRI) []ontology.IRI {
	if sg, ok := e.graph.(ontology.SelectGraph); ok {
		rows, err := sg.Select(ctx, ontology.SelectQuery{
			Vars: []string{"t"},
			Patterns: []ontology.Pattern{{
				Subject: ontology.I(incident),
				Paths:   [][]ontology.IRI{{ontology.HasAction, ontology.RelatesToTechnique}},
				Object:  ontology.V("t"),
			}},
		})
		if err == nil {
			return rowValues(rows, "t")
		}
		e.log.DebugContext(ctx, "select deduced techniques failed, using traversal", "error", err)
	}

	var out []ontology.IRI
	for _, a := range e.graph.Objects(incident, ontology.HasAction) {
		out = append(out, e.graph.Objects(a, ontology.RelatesToTechnique)...)
	}
	return sortedUnique(out)
}

// ActionTechniquePairs returns the (action, technique) relation restricted
// to the given actions, deduplicated and sorted.
func (e *Engine) ActionTechniquePairs(ctx context.Context, actions []ontology.IRI) []Pair {
	if len(actions) == 0 {
		return nil
	}
	wanted := make(map[ontology.IRI]struct{}, len(actions))
	for _, a := range actions {
		wanted[a] = struct{}{}
	}

	var pairs []Pair
	if sg, ok := e.graph.(ontology.SelectGraph); ok {
		rows, err := sg.Select(ctx, ontology.SelectQuery{
			Vars: []string{"a", "t"},
			Patterns: []ontology.Pattern{{
				Subject: ontology.V("a"),
				Paths:   [][]ontology.IRI{{ontology.RelatesToTechnique}},
				Object:  ontology.V("t"),
			}},
			Filters: []ontology.Filter{{
				Var: "a",
				Accept: func(v ontology.IRI) bool {
					_, ok := wanted[v]
					return ok
				},
			}},
		})
		if err == nil {
			for _, row := range rows {
				pairs = append(pairs, Pair{Action: row["a"], Technique: row["t"]})
			}
			return sortedPairs(pairs)
		}
		e.log.DebugContext(ctx, "select pairs failed, using traversal", "error", err)
	}

	for _, a := range actions {
		for _, t := range e.graph.Objects(a, ontology.RelatesToTechnique) {
			pairs = append(pairs, Pair{Action: a, Technique: t})
		}
	}
	return sortedPairs(pairs)
}

// Label resolves a node's display label, preferring rdfs:label and falling
// back to the IRI fragment. Results are memoized for the engine's lifetime.
func (e *Engine) Label(iri ontology.IRI) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if label, ok := e.labels[iri]; ok {
		return label
	}

	label := techid.LastFragment(string(iri))
	if objs := e.graph.Objects(iri, ontology.RDFSLabel); len(objs) > 0 {
		label = string(objs[0])
	}
	e.labels[iri] = label
	return label
}

func (e *Engine) storeCache(ctx context.Context, key string, incidents []ontology.IRI) {
	if e.cache == nil {
		return
	}
	vals := make([]string, 0, len(incidents))
	for _, inc := range incidents {
		vals = append(vals, string(inc))
	}
	e.cache.Set(ctx, key, vals)
}

func normalizeSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if n := techid.Normalize(id); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func intersects(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func toIRIs(vals []string) []ontology.IRI {
	out := make([]ontology.IRI, 0, len(vals))
	for _, v := range vals {
		out = append(out, ontology.IRI(v))
	}
	return out
}

func rowValues(rows []ontology.Binding, name string) []ontology.IRI {
	var out []ontology.IRI
	for _, row := range rows {
		out = append(out, row[name])
	}
	return sortedUnique(out)
}

func sortedUnique(vals []ontology.IRI) []ontology.IRI {
	if len(vals) == 0 {
		return nil
	}
	seen := make(map[ontology.IRI]struct{}, len(vals))
	out := make([]ontology.IRI, 0, len(vals))
	for _, v := range vals {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sortIRIs(out)
	return out
}

func sortIRIs(vals []ontology.IRI) {
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
}

func sortedPairs(pairs []Pair) []Pair {
	if len(pairs) == 0 {
		return nil
	}
	seen := make(map[Pair]struct{}, len(pairs))
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Action != out[j].Action {
			return out[i].Action < out[j].Action
		}
		return out[i].Technique < out[j].Technique
	})
	return out
}
