package ontology

import (
	"context"
	"fmt"
	"strings"
)

type triple struct {
	s, p, o IRI
}

// MemStore is an in-memory triple store. It is populated once at load time
// and treated as read-only afterwards; reads need no synchronization.
// MemStore implements both Graph and SelectGraph.
type MemStore struct {
	spo map[IRI]map[IRI][]IRI // subject → predicate → objects
	pos map[IRI]map[IRI][]IRI // predicate → object → subjects
	pso map[IRI]map[IRI][]IRI // predicate → subject → objects

	seen map[triple]struct{}
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		spo:  make(map[IRI]map[IRI][]IRI),
		pos:  make(map[IRI]map[IRI][]IRI),
		pso:  make(map[IRI]map[IRI][]IRI),
		seen: make(map[triple]struct{}),
	}
}

// Add inserts one triple. Duplicate triples are ignored.
func (m *MemStore) Add(s, p, o IRI) {
	t := triple{s, p, o}
	if _, dup := m.seen[t]; dup {
		return
	}
	m.seen[t] = struct{}{}
	index(m.spo, s, p, o)
	index(m.pos, p, o, s)
	index(m.pso, p, s, o)
}

func index(idx map[IRI]map[IRI][]IRI, a, b, c IRI) {
	inner, ok := idx[a]
	if !ok {
		inner = make(map[IRI][]IRI)
		idx[a] = inner
	}
	inner[b] = append(inner[b], c)
}

// Len returns the number of distinct triples in the store.
func (m *MemStore) Len() int { return len(m.seen) }

// Objects implements Graph. The returned slice is shared; callers must not
// modify it.
func (m *MemStore) Objects(subject, predicate IRI) []IRI {
	return m.spo[subject][predicate]
}

// Subjects implements Graph. The returned slice is shared; callers must not
// modify it.
func (m *MemStore) Subjects(predicate, object IRI) []IRI {
	return m.pos[predicate][object]
}

// Select evaluates a declarative query by joining its patterns in order,
// applying filters to the surviving rows and projecting onto q.Vars.
func (m *MemStore) Select(ctx context.Context, q SelectQuery) ([]Binding, error) {
	rows := []Binding{{}}
	for _, p := range q.Patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(p.Paths) == 0 {
			return nil, fmt.Errorf("ontology: pattern without predicate path")
		}
		var next []Binding
		for _, row := range rows {
			next = append(next, m.matchPattern(row, p)...)
		}
		rows = next
		if len(rows) == 0 {
			return nil, nil
		}
	}

	var kept []Binding
	for _, row := range rows {
		ok := true
		for _, f := range q.Filters {
			v, bound := row[f.Var]
			if !bound || f.Accept == nil || !f.Accept(v) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, row)
		}
	}

	return project(kept, q.Vars), nil
}

// project reduces rows to the requested variables and drops duplicates.
func project(rows []Binding, vars []string) []Binding {
	var out []Binding
	dedup := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		proj := make(Binding, len(vars))
		var key strings.Builder
		for _, v := range vars {
			proj[v] = row[v]
			key.WriteString(string(row[v]))
			key.WriteByte(0)
		}
		if _, dup := dedup[key.String()]; dup {
			continue
		}
		dedup[key.String()] = struct{}{}
		out = append(out, proj)
	}
	return out
}

// matchPattern extends one candidate row with every solution of a pattern.
func (m *MemStore) matchPattern(row Binding, p Pattern) []Binding {
	sVal, sBound := resolve(row, p.Subject)
	oVal, oBound := resolve(row, p.Object)

	var out []Binding
	switch {
	case sBound && oBound:
		for _, o := range m.reachForward(sVal, p.Paths) {
			if o == oVal {
				out = append(out, row)
				break
			}
		}
	case sBound:
		for _, o := range m.reachForward(sVal, p.Paths) {
			out = append(out, extend(row, p.Object.Var, o))
		}
	case oBound:
		for _, s := range m.reachBackward(oVal, p.Paths) {
			out = append(out, extend(row, p.Subject.Var, s))
		}
	default:
		// Both ends unbound: enumerate subjects that carry the first
		// predicate of any alternative, then walk forward.
		type pair struct{ s, o IRI }
		dedup := make(map[pair]struct{})
		for _, path := range p.Paths {
			if len(path) == 0 {
				continue
			}
			for s := range m.pso[path[0]] {
				for _, o := range m.traverseForward(s, path) {
					pr := pair{s, o}
					if _, dup := dedup[pr]; dup {
						continue
					}
					dedup[pr] = struct{}{}
					next := extend(row, p.Subject.Var, s)
					out = append(out, extend(next, p.Object.Var, o))
				}
			}
		}
	}
	return out
}

func resolve(row Binding, t Term) (IRI, bool) {
	if !t.isVar() {
		return t.IRI, true
	}
	v, ok := row[t.Var]
	return v, ok
}

func extend(row Binding, name string, value IRI) Binding {
	next := make(Binding, len(row)+1)
	for k, v := range row {
		next[k] = v
	}
	if name != "" {
		next[name] = value
	}
	return next
}

// reachForward unions the nodes reachable from subject over each
// alternative predicate sequence.
func (m *MemStore) reachForward(subject IRI, paths [][]IRI) []IRI {
	var out []IRI
	dedup := make(map[IRI]struct{})
	for _, path := range paths {
		for _, o := range m.traverseForward(subject, path) {
			if _, dup := dedup[o]; dup {
				continue
			}
			dedup[o] = struct{}{}
			out = append(out, o)
		}
	}
	return out
}

// reachBackward unions the nodes from which object is reachable over each
// alternative predicate sequence.
func (m *MemStore) reachBackward(object IRI, paths [][]IRI) []IRI {
	var out []IRI
	dedup := make(map[IRI]struct{})
	for _, path := range paths {
		for _, s := range m.traverseBackward(object, path) {
			if _, dup := dedup[s]; dup {
				continue
			}
			dedup[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func (m *MemStore) traverseForward(from IRI, path []IRI) []IRI {
	if len(path) == 0 {
		return nil
	}
	frontier := []IRI{from}
	for _, pred := range path {
		var next []IRI
		dedup := make(map[IRI]struct{})
		for _, n := range frontier {
			for _, o := range m.Objects(n, pred) {
				if _, dup := dedup[o]; dup {
					continue
				}
				dedup[o] = struct{}{}
				next = append(next, o)
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	return frontier
}

func (m *MemStore) traverseBackward(to IRI, path []IRI) []IRI {
	if len(path) == 0 {
		return nil
	}
	frontier := []IRI{to}
	for i := len(path) - 1; i >= 0; i-- {
		var next []IRI
		dedup := make(map[IRI]struct{})
		for _, n := range frontier {
			for _, s := range m.Subjects(path[i], n) {
				if _, dup := dedup[s]; dup {
					continue
				}
				dedup[s] = struct{}{}
				next = append(next, s)
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	return frontier
}
