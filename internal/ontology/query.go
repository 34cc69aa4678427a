package ontology

import (
	"context"
	"errors"
)

// ErrUnsupportedQuery is returned by backends that provide edge enumeration
// only. Callers are expected to fall back to traversal.
var ErrUnsupportedQuery = errors.New("ontology: select queries not supported by this backend")

// Term is one end of a triple pattern: either a concrete IRI or a variable.
type Term struct {
	IRI IRI
	Var string
}

// V makes a variable term.
func V(name string) Term { return Term{Var: name} }

// I makes a concrete term.
func I(iri IRI) Term { return Term{IRI: iri} }

func (t Term) isVar() bool { return t.Var != "" }

// Pattern matches subject→object reachability. Paths lists alternative
// predicate sequences, each followed subject-to-object in order, so
//
//	Paths: [][]IRI{{InvolvesTechnique}, {HasAction, RelatesToTechnique}}
//
// expresses the involvesTechnique|hasAction/relatesToTechnique alternation
// of the correlation query.
type Pattern struct {
	Subject Term
	Paths   [][]IRI
	Object  Term
}

// Filter restricts the values a bound variable may take.
type Filter struct {
	Var    string
	Accept func(IRI) bool
}

// SelectQuery is the declarative read query evaluated by SelectGraph
// backends. Patterns are joined in order; Filters apply to the final rows;
// the result is projected onto Vars and deduplicated.
type SelectQuery struct {
	Vars     []string
	Patterns []Pattern
	Filters  []Filter
}

// Binding maps variable names to the values of one solution row.
type Binding map[string]IRI

// SelectGraph is implemented by backends with a query engine.
type SelectGraph interface {
	Graph
	Select(ctx context.Context, q SelectQuery) ([]Binding, error)
}
