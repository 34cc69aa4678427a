// Package ontology exposes typed read access to the incident/action/technique
// knowledge graph. The graph is a triple store: backends always provide basic
// edge enumeration (the Graph interface), and may additionally evaluate small
// declarative select queries (the SelectGraph interface). Correlation relies
// only on Graph for correctness; SelectGraph is a performance optimization.
package ontology

// IRI identifies a graph node. Literal values (labels) are carried in the
// same type; a triple store does not care.
type IRI string

// Namespaces of the bridge ontology and the VERIS incident corpus. They must
// match the IRIs minted by the knowledge-base build.
const (
	BridgeNS = "http://example.org/bridge#"
	VerisNS  = "http://example.org/veris#"
	rdfNS    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	rdfsNS   = "http://www.w3.org/2000/01/rdf-schema#"
)

// Well-known predicates and classes.
var (
	RDFType   = IRI(rdfNS + "type")
	RDFSLabel = IRI(rdfsNS + "label")

	IncidentClass  = IRI(VerisNS + "Incident")
	ActionClass    = IRI(VerisNS + "Action")
	TechniqueClass = IRI(BridgeNS + "Technique")

	HasAction          = IRI(BridgeNS + "hasAction")
	RelatesToTechnique = IRI(BridgeNS + "relatesToTechnique")
	InvolvesTechnique  = IRI(BridgeNS + "involvesTechnique")
)

// Graph is the minimal edge-enumeration contract every backend provides.
// The correlation fallback path depends on nothing beyond these two methods.
type Graph interface {
	// Objects lists the objects of all (subject, predicate, ?) triples.
	Objects(subject, predicate IRI) []IRI
	// Subjects lists the subjects of all (?, predicate, object) triples.
	Subjects(predicate, object IRI) []IRI
}
