package ontology

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Knowledge-base document shape. Incidents own actions; both may reference
// techniques. Technique references are kept exactly as written; the
// correlation layer normalizes at comparison time, so "T1059.001",
// "t1059_001" and a full technique IRI all work.
type kbDocument struct {
	Incidents []kbIncident `yaml:"incidents"`
}

type kbIncident struct {
	ID         string     `yaml:"id"`
	Label      string     `yaml:"label"`
	Techniques []string   `yaml:"techniques"`
	Actions    []kbAction `yaml:"actions"`
}

type kbAction struct {
	ID         string   `yaml:"id"`
	Label      string   `yaml:"label"`
	Techniques []string `yaml:"techniques"`
}

// LoadYAML reads a knowledge-base document from disk and materializes it as
// a MemStore.
func LoadYAML(path string) (*MemStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML builds a MemStore from a YAML knowledge-base document.
func ParseYAML(data []byte) (*MemStore, error) {
	var doc kbDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}

	store := NewMemStore()
	for _, inc := range doc.Incidents {
		if inc.ID == "" {
			return nil, fmt.Errorf("parse knowledge base: incident without id")
		}
		incIRI := mint(inc.ID, VerisNS)
		store.Add(incIRI, RDFType, IncidentClass)
		if inc.Label != "" {
			store.Add(incIRI, RDFSLabel, IRI(inc.Label))
		}
		for _, tech := range inc.Techniques {
			store.Add(incIRI, InvolvesTechnique, mintTechnique(store, tech))
		}
		for _, act := range inc.Actions {
			if act.ID == "" {
				return nil, fmt.Errorf("parse knowledge base: action without id in incident %q", inc.ID)
			}
			actIRI := mint(act.ID, VerisNS)
			store.Add(incIRI, HasAction, actIRI)
			store.Add(actIRI, RDFType, ActionClass)
			if act.Label != "" {
				store.Add(actIRI, RDFSLabel, IRI(act.Label))
			}
			for _, tech := range act.Techniques {
				store.Add(actIRI, RelatesToTechnique, mintTechnique(store, tech))
			}
		}
	}
	return store, nil
}

// mint turns a knowledge-base reference into an IRI: full IRIs pass through,
// bare names go under the given namespace.
func mint(ref, ns string) IRI {
	if strings.Contains(ref, "://") {
		return IRI(ref)
	}
	return IRI(ns + ref)
}

func mintTechnique(store *MemStore, ref string) IRI {
	iri := mint(ref, BridgeNS)
	store.Add(iri, RDFType, TechniqueClass)
	return iri
}
