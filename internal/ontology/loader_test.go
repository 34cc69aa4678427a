package ontology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleKB = `
incidents:
  - id: incident-2019-0042
    label: "Web server compromise via SQL injection"
    techniques: [T1190]
    actions:
      - id: action-hacking-sqli
        label: "SQL injection against customer portal"
        techniques: [T1190]
      - id: action-malware-backdoor
        label: "Backdoor dropped post-exploitation"
        techniques: ["T1059.001"]
  - id: incident-2021-0007
    label: "Credential stuffing campaign"
    actions:
      - id: action-hacking-bruteforce
        label: "Password spraying from botnet"
        techniques: [T1110]
`

func TestParseYAML(t *testing.T) {
	store, err := ParseYAML([]byte(sampleKB))
	require.NoError(t, err)

	incidents := store.Subjects(RDFType, IncidentClass)
	assert.Len(t, incidents, 2)

	inc := IRI(VerisNS + "incident-2019-0042")
	assert.Equal(t, []string{VerisNS + "action-hacking-sqli", VerisNS + "action-malware-backdoor"},
		iris(store.Objects(inc, HasAction)))
	assert.Equal(t, []string{BridgeNS + "T1190"}, iris(store.Objects(inc, InvolvesTechnique)))

	act := IRI(VerisNS + "action-malware-backdoor")
	// Technique references keep their source notation; normalization is the
	// correlation layer's job.
	assert.Equal(t, []string{BridgeNS + "T1059.001"}, iris(store.Objects(act, RelatesToTechnique)))

	assert.Equal(t, []IRI{"Credential stuffing campaign"},
		store.Objects(IRI(VerisNS+"incident-2021-0007"), RDFSLabel))
}

func TestParseYAMLFullIRIPassThrough(t *testing.T) {
	doc := `
incidents:
  - id: "http://other.example/corpus#inc-1"
    techniques: ["http://attack.example/ns#T1190"]
`
	store, err := ParseYAML([]byte(doc))
	require.NoError(t, err)

	inc := IRI("http://other.example/corpus#inc-1")
	assert.Equal(t, []IRI{"http://attack.example/ns#T1190"}, store.Objects(inc, InvolvesTechnique))
}

func TestParseYAMLRejectsMissingIDs(t *testing.T) {
	_, err := ParseYAML([]byte("incidents:\n  - label: no id\n"))
	assert.Error(t, err)

	_, err = ParseYAML([]byte("incidents:\n  - id: ok\n    actions:\n      - label: no id\n"))
	assert.Error(t, err)
}

func TestParseYAMLInvalid(t *testing.T) {
	_, err := ParseYAML([]byte("\tnot yaml"))
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleKB), 0o644))

	store, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Greater(t, store.Len(), 0)

	_, err = LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
