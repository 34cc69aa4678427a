package retrieval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadCorpusYAML reads a retrieval corpus from a YAML file: a list of
// {title, content} entries under a top-level "documents" key.
func LoadCorpusYAML(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var doc struct {
		Documents []Document `yaml:"documents"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return doc.Documents, nil
}

// DefaultCorpus is the built-in documentation corpus used when no corpus
// file is configured. Short passages describing the techniques most common
// in the incident knowledge base.
func DefaultCorpus() []Document {
	return []Document{
		{
			Title: "Exploit Public-Facing Application (T1190)",
			Content: "Adversaries may attempt to exploit a weakness in an " +
				"internet-facing host or application. SQL injection, " +
				"deserialization flaws and unpatched CVEs in web frameworks " +
				"are common entry points. Mitigations include patching, " +
				"web application firewalls and input validation.",
		},
		{
			Title: "Command and Scripting Interpreter: PowerShell (T1059.001)",
			Content: "Adversaries abuse PowerShell for execution of commands " +
				"and payloads. Typical signals are encoded commands, " +
				"download cradles and suspicious parent processes. Enable " +
				"script block logging and constrained language mode.",
		},
		{
			Title: "Phishing: Spearphishing Attachment (T1566.001)",
			Content: "Spearphishing with a malicious attachment targets " +
				"specific users with tailored lures. Macro documents and " +
				"archive files carrying executables remain the dominant " +
				"delivery vehicles. User training and attachment detonation " +
				"reduce exposure.",
		},
		{
			Title: "Brute Force (T1110)",
			Content: "Adversaries may systematically guess passwords: " +
				"credential stuffing, password spraying and online brute " +
				"force against exposed services such as SSH and RDP. " +
				"Account lockout policies and MFA are the primary controls.",
		},
		{
			Title: "Data Encrypted for Impact (T1486)",
			Content: "Ransomware operators encrypt data on target systems " +
				"to interrupt availability and demand payment. Precursors " +
				"include shadow copy deletion and mass file renames. " +
				"Offline backups and rapid isolation limit the blast radius.",
		},
	}
}
