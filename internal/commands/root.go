// Package commands implements the threatbridge command-line interface.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/threatbridge/threatbridge/internal/config"
	"github.com/threatbridge/threatbridge/internal/logging"
	"github.com/threatbridge/threatbridge/internal/ontology"
	"github.com/threatbridge/threatbridge/internal/retrieval"
)

// Version is the CLI version, overridable at build time.
var Version = "0.1.0"

var (
	cfgFile string
	cfg     *config.Config
	log     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "threatbridge",
	Short: "Correlate security alerts against an incident knowledge graph",
	Long: `threatbridge ingests security alerts, extracts MITRE ATT&CK technique
identifiers from them and correlates those identifiers against an incident
knowledge graph. Matched incidents are ranked and enriched with context
passages from a documentation corpus.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: /etc/threatbridge/config.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = &config.Config{}
	}

	log = logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(log)
}

// loadGraph materializes the configured knowledge base into a triple store.
// The --graph flag, when registered on the command, overrides the config.
func loadGraph(cmd *cobra.Command) (*ontology.MemStore, error) {
	path := cfg.Graph.Path
	if cmd.Flags().Lookup("graph") != nil {
		if v, _ := cmd.Flags().GetString("graph"); v != "" {
			path = v
		}
	}
	if path == "" {
		return nil, errors.New("no knowledge base configured (set graph.path or pass --graph)")
	}
	return ontology.LoadYAML(path)
}

// loadIndex builds the retrieval index from the configured corpus, falling
// back to the built-in corpus when none is set.
func loadIndex() (*retrieval.Index, error) {
	if cfg.Retrieval.CorpusPath == "" {
		return retrieval.New(retrieval.DefaultCorpus()), nil
	}
	docs, err := retrieval.LoadCorpusYAML(cfg.Retrieval.CorpusPath)
	if err != nil {
		return nil, err
	}
	return retrieval.New(docs), nil
}

// readPayload reads an alert payload from the file argument, or from stdin
// when no argument is given.
func readPayload(args []string) ([]byte, error) {
	if len(args) > 0 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return data, nil
}

// printJSON writes v to the command's stdout as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
