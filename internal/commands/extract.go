package commands

import (
	"github.com/spf13/cobra"

	"github.com/threatbridge/threatbridge/internal/alerts"
	"github.com/threatbridge/threatbridge/internal/metrics"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract technique identifiers from an alert payload",
	Long: `Parse an alert payload (single JSON object, JSON array, newline-delimited
records or a search-engine hit envelope) and print the normalized MITRE
technique identifiers plus per-alert metadata.

Reads from stdin when no file is given.`,
	Example: `  threatbridge extract alerts.json
  cat alerts.ndjson | threatbridge extract`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readPayload(args)
		if err != nil {
			return err
		}

		batch := alerts.NewLoader(log.Logger).LoadBytes(raw)
		metrics.BatchesLoaded.WithLabelValues(batch.Kind.String()).Inc()

		return printJSON(cmd, map[string]any{
			"kind":          batch.Kind.String(),
			"records":       len(batch.Records()),
			"technique_ids": alerts.ExtractTechniqueIDs(batch),
			"alerts":        alerts.ExtractAllMetadata(batch),
		})
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
