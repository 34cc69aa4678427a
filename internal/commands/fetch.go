package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/threatbridge/threatbridge/internal/alerts"
	"github.com/threatbridge/threatbridge/internal/collector"
	"github.com/threatbridge/threatbridge/internal/metrics"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch recent alerts from the Wazuh indexer",
	Long: `Pull recent alerts from the configured Wazuh indexer and print the
extracted technique identifiers and per-alert metadata. With --raw the
untouched search response envelope is printed instead.`,
	Example: `  threatbridge fetch --size 50
  threatbridge fetch --since 24h --raw`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := collector.NewClient(collector.Config{
			URL:           cfg.Wazuh.URL,
			Username:      cfg.Wazuh.Username,
			Password:      cfg.Wazuh.Password,
			TLSSkipVerify: cfg.Wazuh.Insecure,
			Index:         cfg.Wazuh.Index,
			Timeout:       30 * time.Second,
		})
		if err != nil {
			return err
		}

		size, _ := cmd.Flags().GetInt("size")
		since, _ := cmd.Flags().GetDuration("since")

		var raw []byte
		if since > 0 {
			raw, err = client.FetchAlertsSince(cmd.Context(), time.Now().Add(-since), size)
		} else {
			raw, err = client.FetchAlerts(cmd.Context(), size)
		}
		if err != nil {
			return err
		}

		if rawOut, _ := cmd.Flags().GetBool("raw"); rawOut {
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
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
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().Int("size", 100, "maximum number of alerts to fetch")
	fetchCmd.Flags().Duration("since", 0, "only fetch alerts newer than this age (e.g. 1h, 24h)")
	fetchCmd.Flags().Bool("raw", false, "print the raw search response envelope")
}
