package commands

import (
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/threatbridge/threatbridge/internal/alerts"
	"github.com/threatbridge/threatbridge/internal/correlate"
	"github.com/threatbridge/threatbridge/internal/ontology"
)

var correlateCmd = &cobra.Command{
	Use:   "correlate [file]",
	Short: "Correlate an alert payload against the incident knowledge graph",
	Long: `Extract technique identifiers from an alert payload and match them
against the incident knowledge graph. Matched incidents are printed ranked
by the number of associated actions.

Reads from stdin when no file is given. Identifiers can also be passed
directly with --ids, skipping payload parsing.`,
	Example: `  threatbridge correlate alert.json --graph kb.yaml
  threatbridge correlate --ids T1190,T1059.001`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadGraph(cmd)
		if err != nil {
			return err
		}
		engine, err := newEngine(store)
		if err != nil {
			return err
		}

		ids, _ := cmd.Flags().GetStringSlice("ids")
		if len(ids) == 0 {
			raw, err := readPayload(args)
			if err != nil {
				return err
			}
			batch := alerts.NewLoader(log.Logger).LoadBytes(raw)
			ids = alerts.ExtractTechniqueIDs(batch)
		}

		res, err := engine.IncidentsForTechniques(cmd.Context(), ids)
		if err != nil {
			return err
		}

		type actionOut struct {
			Label     string `json:"label"`
			Technique string `json:"technique,omitempty"`
		}
		type incidentOut struct {
			IRI        string      `json:"iri"`
			Label      string      `json:"label"`
			Actions    []actionOut `json:"actions"`
			Techniques []string    `json:"techniques"`
		}

		ranked := engine.RankIncidents(cmd.Context(), res.Incidents)
		incidents := make([]incidentOut, 0, len(ranked))
		for _, inc := range ranked {
			out := incidentOut{
				IRI:     string(inc.IRI),
				Label:   inc.Label,
				Actions: make([]actionOut, 0, len(inc.Actions)),
			}
			byAction := make(map[ontology.IRI]ontology.IRI)
			for _, p := range engine.ActionTechniquePairs(cmd.Context(), inc.Actions) {
				if _, dup := byAction[p.Action]; !dup {
					byAction[p.Action] = p.Technique
				}
			}
			for _, a := range inc.Actions {
				ao := actionOut{Label: engine.Label(a)}
				if t, ok := byAction[a]; ok {
					ao.Technique = engine.Label(t)
				}
				out.Actions = append(out.Actions, ao)
			}
			for _, t := range inc.Techniques {
				out.Techniques = append(out.Techniques, engine.Label(t))
			}
			incidents = append(incidents, out)
		}

		return printJSON(cmd, map[string]any{
			"technique_ids": ids,
			"path":          res.Path,
			"incidents":     incidents,
		})
	},
}

func init() {
	rootCmd.AddCommand(correlateCmd)

	correlateCmd.Flags().String("graph", "", "knowledge base YAML file (overrides config)")
	correlateCmd.Flags().StringSlice("ids", nil, "technique identifiers to correlate directly")
}

// newEngine builds the correlation engine, attaching the Redis result cache
// when one is configured.
func newEngine(graph ontology.Graph) (*correlate.Engine, error) {
	opts := []correlate.Option{correlate.WithLogger(log)}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts = append(opts, correlate.WithCache(correlate.NewRedisCache(rdb, cfg.Redis.TTL(), log.Logger)))
	}
	return correlate.New(graph, opts...)
}
