package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search the context corpus",
	Long: `Rank documentation corpus passages against a free text query by lexical
cosine similarity. Uses the built-in corpus unless retrieval.corpus_path is
configured.`,
	Example: `  threatbridge search powershell encoded command
  threatbridge search "sql injection" --top-k 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := loadIndex()
		if err != nil {
			return err
		}

		topK, _ := cmd.Flags().GetInt("top-k")
		if topK <= 0 {
			topK = cfg.Retrieval.TopK
		}

		query := strings.Join(args, " ")
		return printJSON(cmd, map[string]any{
			"query":   query,
			"results": index.Search(query, topK),
		})
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int("top-k", 0, "number of passages to return (default from config)")
}
