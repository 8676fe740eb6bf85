package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// queryOptions holds CLI flags for query.
type queryOptions struct {
	k          int
	searchType string
	format     string // "text", "json"
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question from the indexed corpus",
		Long: `Query embeds the question, retrieves the most relevant passages from
the index, and generates an answer grounded in them.

Requires OPENAI_API_KEY (environment or .env) for answer generation.

Examples:
  ragd query "When does city hall open?"
  ragd query "summarize the permit process" --type mmr -k 8
  ragd query "opening hours" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newAppEnv(true)
			if err != nil {
				return err
			}
			defer env.cleanup()

			question := strings.Join(args, " ")
			searchType := opts.searchType
			if searchType == "" {
				searchType = env.cfg.Search.Mode
			}

			ans, err := env.svc.Query(cmd.Context(), question, searchType, opts.k)
			if err != nil {
				return err
			}

			if opts.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ans)
			}

			fmt.Fprintln(cmd.OutOrStdout(), ans.Answer)
			if len(ans.Sources) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\nSources: %s\n", strings.Join(ans.Sources, ", "))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.k, "top-k", "k", 0, "Number of passages to retrieve (1-20, 0 = config default)")
	cmd.Flags().StringVarP(&opts.searchType, "type", "t", "", "Search mode: similarity or mmr")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}
