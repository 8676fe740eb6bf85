package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdocs/ragd/internal/service"
)

func newIngestCmd() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "ingest [corpus-dir]",
		Short: "Chunk, embed, and index a document corpus",
		Long: `Ingest loads every plain-text document under the corpus directory,
splits it into overlapping chunks, embeds them, and publishes a new index.

If an index already exists the corpus is not re-embedded; pass --clear to
force a full rebuild.

Examples:
  ragd ingest ./data
  ragd ingest ./data --clear`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newAppEnv(false)
			if err != nil {
				return err
			}
			defer env.cleanup()

			dir := env.cfg.Paths.CorpusDir
			if len(args) == 1 {
				dir = args[0]
			}

			res, err := env.svc.Ingest(cmd.Context(), dir, clear)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Replace an existing index")

	return cmd
}

func printResult(cmd *cobra.Command, res service.Result) {
	if res.Status == service.StatusWarning {
		fmt.Fprintf(cmd.OutOrStdout(), "Warning: %s\n", res.Message)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Message)
}
