package cmd

import (
	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add a single document to the existing index",
		Long: `Add chunks and embeds one document and appends it to the current
index. An index must already exist; run 'ragd ingest' first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newAppEnv(false)
			if err != nil {
				return err
			}
			defer env.cleanup()

			res, err := env.svc.IngestFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}

	return cmd
}
