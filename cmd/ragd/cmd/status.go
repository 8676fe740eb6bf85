package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the persisted index",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newAppEnv(false)
			if err != nil {
				return err
			}
			defer env.cleanup()

			st, err := env.svc.Status(cmd.Context())
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			out := cmd.OutOrStdout()
			if !st.Persisted {
				fmt.Fprintf(out, "No index at %s. Run 'ragd ingest' to build one.\n", st.Path)
				return nil
			}
			fmt.Fprintf(out, "Index:      %s\n", st.Path)
			fmt.Fprintf(out, "State:      %s\n", st.State)
			fmt.Fprintf(out, "Entries:    %d\n", st.Entries)
			fmt.Fprintf(out, "Dimensions: %d\n", st.Dimensions)
			if !st.CreatedAt.IsZero() {
				fmt.Fprintf(out, "Created:    %s\n", st.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}
