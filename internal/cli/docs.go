package cli

import (
	"fmt"

	"gmao-cli/internal/docs"
	"gmao-cli/internal/format"

	"github.com/spf13/cobra"
)

func newDocsCmd(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:       "docs [topic]",
		Short:     "Show short guides (statuses, notifications, session, tui)",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: docs.Topics(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				topics := docs.Topics()
				tbl := &format.Table{Headers: []string{"TOPIC"}}
				for _, t := range topics {
					tbl.Rows = append(tbl.Rows, []string{t})
				}
				return writeOut(cmd, app, format.Result{Data: map[string]any{"topics": topics}, Table: tbl})
			}

			body, ok := docs.Get(args[0])
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown docs topic %q (run `gmao docs` to list topics)", args[0]))
			}
			if raw || app.Format == "text" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			return writeOut(cmd, app, format.Result{Data: map[string]any{"topic": args[0], "markdown": body}})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw markdown (no JSON envelope)")

	return cmd
}
