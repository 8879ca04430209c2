package cli

import (
	"gmao-cli/internal/config"
	"gmao-cli/internal/format"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change config.yaml",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.cfg
			data := map[string]string{
				"dir":                c.Dir,
				"api_url":            c.APIURL,
				"timeout":            c.Timeout.String(),
				"format":             c.Format,
				"log.level":          c.Log.Level,
				"log.file":           c.Log.File,
				"tui.glyphs":         c.TUI.Glyphs,
				"tui.markdown_style": c.TUI.MarkdownStyle,
			}
			t := &format.Table{Headers: []string{"KEY", "VALUE"}, Rows: [][]string{{"dir", c.Dir}}}
			for _, k := range config.Keys {
				t.Rows = append(t.Rows, []string{k, data[k]})
			}
			return writeOut(cmd, app, format.Result{Data: data, Table: t})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set one key in config.yaml (an empty value clears it)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.ReadFile(app.cfg.Dir)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := f.Set(args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := config.WriteFile(app.cfg.Dir, f); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: map[string]any{args[0]: args[1]}})
		},
	})

	return cmd
}
