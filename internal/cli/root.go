package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gmao-cli/internal/config"
	"gmao-cli/internal/format"
	"gmao-cli/internal/gateway"
	"gmao-cli/internal/logger"
	"gmao-cli/internal/model"
	"gmao-cli/internal/store"
	"gmao-cli/internal/tui"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type App struct {
	ConfigDir  string
	APIURL     string
	PrettyJSON bool
	Format     string

	cfg   *config.Config
	log   *logrus.Logger
	store store.Store
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "gmao",
		Short:        "Maintenance work orders from the terminal (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  gmao

  # Sign in once; the token is kept until logout
  gmao login --username chef

  # Scriptable commands
  gmao tasks list --status "in progress"
  gmao notifications list --unread

  # Direct task lookup (shortcut for: gmao tasks show 12)
  gmao ORDT-12
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return logger.Close()
	}

	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", envOr("GMAO_CONFIG_DIR", ""), "Client state directory (default ~/.gmao)")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api", "", "Backend base URL (overrides GMAO_API_URL and config.yaml)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", "", "Output format (json|edn|text)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newTechniciansCmd(app))
	cmd.AddCommand(newOrdersCmd(app))
	cmd.AddCommand(newNotificationsCmd(app))
	cmd.AddCommand(newChecklistCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newChefsCmd(app))
	cmd.AddCommand(newTemplatesCmd(app))
	cmd.AddCommand(newReportsCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// init resolves configuration (flag > env > config file > default) and opens the log.
func (app *App) init(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return writeErr(cmd, err)
	}
	cfg, err := config.Load(app.ConfigDir)
	if err != nil {
		return writeErr(cmd, err)
	}
	if v := strings.TrimSpace(app.APIURL); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(app.Format); v != "" {
		cfg.Format = v
	}
	app.cfg = cfg
	app.Format = cfg.Format
	app.store = store.New(cfg.Dir)

	l, err := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		// Logging is never a reason to refuse a command.
		l = logger.Discard()
	}
	app.log = l
	app.log.WithFields(logrus.Fields{"command": cmd.CommandPath(), "api": cfg.APIURL}).Debug("start")
	return nil
}

func (app *App) client(token string) *gateway.Client {
	return gateway.New(app.cfg.APIURL,
		gateway.WithToken(token),
		gateway.WithTimeout(app.cfg.Timeout),
		gateway.WithLogger(app.log),
	)
}

// session returns the stored session and a client carrying its token.
func (app *App) session(ctx context.Context) (model.Session, *gateway.Client, error) {
	p, err := app.store.Load(ctx)
	if err != nil {
		return model.Session{}, nil, fmt.Errorf("read session: %w", err)
	}
	sess, ok := p.Session()
	if !ok {
		return model.Session{}, nil, errNotLoggedIn
	}
	return sess, app.client(sess.Token), nil
}

func runTUI(cmd *cobra.Command, app *App) error {
	return tui.Run(cmd.Context(), tui.Options{
		Store:  app.store,
		Client: app.client,
		Log:    app.log,
		Glyphs: app.cfg.TUI.Glyphs,
		Style:  app.cfg.TUI.MarkdownStyle,
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, r format.Result) error {
	return format.Write(cmd.OutOrStdout(), r, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), describe(err))
	return err
}
