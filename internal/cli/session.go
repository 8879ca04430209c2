package cli

import (
	"bufio"
	"errors"
	"strings"

	"gmao-cli/internal/format"
	"gmao-cli/internal/model"

	"github.com/spf13/cobra"
)

// sessionView is a session as printed; the token never reaches stdout.
type sessionView struct {
	UserID   int        `json:"user_id"`
	Username string     `json:"username"`
	Name     string     `json:"name"`
	Role     model.Role `json:"role"`
}

func viewOf(s model.Session) sessionView {
	return sessionView{UserID: s.UserID, Username: s.Username, Name: s.Name, Role: s.Role}
}

func sessionTable(s model.Session) *format.Table {
	return &format.Table{
		Headers: []string{"USERNAME", "NAME", "ROLE"},
		Rows:    [][]string{{s.Username, s.Name, string(s.Role)}},
	}
}

func newLoginCmd(app *App) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the token for later commands",
		Long:  "Sign in with a username and password. Without --password the password is read from the first line of stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			if username == "" {
				return writeErr(cmd, errors.New("missing --username"))
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return writeErr(cmd, errors.New("missing --password (or pipe it on stdin)"))
				}
				password = strings.TrimRight(line, "\r\n")
			}

			ctx := cmd.Context()
			sess, err := app.client("").Login(ctx, username, password)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := model.Check(sess); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.store.SaveSession(ctx, sess); err != nil {
				return writeErr(cmd, err)
			}
			app.log.WithField("user", sess.Username).Info("logged in")
			return writeOut(cmd, app, format.Result{Data: viewOf(sess), Table: sessionTable(sess)})
		},
	}

	cmd.Flags().StringVar(&username, "username", envOr("GMAO_USERNAME", ""), "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password (prefer stdin)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token, user and filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.store.Clear(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			app.log.Info("logged out")
			return writeOut(cmd, app, format.Result{Data: map[string]any{"logged_out": true}})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := app.session(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: viewOf(sess), Table: sessionTable(sess)})
		},
	}
}
