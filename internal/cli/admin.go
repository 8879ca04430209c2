package cli

import (
	"strings"
	"time"

	"gmao-cli/internal/format"
	"gmao-cli/internal/model"
	"gmao-cli/internal/report"

	"github.com/spf13/cobra"
)

func usersTable(us []model.AdminUser) *format.Table {
	t := &format.Table{Headers: []string{"ID", "USERNAME", "EMAIL", "PROFILE", "ROLE", "ACTIVE", "LAST LOGIN"}}
	for _, u := range us {
		var name, role, last string
		if u.ProfileName != nil {
			name = *u.ProfileName
		}
		if u.ProfileRole != nil {
			role = string(*u.ProfileRole)
		}
		if u.LastLogin != nil {
			last = relTime(*u.LastLogin)
		}
		t.Rows = append(t.Rows, []string{itoa(u.ID), u.Username, u.Email, name, role, boolWord(u.IsActive), last})
	}
	return t
}

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User accounts (Admin)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			us, err := c.ListUsers(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: us, Table: usersTable(us)})
		},
	})

	var nf model.NewUserForm
	var role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user with its profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			nf.ProfileRole = model.Role(strings.TrimSpace(role))
			if errs := nf.Validate(); errs != nil {
				return writeErr(cmd, errInvalid("user not created", errs))
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			u, err := c.CreateUser(ctx, nf)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: u, Table: usersTable([]model.AdminUser{u})})
		},
	}
	create.Flags().StringVar(&nf.Username, "username", "", "Login name")
	create.Flags().StringVar(&nf.Email, "email", "", "Email")
	create.Flags().StringVar(&nf.Password, "password", "", "Password (8+ characters)")
	create.Flags().StringVar(&nf.ConfirmPassword, "confirm-password", "", "Password again")
	create.Flags().StringVar(&nf.FirstName, "first-name", "", "First name")
	create.Flags().StringVar(&nf.LastName, "last-name", "", "Last name")
	create.Flags().StringVar(&nf.ProfileName, "name", "", "Display name")
	create.Flags().StringVar(&role, "role", string(model.RoleChef), "Admin or \"Chef de Parc\"")
	create.Flags().BoolVar(&nf.IsActive, "active", true, "Account is active")
	cmd.AddCommand(create)

	cmd.AddCommand(newUserUpdateCmd(app))

	var yes bool
	del := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIntID("user", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if !confirm(cmd, yes, "Delete user "+args[0]+"?") {
				return writeErr(cmd, errCancelled)
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteUser(ctx, id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: map[string]any{"deleted": id}})
		},
	}
	del.Flags().BoolVar(&yes, "yes", false, "Do not ask for confirmation")
	cmd.AddCommand(del)

	return cmd
}

// newUserUpdateCmd patches a user starting from its current values; flags not passed
// keep them.
func newUserUpdateCmd(app *App) *cobra.Command {
	var (
		email, password, confirmPw, name, role string
		active                                 bool
	)

	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Change a user's email, password, profile or active flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIntID("user", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			us, err := c.ListUsers(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			var cur *model.AdminUser
			for i := range us {
				if us[i].ID == id {
					cur = &us[i]
					break
				}
			}
			if cur == nil {
				return writeErr(cmd, errNotFound("user", args[0]))
			}

			f := model.UpdateUserForm{Email: cur.Email, IsActive: cur.IsActive}
			if cur.ProfileName != nil {
				f.ProfileName = *cur.ProfileName
			}
			if cur.ProfileRole != nil {
				f.ProfileRole = *cur.ProfileRole
			}
			fl := cmd.Flags()
			if fl.Changed("email") {
				f.Email = email
			}
			if fl.Changed("name") {
				f.ProfileName = name
			}
			if fl.Changed("role") {
				f.ProfileRole = model.Role(strings.TrimSpace(role))
			}
			if fl.Changed("active") {
				f.IsActive = active
			}
			f.Password, f.ConfirmPassword = password, confirmPw
			if errs := f.Validate(); errs != nil {
				return writeErr(cmd, errInvalid("user not updated", errs))
			}
			u, err := c.UpdateUser(ctx, id, f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: u, Table: usersTable([]model.AdminUser{u})})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email")
	cmd.Flags().StringVar(&password, "password", "", "New password (empty keeps it)")
	cmd.Flags().StringVar(&confirmPw, "confirm-password", "", "New password again")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&role, "role", "", "Admin or \"Chef de Parc\"")
	cmd.Flags().BoolVar(&active, "active", true, "Account is active")
	return cmd
}

func newChefsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chefs",
		Short: "Chef de Parc profiles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the profiles tasks can be assigned to",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			ps, err := c.ProfilesByRole(ctx, model.RoleChef)
			if err != nil {
				return writeErr(cmd, err)
			}
			t := &format.Table{Headers: []string{"PROFILE", "NAME", "USERNAME"}}
			for _, p := range ps {
				t.Rows = append(t.Rows, []string{itoa(p.ID), p.Name, p.User.Username})
			}
			return writeOut(cmd, app, format.Result{Data: ps, Table: t})
		},
	})
	return cmd
}

func templatesTable(ts []model.PreventiveTemplate) *format.Table {
	t := &format.Table{Headers: []string{"ID", "TITLE", "OI", "EVERY (H)", "DESCRIPTION"}}
	for _, x := range ts {
		oi := x.OrdreValue
		if oi == "" {
			oi = x.OrdreID
		}
		t.Rows = append(t.Rows, []string{itoa(x.ID), x.Title, oi, itoa(x.TriggerHours), x.Description})
	}
	return t
}

func bindTemplateFlags(cmd *cobra.Command, f *model.TemplateForm) {
	cmd.Flags().StringVar(&f.Title, "title", "", "Title")
	cmd.Flags().StringVar(&f.Description, "description", "", "Checklist text, one \"- item\" per line")
	cmd.Flags().IntVar(&f.TriggerHours, "every", 0, "Operating hours between checklists")
	cmd.Flags().StringVar(&f.OrdreID, "oi", "", "OI id")
}

func newTemplatesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Preventive maintenance templates (Admin)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			ts, err := c.ListTemplates(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: ts, Table: templatesTable(ts)})
		},
	})

	var cf model.TemplateForm
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a template",
		RunE: func(cmd *cobra.Command, args []string) error {
			if errs := cf.Validate(); errs != nil {
				return writeErr(cmd, errInvalid("template not created", errs))
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := c.CreateTemplate(ctx, cf)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: t, Table: templatesTable([]model.PreventiveTemplate{t})})
		},
	}
	bindTemplateFlags(create, &cf)
	cmd.AddCommand(create)

	var uf model.TemplateForm
	update := &cobra.Command{
		Use:   "update <template-id>",
		Short: "Replace a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIntID("template", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			ts, err := c.ListTemplates(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			f := model.TemplateForm{}
			found := false
			for _, t := range ts {
				if t.ID == id {
					f = model.TemplateForm{Title: t.Title, Description: t.Description, TriggerHours: t.TriggerHours, OrdreID: t.OrdreID}
					found = true
					break
				}
			}
			if !found {
				return writeErr(cmd, errNotFound("template", args[0]))
			}
			fl := cmd.Flags()
			if fl.Changed("title") {
				f.Title = uf.Title
			}
			if fl.Changed("description") {
				f.Description = uf.Description
			}
			if fl.Changed("every") {
				f.TriggerHours = uf.TriggerHours
			}
			if fl.Changed("oi") {
				f.OrdreID = uf.OrdreID
			}
			if errs := f.Validate(); errs != nil {
				return writeErr(cmd, errInvalid("template not updated", errs))
			}
			t, err := c.UpdateTemplate(ctx, id, f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: t, Table: templatesTable([]model.PreventiveTemplate{t})})
		},
	}
	bindTemplateFlags(update, &uf)
	cmd.AddCommand(update)

	var yes bool
	del := &cobra.Command{
		Use:   "delete <template-id>",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIntID("template", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if !confirm(cmd, yes, "Delete template "+args[0]+"?") {
				return writeErr(cmd, errCancelled)
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteTemplate(ctx, id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: map[string]any{"deleted": id}})
		},
	}
	del.Flags().BoolVar(&yes, "yes", false, "Do not ask for confirmation")
	cmd.AddCommand(del)

	return cmd
}

func bindReportFlags(cmd *cobra.Command, q *report.Query) {
	cmd.Flags().StringVar(&q.StartDate, "from", "", "Start date YYYY-MM-DD")
	cmd.Flags().StringVar(&q.EndDate, "to", "", "End date YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&q.OrderValues, "oi", nil, "OI value (repeatable)")
	cmd.Flags().StringSliceVar(&q.TechnicianIDs, "tech", nil, "Technician id (repeatable)")
}

func newReportsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reports",
		Aliases: []string{"report"},
		Short:   "Task reports by date range, OI and technician",
	}

	var lq report.Query
	list := &cobra.Command{
		Use:   "list",
		Short: "List the tasks matching the filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			ws, err := report.List(ctx, c, lq)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: ws, Table: tasksTable(ws)})
		},
	}
	bindReportFlags(list, &lq)
	cmd.AddCommand(list)

	var (
		pq  report.Query
		dir string
	)
	pdf := &cobra.Command{
		Use:   "pdf",
		Short: "Download the report as rapport_taches_<date>.pdf (needs a date range or an OI)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			path, err := report.SaveReportPDF(ctx, c, pq, dir, time.Now())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: map[string]any{"path": path}})
		},
	}
	bindReportFlags(pdf, &pq)
	pdf.Flags().StringVar(&dir, "out", ".", "Directory to write the PDF into")
	cmd.AddCommand(pdf)

	return cmd
}
