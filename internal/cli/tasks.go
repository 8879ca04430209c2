package cli

import (
	"errors"
	"fmt"
	"strings"

	"gmao-cli/internal/attach"
	"gmao-cli/internal/format"
	"gmao-cli/internal/lifecycle"
	"gmao-cli/internal/model"
	"gmao-cli/internal/publish"
	"gmao-cli/internal/report"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "ordt"},
		Short:   "Work order commands",
	}

	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	cmd.AddCommand(newTasksNoteCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	cmd.AddCommand(newTasksPrintCmd(app))
	cmd.AddCommand(newTasksAccessCmd(app))
	cmd.AddCommand(newTasksExportCmd(app))

	return cmd
}

func tasksTable(ws []model.WorkOrder) *format.Table {
	t := &format.Table{Headers: []string{"ID", "OI", "TYPE", "STATUS", "ASSIGNEE", "START", "DESCRIPTION"}}
	for _, w := range ws {
		t.Rows = append(t.Rows, []string{
			w.Label(), w.OrdreValue(), string(w.Type), string(w.Status), w.AssignedToName,
			model.DatePtrString(w.StartDate), w.Description,
		})
	}
	return t
}

func taskDetailTable(w model.WorkOrder) *format.Table {
	rows := [][]string{
		{"id", w.Label()},
		{"oi", w.OrdreValue()},
		{"type", string(w.Type)},
		{"status", string(w.Status)},
		{"assignee", w.AssignedToName},
		{"technicians", strings.Join(w.TechnicianNames, ", ")},
		{"start", strings.TrimSpace(model.DatePtrString(w.StartDate) + " " + model.ShortTime(w.StartTime))},
		{"end", model.DatePtrString(w.EndDate)},
		{"estimated hours", model.HoursPtrString(w.EstimatedHours)},
		{"operating hours", model.HoursPtrString(w.ReportedOperating)},
		{"ppe", w.RequiredPPE},
		{"parts", w.RequiredParts},
		{"permit", boolWord(w.PermitRequired)},
		{"closed at", w.ClosedAt},
		{"updated", relTime(w.UpdatedAt)},
		{"description", w.Description},
	}
	for _, n := range w.Notes {
		rows = append(rows, []string{"note " + string(n.Date), n.Text})
	}
	return &format.Table{Headers: []string{"FIELD", "VALUE"}, Rows: rows}
}

func newTasksListCmd(app *App) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work orders (the --status filter is remembered)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			filter := model.Status("")
			if cmd.Flags().Changed("status") {
				if s := strings.TrimSpace(status); s != "" && s != "all" {
					filter = model.Status(s)
					if !validStatus(filter) {
						return writeErr(cmd, fmt.Errorf("unknown status %q (want assigned, \"in progress\", closed or all)", s))
					}
				}
				if err := app.store.SaveFilter(ctx, filter); err != nil {
					return writeErr(cmd, err)
				}
			} else if p, err := app.store.Load(ctx); err == nil {
				filter = p.Filter
			}

			all, err := c.ListTasks(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			out := []model.WorkOrder{}
			for _, w := range all {
				if filter == "" || w.Status == filter {
					out = append(out, w)
				}
			}
			return writeOut(cmd, app, format.Result{Data: out, Table: tasksTable(out)})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (assigned|in progress|closed|all)")
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a work order with its notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			w, err := c.GetTask(ctx, id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: w, Table: taskDetailTable(w)})
		},
	}
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var (
		t        lifecycle.NewTask
		typ      string
		assignee string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a work order (a Chef de Parc's own task starts in progress)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			t.Type = model.TaskType(strings.TrimSpace(typ))
			if sess.IsAdmin() {
				t.AssigneeID, err = resolveAssignee(ctx, c, assignee)
				if err != nil {
					return writeErr(cmd, err)
				}
			}
			w, fe, err := lifecycle.NewController(c, app.log).Create(ctx, sess, t)
			if err != nil {
				if len(fe) > 0 {
					return writeErr(cmd, errInvalid("task not created", fe))
				}
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: w, Table: taskDetailTable(w)})
		},
	}

	cmd.Flags().StringVar(&t.OrdreValue, "oi", "", "OI value")
	cmd.Flags().StringVar(&typ, "type", "", "preventif|curatif|visite hierarchique")
	cmd.Flags().StringVar(&t.Description, "description", "", "What to do")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Chef de Parc (profile id, name or username; Admin only)")
	cmd.Flags().StringVar(&t.StartDate, "start", "", "Start date YYYY-MM-DD")
	cmd.Flags().StringVar(&t.EndDate, "end", "", "End date YYYY-MM-DD")
	cmd.Flags().StringVar(&t.StartTime, "time", "", "Start time HH:MM")
	cmd.Flags().StringVar(&t.EstimatedHours, "estimated", "", "Estimated hours")
	cmd.Flags().StringSliceVar(&t.TechnicianIDs, "tech", nil, "Technician id (repeatable; Chef de Parc)")
	cmd.Flags().StringVar(&t.PPE, "epi", "", "Required PPE (Chef de Parc)")
	cmd.Flags().StringVar(&t.Parts, "pdr", "", "Required parts (Chef de Parc)")
	cmd.Flags().StringVar(&t.OperatingHours, "hours", "", "New total OI operating hours (Chef de Parc)")
	cmd.Flags().BoolVar(&t.PermitRequired, "permit", false, "Work permit required (Chef de Parc)")
	return cmd
}

// saveView is the printed result of a save.
type saveView struct {
	Outcome string            `json:"outcome"`
	Task    model.WorkOrder   `json:"task"`
	Fields  map[string]string `json:"fields,omitempty"`
	Warning string            `json:"warning,omitempty"`
}

// stageImages opens every path; the caller closes the stage.
func stageImages(paths []string) (*attach.Stage, error) {
	st := attach.NewStage(0)
	for _, p := range paths {
		if _, err := st.Add(p); err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	return st, nil
}

func runSave(cmd *cobra.Command, app *App, id int, edit func(*lifecycle.Draft, model.Session) error, images []string) error {
	ctx := cmd.Context()
	sess, c, err := app.session(ctx)
	if err != nil {
		return writeErr(cmd, err)
	}
	w, err := c.GetTask(ctx, id)
	if err != nil {
		return writeErr(cmd, err)
	}
	techs, err := c.ListTechnicians(ctx)
	if err != nil {
		return writeErr(cmd, err)
	}
	var chefs []model.UserProfile
	if sess.IsAdmin() {
		if chefs, err = c.ProfilesByRole(ctx, model.RoleChef); err != nil {
			return writeErr(cmd, err)
		}
	}

	d := lifecycle.NewDraft(w, techs, chefs)
	if err := edit(&d, sess); err != nil {
		return writeErr(cmd, err)
	}
	st, err := stageImages(images)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer st.Close()
	if d.Images, err = st.Uploads(); err != nil {
		return writeErr(cmd, err)
	}

	res := lifecycle.NewController(c, app.log).Save(ctx, sess, w, d)
	view := saveView{Outcome: res.Outcome.String(), Task: res.Task, Fields: res.Fields}
	switch res.Outcome {
	case lifecycle.Invalid:
		return writeErr(cmd, errInvalid("not saved", res.Fields))
	case lifecycle.Failed:
		return writeErr(cmd, res.Err)
	case lifecycle.Updated, lifecycle.UpdatedButNoteFailed:
		if res.Err != nil {
			view.Warning = res.Err.Error()
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: "+describe(res.Err))
		}
	}
	return writeOut(cmd, app, format.Result{Data: view, Table: taskDetailTable(res.Task)})
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var (
		oi, typ, desc, assignee, start, end, clock string
		techs                                      []string
		ppe, parts, hours, estimated, status, note string
		images                                     []string
	)

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Edit a work order; only the flags you pass change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			f := cmd.Flags()
			edit := func(d *lifecycle.Draft, sess model.Session) error {
				set := func(name string, dst *string, v string) {
					if f.Changed(name) {
						*dst = v
					}
				}
				set("oi", &d.OrdreValue, oi)
				set("description", &d.Description, desc)
				set("start", &d.StartDate, start)
				set("end", &d.EndDate, end)
				set("time", &d.StartTime, clock)
				set("epi", &d.PPE, ppe)
				set("pdr", &d.Parts, parts)
				set("hours", &d.OperatingHours, hours)
				set("estimated", &d.EstimatedHours, estimated)
				set("note", &d.Note, note)
				if f.Changed("type") {
					d.Type = model.TaskType(strings.TrimSpace(typ))
				}
				if f.Changed("status") {
					d.Status = model.Status(strings.TrimSpace(status))
				}
				if f.Changed("tech") {
					d.TechnicianIDs = techs
				}
				if f.Changed("assignee") {
					_, c, err := app.session(cmd.Context())
					if err != nil {
						return err
					}
					d.AssigneeID, err = resolveAssignee(cmd.Context(), c, assignee)
					return err
				}
				return nil
			}
			return runSave(cmd, app, id, edit, images)
		},
	}

	cmd.Flags().StringVar(&oi, "oi", "", "OI value")
	cmd.Flags().StringVar(&typ, "type", "", "preventif|curatif|visite hierarchique")
	cmd.Flags().StringVar(&desc, "description", "", "Description")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Chef de Parc (profile id, name or username)")
	cmd.Flags().StringVar(&start, "start", "", "Start date YYYY-MM-DD (empty clears)")
	cmd.Flags().StringVar(&end, "end", "", "End date YYYY-MM-DD (empty clears)")
	cmd.Flags().StringVar(&clock, "time", "", "Start time HH:MM")
	cmd.Flags().StringSliceVar(&techs, "tech", nil, "Technician ids (replaces the set)")
	cmd.Flags().StringVar(&ppe, "epi", "", "Required PPE")
	cmd.Flags().StringVar(&parts, "pdr", "", "Required parts")
	cmd.Flags().StringVar(&hours, "hours", "", "New total OI operating hours")
	cmd.Flags().StringVar(&estimated, "estimated", "", "Estimated hours")
	cmd.Flags().StringVar(&status, "status", "", "Target status")
	cmd.Flags().StringVar(&note, "note", "", "Progress note to append")
	cmd.Flags().StringSliceVar(&images, "image", nil, "Image to attach to the note (repeatable)")
	return cmd
}

func newTasksNoteCmd(app *App) *cobra.Command {
	var (
		text   string
		images []string
	)

	cmd := &cobra.Command{
		Use:   "note <task-id>",
		Short: "Append a progress note, optionally with images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(text) == "" && len(images) == 0 {
				return writeErr(cmd, errors.New("missing --text or --image"))
			}
			edit := func(d *lifecycle.Draft, _ model.Session) error {
				d.Note = text
				return nil
			}
			return runSave(cmd, app, id, edit, images)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Note text")
	cmd.Flags().StringSliceVar(&images, "image", nil, "Image file (repeatable)")
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a work order with its notes (Admin, not closed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			sess, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			w, err := c.GetTask(ctx, id)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctrl := lifecycle.NewController(c, app.log)
			ok := lifecycle.AccessFor(sess, w).Delete && confirm(cmd, yes, fmt.Sprintf("Delete %s and all its notes?", w.Label()))
			if err := ctrl.Delete(ctx, sess, w, ok); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: map[string]any{"deleted": w.Label(), "id": w.ID}})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Do not ask for confirmation")
	return cmd
}

func newTasksPrintCmd(app *App) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "print <task-id>",
		Short: "Download the printable work order as tache_<id>.pdf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			path, err := report.SaveTaskPDF(ctx, c, id, dir)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: map[string]any{"path": path}})
		},
	}

	cmd.Flags().StringVar(&dir, "out", ".", "Directory to write the PDF into")
	return cmd
}

func newTasksAccessCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "access <task-id>",
		Short: "Show what you may change on a work order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			sess, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			w, err := c.GetTask(ctx, id)
			if err != nil {
				return writeErr(cmd, err)
			}
			a := lifecycle.AccessFor(sess, w)
			statuses := make([]string, 0, len(a.Statuses))
			for _, s := range a.Statuses {
				statuses = append(statuses, string(s))
			}
			data := map[string]any{
				"task":        w.Label(),
				"status":      w.Status,
				"assignee":    lifecycle.IsAssignee(sess, w),
				"core":        a.Core,
				"management":  a.Management,
				"notes":       a.Notes,
				"delete":      a.Delete,
				"read_only":   a.ReadOnly(),
				"transitions": statuses,
			}
			tbl := &format.Table{Headers: []string{"CAPABILITY", "ALLOWED"}, Rows: [][]string{
				{"core fields", boolWord(a.Core)},
				{"management fields", boolWord(a.Management)},
				{"notes", boolWord(a.Notes)},
				{"delete", boolWord(a.Delete)},
				{"move to", strings.Join(statuses, ", ")},
			}}
			return writeOut(cmd, app, format.Result{Data: data, Table: tbl})
		},
	}
}

func newTasksExportCmd(app *App) *cobra.Command {
	var (
		to        string
		status    string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write work orders and their notes as markdown files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			filter := model.Status(strings.TrimSpace(status))
			if filter == "all" {
				filter = ""
			}
			if filter != "" && !validStatus(filter) {
				return writeErr(cmd, fmt.Errorf("unknown status %q (want assigned, \"in progress\", closed or all)", status))
			}

			all, err := c.ListTasks(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			out := []model.WorkOrder{}
			for _, w := range all {
				if filter == "" || w.Status == filter {
					out = append(out, w)
				}
			}
			title := "Work orders"
			if filter != "" {
				title += " (" + string(filter) + ")"
			}
			res, err := publish.WriteTasks(out, to, publish.WriteOptions{Title: title, Overwrite: overwrite})
			if err != nil {
				return writeErr(cmd, err)
			}
			app.log.WithField("files", len(res.Written)).Info("tasks exported")

			tbl := &format.Table{Headers: []string{"WRITTEN"}}
			for _, p := range res.Written {
				tbl.Rows = append(tbl.Rows, []string{p})
			}
			return writeOut(cmd, app, format.Result{Data: res, Table: tbl})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().StringVar(&status, "status", "", "Only this status (assigned|in progress|closed|all)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
