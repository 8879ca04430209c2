package cli

import (
	"context"
	"strings"

	"gmao-cli/internal/appstate"
	"gmao-cli/internal/format"
	"gmao-cli/internal/gateway"
	"gmao-cli/internal/model"
	"gmao-cli/internal/notify"

	"github.com/spf13/cobra"
)

func newRouter(app *App, c *gateway.Client, st *appstate.State) *notify.Router {
	if st == nil {
		st = appstate.New()
	}
	return notify.NewRouter(c, st, app.log)
}

// loadNotifications fills a fresh state with the server's notifications.
func loadNotifications(ctx context.Context, c *gateway.Client, sess model.Session) (*appstate.State, error) {
	st := appstate.New()
	st.SetSession(sess)
	t := st.Notifications.Begin()
	ns, err := c.ListNotifications(ctx)
	st.Notifications.Apply(t, ns, err)
	return st, err
}

func findNotification(st *appstate.State, id string) (model.Notification, error) {
	id = strings.TrimSpace(id)
	n, ok := st.Notifications.Find(func(n model.Notification) bool { return string(n.ID) == id })
	if !ok {
		return model.Notification{}, errNotFound("notification", id)
	}
	return n, nil
}

func notificationsTable(ns []model.Notification) *format.Table {
	t := &format.Table{Headers: []string{"ID", "CATEGORY", "READ", "RELATED", "WHEN", "MESSAGE"}}
	for _, n := range ns {
		t.Rows = append(t.Rows, []string{
			string(n.ID), string(n.Category), boolWord(n.Read), n.RelatedDisplay(), relTime(n.Timestamp), n.Message,
		})
	}
	return t
}

func newNotificationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Notifications: list, open and mark read",
	}

	var unread bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			ns, err := c.ListNotifications(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			out := []model.Notification{}
			for _, n := range ns {
				if !unread || !n.Read {
					out = append(out, n)
				}
			}
			return writeOut(cmd, app, format.Result{Data: out, Table: notificationsTable(out)})
		},
	}
	list.Flags().BoolVar(&unread, "unread", false, "Only unread notifications")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "open <notification-id>",
		Short: "Resolve what a notification points at and mark it read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := loadNotifications(ctx, c, sess)
			if err != nil {
				return writeErr(cmd, err)
			}
			n, err := findNotification(st, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			act, err := newRouter(app, c, st).Open(ctx, sess, n)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, openResult(act))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark one notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := loadNotifications(ctx, c, sess)
			if err != nil {
				return writeErr(cmd, err)
			}
			n, err := findNotification(st, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := newRouter(app, c, st).MarkRead(ctx, n.ID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: map[string]any{"read": n.ID}})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := loadNotifications(ctx, c, sess)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := newRouter(app, c, st).MarkAllRead(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: map[string]any{"unread": st.UnreadCount()}})
		},
	})

	return cmd
}

// openView is the printed outcome of opening a notification.
type openView struct {
	Route        string                     `json:"route"`
	Notification model.Notification         `json:"notification"`
	Order        *model.CostAllocationOrder `json:"oi,omitempty"`
	Task         *model.WorkOrder           `json:"task,omitempty"`
	Partial      bool                       `json:"partial,omitempty"`
	Checklist    []notify.ChecklistItem     `json:"checklist,omitempty"`
	Next         string                     `json:"next,omitempty"`
}

func openResult(act notify.Action) format.Result {
	v := openView{Route: act.Kind.String(), Notification: act.Notification, Order: act.Order, Task: act.Task, Partial: act.Partial}
	var tbl *format.Table
	switch act.Kind {
	case notify.KindCycleVisitForm:
		v.Next = "gmao oi cycle-visit " + act.Order.ID + " --accepted|--failed --next YYYY-MM-DD --performed YYYY-MM-DD"
		tbl = ordersTable([]model.CostAllocationOrder{*act.Order})
	case notify.KindCycleVisitInfo:
		tbl = ordersTable([]model.CostAllocationOrder{*act.Order})
	case notify.KindChecklist:
		v.Checklist = act.Checklist.Items
		v.Next = "gmao checklist submit --notification " + string(act.Notification.ID) + " --check 1,2,..."
		tbl = &format.Table{Headers: []string{"#", "ITEM"}}
		for i, it := range act.Checklist.Items {
			tbl.Rows = append(tbl.Rows, []string{itoa(i + 1), it.Description})
		}
	case notify.KindTaskDetail:
		if act.Task != nil {
			tbl = taskDetailTable(*act.Task)
		}
	default:
		tbl = notificationsTable([]model.Notification{act.Notification})
	}
	return format.Result{Data: v, Table: tbl}
}

func newChecklistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Preventive checklists",
	}

	var (
		notification string
		checks       []int
		techs        []string
		notes        string
	)
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Complete the checklist of a PREVENTIVE_CHECKLIST notification",
		Long:  "Items are numbered from 1 as shown by `gmao notifications open`. Unchecked items are submitted unchecked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := loadNotifications(ctx, c, sess)
			if err != nil {
				return writeErr(cmd, err)
			}
			n, err := findNotification(st, notification)
			if err != nil {
				return writeErr(cmd, err)
			}
			r := newRouter(app, c, st)
			act, err := r.Open(ctx, sess, n)
			if err != nil {
				return writeErr(cmd, err)
			}
			if act.Kind != notify.KindChecklist {
				return writeErr(cmd, errInvalid("not a checklist", map[string]string{"notification": "category is " + string(n.Category)}))
			}
			f := act.Checklist
			for _, i := range checks {
				if i < 1 || i > len(f.Items) {
					return writeErr(cmd, errInvalid("checklist not submitted", map[string]string{"check": "no item " + itoa(i)}))
				}
				f.Items[i-1].Done = true
			}
			f.TechnicianIDs = techs
			f.Notes = notes
			wo, err := r.SubmitChecklist(ctx, f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: wo, Table: taskDetailTable(wo)})
		},
	}
	submit.Flags().StringVar(&notification, "notification", "", "Notification id")
	submit.Flags().IntSliceVar(&checks, "check", nil, "Item numbers to mark done")
	submit.Flags().StringSliceVar(&techs, "tech", nil, "Technician ids")
	submit.Flags().StringVar(&notes, "notes", "", "Notes")
	_ = submit.MarkFlagRequired("notification")
	cmd.AddCommand(submit)

	return cmd
}
