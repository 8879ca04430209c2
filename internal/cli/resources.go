package cli

import (
	"strings"

	"gmao-cli/internal/format"
	"gmao-cli/internal/model"
	"gmao-cli/internal/notify"

	"github.com/spf13/cobra"
)

func techniciansTable(ts []model.Technician) *format.Table {
	t := &format.Table{Headers: []string{"ID", "NAME"}}
	for _, x := range ts {
		t.Rows = append(t.Rows, []string{x.ID, x.Name})
	}
	return t
}

func newTechniciansCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "technicians",
		Aliases: []string{"tech"},
		Short:   "Technician directory",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List technicians",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			ts, err := c.ListTechnicians(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: ts, Table: techniciansTable(ts)})
		},
	})

	var f model.TechnicianForm
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a technician",
		RunE: func(cmd *cobra.Command, args []string) error {
			if errs := f.Validate(); errs != nil {
				return writeErr(cmd, errInvalid("technician not created", errs))
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := c.CreateTechnician(ctx, f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: t, Table: techniciansTable([]model.Technician{t})})
		},
	}
	create.Flags().StringVar(&f.ID, "id", "", "Technician id (e.g. T7)")
	create.Flags().StringVar(&f.Name, "name", "", "Full name")
	cmd.AddCommand(create)

	var name string
	rename := &cobra.Command{
		Use:   "update <technician-id>",
		Short: "Rename a technician",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return writeErr(cmd, errInvalid("technician not updated", map[string]string{"name": "is required"}))
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := c.RenameTechnician(ctx, strings.TrimSpace(args[0]), strings.TrimSpace(name))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: t, Table: techniciansTable([]model.Technician{t})})
		},
	}
	rename.Flags().StringVar(&name, "name", "", "New name")
	cmd.AddCommand(rename)

	var yes bool
	del := &cobra.Command{
		Use:   "delete <technician-id>",
		Short: "Remove a technician",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if !confirm(cmd, yes, "Delete technician "+id+"?") {
				return writeErr(cmd, errCancelled)
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteTechnician(ctx, id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: map[string]any{"deleted": id}})
		},
	}
	del.Flags().BoolVar(&yes, "yes", false, "Do not ask for confirmation")
	cmd.AddCommand(del)

	return cmd
}

func ordersTable(os []model.CostAllocationOrder) *format.Table {
	t := &format.Table{Headers: []string{"ID", "VALUE", "HOURS", "NEXT VISIT", "LAST VISIT", "RESULT"}}
	for _, o := range os {
		t.Rows = append(t.Rows, []string{
			o.ID, o.Value, o.TotalHours.String(),
			model.FormatDate(o.NextCycleVisit), model.FormatDate(o.LastVisitPerformed), o.VisitOutcome(),
		})
	}
	return t
}

func newOrdersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "oi",
		Aliases: []string{"orders"},
		Short:   "Cost allocation orders (OI): hours and cycle visits",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List OIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			os, err := c.ListOrders(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: os, Table: ordersTable(os)})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <oi-id>",
		Short: "Show one OI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			o, err := c.GetOrder(ctx, strings.TrimSpace(args[0]))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: o, Table: ordersTable([]model.CostAllocationOrder{o})})
		},
	})

	cmd.AddCommand(newOrderWriteCmd(app, true))
	cmd.AddCommand(newOrderWriteCmd(app, false))
	cmd.AddCommand(newOrderHoursCmd(app))
	cmd.AddCommand(newOrderDeleteCmd(app))
	cmd.AddCommand(newCycleVisitCmd(app))
	return cmd
}

// newOrderWriteCmd builds "oi create" or "oi update <id>"; both send the full form.
func newOrderWriteCmd(app *App, create bool) *cobra.Command {
	var id, value, next string

	cmd := &cobra.Command{
		Use:   "update <oi-id>",
		Short: "Replace an OI's value and next cycle visit",
		Args:  cobra.ExactArgs(1),
	}
	if create {
		cmd.Use, cmd.Short, cmd.Args = "create", "Create an OI", cobra.NoArgs
		cmd.Flags().StringVar(&id, "id", "", "OI id")
	}
	cmd.Flags().StringVar(&value, "value", "", "Display value (e.g. OI-42)")
	cmd.Flags().StringVar(&next, "next-visit", "", "Next cycle visit YYYY-MM-DD")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		f := model.OrderForm{ID: id, Value: value}
		if !create {
			f.ID = ""
		}
		if s := strings.TrimSpace(next); s != "" {
			d := model.Date(s)
			f.NextCycleVisit = &d
		}
		if errs := f.Validate(create); errs != nil {
			return writeErr(cmd, errInvalid("OI not saved", errs))
		}
		ctx := cmd.Context()
		_, c, err := app.session(ctx)
		if err != nil {
			return writeErr(cmd, err)
		}
		var o model.CostAllocationOrder
		if create {
			o, err = c.CreateOrder(ctx, f)
		} else {
			o, err = c.ReplaceOrder(ctx, strings.TrimSpace(args[0]), f)
		}
		if err != nil {
			return writeErr(cmd, err)
		}
		return writeOut(cmd, app, format.Result{Data: o, Table: ordersTable([]model.CostAllocationOrder{o})})
	}
	return cmd
}

func newOrderHoursCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "hours <oi-id> <total-hours>",
		Short: "Set an OI's total operating hours",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := model.ParseHours(args[1])
			if err != nil || h == nil || *h < 0 {
				return writeErr(cmd, errInvalid("hours not saved", map[string]string{"total_hours_of_work": "must be a non-negative number"}))
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			o, err := c.SetOrderHours(ctx, strings.TrimSpace(args[0]), *h)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: o, Table: ordersTable([]model.CostAllocationOrder{o})})
		},
	}
}

func newOrderDeleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <oi-id>",
		Short: "Delete an OI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if !confirm(cmd, yes, "Delete OI "+id+"?") {
				return writeErr(cmd, errCancelled)
			}
			ctx := cmd.Context()
			_, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteOrder(ctx, id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: map[string]any{"deleted": id}})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Do not ask for confirmation")
	return cmd
}

func newCycleVisitCmd(app *App) *cobra.Command {
	var (
		accepted, failed bool
		next, performed  string
	)

	cmd := &cobra.Command{
		Use:   "cycle-visit <oi-id>",
		Short: "Record the outcome of a cycle visit (Chef de Parc)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if accepted == failed {
				return writeErr(cmd, errInvalid("visit not recorded", map[string]string{"visite_acceptee": "pass exactly one of --accepted or --failed"}))
			}
			ctx := cmd.Context()
			sess, c, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			o, err := c.GetOrder(ctx, strings.TrimSpace(args[0]))
			if err != nil {
				return writeErr(cmd, err)
			}
			f := notify.NewCycleVisitForm(o)
			f.Decide(accepted)
			f.NextVisit, f.Performed = next, performed

			r := newRouter(app, c, nil)
			updated, fields, err := r.SubmitCycleVisit(ctx, sess, f)
			switch {
			case len(fields) > 0:
				return writeErr(cmd, errInvalid("visit not recorded", fields))
			case err != nil:
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Result{Data: updated, Table: ordersTable([]model.CostAllocationOrder{updated})})
		},
	}

	cmd.Flags().BoolVar(&accepted, "accepted", false, "The visit passed")
	cmd.Flags().BoolVar(&failed, "failed", false, "The visit failed")
	cmd.Flags().StringVar(&next, "next", "", "Next visit date YYYY-MM-DD")
	cmd.Flags().StringVar(&performed, "performed", "", "Date the visit was performed YYYY-MM-DD")
	return cmd
}
