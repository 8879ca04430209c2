package gateway

import (
	"context"
	"errors"

	"gmao-cli/internal/model"

	"golang.org/x/sync/errgroup"
)

// Snapshot is the set of lists loaded after login.
type Snapshot struct {
	Tasks         []model.WorkOrder
	Technicians   []model.Technician
	Orders        []model.CostAllocationOrder
	Notifications []model.Notification
	Chefs         []model.UserProfile

	// Errs holds per-list failures keyed by list name; successful lists are still set.
	Errs map[string]error
}

// Err joins every per-list failure, or nil.
func (s *Snapshot) Err() error {
	if s == nil || len(s.Errs) == 0 {
		return nil
	}
	errs := make([]error, 0, len(s.Errs))
	for _, name := range []string{"tasks", "technicians", "orders", "notifications", "chefs"} {
		if err := s.Errs[name]; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadSnapshot fetches the independent lists in parallel. A failing list does not
// cancel the others; withChefs adds the assignable Chef de Parc profiles.
func (c *Client) LoadSnapshot(ctx context.Context, withChefs bool) *Snapshot {
	s := &Snapshot{}
	var (
		tasksErr, techErr, ordersErr, notifErr, chefsErr error
	)
	var g errgroup.Group
	g.SetLimit(4)
	g.Go(func() error {
		s.Tasks, tasksErr = c.ListTasks(ctx)
		return tasksErr
	})
	g.Go(func() error {
		s.Technicians, techErr = c.ListTechnicians(ctx)
		return techErr
	})
	g.Go(func() error {
		s.Orders, ordersErr = c.ListOrders(ctx)
		return ordersErr
	})
	g.Go(func() error {
		s.Notifications, notifErr = c.ListNotifications(ctx)
		return notifErr
	})
	if withChefs {
		g.Go(func() error {
			s.Chefs, chefsErr = c.ProfilesByRole(ctx, model.RoleChef)
			return chefsErr
		})
	}
	_ = g.Wait()

	for name, err := range map[string]error{
		"tasks":         tasksErr,
		"technicians":   techErr,
		"orders":        ordersErr,
		"notifications": notifErr,
		"chefs":         chefsErr,
	} {
		if err != nil {
			if s.Errs == nil {
				s.Errs = map[string]error{}
			}
			s.Errs[name] = err
		}
	}
	return s
}
