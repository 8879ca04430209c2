package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"gmao-cli/internal/appstate"
	"gmao-cli/internal/gateway"
	"gmao-cli/internal/model"
)

// DetailFlow is the flow name the task detail view registers under.
const DetailFlow = "detail"

type API interface {
	GetOrder(ctx context.Context, id string) (model.CostAllocationOrder, error)
	GetTask(ctx context.Context, id int) (model.WorkOrder, error)
	MarkNotificationRead(ctx context.Context, id model.FlexID) error
	MarkAllNotificationsRead(ctx context.Context) error
	UpdateCycleVisit(ctx context.Context, id string, payload any) (model.CostAllocationOrder, error)
	SubmitChecklist(ctx context.Context, payload any) (model.WorkOrder, error)
}

// Action is the executed follow-up of a click.
type Action struct {
	Plan
	Notification model.Notification
	Order        *model.CostAllocationOrder
	Task         *model.WorkOrder
	// Partial is set when a cached task is shown because the refresh failed.
	Partial    bool
	CycleVisit *CycleVisitForm
	Checklist  *ChecklistForm
	// Discarded is set when the detail flow was closed before the fetch finished.
	Discarded bool
	// Gen is the detail flow generation a task route fetched under.
	Gen uint64
}

type Router struct {
	API   API
	State *appstate.State
	Log   logrus.FieldLogger
	Now   func() time.Time
}

func NewRouter(api API, state *appstate.State, log logrus.FieldLogger) *Router {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Router{API: api, State: state, Log: log, Now: time.Now}
}

func (r *Router) caches() Caches {
	return Caches{Tasks: r.State.Tasks.Items(), Orders: r.State.Orders.Items()}
}

// Open routes n, fetching the related object when it is not cached, and marks n read
// once the object resolved. On a resolution error n stays unread. A task route opens
// a new detail flow.
func (r *Router) Open(ctx context.Context, actor model.Session, n model.Notification) (Action, error) {
	return r.OpenIn(ctx, actor, n, 0)
}

// OpenIn is Open for a caller that already opened the detail flow as gen. A task
// fetch that outlives gen is discarded. gen 0 opens the flow here.
func (r *Router) OpenIn(ctx context.Context, actor model.Session, n model.Notification, gen uint64) (Action, error) {
	plan := Route(actor, n, r.caches())
	act := Action{Plan: plan, Notification: n}
	log := r.Log.WithFields(logrus.Fields{"notification": n.ID, "category": n.Category, "route": plan.Kind})

	switch plan.Kind {
	case KindCycleVisitForm, KindCycleVisitInfo:
		o, err := r.order(ctx, plan)
		if err != nil {
			log.WithError(err).Warn("related order not resolved")
			return act, fmt.Errorf("open OI %s: %w", orEmpty(n.RelatedDisplay(), plan.RelatedID), err)
		}
		act.Order = &o
		if plan.Kind == KindCycleVisitForm {
			act.CycleVisit = NewCycleVisitForm(o)
		}

	case KindChecklist:
		// The submission only needs the OI id, which the notification carries.
		act.Checklist = NewChecklistForm(n)
		if o := plan.Cached.Order; o != nil {
			act.Order = o
			if act.Checklist.OrderValue == "" {
				act.Checklist.OrderValue = o.Value
			}
		}

	case KindTaskDetail:
		if gen == 0 {
			r.State.SetView(appstate.ViewTasks)
			gen = r.State.OpenFlow(DetailFlow)
		}
		act.Gen = gen
		id, _ := strconv.Atoi(plan.RelatedID)
		wo, err := r.API.GetTask(ctx, id)
		if !r.State.Current(DetailFlow, gen) {
			act.Discarded = true
			return act, nil
		}
		switch {
		case err == nil:
			wo.Normalize()
			r.State.Tasks.Upsert(wo, func(t model.WorkOrder) bool { return t.ID == wo.ID })
			act.Task = &wo
			act.Placeholder = nil
		case plan.Cached.Task != nil:
			log.WithError(err).Warn("task refresh failed; showing cached record")
			act.Task = plan.Cached.Task
			act.Partial = true
		default:
			r.State.CloseFlow(DetailFlow)
			act.Placeholder = nil
			return act, fmt.Errorf("open task %s: %w", orEmpty(n.TaskIdentifier, plan.RelatedID), err)
		}
	}

	if err := r.MarkRead(ctx, n.ID); err != nil {
		log.WithError(err).Warn("mark read failed")
	}
	return act, nil
}

func (r *Router) order(ctx context.Context, plan Plan) (model.CostAllocationOrder, error) {
	if plan.Cached.Order != nil {
		return *plan.Cached.Order, nil
	}
	o, err := r.API.GetOrder(ctx, plan.RelatedID)
	if err != nil {
		return model.CostAllocationOrder{}, err
	}
	r.State.Orders.Upsert(o, func(x model.CostAllocationOrder) bool { return x.ID == o.ID })
	return o, nil
}

func orEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// MarkRead sets the read flag locally, then confirms it remotely. An already-read
// notification sends nothing. Local notifications never reach the server. A remote
// failure reverts the flag.
func (r *Router) MarkRead(ctx context.Context, id model.FlexID) error {
	if id == "" {
		return nil
	}
	cached, ok := r.State.Notifications.Find(func(n model.Notification) bool { return n.ID == id })
	if ok && cached.Read {
		return nil
	}
	r.setRead(id, true)
	if ok && cached.IsLocal() {
		return nil
	}
	if err := r.API.MarkNotificationRead(ctx, id); err != nil {
		r.setRead(id, false)
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every cached notification read. Local ones flip without a call.
// On failure the previous flags come back.
func (r *Router) MarkAllRead(ctx context.Context) error {
	before := r.State.Notifications.Items()
	remote := false
	for _, n := range before {
		if !n.Read && !n.IsLocal() {
			remote = true
			break
		}
	}
	r.State.Notifications.Update(func(n *model.Notification) { n.Read = true })
	if !remote {
		return nil
	}
	if err := r.API.MarkAllNotificationsRead(ctx); err != nil {
		prev := map[model.FlexID]bool{}
		for _, n := range before {
			prev[n.ID] = n.Read
		}
		r.State.Notifications.Update(func(n *model.Notification) {
			if read, ok := prev[n.ID]; ok && !n.IsLocal() {
				n.Read = read
			}
		})
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (r *Router) setRead(id model.FlexID, read bool) {
	r.State.Notifications.Update(func(n *model.Notification) {
		if n.ID == id {
			n.Read = read
		}
	})
}

// SubmitCycleVisit validates f and records the visit. The returned OI replaces the
// cached one.
func (r *Router) SubmitCycleVisit(ctx context.Context, actor model.Session, f *CycleVisitForm) (model.CostAllocationOrder, map[string]string, error) {
	if !actor.IsChef() {
		return model.CostAllocationOrder{}, nil, errors.New("only a Chef de Parc records cycle visits")
	}
	if errs := f.Validate(r.Now()); errs != nil {
		return model.CostAllocationOrder{}, errs, nil
	}
	body, err := f.Payload()
	if err != nil {
		return model.CostAllocationOrder{}, nil, err
	}
	o, err := r.API.UpdateCycleVisit(ctx, f.Order.ID, body)
	if err != nil {
		return model.CostAllocationOrder{}, gateway.FieldsOf(err), err
	}
	r.State.Orders.Upsert(o, func(x model.CostAllocationOrder) bool { return x.ID == o.ID })
	r.Log.WithFields(logrus.Fields{"oi": o.Value, "accepted": *f.Accepted}).Info("cycle visit recorded")
	return o, nil, nil
}

// SubmitChecklist sends f and adds the resulting preventive task to the cache.
func (r *Router) SubmitChecklist(ctx context.Context, f *ChecklistForm) (model.WorkOrder, error) {
	body, err := f.Payload()
	if err != nil {
		return model.WorkOrder{}, err
	}
	wo, err := r.API.SubmitChecklist(ctx, body)
	if err != nil {
		return model.WorkOrder{}, fmt.Errorf("submit checklist for %s: %w", orEmpty(f.OrderValue, f.OrderID), err)
	}
	wo.Normalize()
	r.State.Tasks.Upsert(wo, func(t model.WorkOrder) bool { return t.ID == wo.ID })
	return wo, nil
}
