package tui

import (
	"sort"
	"strings"

	"gmao-cli/internal/model"
	"gmao-cli/internal/notify"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *appModel) rebuildNotifications() {
	var sel model.FlexID
	if it, ok := m.notifList.SelectedItem().(notifItem); ok {
		sel = it.n.ID
	}
	ns := append([]model.Notification(nil), m.state.Notifications.Items()...)
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].Timestamp.After(ns[j].Timestamp) })
	items := make([]list.Item, 0, len(ns))
	idx := 0
	for i, n := range ns {
		if n.ID == sel {
			idx = i
		}
		items = append(items, notifItem{n: n})
	}
	m.notifList.SetItems(items)
	m.notifList.Select(idx)
}

func (m appModel) updateNotifications(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case "esc", "t":
		m.setScreen(screenTasks)
		return m, nil
	case "r":
		return m, m.refreshCmd()
	case "a":
		if m.state.UnreadCount() == 0 {
			return m, nil
		}
		return m, m.markAllReadCmd()
	case "m":
		if it, ok := m.notifList.SelectedItem().(notifItem); ok && !it.n.Read {
			return m, m.markReadCmd(it.n.ID)
		}
		return m, nil
	case "enter":
		it, ok := m.notifList.SelectedItem().(notifItem)
		if !ok {
			return m, nil
		}
		return m, m.openNotification(it.n)
	}
	var cmd tea.Cmd
	m.notifList, cmd = m.notifList.Update(msg)
	return m, cmd
}

// openNotification shows what can be shown right away (a cached work order, or a
// placeholder while it loads) and lets the router resolve the rest.
func (m *appModel) openNotification(n model.Notification) tea.Cmd {
	plan := notify.Route(m.session(), n, notify.Caches{
		Tasks:  m.state.Tasks.Items(),
		Orders: m.state.Orders.Items(),
	})
	if plan.Kind != notify.KindTaskDetail {
		return m.openCmd(n, 0)
	}
	// The flow is opened here so an esc before the fetch returns discards it.
	m.closeDetail()
	gen := m.state.OpenFlow(detailFlowName)
	wo := plan.Cached.Task
	if wo == nil {
		wo = plan.Placeholder
	}
	if wo != nil {
		m.detail = newDetailView(gen, *wo, m.session(), m.state.Technicians.Items(), m.state.Chefs.Items(), m.width)
		m.detail.back = screenNotifications
		m.detail.loading = true
		m.setScreen(screenDetail)
	}
	return m.openCmd(n, gen)
}

func (m appModel) onOpened(msg openedMsg) (tea.Model, tea.Cmd) {
	act := msg.act
	m.rebuildNotifications()
	if act.Discarded {
		return m, nil
	}
	if msg.err != nil {
		if act.Plan.Kind == notify.KindTaskDetail && m.detail != nil && m.detail.gen == act.Gen {
			m.closeDetail()
			m.setScreen(screenNotifications)
		}
		return m, m.fail(msg.err)
	}

	switch act.Plan.Kind {
	case notify.KindTaskDetail:
		if act.Task == nil || !m.state.Current(detailFlowName, act.Gen) {
			return m, nil
		}
		if m.detail != nil {
			m.detail.release()
		}
		m.detail = newDetailView(act.Gen, *act.Task, m.session(), m.state.Technicians.Items(), m.state.Chefs.Items(), m.width)
		m.detail.back = screenNotifications
		m.detail.partial = act.Partial
		m.setScreen(screenDetail)
		m.rebuildTasks()
		if act.Partial {
			m.state.SetBanner(warnBanner("Could not refresh " + act.Task.Label() + "; showing the cached copy."))
		}
	case notify.KindCycleVisitForm:
		m.cycle = newCycleView(act.CycleVisit, m.now())
		m.setScreen(screenCycleVisit)
		return m, m.cycle.focus()
	case notify.KindCycleVisitInfo:
		m.modal = modalInfo
		m.infoTitle = "OI " + act.Order.Value
		m.infoBody = orderSummary(*act.Order)
	case notify.KindChecklist:
		m.checklist = newChecklistView(act.Checklist, m.state.Technicians.Items())
		m.setScreen(screenChecklist)
	}
	return m, nil
}

func orderSummary(o model.CostAllocationOrder) string {
	var b strings.Builder
	b.WriteString("Next cycle visit: " + model.FormatDate(o.NextCycleVisit) + "\n")
	b.WriteString("Last visit: " + model.FormatDate(o.LastVisitPerformed) + "\n")
	b.WriteString("Result: " + o.VisitOutcome() + "\n")
	b.WriteString("Operating hours: " + o.TotalHours.String())
	return b.String()
}

func (m appModel) viewNotifications() string {
	title := styleTitle().Render("Notifications")
	if n := m.state.UnreadCount(); n > 0 {
		title += styleMuted().Render("  " + itoa(n) + " unread")
	}
	var body string
	switch {
	case !m.state.Notifications.Loaded() && m.loading:
		body = styleMuted().Render("Loading notifications…")
	case len(m.notifList.Items()) == 0:
		body = styleMuted().Render("No notifications.")
	default:
		body = m.notifList.View()
	}
	return title + "\n" + body
}
