package tui

import (
	"os"

	"gmao-cli/internal/lifecycle"
	"gmao-cli/internal/model"
	"gmao-cli/internal/notify"
	"gmao-cli/internal/report"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *appModel) loginCmd(username, password string) tea.Cmd {
	ctx, c, st := m.ctx, m.opts.Client(""), m.opts.Store
	return func() tea.Msg {
		sess, err := c.Login(ctx, username, password)
		if err == nil {
			err = model.Check(sess)
		}
		if err == nil {
			err = st.SaveSession(ctx, sess)
		}
		return loginDoneMsg{sess: sess, err: err}
	}
}

// refreshCmd reloads every list in one go. Each cache takes a ticket now so a snapshot
// overtaken by a newer one, or by a logout, is dropped on arrival.
func (m *appModel) refreshCmd() tea.Cmd {
	if m.client == nil {
		return nil
	}
	m.loading = true
	t := m.state.BeginSnapshot(m.session().IsAdmin())
	ctx, c := m.ctx, m.client
	return func() tea.Msg {
		return snapshotMsg{tickets: t, snap: c.LoadSnapshot(ctx, t.WithChefs)}
	}
}

func (m *appModel) fetchTaskCmd(gen uint64, id int) tea.Cmd {
	ctx, c := m.ctx, m.client
	return func() tea.Msg {
		wo, err := c.GetTask(ctx, id)
		return taskLoadedMsg{gen: gen, task: wo, err: err}
	}
}

func (m *appModel) saveCmd(gen uint64, wo model.WorkOrder, d lifecycle.Draft) tea.Cmd {
	ctx, ctrl, sess := m.ctx, m.ctrl, m.session()
	return func() tea.Msg {
		return savedMsg{gen: gen, res: ctrl.Save(ctx, sess, wo, d)}
	}
}

func (m *appModel) deleteCmd(gen uint64, wo model.WorkOrder) tea.Cmd {
	ctx, ctrl, sess := m.ctx, m.ctrl, m.session()
	return func() tea.Msg {
		return deletedMsg{gen: gen, task: wo, err: ctrl.Delete(ctx, sess, wo, true)}
	}
}

func (m *appModel) printCmd(id int) tea.Cmd {
	ctx, c := m.ctx, m.client
	return func() tea.Msg {
		dir, err := os.Getwd()
		if err != nil {
			return printedMsg{err: err}
		}
		path, err := report.SaveTaskPDF(ctx, c, id, dir)
		return printedMsg{path: path, err: err}
	}
}

func (m *appModel) openCmd(n model.Notification, gen uint64) tea.Cmd {
	ctx, r, sess := m.ctx, m.router, m.session()
	return func() tea.Msg {
		act, err := r.OpenIn(ctx, sess, n, gen)
		return openedMsg{act: act, err: err}
	}
}

func (m *appModel) markReadCmd(id model.FlexID) tea.Cmd {
	ctx, r := m.ctx, m.router
	return func() tea.Msg { return markedMsg{err: r.MarkRead(ctx, id)} }
}

func (m *appModel) markAllReadCmd() tea.Cmd {
	ctx, r := m.ctx, m.router
	return func() tea.Msg { return markedMsg{err: r.MarkAllRead(ctx)} }
}

func (m *appModel) cycleVisitCmd(f *notify.CycleVisitForm) tea.Cmd {
	ctx, r, sess := m.ctx, m.router, m.session()
	return func() tea.Msg {
		o, fields, err := r.SubmitCycleVisit(ctx, sess, f)
		return cycleVisitMsg{order: o, fields: fields, err: err}
	}
}

func (m *appModel) checklistCmd(f *notify.ChecklistForm) tea.Cmd {
	ctx, r := m.ctx, m.router
	return func() tea.Msg {
		wo, err := r.SubmitChecklist(ctx, f)
		return checklistMsg{task: wo, err: err}
	}
}

func (m *appModel) saveFilterCmd(st model.Status) tea.Cmd {
	ctx, s := m.ctx, m.opts.Store
	return func() tea.Msg { return filterSavedMsg{err: s.SaveFilter(ctx, st)} }
}
