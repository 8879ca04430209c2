package tui

import (
	"context"
	"strings"
	"time"

	"gmao-cli/internal/appstate"
	"gmao-cli/internal/gateway"
	"gmao-cli/internal/lifecycle"
	"gmao-cli/internal/model"
	"gmao-cli/internal/notify"
	"gmao-cli/internal/store"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

type appModel struct {
	ctx   context.Context
	opts  Options
	log   logrus.FieldLogger
	state *appstate.State
	now   func() time.Time

	client *gateway.Client
	router *notify.Router
	ctrl   *lifecycle.Controller

	width  int
	height int

	screen  screen
	loading bool

	login      loginForm
	tasksList  list.Model
	notifList  list.Model
	showClosed bool
	detail     *detailView
	checklist  *checklistView
	cycle      *cycleView

	modal        modalKind
	confirmFocus confirmModalFocus
	infoTitle    string
	infoBody     string

	// restoreTaskID reopens the detail saved in the UI state once the first snapshot lands.
	restoreTaskID int
}

func newAppModel(ctx context.Context, opts Options) appModel {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	m := appModel{
		ctx:       ctx,
		opts:      opts,
		log:       log.WithField("component", "tui"),
		state:     appstate.New(),
		now:       time.Now,
		screen:    screenLogin,
		login:     newLoginForm(),
		tasksList: newRowList(),
		notifList: newRowList(),
	}
	m.login.focus()

	p, err := opts.Store.Load(ctx)
	if err != nil {
		m.log.WithError(err).Warn("load persisted session")
	}
	if sess, ok := p.Session(); ok {
		m.state.SetStatusFilter(p.Filter)
		m.setSession(sess)
		m.screen = screenTasks
		if ui, err := opts.Store.LoadUIState(); err == nil {
			m.showClosed = ui.ShowClosed
			if appstate.View(ui.View) == appstate.ViewNotifications {
				m.screen = screenNotifications
			}
			m.restoreTaskID = ui.OpenTaskID
		}
	}
	return m
}

func (m *appModel) setSession(sess model.Session) {
	m.state.SetSession(sess)
	m.client = m.opts.Client(sess.Token)
	m.router = notify.NewRouter(m.client, m.state, m.log)
	m.router.Now = m.now
	m.ctrl = lifecycle.NewController(m.client, m.log)
	m.ctrl.Now = m.now
}

func (m *appModel) session() model.Session {
	sess, _ := m.state.Session()
	return sess
}

func (m appModel) Init() tea.Cmd {
	if m.screen == screenLogin {
		return textinput.Blink
	}
	return m.refreshCmd()
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case loginDoneMsg:
		return m.onLogin(msg)
	case logoutDoneMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("clear persisted session")
		}
		return m, nil
	case snapshotMsg:
		return m.onSnapshot(msg)
	case taskLoadedMsg:
		return m.onTaskLoaded(msg)
	case savedMsg:
		return m.onSaved(msg)
	case deletedMsg:
		return m.onDeleted(msg)
	case printedMsg:
		if msg.err != nil {
			return m, m.fail(msg.err)
		}
		m.state.SetBanner(appstate.Info("PDF saved to " + msg.path))
		return m, nil
	case openedMsg:
		return m.onOpened(msg)
	case markedMsg:
		m.rebuildNotifications()
		if msg.err != nil {
			return m, m.fail(msg.err)
		}
		return m, nil
	case cycleVisitMsg:
		return m.onCycleVisit(msg)
	case checklistMsg:
		return m.onChecklist(msg)
	case filterSavedMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("persist status filter")
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.modal != modalNone {
			return m.updateModal(msg)
		}
		if msg.String() == "esc" && m.screen != screenLogin {
			if b := m.state.Banner(); !b.Empty() && b.Dismissible {
				m.state.DismissBanner()
				return m, nil
			}
		}
		switch m.screen {
		case screenLogin:
			return m.updateLogin(msg)
		case screenTasks:
			return m.updateTasks(msg)
		case screenDetail:
			return m.updateDetail(msg)
		case screenNotifications:
			return m.updateNotifications(msg)
		case screenChecklist:
			return m.updateChecklist(msg)
		case screenCycleVisit:
			return m.updateCycleVisit(msg)
		}
	}

	// Cursor blink and other component ticks.
	var cmd tea.Cmd
	switch m.screen {
	case screenLogin:
		m.login, cmd = m.login.update(msg)
	case screenDetail:
		if m.detail != nil {
			cmd = m.detail.updateFocused(msg)
		}
	}
	return m, cmd
}

// fail shows err in the banner. Permission failures end the session so the user can
// sign in again.
func (m *appModel) fail(err error) tea.Cmd {
	b := appstate.BannerFor(err)
	m.state.SetBanner(b)
	if b.Relogin {
		return m.toLogin()
	}
	return nil
}

func (m *appModel) toLogin() tea.Cmd {
	banner := m.state.Banner()
	m.closeDetail()
	m.checklist, m.cycle = nil, nil
	m.state.Reset()
	m.state.SetBanner(banner)
	m.client, m.router, m.ctrl = nil, nil, nil
	m.restoreTaskID = 0
	m.modal = modalNone
	m.screen = screenLogin
	m.login = newLoginForm()
	m.rebuildTasks()
	m.rebuildNotifications()

	st := m.opts.Store
	ctx := m.ctx
	return tea.Batch(m.login.focus(), func() tea.Msg {
		return logoutDoneMsg{err: st.Clear(ctx)}
	})
}

func (m *appModel) setScreen(s screen) {
	m.screen = s
	m.state.SetView(s.view())
}

func (m appModel) quit() (tea.Model, tea.Cmd) {
	m.shutdown()
	return m, tea.Quit
}

// shutdown persists the UI state and releases staged files.
func (m appModel) shutdown() {
	if m.screen != screenLogin {
		ui := &store.UIState{View: string(m.screen.view()), ShowClosed: m.showClosed}
		if m.detail != nil && m.detail.task.ID > 0 {
			ui.OpenTaskID = m.detail.task.ID
		}
		if err := m.opts.Store.SaveUIState(ui); err != nil {
			m.log.WithError(err).Warn("save ui state")
		}
	}
	if m.detail != nil {
		m.detail.release()
	}
}

func (m *appModel) resize() {
	w, h := m.width, m.bodyHeight()
	m.tasksList.SetSize(w, h-2)
	m.notifList.SetSize(w, h-1)
	if m.detail != nil {
		m.detail.setWidth(w)
	}
}

func (m appModel) bodyHeight() int {
	h := m.height - 2
	if !m.state.Banner().Empty() {
		h--
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}
	if m.modal != modalNone {
		return center(m.renderModal(), m.width, m.height)
	}

	var body, help string
	switch m.screen {
	case screenLogin:
		body, help = m.viewLogin(), "enter: next/sign in  ctrl+c: quit"
	case screenTasks:
		body, help = m.viewTasks(), "enter: open  tab: filter  c: show closed  n: notifications  r: refresh  L: logout  q: quit"
	case screenDetail:
		body, help = m.viewDetail(), m.detail.help()
	case screenNotifications:
		body, help = m.viewNotifications(), "enter: open  m: mark read  a: mark all read  r: refresh  esc: tasks"
	case screenChecklist:
		body, help = m.viewChecklist(), "space: toggle  tab: notes  ctrl+s: submit  esc: cancel"
	case screenCycleVisit:
		body, help = m.viewCycleVisit(), m.cycle.help()
	}

	parts := []string{m.renderHeader()}
	if b := m.state.Banner(); !b.Empty() {
		parts = append(parts, fitLine(styleBanner(b.Level).Render(b.Text), m.width))
	}
	parts = append(parts,
		normalizePane(body, m.width, m.bodyHeight()),
		fitLine(styleMuted().Render(help), m.width),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m appModel) renderHeader() string {
	title := styleTitle().Render("GMAO")
	if m.screen == screenLogin {
		return fitLine(title, m.width)
	}
	sess := m.session()
	who := sess.Name
	if who == "" {
		who = sess.Username
	}
	parts := []string{title, who + " (" + string(sess.Role) + ")"}
	if n := m.state.UnreadCount(); n > 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorWarn).Render(glyphUnread()+" "+itoa(n)+" unread"))
	}
	if m.loading {
		parts = append(parts, styleMuted().Render("refreshing…"))
	}
	return fitLine(strings.Join(parts, "  "), m.width)
}

func infoBanner(text string) appstate.Banner { return appstate.Info(text) }

func warnBanner(text string) appstate.Banner {
	return appstate.Banner{Level: appstate.LevelWarn, Text: text, Dismissible: true}
}
