package tui

import (
	"strings"

	"gmao-cli/internal/gateway"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type loginForm struct {
	username textinput.Model
	password textinput.Model
	onPass   bool
	busy     bool
	err      string
}

func newLoginForm() loginForm {
	u := newInput()
	u.Prompt = "Username: "
	u.CharLimit = 150
	p := newInput()
	p.Prompt = "Password: "
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'
	return loginForm{username: u, password: p}
}

func (f *loginForm) focus() tea.Cmd {
	if f.onPass {
		f.username.Blur()
		return f.password.Focus()
	}
	f.password.Blur()
	return f.username.Focus()
}

func (f loginForm) update(msg tea.Msg) (loginForm, tea.Cmd) {
	var cmd tea.Cmd
	if f.onPass {
		f.password, cmd = f.password.Update(msg)
	} else {
		f.username, cmd = f.username.Update(msg)
	}
	return f, cmd
}

func (m appModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.busy {
		return m, nil
	}
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.login.onPass = !m.login.onPass
		return m, m.login.focus()
	case "enter":
		if !m.login.onPass {
			m.login.onPass = true
			return m, m.login.focus()
		}
		user := strings.TrimSpace(m.login.username.Value())
		pass := m.login.password.Value()
		if user == "" || pass == "" {
			m.login.err = "Username and password are required."
			return m, nil
		}
		m.login.err = ""
		m.login.busy = true
		return m, m.loginCmd(user, pass)
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.update(msg)
	return m, cmd
}

func (m appModel) onLogin(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	m.login.busy = false
	if msg.err != nil {
		m.log.WithError(msg.err).Info("login failed")
		m.login.err = loginError(msg.err)
		m.login.password.SetValue("")
		return m, nil
	}
	m.state.DismissBanner()
	m.setSession(msg.sess)
	m.setScreen(screenTasks)
	m.log.WithField("user", msg.sess.Username).Info("signed in")
	return m, m.refreshCmd()
}

func loginError(err error) string {
	switch gateway.KindOf(err) {
	case gateway.KindPermission, gateway.KindValidation:
		return "Invalid username or password."
	case gateway.KindNetwork:
		return "Cannot reach the server. Check the connection and retry."
	}
	return err.Error()
}

func (m appModel) viewLogin() string {
	w := modalBodyWidth(m.width)
	var b strings.Builder
	b.WriteString(styleTitle().Render("Sign in") + "\n\n")
	b.WriteString(m.login.username.View() + "\n")
	b.WriteString(m.login.password.View() + "\n")
	if m.login.busy {
		b.WriteString("\n" + styleMuted().Render("Signing in…"))
	}
	if m.login.err != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(colorError).Render(m.login.err))
	}
	box := lipgloss.NewStyle().
		Width(w).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Render(b.String())
	return center(box, m.width, m.bodyHeight())
}
