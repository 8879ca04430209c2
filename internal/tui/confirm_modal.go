package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func renderConfirmModal(width int, title, body, confirmLabel, cancelLabel string, focus confirmModalFocus) string {
	// No nested borders: some terminals leave background artifacts inside a colored modal.
	btnBase := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	btnActive := btnBase.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true)

	confirm := btnBase.Render(confirmLabel)
	cancel := btnBase.Render(cancelLabel)
	if focus == confirmFocusConfirm {
		confirm = btnActive.Render(confirmLabel)
	} else {
		cancel = btnActive.Render(cancelLabel)
	}
	sep := lipgloss.NewStyle().Background(colorControlBg).Render(" ")
	controls := lipgloss.JoinHorizontal(lipgloss.Top, confirm, sep, cancel)

	help := styleMuted().Width(modalBodyWidth(width)).Render("tab: focus   enter: select   y/n   esc: cancel")
	return renderModalBox(width, title, strings.Join([]string{body, "", controls, "", help}, "\n"))
}

func (m appModel) renderModal() string {
	switch m.modal {
	case modalConfirmDelete:
		label := ""
		if m.detail != nil {
			label = m.detail.task.Label()
		}
		return renderConfirmModal(m.width, "Delete work order",
			"Delete "+label+"? Its notes and images go with it. This cannot be undone.",
			"Delete", "Cancel", m.confirmFocus)
	case modalConfirmLogout:
		return renderConfirmModal(m.width, "Log out", "Forget the saved session on this machine?", "Log out", "Cancel", m.confirmFocus)
	case modalInfo:
		body := m.infoBody + "\n\n" + styleMuted().Render("enter/esc: close")
		return renderModalBox(m.width, m.infoTitle, body)
	}
	return ""
}

func (m appModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal == modalInfo {
		switch msg.String() {
		case "enter", "esc", "q":
			m.modal = modalNone
		}
		return m, nil
	}

	confirmed := false
	switch msg.String() {
	case "tab", "shift+tab", "left", "right":
		if m.confirmFocus == confirmFocusConfirm {
			m.confirmFocus = confirmFocusCancel
		} else {
			m.confirmFocus = confirmFocusConfirm
		}
		return m, nil
	case "esc", "n":
		m.modal = modalNone
		return m, nil
	case "y":
		confirmed = true
	case "enter":
		confirmed = m.confirmFocus == confirmFocusConfirm
	default:
		return m, nil
	}

	kind := m.modal
	m.modal = modalNone
	if !confirmed {
		return m, nil
	}
	switch kind {
	case modalConfirmDelete:
		if d := m.detail; d != nil {
			return m, m.deleteCmd(d.gen, d.task)
		}
	case modalConfirmLogout:
		m.log.WithField("user", m.session().Username).Info("signed out")
		return m, m.toLogin()
	}
	return m, nil
}
