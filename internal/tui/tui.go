package tui

import (
	"context"

	"gmao-cli/internal/gateway"
	"gmao-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Store store.Store
	// Client builds an API client carrying token ("" before login).
	Client func(token string) *gateway.Client
	Log    logrus.FieldLogger
	Glyphs string
	Style  string
}

func Run(ctx context.Context, opts Options) error {
	applyColorProfilePreference()
	applyThemePreference()
	applyGlyphPreference(opts.Glyphs)
	setMarkdownStyle(opts.Style)

	m := newAppModel(ctx, opts)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if fm, ok := final.(appModel); ok {
		fm.shutdown()
	}
	return err
}
