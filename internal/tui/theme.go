package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"gmao-cli/internal/appstate"
	"gmao-cli/internal/model"
)

// The TUI must stay readable on light and dark backgrounds, so colors are adaptive and
// faint styling is only used on dark terminals.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      = ac("240", "243")
	colorSelectedBg = ac("#e9e9e9", "#262626")
	colorSelectedFg = ac("235", "255")
	colorSurfaceBg  = ac("255", "235")
	colorSurfaceFg  = ac("235", "252")
	colorControlBg  = ac("252", "235")
	colorAccent     = ac("27", "62")
	colorAccentFg   = ac("255", "235")

	colorInfo  = ac("25", "75")
	colorWarn  = ac("130", "214")
	colorError = ac("160", "203")

	colorAssigned   = ac("130", "214")
	colorInProgress = ac("25", "75")
	colorClosed     = ac("28", "114")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleTitle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg)
}

func styleStatus(s model.Status) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(true)
	switch s {
	case model.StatusAssigned:
		return st.Foreground(colorAssigned)
	case model.StatusInProgress:
		return st.Foreground(colorInProgress)
	case model.StatusClosed:
		return st.Foreground(colorClosed)
	default:
		return styleMuted()
	}
}

func styleBanner(l appstate.Level) lipgloss.Style {
	st := lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(colorAccentFg)
	switch l {
	case appstate.LevelError:
		return st.Background(colorError)
	case appstate.LevelWarn:
		return st.Background(colorWarn)
	default:
		return st.Background(colorInfo)
	}
}

// applyColorProfilePreference sets the Lip Gloss color profile. Only NO_COLOR is honored;
// CLICOLOR would otherwise switch colors off inside the alt screen.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference forces the background guess: GMAO_TUI_THEME=light|dark, then the
// COLORFGBG "fg;bg" hint. Otherwise Lip Gloss keeps its own detection.
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("GMAO_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}
