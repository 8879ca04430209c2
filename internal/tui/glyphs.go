package tui

import (
	"strings"
	"sync"
)

// Terminals can't switch fonts, so affordances come in a Unicode and an ASCII set for
// fonts that render some glyphs poorly.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

func applyGlyphPreference(v string) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	defer glyphsMu.RUnlock()
	return currentGlyphs
}

func pick(unicode, ascii string) string {
	if glyphs() == glyphSetASCII {
		return ascii
	}
	return unicode
}

func glyphBullet() string { return pick("•", "*") }
func glyphArrow() string { return pick("→", "->") }
func glyphHRule() string { return pick("─", "-") }
func glyphChecked() string { return pick("☑", "[x]") }
func glyphUnchecked() string { return pick("☐", "[ ]") }
func glyphUnread() string { return pick("●", "*") }
