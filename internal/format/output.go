package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	xansi "github.com/charmbracelet/x/ansi"
)

// Result is one command's output: Data for the machine formats and an optional Table
// for humans.
type Result struct {
	Data  any
	Table *Table
}

type Table struct {
	Headers []string
	Rows    [][]string
}

// maxCell bounds a table cell so long descriptions stay on one line.
const maxCell = 48

// Formats lists the --format values.
var Formats = []string{"json", "edn", "text"}

// Write renders r. The machine formats wrap the payload as {"data": ...}; text prints
// the table when there is one and indented JSON otherwise.
func Write(w io.Writer, r Result, format string, pretty bool) error {
	envelope := map[string]any{"data": r.Data}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return WriteJSON(w, envelope, pretty)
	case "edn":
		return WriteEDN(w, envelope, pretty)
	case "text":
		if r.Table == nil {
			return WriteJSON(w, r.Data, true)
		}
		return WriteTable(w, *r.Table)
	default:
		return fmt.Errorf("unknown format: %s (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func WriteTable(w io.Writer, t Table) error {
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(w, "(none)")
		return err
	}
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			cell = strings.ReplaceAll(cell, "\n", " ")
			rows[i][j] = xansi.Truncate(cell, maxCell, "…")
		}
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(t.Headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			return s
		})
	_, err := fmt.Fprintln(w, tbl.String())
	return err
}
