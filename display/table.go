package display

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

// Table renders rows under header as a pterm table. An empty rows slice
// prints a single gray "(none)" line instead.
func Table(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, pterm.Gray("(none)"))
		return err
	}

	data := pterm.TableData{header}
	data = append(data, rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// TreeItem is one line of an indented tree; Level 0 hangs off the root.
type TreeItem struct {
	Level int
	Text  string
}

// Tree renders items, given in depth-first order, as a pterm tree.
func Tree(w io.Writer, items []TreeItem) error {
	list := make(pterm.LeveledList, 0, len(items))
	for _, it := range items {
		list = append(list, pterm.LeveledListItem{Level: it.Level, Text: it.Text})
	}
	out, err := pterm.DefaultTree.WithRoot(putils.TreeFromLeveledList(list)).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, out)
	return err
}

// Success prints a green check line.
func Success(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, pterm.Green("✓ ")+fmt.Sprintf(format, args...))
}

// Warn prints a yellow line.
func Warn(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, pterm.Yellow(fmt.Sprintf(format, args...)))
}
