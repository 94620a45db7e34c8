// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskmaster/internal/service"
	"taskmaster/internal/view"
)

const (
	// ListSeparator is the separator line under the tab bar.
	ListSeparator = "------------"

	// descriptionIndent lines a description up under the task title.
	descriptionIndent = "          "
)

// FormatIdentity formats the signed-in user line.
func FormatIdentity(w io.Writer, id service.Identity) {
	name := id.Email
	if name == "" {
		name = id.UserID
	}
	fmt.Fprintf(w, "Signed in as %s\n", name)
}

// FormatTabs formats the tab bar with the active tab in brackets.
// Format: "[To Do (2)]  Completed (1)\n"
func FormatTabs(w io.Writer, s view.Screen) {
	pending, completed := s.PendingLabel, s.CompletedLabel
	if s.Active == view.TabCompleted {
		completed = "[" + completed + "]"
	} else {
		pending = "[" + pending + "]"
	}
	fmt.Fprintf(w, "%s  %s\n", pending, completed)
	fmt.Fprintln(w, ListSeparator)
}

// FormatTask formats a task row.
// Format: "{REF:>4}  [ ] {TITLE}  ({BADGE}, {DATE})\n", followed by the
// description indented on its own lines.
func FormatTask(w io.Writer, ref string, row *view.RowEditor) {
	box := "[ ]"
	if row.StruckThrough() {
		box = "[x]"
	}
	meta := row.Badge()
	if date := row.DateLabel(); date != "" {
		meta += ", " + date
	}
	fmt.Fprintf(w, "%4s  %s %s  (%s)\n", ref, box, normalizeTitle(row.Task.Title), meta)

	desc := strings.TrimSpace(row.Task.Description)
	if desc == "" {
		return
	}
	for _, line := range strings.Split(desc, "\n") {
		fmt.Fprintf(w, "%s%s\n", descriptionIndent, strings.TrimRight(line, "\r"))
	}
}

// FormatScreen formats a composed screen: identity, tabs, then the active tab's
// rows or its placeholder. refFor renders the reference of the i-th (0-based) row.
func FormatScreen(w io.Writer, s view.Screen, refFor func(i int) string) {
	FormatIdentity(w, s.User)
	if s.Loading {
		fmt.Fprintln(w, view.LoadingMessage)
		return
	}
	FormatTabs(w, s)
	if s.Placeholder != "" {
		fmt.Fprintln(w, s.Placeholder)
		return
	}
	for i, task := range s.Display {
		FormatTask(w, refFor(i), view.NewRowEditor(task))
	}
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
