// Package view holds the UI state machines shared by the CLI and the web UI:
// the task entry form, the per-row editor and the tabbed composer.
// Types in this package are not safe for concurrent use.
package view

import (
	"strings"

	"taskmaster/internal/service"
)

// FormState is the display state of the entry form.
type FormState int

const (
	// Collapsed shows only the title input and the add button.
	Collapsed FormState = iota
	// Expanded also shows description, priority selector and cancel.
	Expanded
)

func (s FormState) String() string {
	if s == Expanded {
		return "expanded"
	}
	return "collapsed"
}

// Submission is what a successful submit hands to the state manager.
type Submission struct {
	Title       string
	Description string
	Priority    service.Priority
}

// EntryForm collects the fields of a new task.
type EntryForm struct {
	State       FormState
	Title       string
	Description string
	Priority    service.Priority
}

// NewEntryForm returns a collapsed, empty form.
func NewEntryForm() *EntryForm {
	f := &EntryForm{}
	f.reset()
	return f
}

// Focus is called when the title field gains focus; it expands the form.
func (f *EntryForm) Focus() {
	f.State = Expanded
}

// Cancel clears every field and collapses the form.
func (f *EntryForm) Cancel() {
	f.reset()
}

// Submit returns the collected fields and resets the form.
// A title that is blank after trimming is rejected and the form is left untouched.
func (f *EntryForm) Submit() (Submission, bool) {
	if strings.TrimSpace(f.Title) == "" {
		return Submission{}, false
	}
	s := Submission{
		Title:       f.Title,
		Description: f.Description,
		Priority:    f.Priority,
	}
	f.reset()
	return s, true
}

func (f *EntryForm) reset() {
	f.State = Collapsed
	f.Title = ""
	f.Description = ""
	f.Priority = service.DefaultPriority
}
