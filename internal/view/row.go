package view

import (
	"strings"

	"taskmaster/internal/service"
)

// RowMode is the render state of a task row.
type RowMode int

const (
	// Display renders the task read-only with its actions.
	Display RowMode = iota
	// Edit renders the editable fields.
	Edit
)

// EditSession is an in-progress edit of one task: the values it started
// from and the draft the user is changing.
type EditSession struct {
	Original    service.Task
	Title       string
	Description string
	Priority    service.Priority
}

// Changed reports whether the draft differs from the original.
func (s *EditSession) Changed() bool {
	return s.Title != s.Original.Title ||
		s.Description != s.Original.Description ||
		s.Priority != s.Original.Priority
}

// RowEditor renders a single task and turns user actions into patches.
type RowEditor struct {
	Task    service.Task
	Session *EditSession
}

// NewRowEditor returns a row in display mode.
func NewRowEditor(task service.Task) *RowEditor {
	return &RowEditor{Task: task}
}

// Mode returns the current render state.
func (r *RowEditor) Mode() RowMode {
	if r.Session != nil {
		return Edit
	}
	return Display
}

// Refresh replaces the displayed task, keeping any edit in progress.
func (r *RowEditor) Refresh(task service.Task) {
	r.Task = task
}

// Toggle returns the patch for the completion checkbox.
func (r *RowEditor) Toggle(checked bool) service.Patch {
	return service.CompletedPatch(checked)
}

// BeginEdit enters edit mode with the draft seeded from the current task.
func (r *RowEditor) BeginEdit() *EditSession {
	r.Session = &EditSession{
		Original:    r.Task,
		Title:       r.Task.Title,
		Description: r.Task.Description,
		Priority:    r.Task.Priority,
	}
	return r.Session
}

// Save returns the full edited field set and leaves edit mode.
// It fails when not editing or when the draft title is blank; the row then stays as it is.
func (r *RowEditor) Save() (service.Patch, bool) {
	s := r.Session
	if s == nil || strings.TrimSpace(s.Title) == "" {
		return service.Patch{}, false
	}
	title, desc, prio := s.Title, s.Description, s.Priority
	r.Session = nil
	return service.Patch{Title: &title, Description: &desc, Priority: &prio}, true
}

// Cancel discards the draft and returns to display mode.
func (r *RowEditor) Cancel() {
	r.Session = nil
}

// StruckThrough reports whether the title renders struck through.
func (r *RowEditor) StruckThrough() bool {
	return r.Task.Completed
}

// Badge returns the priority badge text, e.g. "High Priority".
func (r *RowEditor) Badge() string {
	return r.Task.Priority.Label() + " Priority"
}

// DateLabel returns the creation date as shown on the row.
func (r *RowEditor) DateLabel() string {
	if r.Task.CreatedAt.IsZero() {
		return ""
	}
	return r.Task.CreatedAt.Local().Format("2006-01-02")
}
