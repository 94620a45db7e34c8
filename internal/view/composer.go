package view

import (
	"fmt"

	"taskmaster/internal/service"
)

// Tab selects which half of the task list is displayed.
type Tab string

const (
	TabPending   Tab = "pending"
	TabCompleted Tab = "completed"
)

// ParseTab maps a query value to a tab. Unknown values select the pending tab.
func ParseTab(s string) Tab {
	if Tab(s) == TabCompleted {
		return TabCompleted
	}
	return TabPending
}

// Placeholders shown when the active tab has no tasks.
const (
	EmptyPending   = "No tasks yet. Add one above to get started!"
	EmptyCompleted = "No completed tasks yet. Keep working!"
	LoadingMessage = "Loading..."
)

// TaskSource is the read side of the state manager.
type TaskSource interface {
	Tasks() []service.Task
	Loading() bool
	Owner() service.Identity
}

// Composer is the top-level screen: identity, tab selection and filtered views.
type Composer struct {
	src    TaskSource
	active Tab
}

// NewComposer returns a composer on the pending tab.
func NewComposer(src TaskSource) *Composer {
	return &Composer{src: src, active: TabPending}
}

// Select switches the active tab.
func (c *Composer) Select(tab Tab) {
	c.active = tab
}

// Active returns the active tab.
func (c *Composer) Active() Tab {
	return c.active
}

// Partition splits tasks into pending and completed, keeping order.
func Partition(tasks []service.Task) (pending, completed []service.Task) {
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			pending = append(pending, t)
		}
	}
	return pending, completed
}

// Screen is everything needed to render the composer once.
type Screen struct {
	User           service.Identity
	Loading        bool
	Active         Tab
	Pending        []service.Task
	Completed      []service.Task
	Display        []service.Task
	PendingLabel   string
	CompletedLabel string
	ShowForm       bool
	Placeholder    string
}

// Render snapshots the task list into a Screen for the active tab.
func (c *Composer) Render() Screen {
	s := Screen{
		User:    c.src.Owner(),
		Loading: c.src.Loading(),
		Active:  c.active,
	}
	if s.Loading {
		return s
	}

	s.Pending, s.Completed = Partition(c.src.Tasks())
	s.PendingLabel = fmt.Sprintf("To Do (%d)", len(s.Pending))
	s.CompletedLabel = fmt.Sprintf("Completed (%d)", len(s.Completed))

	if c.active == TabCompleted {
		s.Display = s.Completed
	} else {
		s.Display = s.Pending
		s.ShowForm = true
	}

	if len(s.Display) == 0 {
		if c.active == TabCompleted {
			s.Placeholder = EmptyCompleted
		} else {
			s.Placeholder = EmptyPending
		}
	}
	return s
}
