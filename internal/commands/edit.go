package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmaster/internal/config"
	"taskmaster/internal/exitcode"
	"taskmaster/internal/service"
	"taskmaster/internal/view"
)

func init() {
	Register(&EditCmd{})
}

// optionalString is a string flag that remembers whether it was given.
type optionalString struct {
	value string
	set   bool
}

func (s *optionalString) String() string { return s.value }

func (s *optionalString) Set(v string) error {
	s.value = v
	s.set = true
	return nil
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       optionalString
	description optionalString
	priority    optionalString
}

// SetTitle sets the new title (for testing).
func (c *EditCmd) SetTitle(v string) { c.title.Set(v) }

// SetDescription sets the new description (for testing).
func (c *EditCmd) SetDescription(v string) { c.description.Set(v) }

// SetPriority sets the new priority (for testing).
func (c *EditCmd) SetPriority(v string) { c.priority.Set(v) }

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task's title, description or priority" }
func (c *EditCmd) Usage() string {
	return "taskmaster edit [--title <text>] [--description <text>] [--priority low|medium|high] <ref>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	*c = EditCmd{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
	fs.Var(&c.priority, "priority", "")
	fs.Var(&c.priority, "p", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Backend, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		if err == ErrTaskRefRequired {
			fmt.Fprintln(errOut, "error: task reference required")
		} else {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return exitcode.UserError
	}

	if !c.title.set && !c.description.set && !c.priority.set {
		fmt.Fprintln(errOut, "error: nothing to update (use --title, --description or --priority)")
		return exitcode.UserError
	}

	var priority service.Priority
	if c.priority.set {
		priority, err = service.ParsePriority(c.priority.value)
		if err != nil {
			fmt.Fprintf(errOut, "error: invalid priority: %s\n", c.priority.value)
			return exitcode.UserError
		}
	}

	m, code := loadManager(ctx, svc, errOut)
	if code != exitcode.Success {
		return code
	}
	tasks, err := resolveTasks(m, []TaskRef{ref})
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	row := view.NewRowEditor(tasks[0])
	draft := row.BeginEdit()
	if c.title.set {
		draft.Title = c.title.value
	}
	if c.description.set {
		draft.Description = c.description.value
	}
	if c.priority.set {
		draft.Priority = priority
	}

	patch, ok := row.Save()
	if !ok {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}
	if err := m.Update(ctx, row.Task.ID, patch); err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
