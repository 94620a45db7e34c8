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
	Register(&DoneCmd{})
	Register(&UndoCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string  { return "Mark tasks completed" }
func (c *DoneCmd) Usage() string     { return "taskmaster done <ref>..." }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Backend, args []string, out, errOut io.Writer) int {
	return runToggle(ctx, cfg, svc, true, args, out, errOut)
}

// UndoCmd implements the undo command: it moves tasks back to To Do.
type UndoCmd struct{}

func (c *UndoCmd) Name() string      { return "undo" }
func (c *UndoCmd) Aliases() []string { return []string{"reopen"} }
func (c *UndoCmd) Synopsis() string  { return "Mark tasks not completed" }
func (c *UndoCmd) Usage() string     { return "taskmaster undo <ref>..." }
func (c *UndoCmd) NeedsAuth() bool   { return true }

func (c *UndoCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UndoCmd) Run(ctx context.Context, cfg *config.Config, svc service.Backend, args []string, out, errOut io.Writer) int {
	return runToggle(ctx, cfg, svc, false, args, out, errOut)
}

// runToggle sets the completion checkbox of every referenced task.
func runToggle(ctx context.Context, cfg *config.Config, svc service.Backend, checked bool, args []string, out, errOut io.Writer) int {
	refs, ok := parseRefs(args, errOut)
	if !ok {
		return exitcode.UserError
	}

	m, code := loadManager(ctx, svc, errOut)
	if code != exitcode.Success {
		return code
	}
	tasks, err := resolveTasks(m, refs)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	for _, task := range tasks {
		row := view.NewRowEditor(task)
		if err := m.Update(ctx, task.ID, row.Toggle(checked)); err != nil {
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return exitcode.BackendError
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
