package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmaster/internal/config"
	"taskmaster/internal/exitcode"
	"taskmaster/internal/output"
	"taskmaster/internal/service"
	"taskmaster/internal/view"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `taskmaster` (no args) and `taskmaster list --completed`.
type ListCmd struct {
	completed bool
}

// SetCompleted selects the Completed tab (for testing).
func (c *ListCmd) SetCompleted(completed bool) {
	c.completed = completed
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "taskmaster list [--completed]" }
func (c *ListCmd) NeedsAuth() bool   { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.completed, "completed", false, "")
	fs.BoolVar(&c.completed, "c", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Backend, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	m, code := loadManager(ctx, svc, errOut)
	if code != exitcode.Success {
		return code
	}

	composer := view.NewComposer(m)
	if c.completed {
		composer.Select(view.TabCompleted)
	}
	screen := composer.Render()

	output.FormatScreen(out, screen, func(i int) string {
		return refLabel(screen.Active, i)
	})
	return exitcode.Success
}
