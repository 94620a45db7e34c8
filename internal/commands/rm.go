package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"taskmaster/internal/config"
	"taskmaster/internal/exitcode"
	"taskmaster/internal/service"
	"taskmaster/internal/state"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	yes bool
	in  io.Reader
}

// SetYes skips the confirmation prompt (for testing).
func (c *RmCmd) SetYes(yes bool) {
	c.yes = yes
}

// SetInput sets where the confirmation answer is read from.
func (c *RmCmd) SetInput(r io.Reader) {
	c.in = r
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete tasks" }
func (c *RmCmd) Usage() string     { return "taskmaster rm [--yes] <ref>..." }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc service.Backend, args []string, out, errOut io.Writer) int {
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

	var confirm state.Confirmer = state.Confirmed(true)
	if !c.yes {
		confirm = c.prompter(errOut)
	}

	for _, task := range tasks {
		err := m.Delete(ctx, task.ID, confirm)
		if errors.Is(err, state.ErrNotConfirmed) {
			fmt.Fprintln(errOut, "error: not deleted")
			return exitcode.UserError
		}
		if err != nil {
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return exitcode.BackendError
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// prompter asks on errOut and reads a y/yes answer from the input.
// Anything else, including end of input, declines.
func (c *RmCmd) prompter(errOut io.Writer) state.Confirmer {
	in := c.in
	if in == nil {
		in = os.Stdin
	}
	reader := bufio.NewReader(in)
	return state.ConfirmFunc(func(ctx context.Context, prompt string) bool {
		fmt.Fprintf(errOut, "%s [y/N] ", prompt)
		line, _ := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})
}
