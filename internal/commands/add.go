package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskmaster/internal/config"
	"taskmaster/internal/exitcode"
	"taskmaster/internal/service"
	"taskmaster/internal/view"
)

func init() {
	Register(&AddCmd{})
	Register(&CreateCmd{})
}

// addFlags are the entry form fields set from the command line.
type addFlags struct {
	description string
	priority    string
}

func (f *addFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.description, "description", "", "")
	fs.StringVar(&f.description, "d", "", "")
	fs.StringVar(&f.priority, "priority", string(service.DefaultPriority), "")
	fs.StringVar(&f.priority, "p", string(service.DefaultPriority), "")
}

// AddCmd implements the add command.
type AddCmd struct {
	flags addFlags
}

// SetDescription sets the description (for testing).
func (c *AddCmd) SetDescription(d string) {
	c.flags.description = d
}

// SetPriority sets the priority (for testing).
func (c *AddCmd) SetPriority(p string) {
	c.flags.priority = p
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return nil }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "taskmaster add [--description <text>] [--priority low|medium|high] <title...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	c.flags.register(fs)
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Backend, args []string, out, errOut io.Writer) int {
	return runAdd(ctx, cfg, svc, c.flags, args, out, errOut)
}

// CreateCmd is an alias for AddCmd.
type CreateCmd struct {
	flags addFlags
}

func (c *CreateCmd) Name() string      { return "create" }
func (c *CreateCmd) Aliases() []string { return nil }
func (c *CreateCmd) Synopsis() string  { return "Create a task (alias for add)" }
func (c *CreateCmd) Usage() string {
	return "taskmaster create [--description <text>] [--priority low|medium|high] <title...>"
}
func (c *CreateCmd) NeedsAuth() bool { return true }

func (c *CreateCmd) RegisterFlags(fs *flag.FlagSet) {
	c.flags.register(fs)
}

func (c *CreateCmd) Run(ctx context.Context, cfg *config.Config, svc service.Backend, args []string, out, errOut io.Writer) int {
	return runAdd(ctx, cfg, svc, c.flags, args, out, errOut)
}

// runAdd is the shared implementation for add and create commands.
// It fills the entry form the way a user would and submits it.
func runAdd(ctx context.Context, cfg *config.Config, svc service.Backend, flags addFlags, args []string, out, errOut io.Writer) int {
	priority := service.DefaultPriority
	if flags.priority != "" {
		p, err := service.ParsePriority(flags.priority)
		if err != nil {
			fmt.Fprintf(errOut, "error: invalid priority: %s\n", flags.priority)
			return exitcode.UserError
		}
		priority = p
	}

	form := view.NewEntryForm()
	form.Focus()
	form.Title = strings.Join(args, " ")
	form.Description = flags.description
	form.Priority = priority

	sub, ok := form.Submit()
	if !ok {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	m, code := newManager(ctx, svc, errOut)
	if code != exitcode.Success {
		return code
	}
	if _, err := m.Create(ctx, sub.Title, sub.Description, sub.Priority); err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
