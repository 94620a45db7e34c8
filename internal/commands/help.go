package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"

	"taskmaster/internal/config"
	"taskmaster/internal/exitcode"
	"taskmaster/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "taskmaster help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Backend, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)

	aliases := DefaultRegistry.Aliases()
	names := make([]string, 0, len(aliases))
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "\nAliases:")
	for _, alias := range names {
		fmt.Fprintf(out, "  %-10s %s\n", alias, aliases[alias])
	}
	return exitcode.Success
}

const helpText = `Usage:
  taskmaster                                        List open tasks
  taskmaster list [common flags] [--completed]      List the To Do or Completed tab
  taskmaster add [common flags] [-d <text>] [-p low|medium|high] <title...>
  taskmaster create [common flags] [-d <text>] [-p low|medium|high] <title...>
  taskmaster edit [common flags] [-t <title>] [-d <text>] [-p <priority>] <ref>
  taskmaster done [common flags] <ref...>
  taskmaster undo [common flags] <ref...>
  taskmaster rm [common flags] [--yes] <ref...>
  taskmaster serve [common flags] [--addr <host:port>]
  taskmaster whoami [common flags]
  taskmaster login [common flags] [--email <address>]
  taskmaster logout [common flags]
  taskmaster help
  taskmaster version [--verbose]

References:
  3                To Do task number 3, as shown by 'taskmaster list'
  c2               Completed task number 2, as shown by 'taskmaster list -c'

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
