package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmaster/internal/backend/supabase"
	"taskmaster/internal/config"
	"taskmaster/internal/exitcode"
	"taskmaster/internal/logging"
	"taskmaster/internal/service"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return []string{"signout"} }
func (c *LogoutCmd) Synopsis() string  { return "Sign out and remove stored credentials" }
func (c *LogoutCmd) Usage() string     { return "taskmaster logout [common flags]" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, svc service.Backend, args []string, out, errOut io.Writer) int {
	switch cfg.Backend {
	case config.BackendGoogleTasks:
		if !cfg.HasToken() {
			return notLoggedIn(cfg, out)
		}
		if err := cfg.RemoveToken(); err != nil {
			fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
			return exitcode.AuthError
		}
	case config.BackendPostgres, config.BackendMongo, config.BackendNeo4j, config.BackendCassandra, config.BackendSQLite:
		// The identity lives in config.yaml; there is nothing stored to remove.
		return notLoggedIn(cfg, out)
	default:
		if !cfg.HasSession() {
			return notLoggedIn(cfg, out)
		}
		revokeSession(ctx, cfg)
		if err := cfg.RemoveSession(); err != nil {
			fmt.Fprintf(errOut, "error: failed to remove session: %v\n", err)
			return exitcode.AuthError
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

func notLoggedIn(cfg *config.Config, out io.Writer) int {
	if !cfg.Quiet {
		fmt.Fprintln(out, "not logged in")
	}
	return exitcode.Success
}

// revokeSession ends the stored session on the server. Failures are logged only:
// the local session is removed either way.
func revokeSession(ctx context.Context, cfg *config.Config) {
	if cfg.Supabase.URL == "" {
		return
	}
	sess, err := supabase.LoadSession(cfg.SessionPath())
	if err != nil {
		logging.Logger.Warnf("Event ID: SIGN_OUT_REMOTE_FAILED, Description: %v", err)
		return
	}
	auth := supabase.NewAuth(cfg.Supabase.URL, cfg.Supabase.AnonKey, nil)
	if err := auth.SignOut(ctx, sess.Token.AccessToken); err != nil {
		logging.Logger.Warnf("Event ID: SIGN_OUT_REMOTE_FAILED, Description: Server sign-out failed: %v", err)
	}
}
