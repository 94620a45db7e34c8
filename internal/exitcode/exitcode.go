// Package exitcode defines exit codes for the CLI.
package exitcode

// Exit codes returned by every command.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, blank title, reference out of range, declined delete).
	UserError = 1

	// AuthError indicates a sign-in or config error.
	AuthError = 2

	// BackendError indicates a task store, network or circuit breaker error.
	BackendError = 3
)

// Name returns a short name for a code, used in logs.
func Name(code int) string {
	switch code {
	case Success:
		return "success"
	case UserError:
		return "user_error"
	case AuthError:
		return "auth_error"
	case BackendError:
		return "backend_error"
	default:
		return "unknown"
	}
}
