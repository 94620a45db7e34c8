package commands

import (
	"context"
	"fmt"
	"io"

	"taskmaster/internal/exitcode"
	"taskmaster/internal/service"
	"taskmaster/internal/state"
	"taskmaster/internal/view"
)

// newManager creates a state manager for the signed-in user of svc.
// It does not load the task list.
func newManager(ctx context.Context, svc service.Backend, errOut io.Writer) (*state.Manager, int) {
	owner, err := svc.CurrentUser(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return nil, exitcode.AuthError
	}
	return state.New(svc, owner), exitcode.Success
}

// loadManager creates a state manager and loads the task list.
func loadManager(ctx context.Context, svc service.Backend, errOut io.Writer) (*state.Manager, int) {
	m, code := newManager(ctx, svc, errOut)
	if code != exitcode.Success {
		return nil, code
	}
	if err := m.Load(ctx); err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return nil, exitcode.BackendError
	}
	return m, exitcode.Success
}

// resolveTasks maps references to tasks, numbering each tab the way list prints it.
// All references resolve against the same snapshot, so earlier ones do not shift later ones.
func resolveTasks(m *state.Manager, refs []TaskRef) ([]service.Task, error) {
	pending, completed := view.Partition(m.Tasks())

	result := make([]service.Task, 0, len(refs))
	for _, ref := range refs {
		tab := pending
		if ref.Tab == view.TabCompleted {
			tab = completed
		}
		if ref.TaskNum < 1 || ref.TaskNum > len(tab) {
			return nil, fmt.Errorf("task number out of range: %s", ref)
		}
		result = append(result, tab[ref.TaskNum-1])
	}
	return result, nil
}

// refLabel renders the i-th (0-based) row reference of a tab.
func refLabel(tab view.Tab, i int) string {
	return TaskRef{Tab: tab, TaskNum: i + 1}.String()
}

// parseRefs parses task references and prints the error the way every command does.
func parseRefs(args []string, errOut io.Writer) ([]TaskRef, bool) {
	refs, err := ParseTaskRefs(args)
	if err != nil {
		if err == ErrTaskRefRequired {
			fmt.Fprintln(errOut, "error: task reference required")
		} else {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return nil, false
	}
	return refs, true
}
