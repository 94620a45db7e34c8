package commands_test

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"

	"taskmaster/internal/commands"
	"taskmaster/internal/config"
	"taskmaster/internal/exitcode"
	"taskmaster/internal/service"
	"taskmaster/internal/testutil"
)

var errBackend = errors.New("connection refused")

// newConfig returns a config with defaults in a temp directory.
func newConfig(t *testing.T, quiet bool) *config.Config {
	t.Helper()
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatalf("config.New failed: %v", err)
	}
	cfg.Quiet = quiet
	return cfg
}

// runCommand is a helper to run a command with FakeService.
func runCommand(t *testing.T, cmd commands.Command, svc *testutil.FakeService, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	var backend service.Backend
	if svc != nil {
		backend = svc
	}

	ctx := context.Background()
	code = cmd.Run(ctx, newConfig(t, quiet), backend, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

// day is the date label list prints for a task.
func day(task service.Task) string {
	return task.CreatedAt.Local().Format("2006-01-02")
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	cmd := &commands.VersionCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "taskmaster 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

func TestVersionCommand_Verbose(t *testing.T) {
	cmd := &commands.VersionCmd{}
	cmd.SetVerbose(true)

	stdout, _, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	if len(lines) != 5 || lines[0] != "taskmaster 0.1.0" {
		t.Fatalf("unexpected output %q", stdout)
	}
	if lines[1] != "go:       "+runtime.Version() {
		t.Errorf("unexpected go line %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "revision: ") {
		t.Errorf("unexpected revision line %q", lines[2])
	}
	if lines[3] != "backend:  supabase" {
		t.Errorf("unexpected backend line %q", lines[3])
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	cmd := &commands.HelpCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	for _, want := range []string{"Usage:", "taskmaster serve", "taskmaster undo", "Aliases:", "  ls         list\n"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestHelpCommand_ListsEveryCommand(t *testing.T) {
	stdout, _, _ := runCommand(t, &commands.HelpCmd{}, nil, nil, false)

	for _, cmd := range commands.DefaultRegistry.All() {
		if !strings.Contains(stdout, "taskmaster "+cmd.Name()) {
			t.Errorf("help output does not mention %q", cmd.Name())
		}
	}
}

// Tests for list command
func TestListCommand_PendingTab(t *testing.T) {
	svc := testutil.NewFakeService()
	milk := svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	svc.AddTask("b", "Filed taxes", service.PriorityHigh, true)
	eggs := svc.AddTask("c", "Buy eggs", service.PriorityHigh, false)

	cmd := &commands.ListCmd{}
	stdout, stderr, code := runCommand(t, cmd, svc, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}

	expected := "Signed in as ada@example.com\n" +
		"[To Do (2)]  Completed (1)\n" +
		"------------\n" +
		"   1  [ ] Buy eggs  (High Priority, " + day(eggs) + ")\n" +
		"   2  [ ] Buy milk  (Low Priority, " + day(milk) + ")\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_CompletedTab(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	taxes := svc.AddTask("b", "Filed taxes", service.PriorityHigh, true)

	cmd := &commands.ListCmd{}
	cmd.SetCompleted(true)
	stdout, _, code := runCommand(t, cmd, svc, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}

	expected := "Signed in as ada@example.com\n" +
		"To Do (1)  [Completed (1)]\n" +
		"------------\n" +
		"  c1  [x] Filed taxes  (High Priority, " + day(taxes) + ")\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_Empty(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, _, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.HasSuffix(stdout, "No tasks yet. Add one above to get started!\n") {
		t.Errorf("expected pending placeholder, got %q", stdout)
	}
}

func TestListCommand_OnlyOwnTasks(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddForeignTask("x", "Someone else's", "user-2")

	stdout, _, _ := runCommand(t, &commands.ListCmd{}, svc, nil, false)

	if strings.Contains(stdout, "Someone else") {
		t.Errorf("foreign task listed: %q", stdout)
	}
}

func TestListCommand_BackendError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListTasksErr = errBackend

	_, stderr, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.HasPrefix(stderr, "error: backend error:") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestListCommand_AuthError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CurrentUserErr = errors.New("session expired")

	_, _, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
}

func TestListCommand_UnexpectedArgument(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.ListCmd{}, testutil.NewFakeService(), []string{"work"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unexpected argument: work\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for add command
func TestAddCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()

	cmd := &commands.AddCmd{}
	cmd.SetDescription("Two liters")
	cmd.SetPriority("high")
	stdout, stderr, code := runCommand(t, cmd, svc, []string{"Buy", "milk"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	stored := svc.Stored()
	if len(stored) != 1 {
		t.Fatalf("expected 1 task, got %d", len(stored))
	}
	task := stored[0]
	if task.Title != "Buy milk" || task.Description != "Two liters" || task.Priority != service.PriorityHigh {
		t.Errorf("unexpected task %+v", task)
	}
	if task.Completed || task.OwnerID != testutil.DefaultUser.UserID {
		t.Errorf("new task should be pending and owned by the user: %+v", task)
	}
}

func TestAddCommand_DefaultPriority(t *testing.T) {
	svc := testutil.NewFakeService()

	cmd := &commands.AddCmd{}
	cmd.SetPriority("")
	_, _, code := runCommand(t, cmd, svc, []string{"Call mom"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if p := svc.Stored()[0].Priority; p != service.PriorityMedium {
		t.Errorf("expected medium priority, got %s", p)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, stderr, code := runCommand(t, &commands.CreateCmd{}, svc, []string{"Buy milk"}, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" || stderr != "" {
		t.Errorf("expected no output in quiet mode, got %q / %q", stdout, stderr)
	}
	if len(svc.Stored()) != 1 {
		t.Error("create should insert a task")
	}
}

func TestAddCommand_NoTitle(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"  "}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: title required\n" {
		t.Errorf("expected title error, got %q", stderr)
	}
	if svc.TotalCalls() != 0 {
		t.Error("blank title should not reach the store")
	}
}

func TestAddCommand_InvalidPriority(t *testing.T) {
	cmd := &commands.AddCmd{}
	cmd.SetPriority("urgent")
	_, stderr, code := runCommand(t, cmd, testutil.NewFakeService(), []string{"Buy milk"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: invalid priority: urgent\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestAddCommand_BackendError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.InsertTaskErr = errBackend

	_, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"Buy milk"}, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.Contains(stderr, "connection refused") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for edit command
func TestEditCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)

	cmd := &commands.EditCmd{}
	cmd.SetTitle("Buy oat milk")
	cmd.SetPriority("high")
	stdout, stderr, code := runCommand(t, cmd, svc, []string{"1"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	task := svc.Stored()[0]
	if task.Title != "Buy oat milk" || task.Priority != service.PriorityHigh {
		t.Errorf("unexpected task %+v", task)
	}
}

func TestEditCommand_CompletedTab(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Open", service.PriorityLow, false)
	svc.AddTask("b", "Closed", service.PriorityLow, true)

	cmd := &commands.EditCmd{}
	cmd.SetDescription("archived")
	_, _, code := runCommand(t, cmd, svc, []string{"c1"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	for _, task := range svc.Stored() {
		if task.ID == "b" && task.Description != "archived" {
			t.Errorf("completed task not edited: %+v", task)
		}
		if task.ID == "a" && task.Description != "" {
			t.Errorf("wrong task edited: %+v", task)
		}
	}
}

func TestEditCommand_NothingToUpdate(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)

	_, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"1"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: nothing to update") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if svc.TotalCalls() != 0 {
		t.Error("nothing should reach the store")
	}
}

func TestEditCommand_BlankTitle(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)

	cmd := &commands.EditCmd{}
	cmd.SetTitle(" ")
	_, stderr, code := runCommand(t, cmd, svc, []string{"1"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: title required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if svc.Calls("UpdateTask") != 0 {
		t.Error("blank title should not reach the store")
	}
}

func TestEditCommand_NoRef(t *testing.T) {
	cmd := &commands.EditCmd{}
	cmd.SetTitle("x")
	_, stderr, code := runCommand(t, cmd, testutil.NewFakeService(), nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task reference required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for done and undo commands
func TestDoneCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	svc.AddTask("b", "Buy eggs", service.PriorityLow, false)

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"2"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	for _, task := range svc.Stored() {
		if task.Completed != (task.ID == "a") {
			t.Errorf("unexpected completion state %+v", task)
		}
	}
}

func TestDoneCommand_MultipleRefsUseOneSnapshot(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "One", service.PriorityLow, false)
	svc.AddTask("b", "Two", service.PriorityLow, false)
	svc.AddTask("c", "Three", service.PriorityLow, false)

	_, _, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"1", "3"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	for _, task := range svc.Stored() {
		want := task.ID == "a" || task.ID == "c"
		if task.Completed != want {
			t.Errorf("task %s completed=%v, want %v", task.ID, task.Completed, want)
		}
	}
}

func TestUndoCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, true)

	_, _, code := runCommand(t, &commands.UndoCmd{}, svc, []string{"c1"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if svc.Stored()[0].Completed {
		t.Error("task should be pending again")
	}
}

func TestDoneCommand_NoRef(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: task reference required\n" {
		t.Errorf("expected 'error: task reference required\\n', got %q", stderr)
	}
}

func TestDoneCommand_InvalidRef(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"abc"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: invalid task reference: abc\n" {
		t.Errorf("expected invalid ref error, got %q", stderr)
	}
}

func TestDoneCommand_OutOfRange(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"1", "5"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task number out of range: 5\n" {
		t.Errorf("expected out of range error, got %q", stderr)
	}
	if svc.Calls("UpdateTask") != 0 {
		t.Error("no task should change when a reference is out of range")
	}
}

// Tests for rm command
func TestRmCommand_Yes(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	svc.AddTask("b", "Buy eggs", service.PriorityLow, false)

	cmd := &commands.RmCmd{}
	cmd.SetYes(true)
	stdout, stderr, code := runCommand(t, cmd, svc, []string{"1"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	stored := svc.Stored()
	if len(stored) != 1 || stored[0].ID != "a" {
		t.Errorf("expected only task a left, got %+v", stored)
	}
}

func TestRmCommand_PromptAccepted(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)

	cmd := &commands.RmCmd{}
	cmd.SetInput(strings.NewReader("y\n"))
	_, stderr, code := runCommand(t, cmd, svc, []string{"1"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "Are you sure you want to delete this task? [y/N] " {
		t.Errorf("unexpected prompt %q", stderr)
	}
	if len(svc.Stored()) != 0 {
		t.Error("task should be deleted")
	}
}

func TestRmCommand_PromptDeclined(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)

	cmd := &commands.RmCmd{}
	cmd.SetInput(strings.NewReader("\n"))
	_, stderr, code := runCommand(t, cmd, svc, []string{"1"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasSuffix(stderr, "error: not deleted\n") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if svc.Calls("DeleteTask") != 0 || len(svc.Stored()) != 1 {
		t.Error("declined delete should not reach the store")
	}
}

func TestRmCommand_NoRef(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := runCommand(t, &commands.RmCmd{}, svc, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task reference required\n" {
		t.Errorf("expected 'error: task reference required\\n', got %q", stderr)
	}
}

func TestRmCommand_BackendError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	svc.DeleteTaskErr = errBackend

	cmd := &commands.RmCmd{}
	cmd.SetYes(true)
	_, _, code := runCommand(t, cmd, svc, []string{"1"}, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
}

// Tests for whoami command
func TestWhoamiCommand(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.WhoamiCmd{}, testutil.NewFakeService(), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "Signed in as ada@example.com\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

// Tests for serve command
func TestServeCommand_RejectsArguments(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.ServeCmd{}, testutil.NewFakeService(), []string{"extra"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: serve takes no arguments\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestServeCommand_StopsOnCancel(t *testing.T) {
	svc := testutil.NewFakeService()
	cmd := &commands.ServeCmd{}
	cmd.SetAddr("127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(ctx, newConfig(t, true), svc, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, errBuf.String())
	}
}
