package web_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"taskmaster/internal/service"
	"taskmaster/internal/state"
	"taskmaster/internal/testutil"
	"taskmaster/internal/web"
)

func newServer(t *testing.T, svc *testutil.FakeService) *web.Server {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	s, err := web.NewServer(context.Background(), svc, web.WithLogger(logger))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return s
}

func get(t *testing.T, s *web.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func post(t *testing.T, s *web.Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("POST %s: expected redirect, got %d", path, rec.Code)
	}
	return rec
}

func TestNewServer_AuthError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CurrentUserErr = errors.New("session expired")

	logger, _ := logtest.NewNullLogger()
	if _, err := web.NewServer(context.Background(), svc, web.WithLogger(logger)); err == nil {
		t.Fatal("expected error without a signed-in user")
	}
}

func TestIndex_RendersPendingTab(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	svc.AddTask("b", "Filed taxes", service.PriorityHigh, true)
	s := newServer(t, svc)

	rec := get(t, s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Welcome, ada@example.com", "To Do (1)", "Completed (1)", "Buy milk", "Low Priority", "Add Task"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "Filed taxes") {
		t.Error("completed task shown on the pending tab")
	}
	if !strings.Contains(body, "<title>TaskMaster</title>") || !strings.Contains(body, `<h1 class="title">TaskMaster</h1>`) {
		t.Error("page not branded TaskMaster")
	}

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if rec.Header().Get(web.RequestIDHeader) == "" {
		t.Error("missing request id")
	}
}

func TestIndex_CompletedTab(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	s := newServer(t, svc)

	body := get(t, s, "/?tab=completed").Body.String()
	if !strings.Contains(body, "No completed tasks yet. Keep working!") {
		t.Error("expected completed placeholder")
	}
	if strings.Contains(body, "Add Task") {
		t.Error("entry form shown on the completed tab")
	}

	// The tab sticks across redirects.
	rec := post(t, s, "/form/cancel", nil)
	if loc := rec.Header().Get("Location"); loc != "/?tab=completed" {
		t.Errorf("expected redirect to completed tab, got %q", loc)
	}
}

func TestIndex_EmptyPendingPlaceholder(t *testing.T) {
	s := newServer(t, testutil.NewFakeService())

	body := get(t, s, "/").Body.String()
	if !strings.Contains(body, "No tasks yet. Add one above to get started!") {
		t.Error("expected pending placeholder")
	}
}

func TestIndex_FailedLoadShowsPlaceholder(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	svc.ListTasksErr = errors.New("connection refused")
	s := newServer(t, svc)

	body := get(t, s, "/").Body.String()
	if strings.Contains(body, "Loading...") {
		t.Error("a failed load should not leave the loading indicator")
	}
	if !strings.Contains(body, "No tasks yet. Add one above to get started!") {
		t.Error("expected pending placeholder after a failed load")
	}
	if n := svc.Calls("ListTasks"); n != 1 {
		t.Errorf("expected a single fetch, got %d", n)
	}
}

func TestCreate(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Older", service.PriorityLow, false)
	s := newServer(t, svc)

	post(t, s, "/tasks", url.Values{
		"title":       {"Write report"},
		"description": {"Q3"},
		"priority":    {"high"},
	})

	tasks := s.Manager().Tasks()
	if len(tasks) != 2 || tasks[0].Title != "Write report" {
		t.Fatalf("expected new task first, got %+v", tasks)
	}
	if tasks[0].Priority != service.PriorityHigh || tasks[0].Description != "Q3" || tasks[0].Completed {
		t.Errorf("unexpected fields: %+v", tasks[0])
	}
	if tasks[0].OwnerID != testutil.DefaultUser.UserID {
		t.Errorf("expected owner %s, got %s", testutil.DefaultUser.UserID, tasks[0].OwnerID)
	}
}

func TestCreate_InvalidPriorityFallsBackToDefault(t *testing.T) {
	svc := testutil.NewFakeService()
	s := newServer(t, svc)

	post(t, s, "/tasks", url.Values{"title": {"Call mom"}, "priority": {"urgent"}})

	stored := svc.Stored()
	if len(stored) != 1 || stored[0].Priority != service.DefaultPriority {
		t.Fatalf("expected one task with default priority, got %+v", stored)
	}
}

func TestCreate_BlankTitleIsIgnored(t *testing.T) {
	svc := testutil.NewFakeService()
	s := newServer(t, svc)

	post(t, s, "/form/expand", nil)
	post(t, s, "/tasks", url.Values{"title": {"   "}, "description": {"kept"}, "priority": {"low"}})

	if svc.Calls("InsertTask") != 0 {
		t.Error("blank title should not reach the store")
	}
	body := get(t, s, "/").Body.String()
	if !strings.Contains(body, "kept") {
		t.Error("form should keep its fields after a rejected submit")
	}
}

func TestForm_ExpandAndCancel(t *testing.T) {
	s := newServer(t, testutil.NewFakeService())

	if strings.Contains(get(t, s, "/").Body.String(), "<textarea") {
		t.Fatal("form should start collapsed")
	}

	post(t, s, "/form/expand", url.Values{"title": {"Draft"}})
	body := get(t, s, "/").Body.String()
	if !strings.Contains(body, "<textarea") || !strings.Contains(body, `value="Draft"`) {
		t.Error("expected expanded form keeping the typed title")
	}

	post(t, s, "/form/cancel", nil)
	body = get(t, s, "/").Body.String()
	if strings.Contains(body, "<textarea") || strings.Contains(body, `value="Draft"`) {
		t.Error("cancel should clear and collapse the form")
	}
}

func TestToggle(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	s := newServer(t, svc)

	post(t, s, "/tasks/a/toggle", url.Values{"completed": {"true"}})

	task, _ := s.Manager().Find("a")
	if !task.Completed {
		t.Fatal("task should be completed")
	}
	if !svc.Stored()[0].Completed {
		t.Error("store should be updated")
	}

	body := get(t, s, "/?tab=completed").Body.String()
	if !strings.Contains(body, "Buy milk") || !strings.Contains(body, "rowName done") {
		t.Error("completed task should render struck through on the completed tab")
	}

	post(t, s, "/tasks/a/toggle", url.Values{"completed": {"false"}})
	if task, _ := s.Manager().Find("a"); task.Completed {
		t.Error("task should be pending again")
	}
}

func TestEditSave(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	s := newServer(t, svc)

	post(t, s, "/tasks/a/edit", nil)
	if body := get(t, s, "/").Body.String(); !strings.Contains(body, "/tasks/a/save") {
		t.Fatal("row should be in edit mode")
	}

	post(t, s, "/tasks/a/save", url.Values{
		"title":       {"Buy oat milk"},
		"description": {"2 liters"},
		"priority":    {"medium"},
	})

	task, _ := s.Manager().Find("a")
	if task.Title != "Buy oat milk" || task.Description != "2 liters" || task.Priority != service.PriorityMedium {
		t.Errorf("unexpected task after save: %+v", task)
	}
	if body := get(t, s, "/").Body.String(); strings.Contains(body, "/tasks/a/save") {
		t.Error("row should leave edit mode after save")
	}
}

func TestSave_BlankTitleStaysInEditMode(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	s := newServer(t, svc)

	post(t, s, "/tasks/a/edit", nil)
	post(t, s, "/tasks/a/save", url.Values{"title": {" "}, "description": {""}, "priority": {"low"}})

	if svc.Calls("UpdateTask") != 0 {
		t.Error("blank title should not reach the store")
	}
	if body := get(t, s, "/").Body.String(); !strings.Contains(body, "/tasks/a/save") {
		t.Error("row should stay in edit mode")
	}
}

func TestCancelEdit(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	s := newServer(t, svc)

	post(t, s, "/tasks/a/edit", nil)
	post(t, s, "/tasks/a/cancel", nil)

	if body := get(t, s, "/").Body.String(); strings.Contains(body, "/tasks/a/save") {
		t.Error("row should be back in display mode")
	}
	if svc.Calls("UpdateTask") != 0 {
		t.Error("cancel should not update the store")
	}
}

func TestDelete_AsksForConfirmation(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	s := newServer(t, svc)

	body := get(t, s, "/tasks/a/delete").Body.String()
	if !strings.Contains(body, state.DeletePrompt) {
		t.Fatal("expected the delete prompt")
	}

	post(t, s, "/tasks/a/delete", url.Values{"confirm": {"no"}})
	if _, ok := s.Manager().Find("a"); !ok || svc.Calls("DeleteTask") != 0 {
		t.Fatal("declined delete should keep the task")
	}

	post(t, s, "/tasks/a/delete", url.Values{"confirm": {"yes"}})
	if _, ok := s.Manager().Find("a"); ok {
		t.Error("task should be removed from the list")
	}
	if len(svc.Stored()) != 0 {
		t.Error("task should be removed from the store")
	}
}

func TestUnknownTaskIsIgnored(t *testing.T) {
	svc := testutil.NewFakeService()
	s := newServer(t, svc)

	post(t, s, "/tasks/missing/toggle", url.Values{"completed": {"true"}})
	post(t, s, "/tasks/missing/edit", nil)

	if svc.Calls("UpdateTask") != 0 {
		t.Error("unknown task should not reach the store")
	}
}

func TestSignOut(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Buy milk", service.PriorityLow, false)
	s := newServer(t, svc)

	post(t, s, "/signout", nil)
	if !svc.SignedOut() {
		t.Fatal("backend should be signed out")
	}

	body := get(t, s, "/").Body.String()
	if !strings.Contains(body, "Signed out") || strings.Contains(body, "Buy milk") {
		t.Error("expected the signed-out page")
	}

	post(t, s, "/tasks", url.Values{"title": {"After sign out"}})
	if svc.Calls("InsertTask") != 0 {
		t.Error("no mutations after sign out")
	}
}

func TestSignOut_FailureKeepsSession(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SignOutErr = errors.New("network down")
	s := newServer(t, svc)

	post(t, s, "/signout", nil)
	if strings.Contains(get(t, s, "/").Body.String(), "Signed out") {
		t.Error("failed sign-out should keep the task screen")
	}
}

func TestStylesheet(t *testing.T) {
	s := newServer(t, testutil.NewFakeService())

	rec := get(t, s, "/static/app.css")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/css") {
		t.Errorf("unexpected stylesheet response: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func crossSitePost(s *web.Server, path string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestPost_RejectsCrossSite(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"fetch metadata", map[string]string{"Sec-Fetch-Site": "cross-site"}},
		{"same site other origin", map[string]string{"Sec-Fetch-Site": "same-site"}},
		{"foreign origin", map[string]string{"Origin": "https://evil.example"}},
		{"opaque origin", map[string]string{"Origin": "null"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			s := newServer(t, svc)

			form := url.Values{"title": {"Wire money"}, "priority": {"high"}}
			if rec := crossSitePost(s, "/tasks", form, tt.headers); rec.Code != http.StatusForbidden {
				t.Errorf("POST /tasks: expected 403, got %d", rec.Code)
			}
			if rec := crossSitePost(s, "/signout", nil, tt.headers); rec.Code != http.StatusForbidden {
				t.Errorf("POST /signout: expected 403, got %d", rec.Code)
			}
			if len(svc.Stored()) != 0 {
				t.Errorf("expected no task stored, got %+v", svc.Stored())
			}
			if svc.SignedOut() {
				t.Error("expected the session to survive")
			}
		})
	}
}

func TestPost_AllowsSameOrigin(t *testing.T) {
	svc := testutil.NewFakeService()
	s := newServer(t, svc)

	form := url.Values{"title": {"Buy milk"}, "priority": {"low"}}
	headers := map[string]string{"Origin": "http://example.com", "Sec-Fetch-Site": "same-origin"}
	if rec := crossSitePost(s, "/tasks", form, headers); rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if stored := svc.Stored(); len(stored) != 1 || stored[0].Title != "Buy milk" {
		t.Errorf("expected the task to be stored, got %+v", stored)
	}
}
