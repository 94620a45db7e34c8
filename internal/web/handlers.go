package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"taskmaster/internal/service"
	"taskmaster/internal/state"
	"taskmaster/internal/view"
)

type formModel struct {
	Expanded    bool
	Title       string
	Description string
	Priority    service.Priority
}

type rowModel struct {
	ID          string
	Title       string
	Description string
	Priority    service.Priority
	Badge       string
	Date        string
	Completed   bool
	Editing     bool
	Draft       view.EditSession
}

type confirmModel struct {
	ID     string
	Title  string
	Prompt string
}

type pageModel struct {
	SignedOut  bool
	Screen     view.Screen
	UserName   string
	Form       formModel
	Rows       []rowModel
	Priorities []service.Priority
	Confirm    *confirmModel
	TabPending view.Tab
	TabDone    view.Tab
}

// snapshot builds the page model from the current state.
func (s *Server) snapshot() pageModel {
	s.mu.Lock()
	defer s.mu.Unlock()

	screen := s.composer.Render()
	s.pruneRows(s.manager.Tasks())

	p := pageModel{
		SignedOut:  s.signedOut,
		Screen:     screen,
		UserName:   screen.User.Email,
		Priorities: service.Priorities,
		TabPending: view.TabPending,
		TabDone:    view.TabCompleted,
		Form: formModel{
			Expanded:    s.form.State == view.Expanded,
			Title:       s.form.Title,
			Description: s.form.Description,
			Priority:    s.form.Priority,
		},
	}
	if p.UserName == "" {
		p.UserName = screen.User.UserID
	}

	for _, task := range screen.Display {
		r := s.row(task)
		m := rowModel{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Priority:    task.Priority,
			Badge:       r.Badge(),
			Date:        r.DateLabel(),
			Completed:   r.StruckThrough(),
			Editing:     r.Mode() == view.Edit,
		}
		if m.Editing {
			m.Draft = *r.Session
		}
		p.Rows = append(p.Rows, m)
	}
	return p
}

func (s *Server) render(w http.ResponseWriter, p pageModel) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, p); err != nil {
		s.log.Errorf("Event ID: RENDER_FAILED, Description: Error rendering page: %v", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.isSignedOut() {
		s.render(w, pageModel{SignedOut: true})
		return
	}

	if tab := r.URL.Query().Get("tab"); tab != "" {
		s.mu.Lock()
		s.composer.Select(view.ParseTab(tab))
		s.mu.Unlock()
	}

	s.render(w, s.snapshot())
}

func (s *Server) handleFormExpand(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.form.Focus()
	if title := r.PostFormValue("title"); title != "" {
		s.form.Title = title
	}
	s.mu.Unlock()
	s.redirectHome(w, r)
}

func (s *Server) handleFormCancel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.form.Cancel()
	s.mu.Unlock()
	s.redirectHome(w, r)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if s.isSignedOut() {
		s.redirectHome(w, r)
		return
	}

	priority, err := service.ParsePriority(r.PostFormValue("priority"))
	if err != nil {
		priority = service.DefaultPriority
	}

	s.mu.Lock()
	s.form.Title = r.PostFormValue("title")
	if r.PostForm.Has("description") {
		s.form.Description = r.PostFormValue("description")
	}
	s.form.Priority = priority
	sub, ok := s.form.Submit()
	s.mu.Unlock()

	if ok {
		// Failures are logged by the manager; the list simply stays as it was.
		s.manager.Create(r.Context(), sub.Title, sub.Description, sub.Priority)
	}
	s.redirectHome(w, r)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	task, ok := s.findTask(r)
	if !ok {
		s.redirectHome(w, r)
		return
	}

	checked := r.PostFormValue("completed") == "true"
	s.mu.Lock()
	patch := s.row(task).Toggle(checked)
	s.mu.Unlock()

	s.manager.Update(r.Context(), task.ID, patch)
	s.redirectHome(w, r)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if task, ok := s.findTask(r); ok {
		s.mu.Lock()
		s.row(task).BeginEdit()
		s.mu.Unlock()
	}
	s.redirectHome(w, r)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	task, ok := s.findTask(r)
	if !ok {
		s.redirectHome(w, r)
		return
	}

	s.mu.Lock()
	row := s.row(task)
	if row.Mode() != view.Edit {
		s.mu.Unlock()
		s.redirectHome(w, r)
		return
	}
	row.Session.Title = r.PostFormValue("title")
	row.Session.Description = r.PostFormValue("description")
	if p, err := service.ParsePriority(r.PostFormValue("priority")); err == nil {
		row.Session.Priority = p
	}
	patch, saved := row.Save()
	s.mu.Unlock()

	if saved {
		s.manager.Update(r.Context(), task.ID, patch)
	}
	s.redirectHome(w, r)
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if row, ok := s.rows[mux.Vars(r)["id"]]; ok {
		row.Cancel()
	}
	s.mu.Unlock()
	s.redirectHome(w, r)
}

func (s *Server) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	task, ok := s.findTask(r)
	if !ok {
		s.redirectHome(w, r)
		return
	}
	p := s.snapshot()
	p.Confirm = &confirmModel{ID: task.ID, Title: task.Title, Prompt: state.DeletePrompt}
	s.render(w, p)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	task, ok := s.findTask(r)
	if !ok {
		s.redirectHome(w, r)
		return
	}

	confirmed := state.Confirmed(r.PostFormValue("confirm") == "yes")
	if err := s.manager.Delete(r.Context(), task.ID, confirmed); err == nil {
		s.mu.Lock()
		delete(s.rows, task.ID)
		s.mu.Unlock()
	}
	s.redirectHome(w, r)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.SignOut(r.Context()); err != nil {
		s.log.Errorf("Event ID: SIGN_OUT_FAILED, Description: Error signing out: %v", err)
		s.redirectHome(w, r)
		return
	}

	s.mu.Lock()
	s.signedOut = true
	s.rows = make(map[string]*view.RowEditor)
	s.form.Cancel()
	s.mu.Unlock()

	s.log.Infof("Event ID: SIGNED_OUT, Description: User %s signed out", s.manager.Owner().UserID)
	s.redirectHome(w, r)
}

// findTask returns the cached task named by the {id} route variable.
// Nothing is found once the user signed out.
func (s *Server) findTask(r *http.Request) (service.Task, bool) {
	if s.isSignedOut() {
		return service.Task{}, false
	}
	return s.manager.Find(mux.Vars(r)["id"])
}
