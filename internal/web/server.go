// Package web serves the task screen as server-rendered HTML.
//
// Every user action is a form POST that changes the shared view state and
// redirects back to the screen, so the page works without JavaScript.
package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"taskmaster/internal/logging"
	"taskmaster/internal/service"
	"taskmaster/internal/state"
	"taskmaster/internal/view"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Server is the web UI of one signed-in user.
type Server struct {
	backend service.Backend
	manager *state.Manager
	log     *logrus.Logger
	tmpl    *template.Template
	router  *mux.Router

	// mu guards the view state below; the manager has its own lock.
	mu        sync.Mutex
	composer  *view.Composer
	form      *view.EntryForm
	rows      map[string]*view.RowEditor
	signedOut bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for access logs and the state manager.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer resolves the signed-in user and loads the task list.
// A failed load leaves the list empty.
func NewServer(ctx context.Context, backend service.Backend, opts ...Option) (*Server, error) {
	s := &Server{
		backend: backend,
		log:     logging.Logger,
		form:    view.NewEntryForm(),
		rows:    make(map[string]*view.RowEditor),
	}
	for _, opt := range opts {
		opt(s)
	}

	owner, err := backend.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("page").Parse(pageHTML)
	if err != nil {
		return nil, err
	}
	s.tmpl = tmpl

	s.manager = state.New(backend, owner, state.WithLogger(s.log))
	s.composer = view.NewComposer(s.manager)
	// The manager logs a failed load itself.
	_ = s.manager.Load(ctx)

	s.routes()
	return s, nil
}

// Manager returns the state manager behind the screen.
func (s *Server) Manager() *state.Manager {
	return s.manager
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog, securityHeaders, s.sameOrigin)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/static/app.css", handleCSS).Methods(http.MethodGet)
	r.HandleFunc("/form/expand", s.handleFormExpand).Methods(http.MethodPost)
	r.HandleFunc("/form/cancel", s.handleFormCancel).Methods(http.MethodPost)
	r.HandleFunc("/tasks", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}/toggle", s.handleToggle).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}/edit", s.handleEdit).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}/save", s.handleSave).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}/cancel", s.handleCancelEdit).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}/delete", s.handleDeleteConfirm).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id}/delete", s.handleDelete).Methods(http.MethodPost)
	r.HandleFunc("/signout", s.handleSignOut).Methods(http.MethodPost)

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		s.log.Infof("Event ID: SERVER_SHUTDOWN, Description: Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// redirectHome sends the browser back to the screen on the active tab.
func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tab := s.composer.Active()
	s.mu.Unlock()
	http.Redirect(w, r, "/?tab="+url.QueryEscape(string(tab)), http.StatusSeeOther)
}

// isSignedOut reports whether the user signed out of this server.
func (s *Server) isSignedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signedOut
}

// row returns the editor for a task, creating it on first use.
// Callers hold s.mu.
func (s *Server) row(task service.Task) *view.RowEditor {
	r, ok := s.rows[task.ID]
	if !ok {
		r = view.NewRowEditor(task)
		s.rows[task.ID] = r
		return r
	}
	r.Refresh(task)
	return r
}

// pruneRows drops editors of tasks that no longer exist. Callers hold s.mu.
func (s *Server) pruneRows(tasks []service.Task) {
	live := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		live[t.ID] = true
	}
	for id := range s.rows {
		if !live[id] {
			delete(s.rows, id)
		}
	}
}
