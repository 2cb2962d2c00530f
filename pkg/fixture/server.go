// Package fixture serves a small school-admin web app with the pages the
// built-in scenarios verify. It lets the harness run end to end without
// the real frontend.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"dev/bravebird/ui-verify/pkg/scenario"
)

const sessionCookie = "fixture_session"

// Options configures the fixture app
type Options struct {
	// Users maps accepted e-mail addresses to passwords
	Users map[string]string

	// Rows is the number of rows in every data table
	Rows int

	// Meal is today's meal name. Empty renders the no-meal fallback layout.
	Meal     string
	MealType string

	DateLayout string
	Today      func() time.Time
	Logger     *slog.Logger
}

// DefaultOptions accepts the credentials of every built-in scenario and
// renders the no-meal layout
func DefaultOptions() Options {
	return Options{
		Users: map[string]string{
			"admin@school.edu":  "password123",
			"admin@example.com": "password",
		},
		Rows:       5,
		MealType:   "Lunch",
		DateLayout: scenario.DefaultDateLayout,
		Today:      time.Now,
	}
}

// Server is the fixture app
type Server struct {
	opts   Options
	logger *slog.Logger
	router *mux.Router

	mu       sync.Mutex
	sessions map[string]string
}

// New creates the fixture app
func New(opts Options) *Server {
	defaults := DefaultOptions()
	if opts.Users == nil {
		opts.Users = defaults.Users
	}
	if opts.MealType == "" {
		opts.MealType = defaults.MealType
	}
	if opts.DateLayout == "" {
		opts.DateLayout = defaults.DateLayout
	}
	if opts.Today == nil {
		opts.Today = defaults.Today
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[string]string),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/", s.loginPage).Methods("GET")
	router.HandleFunc("/login", s.login).Methods("POST")
	router.HandleFunc("/logout", s.logout).Methods("POST")

	protected := router.NewRoute().Subrouter()
	protected.Use(s.requireSession)
	protected.HandleFunc("/dashboard", s.dashboard).Methods("GET")
	protected.HandleFunc("/management", s.management).Methods("GET")
	protected.HandleFunc("/feeding", s.feeding).Methods("GET")
	protected.HandleFunc("/reports", s.reports).Methods("GET")

	return router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Fixture app listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("fixture shutdown: %w", err)
	}
	s.logger.Info("Fixture app stopped")
	return nil
}

// ==================== Session Handling ====================

func (s *Server) currentUser(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.sessions[c.Value]
	return user, ok
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.currentUser(r); !ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login", pageData{Title: "Login"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	email := r.PostFormValue("email")
	password, ok := s.opts.Users[email]
	if !ok || password != r.PostFormValue("password") {
		s.logger.Info("Rejected login", "email", email)
		s.render(w, http.StatusUnauthorized, "login", pageData{Title: "Login", Error: "Invalid e-mail or password"})
		return
	}

	token := uuid.New().String()
	s.mu.Lock()
	s.sessions[token] = email
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("User logged in", "email", email)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ==================== Pages ====================

type stat struct {
	Label string
	Value string
}

type pageData struct {
	Title string
	Nav   bool
	Error string

	Stats []stat

	Columns []string
	Rows    [][]string

	Meal     string
	MealType string
	Date     string
	Fallback string
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "dashboard", pageData{
		Title: "Dashboard",
		Nav:   true,
		Stats: []stat{
			{"Students", "128"},
			{"Staff", "14"},
			{"Meals Served Today", strconv.Itoa(s.opts.Rows)},
			{"Attendance", "96%"},
		},
	})
}

func (s *Server) management(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Management", Nav: true, Columns: []string{"Name", "Class", "Guardian"}}
	for i := 1; i <= s.opts.Rows; i++ {
		data.Rows = append(data.Rows, []string{
			fmt.Sprintf("Student %d", i),
			fmt.Sprintf("Class %d", (i-1)%4+1),
			fmt.Sprintf("Guardian %d", i),
		})
	}
	s.render(w, http.StatusOK, "rows", data)
}

func (s *Server) reports(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Reports", Nav: true, Columns: []string{"Report", "Period", "Status"}}
	for i := 1; i <= s.opts.Rows; i++ {
		data.Rows = append(data.Rows, []string{
			fmt.Sprintf("Report %d", i),
			fmt.Sprintf("Week %d", i),
			"Ready",
		})
	}
	s.render(w, http.StatusOK, "rows", data)
}

func (s *Server) feeding(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:    "Feeding & Nutrition",
		Nav:      true,
		Columns:  []string{"Student", "Meal", "Served"},
		Meal:     s.opts.Meal,
		MealType: s.opts.MealType,
		Date:     scenario.FormatDate(s.opts.Today(), s.opts.DateLayout),
		Fallback: scenario.FallbackMealText,
	}
	for i := 1; i <= s.opts.Rows; i++ {
		data.Rows = append(data.Rows, []string{fmt.Sprintf("Student %d", i), s.opts.MealType, "yes"})
	}
	s.render(w, http.StatusOK, "feeding", data)
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data pageData) {
	t, ok := pages[page]
	if !ok {
		http.Error(w, "Unknown page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Error("Failed to render page", "page", page, "error", err)
	}
}
