// Package apitest provides an in-memory declarative layout API for tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/gooddata/gdc/pkg/catalog"
)

// Token is the bearer token the fake server accepts.
const Token = "test-token"

// Request is one request seen by the server.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Server holds the organization state served over HTTP.
type Server struct {
	*httptest.Server

	mu                   sync.Mutex
	DataSources          catalog.DeclarativeDataSources
	UserGroups           catalog.DeclarativeUserGroups
	Users                catalog.DeclarativeUsers
	WorkspaceDataFilters catalog.DeclarativeWorkspaceDataFilters
	Workspaces           catalog.DeclarativeWorkspaces
	Requests             []Request
	// FailPath makes every request to the path fail with 500.
	FailPath string
	// Raw holds documents served verbatim for GET, keyed by path. A PUT to a
	// path present in Raw replaces the document with the request body.
	Raw map[string]string
}

// NewServer starts a fake server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{}

	r := chi.NewRouter()
	r.Use(s.record, s.authenticate)
	r.Route("/api/v1/layout", func(r chi.Router) {
		r.Use(s.serveRaw)
		r.Get("/dataSources", get(s, &s.DataSources))
		r.Put("/dataSources", put(s, &s.DataSources))
		r.Get("/userGroups", get(s, &s.UserGroups))
		r.Put("/userGroups", put(s, &s.UserGroups))
		r.Get("/users", get(s, &s.Users))
		r.Put("/users", put(s, &s.Users))
		r.Get("/workspaceDataFilters", get(s, &s.WorkspaceDataFilters))
		r.Put("/workspaceDataFilters", put(s, &s.WorkspaceDataFilters))
		r.Get("/workspaces", get(s, &s.Workspaces))
		r.Put("/workspaces", put(s, &s.Workspaces))
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Puts returns the paths of all PUT requests in order.
func (s *Server) Puts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.Requests {
		if r.Method == http.MethodPut {
			out = append(out, r.Path)
		}
	}
	return out
}

// LastPut returns the body of the last PUT to path, or nil.
func (s *Server) LastPut(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.Requests) - 1; i >= 0; i-- {
		if r := s.Requests[i]; r.Method == http.MethodPut && r.Path == path {
			return r.Body
		}
	}
	return nil
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.Requests = append(s.Requests, Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
		fail := s.FailPath != "" && s.FailPath == r.URL.Path
		s.mu.Unlock()
		if fail {
			writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) serveRaw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		doc, ok := s.Raw[r.URL.Path]
		s.mu.Unlock()

		if ok && r.Method == http.MethodPut {
			body, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
			s.mu.Lock()
			s.Raw[r.URL.Path] = string(body)
			s.mu.Unlock()
		}
		if ok && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, doc)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func get[T any](s *Server, v *T) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		data, err := json.Marshal(v)
		s.mu.Unlock()
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}
}

// put replaces the whole collection, like the layout endpoints do.
func put[T any](s *Server, v *T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body T
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		s.mu.Lock()
		*v = body
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"title": title, "detail": detail, "status": status})
}
