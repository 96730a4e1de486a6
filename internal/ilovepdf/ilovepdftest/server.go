// Package ilovepdftest provides an in-process fake of the conversion API.
package ilovepdftest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	PublicKey = "project_public_test"
	SecretKey = "secret_key_test"
	token     = "token-123"
)

// Steps in request order.
const (
	StepAuth     = "auth"
	StepStart    = "start"
	StepUpload   = "upload"
	StepProcess  = "process"
	StepDownload = "download"
)

// Server answers both the API and the worker endpoints on one listener.
type Server struct {
	*httptest.Server

	// Result is returned by the download endpoint.
	Result []byte

	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
	uploads  []string
	tasks    int
}

// New starts a fake server that is closed with the test.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		Result:   []byte("%PDF-1.4 fake"),
		failures: map[string]int{},
		calls:    map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth", s.auth)
	mux.HandleFunc("GET /v1/start/{tool}", s.authorized(StepStart, s.start))
	mux.HandleFunc("POST /v1/upload", s.authorized(StepUpload, s.upload))
	mux.HandleFunc("POST /v1/process", s.authorized(StepProcess, s.process))
	mux.HandleFunc("GET /v1/download/{task}", s.authorized(StepDownload, s.download))
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API base to hand to ilovepdf.New.
func (s *Server) BaseURL() string { return s.URL + "/v1" }

// Host is the worker server name returned by start.
func (s *Server) Host() string { return strings.TrimPrefix(s.URL, "http://") }

// FailNext makes the next n requests to step answer 500.
func (s *Server) FailNext(step string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[step] = n
}

// Calls returns how many requests reached step, failed ones included.
func (s *Server) Calls(step string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[step]
}

// Uploads lists uploaded file names in order.
func (s *Server) Uploads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads...)
}

// hit counts the call and reports whether it should fail.
func (s *Server) hit(step string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[step]++
	if s.failures[step] > 0 {
		s.failures[step]--
		return true
	}
	return false
}

func (s *Server) authorized(step string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.hit(step) {
			http.Error(w, `{"error":"injected failure"}`, http.StatusInternalServerError)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) auth(w http.ResponseWriter, r *http.Request) {
	if s.hit(StepAuth) {
		http.Error(w, `{"error":"injected failure"}`, http.StatusInternalServerError)
		return
	}
	var in struct {
		PublicKey string `json:"public_key"`
		SecretKey string `json:"secret_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.PublicKey != PublicKey || in.SecretKey != SecretKey {
		http.Error(w, `{"error":"invalid keys"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{"token": token})
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.tasks++
	id := "task-" + strings.Repeat("x", s.tasks)
	s.mu.Unlock()
	writeJSON(w, map[string]string{"task": id, "server": s.Host()})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.FormValue("task") == "" {
		http.Error(w, `{"error":"missing task"}`, http.StatusBadRequest)
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer f.Close()
	_, _ = io.Copy(io.Discard, f)
	s.mu.Lock()
	s.uploads = append(s.uploads, hdr.Filename)
	s.mu.Unlock()
	writeJSON(w, map[string]string{"server_filename": "srv-" + hdr.Filename})
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Task  string `json:"task"`
		Tool  string `json:"tool"`
		Files []struct {
			ServerFilename string `json:"server_filename"`
			Filename       string `json:"filename"`
		} `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Task == "" || in.Tool == "" || len(in.Files) == 0 {
		http.Error(w, `{"error":"bad process request"}`, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"status": "TaskSuccess"})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write(s.Result)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
