package command

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/urfave/cli/v2"
)

const apiPrefix = "/api/v1"

// mockServer is a fake Signals API. Routes other than login require the
// current bearer token.
type mockServer struct {
	*httptest.Server
	mux *http.ServeMux

	mu       sync.Mutex
	token    string
	requests []*http.Request
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{mux: http.NewServeMux()}
	m.token = signedToken(t, "alice", time.Now().Add(time.Hour))

	m.mux.HandleFunc("POST "+apiPrefix+"/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Username != "alice" || body.Password != "secret" {
			errorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid username or password")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{
			"accessToken": m.currentToken(),
			"tokenType":   "Bearer",
			"expiresIn":   3600,
			"username":    "alice",
		})
	})

	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.Clone(context.Background()))
		m.mu.Unlock()

		if !strings.HasSuffix(r.URL.Path, "/auth/login") &&
			r.Header.Get("Authorization") != "Bearer "+m.currentToken() {
			errorResponse(w, http.StatusUnauthorized, "Unauthorized", "Full authentication is required")
			return
		}
		m.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// handle registers a handler for a method and path below /api/v1.
func (m *mockServer) handle(method, path string, handler http.HandlerFunc) {
	m.mux.HandleFunc(method+" "+apiPrefix+path, handler)
}

func (m *mockServer) currentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// revoke invalidates the issued token; a new login gets a fresh one.
func (m *mockServer) revoke(t *testing.T) {
	t.Helper()
	next := signedToken(t, "alice", time.Now().Add(2*time.Hour))
	m.mu.Lock()
	m.token = next
	m.mu.Unlock()
}

func (m *mockServer) lastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func (m *mockServer) apiURL() string {
	return m.URL + apiPrefix
}

func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResponse writes an error body shaped like the server's.
func errorResponse(w http.ResponseWriter, status int, errName, message string) {
	jsonResponse(w, status, map[string]any{
		"status":  status,
		"error":   errName,
		"message": message,
	})
}

func pageOf(items ...map[string]any) map[string]any {
	return map[string]any{
		"content":       items,
		"totalElements": len(items),
		"totalPages":    1,
		"number":        0,
		"size":          20,
	}
}

// cliEnv runs the CLI against a mock server with its own config file and
// Badger directory, so the session persists across runs like it does
// across real invocations.
type cliEnv struct {
	t       *testing.T
	srv     *mockServer
	dir     string
	cfgPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	srv := newMockServer(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cli.yaml")

	cfg := "server: " + srv.apiURL() + "\n" +
		"store:\n  backend: badger\n  dir: " + filepath.Join(dir, "session") + "\n" +
		"log:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0600); err != nil {
		t.Fatal(err)
	}
	return &cliEnv{t: t, srv: srv, dir: dir, cfgPath: cfgPath}
}

// run executes one CLI invocation with stdin as input.
func (e *cliEnv) run(stdin string, args ...string) (stdout, stderr string, err error) {
	e.t.Helper()
	var out, errOut bytes.Buffer

	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}

	argv := append([]string{"signals-cli", "--config", e.cfgPath}, args...)
	err = app.RunContext(context.Background(), argv)
	return out.String(), errOut.String(), err
}

// mustRun fails the test when the invocation fails.
func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, errOut, err := e.run("", args...)
	if err != nil {
		e.t.Fatalf("%v: %v\nstderr: %s", args, err, errOut)
	}
	return out
}

func (e *cliEnv) login() {
	e.t.Helper()
	e.mustRun("login", "-u", "alice", "-p", "secret")
}
