package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalspoc/signals-cli/internal/cli/api"
	"github.com/signalspoc/signals-cli/internal/cli/connection"
	"github.com/signalspoc/signals-cli/internal/cli/navigate"
	"github.com/signalspoc/signals-cli/internal/storage"
	"github.com/signalspoc/signals-cli/internal/telemetry/metric"
)

// fakeAuth answers Login with a fixed response or error.
type fakeAuth struct {
	resp *api.LoginResponse
	err  error
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*api.LoginResponse, error) {
	return f.resp, f.err
}

// failingStore fails writes once armed.
type failingStore struct {
	*storage.MemoryStore
	failWrites bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) SetMany(ctx context.Context, entries map[string][]byte) error {
	if f.failWrites {
		return errDiskFull
	}
	return f.MemoryStore.SetMany(ctx, entries)
}

func (f *failingStore) DeleteMany(ctx context.Context, keys ...[]byte) error {
	if f.failWrites {
		return errDiskFull
	}
	return f.MemoryStore.DeleteMany(ctx, keys...)
}

func openSession(t *testing.T, store storage.Store, auth Authenticator, opts ...Option) *Session {
	t.Helper()
	s, err := Open(context.Background(), storage.NewRecord(store), auth, opts...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func readStore(t *testing.T, store storage.Store) storage.Snapshot {
	t.Helper()
	snap, _, err := storage.NewRecord(store).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return snap
}

func assertConsistent(t *testing.T, s *Session) {
	t.Helper()
	if (s.Token() != "") != (s.Identity() != nil) {
		t.Fatalf("torn session: token=%q identity=%v", s.Token(), s.Identity())
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name      string
		seed      map[string]string
		wantToken string
		wantUser  *Identity
		wantClean bool
	}{
		{
			name: "empty store",
		},
		{
			name:      "stored session",
			seed:      map[string]string{"token": "tok1", "user": `{"username":"alice"}`},
			wantToken: "tok1",
			wantUser:  &Identity{Username: "alice"},
		},
		{
			name:      "malformed user",
			seed:      map[string]string{"token": "tok1", "user": `{"username":`},
			wantClean: true,
		},
		{
			name:      "token without user",
			seed:      map[string]string{"token": "tok1"},
			wantClean: true,
		},
		{
			name:      "user without token",
			seed:      map[string]string{"user": `{"username":"alice"}`},
			wantClean: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			for k, v := range tt.seed {
				store.Set(context.Background(), []byte(k), []byte(v))
			}

			s := openSession(t, store, &fakeAuth{})
			if s.Token() != tt.wantToken {
				t.Errorf("Token() = %q, want %q", s.Token(), tt.wantToken)
			}
			if diff := cmp.Diff(tt.wantUser, s.Identity()); diff != "" {
				t.Errorf("Identity mismatch (-want +got):\n%s", diff)
			}
			if s.IsAuthenticated() != (tt.wantToken != "") {
				t.Errorf("IsAuthenticated() = %v", s.IsAuthenticated())
			}
			assertConsistent(t, s)
			if tt.wantClean && store.Len() != 0 {
				t.Errorf("store holds %d keys, want 0 after normalization", store.Len())
			}
		})
	}
}

func TestLogin_Success(t *testing.T) {
	store := storage.NewMemoryStore()
	auth := &fakeAuth{resp: &api.LoginResponse{AccessToken: "tok1", TokenType: "Bearer", Username: "alice"}}
	m := metric.NewClient()
	s := openSession(t, store, auth, WithMetrics(m))

	if s.IsAuthenticated() {
		t.Fatal("IsAuthenticated() = true before login")
	}

	res := s.Login(context.Background(), "alice", "secret")
	if diff := cmp.Diff(LoginResult{Success: true}, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	if !s.IsAuthenticated() || s.Token() != "tok1" || s.Identity().Username != "alice" {
		t.Errorf("session = %q %v", s.Token(), s.Identity())
	}

	// Write-through: the store mirrors memory.
	snap := readStore(t, store)
	if snap.Token != s.Token() {
		t.Errorf("stored token = %q, want %q", snap.Token, s.Token())
	}
	if snap.User == nil || snap.User.Username != s.Identity().Username {
		t.Errorf("stored user = %v", snap.User)
	}

	got, err := testutil.GatherAndCount(m.Registry(), "signals_cli_logins_total")
	if err != nil || got != 1 {
		t.Errorf("logins_total series = %d (%v), want 1", got, err)
	}
}

func TestLogin_StoredUserDocument(t *testing.T) {
	store := storage.NewMemoryStore()
	s := openSession(t, store, &fakeAuth{resp: &api.LoginResponse{AccessToken: "tok1", Username: "alice"}})
	s.Login(context.Background(), "alice", "secret")

	raw, err := store.Get(context.Background(), []byte(storage.KeyUser))
	if err != nil {
		t.Fatalf("Get user failed: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("stored user is not JSON: %v", err)
	}
	if doc["username"] != "alice" {
		t.Errorf("stored user = %s", raw)
	}
}

func TestLogin_Failure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "server message",
			err:     &connection.StatusError{StatusCode: http.StatusUnauthorized, Message: "Invalid username or password"},
			wantMsg: "Invalid username or password",
		},
		{
			name:    "status without message",
			err:     &connection.StatusError{StatusCode: http.StatusInternalServerError},
			wantMsg: DefaultLoginError,
		},
		{
			name:    "transport failure",
			err:     errors.New("dial tcp: connection refused"),
			wantMsg: DefaultLoginError,
		},
		{
			name:    "incomplete response",
			err:     api.ErrIncompleteLogin,
			wantMsg: DefaultLoginError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			store.Set(context.Background(), []byte("token"), []byte("old"))
			store.Set(context.Background(), []byte("user"), []byte(`{"username":"bob"}`))

			s := openSession(t, store, &fakeAuth{err: tt.err})
			res := s.Login(context.Background(), "alice", "bad")

			want := LoginResult{Success: false, Error: tt.wantMsg}
			if diff := cmp.Diff(want, res); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
			// Prior session untouched.
			if s.Token() != "old" || s.Identity().Username != "bob" {
				t.Errorf("session changed: %q %v", s.Token(), s.Identity())
			}
			if snap := readStore(t, store); snap.Token != "old" {
				t.Errorf("stored token = %q, want old", snap.Token)
			}
		})
	}
}

func TestLogin_PersistFailure(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	s := openSession(t, store, &fakeAuth{resp: &api.LoginResponse{AccessToken: "tok1", Username: "alice"}})

	store.failWrites = true
	res := s.Login(context.Background(), "alice", "secret")
	if res.Success || res.Error != DefaultLoginError {
		t.Errorf("result = %+v, want failure", res)
	}
	if s.IsAuthenticated() {
		t.Error("session set despite persist failure")
	}
	assertConsistent(t, s)
}

func TestLogout(t *testing.T) {
	store := storage.NewMemoryStore()
	s := openSession(t, store, &fakeAuth{resp: &api.LoginResponse{AccessToken: "tok1", Username: "alice"}})
	s.Login(context.Background(), "alice", "secret")

	for i := 0; i < 2; i++ {
		if err := s.Logout(context.Background()); err != nil {
			t.Fatalf("Logout #%d failed: %v", i+1, err)
		}
		if s.IsAuthenticated() || s.Identity() != nil {
			t.Errorf("Logout #%d left session: %q %v", i+1, s.Token(), s.Identity())
		}
		if store.Len() != 0 {
			t.Errorf("Logout #%d left %d keys in store", i+1, store.Len())
		}
	}
}

func TestLogout_StoreFailureStillClearsMemory(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	s := openSession(t, store, &fakeAuth{resp: &api.LoginResponse{AccessToken: "tok1", Username: "alice"}})
	s.Login(context.Background(), "alice", "secret")

	store.failWrites = true
	err := s.Logout(context.Background())
	if !errors.Is(err, errDiskFull) {
		t.Errorf("Logout error = %v, want %v", err, errDiskFull)
	}
	if s.IsAuthenticated() {
		t.Error("memory session survived Logout")
	}
}

func TestInvariant_LoginLogoutSequence(t *testing.T) {
	auth := &fakeAuth{}
	s := openSession(t, storage.NewMemoryStore(), auth)

	steps := []struct {
		login bool
		ok    bool
	}{
		{true, true}, {true, false}, {false, false}, {false, false}, {true, false}, {true, true}, {true, true}, {false, false},
	}
	for i, step := range steps {
		if step.login {
			if step.ok {
				auth.resp, auth.err = &api.LoginResponse{AccessToken: "tok", Username: "alice"}, nil
			} else {
				auth.resp, auth.err = nil, &connection.StatusError{StatusCode: http.StatusUnauthorized}
			}
			s.Login(context.Background(), "alice", "pw")
		} else {
			s.Logout(context.Background())
		}
		if (s.Token() != "") != (s.Identity() != nil) {
			t.Fatalf("step %d: torn session", i)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := openSession(t, storage.NewMemoryStore(), &fakeAuth{resp: &api.LoginResponse{AccessToken: "tok", Username: "alice"}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Login(context.Background(), "alice", "pw")
				s.Logout(context.Background())
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.IsAuthenticated()
				s.Identity()
			}
		}()
	}
	wg.Wait()
	assertConsistent(t, s)
}

func TestRestoreAfterRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := storage.DefaultConfig(dir)

	store, err := storage.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	s := openSession(t, store, &fakeAuth{resp: &api.LoginResponse{AccessToken: "tok1", Username: "alice"}})
	if res := s.Login(context.Background(), "alice", "secret"); !res.Success {
		t.Fatalf("Login failed: %s", res.Error)
	}
	store.Close()

	store, err = storage.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()

	restored := openSession(t, store, &fakeAuth{})
	if restored.Token() != "tok1" || restored.Identity().Username != "alice" {
		t.Errorf("restored = %q %v", restored.Token(), restored.Identity())
	}
}

// A plaintext record read through a passphrase-sealed store cannot be
// decrypted. Open starts logged out and clears the record so login works.
func TestOpen_UndecryptableRecord(t *testing.T) {
	ctx := context.Background()
	inner := storage.NewMemoryStore()
	if err := storage.NewRecord(inner).Save(ctx, "tok1", storage.User{Username: "alice"}); err != nil {
		t.Fatal(err)
	}

	sealed, err := storage.NewSealedStore(ctx, inner, storage.SealConfig{Passphrase: []byte("correct horse")})
	if err != nil {
		t.Fatal(err)
	}
	s := openSession(t, sealed, &fakeAuth{resp: &api.LoginResponse{AccessToken: "tok2", Username: "alice"}})
	if s.IsAuthenticated() {
		t.Fatal("undecryptable record restored as a session")
	}
	assertConsistent(t, s)

	for _, key := range []string{storage.KeyToken, storage.KeyUser} {
		if _, err := inner.Get(ctx, []byte(key)); !errors.Is(err, storage.ErrKeyNotFound) {
			t.Errorf("%s after Open: err = %v, want ErrKeyNotFound", key, err)
		}
	}

	if res := s.Login(ctx, "alice", "secret"); !res.Success {
		t.Fatalf("Login failed: %s", res.Error)
	}
	if snap := readStore(t, sealed); snap.Token != "tok2" {
		t.Errorf("stored token = %q, want tok2", snap.Token)
	}
	if err := s.Logout(ctx); err != nil {
		t.Errorf("Logout() error = %v", err)
	}
}

func TestClaims(t *testing.T) {
	exp := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("server-only-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	s := openSession(t, storage.NewMemoryStore(), &fakeAuth{})
	if _, err := s.Claims(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Claims() error = %v, want ErrNoSession", err)
	}

	s.auth = &fakeAuth{resp: &api.LoginResponse{AccessToken: signed, Username: "alice"}}
	s.Login(context.Background(), "alice", "pw")

	c, err := s.Claims()
	if err != nil {
		t.Fatalf("Claims failed: %v", err)
	}
	if c.Subject != "alice" || !c.ExpiresAt.Equal(exp) {
		t.Errorf("claims = %+v", c)
	}
	if c.Expired(time.Now()) {
		t.Error("fresh token reported expired")
	}
	if !c.Expired(exp.Add(time.Minute)) {
		t.Error("token not expired after exp")
	}

	s.auth = &fakeAuth{resp: &api.LoginResponse{AccessToken: "opaque", Username: "alice"}}
	s.Login(context.Background(), "alice", "pw")
	if _, err := s.Claims(); err == nil {
		t.Error("expected error for opaque token")
	}
}

// TestScenario_ColdStartLoginUnauthorized wires the session into a real
// client pipeline: cold start, login, then a 401 on an ordinary request.
func TestScenario_ColdStartLoginUnauthorized(t *testing.T) {
	var lastAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/auth/login":
			w.Write([]byte(`{"accessToken":"tok1","tokenType":"Bearer","expiresIn":86400,"username":"alice"}`))
		case "/api/v1/projects":
			lastAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Full authentication is required"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := storage.NewMemoryStore()
	record := storage.NewRecord(store)
	router := navigate.NewRouter(navigate.RouteHome)
	m := metric.NewClient()

	// The session and the client reference each other, so the client
	// reaches the session through a late-bound holder.
	var sess *Session
	client := connection.NewClient(server.URL+"/api/v1",
		connection.WithRequestInterceptor(connection.BearerAuth(tokenFunc(func() string { return sess.Token() }))),
		connection.WithResponseInterceptor(connection.GuardUnauthorized(invalidatorFunc(func(ctx context.Context) error {
			return sess.Invalidate(ctx)
		}), router)),
	)

	sess, err := Open(context.Background(), record, api.NewAuth(client), WithMetrics(m))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if sess.IsAuthenticated() {
		t.Fatal("cold start should be unauthenticated")
	}

	if res := sess.Login(context.Background(), "alice", "secret"); !res.Success {
		t.Fatalf("Login failed: %s", res.Error)
	}
	if !sess.IsAuthenticated() {
		t.Fatal("expected authenticated after login")
	}
	if snap := readStore(t, store); snap.Token != "tok1" {
		t.Fatalf("stored token = %q, want tok1", snap.Token)
	}

	_, err = api.NewResources(client).Projects(context.Background(), api.ListOptions{})
	if !connection.IsUnauthorized(err) {
		t.Fatalf("error = %v, want 401", err)
	}
	if lastAuth != "Bearer tok1" {
		t.Errorf("Authorization = %q, want Bearer tok1", lastAuth)
	}
	if sess.IsAuthenticated() {
		t.Error("still authenticated after 401")
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d keys after 401", store.Len())
	}
	if router.Current() != navigate.RouteLogin {
		t.Errorf("route = %q, want login", router.Current())
	}

	expected := `
# HELP signals_cli_session_invalidations_total Forced logouts triggered by a 401 response
# TYPE signals_cli_session_invalidations_total counter
signals_cli_session_invalidations_total 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "signals_cli_session_invalidations_total"); err != nil {
		t.Errorf("invalidation metric: %v", err)
	}
}

type tokenFunc func() string

func (f tokenFunc) Token() string { return f() }

type invalidatorFunc func(ctx context.Context) error

func (f invalidatorFunc) Invalidate(ctx context.Context) error { return f(ctx) }
