package connection

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/signalspoc/signals-cli/internal/cli/navigate"
	"github.com/signalspoc/signals-cli/internal/telemetry/logger"
	"github.com/signalspoc/signals-cli/internal/telemetry/metric"
)

// RequestIDHeader carries the client-generated request ID.
const RequestIDHeader = "X-Request-ID"

// LoginPath is the authentication endpoint, relative to the API base URL.
const LoginPath = "/auth/login"

// TokenSource yields the current bearer token, or "" when there is none.
type TokenSource interface {
	Token() string
}

// BearerAuth reads the token on every request and sets
// "Authorization: Bearer <token>" when one is present. Without a token the
// request is left as is.
func BearerAuth(src TokenSource) RequestInterceptor {
	return func(req *http.Request) (*http.Request, error) {
		if token := src.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req, nil
	}
}

// UserAgent sets the User-Agent header unless the request already has one.
func UserAgent(ua string) RequestInterceptor {
	return func(req *http.Request) (*http.Request, error) {
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", ua)
		}
		return req, nil
	}
}

// RequestID tags each request with a ULID, both in the X-Request-ID header
// and in the request context for logging.
func RequestID() RequestInterceptor {
	return func(req *http.Request) (*http.Request, error) {
		id := req.Header.Get(RequestIDHeader)
		if id == "" {
			id = ulid.Make().String()
			req.Header.Set(RequestIDHeader, id)
		}
		return req.WithContext(logger.WithRequestID(req.Context(), id)), nil
	}
}

// RateLimit waits for l before each request. A nil limiter disables it.
func RateLimit(l *rate.Limiter) RequestInterceptor {
	return func(req *http.Request) (*http.Request, error) {
		if l == nil {
			return req, nil
		}
		if err := l.Wait(req.Context()); err != nil {
			return nil, err
		}
		return req, nil
	}
}

type startKey struct{}

// Instrument returns a matched pair of interceptors that record request
// count and latency on m and log each completed call at debug level.
// The request half must be registered for latency to be measured. It also
// puts l in the request context, where later interceptors find it.
func Instrument(m *metric.Client, l logger.Logger) (RequestInterceptor, ResponseInterceptor) {
	if l == nil {
		l = logger.Nop()
	}

	before := func(req *http.Request) (*http.Request, error) {
		ctx := context.WithValue(req.Context(), startKey{}, time.Now())
		ctx = logger.WithLogger(ctx, l)
		return req.WithContext(ctx), nil
	}

	after := func(req *http.Request, resp *http.Response, err error) (*http.Response, error) {
		var elapsed time.Duration
		if start, ok := req.Context().Value(startKey{}).(time.Time); ok {
			elapsed = time.Since(start)
		}

		code := 0
		if resp != nil {
			code = resp.StatusCode
		}
		m.ObserveRequest(req.Method, code, elapsed)

		log := logger.L(req.Context()).With(
			"method", req.Method,
			"path", req.URL.Path,
			"duration", elapsed,
		)
		if resp == nil {
			log.Debug("request failed", "error", err)
		} else {
			log.Debug("request completed", "status", code)
		}
		return resp, err
	}

	return before, after
}

// Invalidator tears down the client-side session.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// GuardOption configures GuardUnauthorized.
type GuardOption func(*guard)

// SkipPaths replaces the list of path suffixes the guard ignores.
// The default is LoginPath.
func SkipPaths(paths ...string) GuardOption {
	return func(g *guard) {
		g.skip = paths
	}
}

// GuardLogger sets the logger used to report invalidation failures. By
// default the guard logs through the request context (see logger.L).
func GuardLogger(l logger.Logger) GuardOption {
	return func(g *guard) {
		if l != nil {
			g.log = l
		}
	}
}

type guard struct {
	inv  Invalidator
	nav  navigate.Navigator
	skip []string
	log  logger.Logger
}

func (g *guard) logFor(req *http.Request) logger.Logger {
	if g.log != nil {
		return g.log
	}
	return logger.L(req.Context())
}

func (g *guard) skipped(req *http.Request) bool {
	for _, p := range g.skip {
		if strings.HasSuffix(req.URL.Path, p) {
			return true
		}
	}
	return false
}

// GuardUnauthorized handles server-signaled session loss. When a response
// carries status 401 it invalidates the session and navigates to login.
// The outcome is then passed on untouched, so the caller still receives
// the original *StatusError. Transport failures (nil response) and every
// other status pass straight through.
func GuardUnauthorized(inv Invalidator, nav navigate.Navigator, opts ...GuardOption) ResponseInterceptor {
	g := &guard{
		inv:  inv,
		nav:  nav,
		skip: []string{LoginPath},
	}
	for _, opt := range opts {
		opt(g)
	}

	return func(req *http.Request, resp *http.Response, err error) (*http.Response, error) {
		if resp == nil || resp.StatusCode != http.StatusUnauthorized || g.skipped(req) {
			return resp, err
		}

		// Teardown completes even if the request context is already done.
		ctx := context.WithoutCancel(req.Context())
		if ierr := g.inv.Invalidate(ctx); ierr != nil {
			g.logFor(req).Warn("failed to clear session after 401", "path", req.URL.Path, "error", ierr)
		}
		if g.nav != nil {
			g.nav.ToLogin()
		}
		return resp, err
	}
}
