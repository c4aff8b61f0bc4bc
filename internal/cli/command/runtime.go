package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/signalspoc/signals-cli/internal/cli/api"
	"github.com/signalspoc/signals-cli/internal/cli/config"
	"github.com/signalspoc/signals-cli/internal/cli/connection"
	"github.com/signalspoc/signals-cli/internal/cli/navigate"
	"github.com/signalspoc/signals-cli/internal/cli/session"
	"github.com/signalspoc/signals-cli/internal/infra/buildinfo"
	"github.com/signalspoc/signals-cli/internal/infra/shutdown"
	"github.com/signalspoc/signals-cli/internal/infra/tlsroots"
	"github.com/signalspoc/signals-cli/internal/storage"
	"github.com/signalspoc/signals-cli/internal/telemetry/logger"
	"github.com/signalspoc/signals-cli/internal/telemetry/metric"
)

// expiredHint is printed when the server ends the session outside the REPL.
const expiredHint = "Session expired. Run 'signals-cli login' to log in again."

// Runtime holds the dependencies of one signals-cli invocation. Config is
// loaded on first use; the store, transport and session only when a
// command needs the server.
type Runtime struct {
	out    io.Writer
	errOut io.Writer
	in     io.Reader

	configPath string
	overrides  map[string]any
	wide       bool

	Config   *config.CLIConfig
	Log      logger.Logger
	Store    storage.Store
	Metrics  *metric.Client
	Client   *connection.Client
	Session  *session.Session
	Router   *navigate.Router
	Shutdown *shutdown.Handler

	mu          sync.Mutex
	bufIn       *bufio.Reader
	interactive bool
	opened      bool
}

func newRuntime(out, errOut io.Writer, in io.Reader) *Runtime {
	return &Runtime{
		out:      out,
		errOut:   errOut,
		in:       in,
		Router:   navigate.NewRouter(navigate.RouteHome),
		Shutdown: shutdown.NewHandler(5 * time.Second),
	}
}

// LoadConfig loads the configuration once.
func (rt *Runtime) LoadConfig() (*config.CLIConfig, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.loadConfigLocked()
}

func (rt *Runtime) loadConfigLocked() (*config.CLIConfig, error) {
	if rt.Config != nil {
		return rt.Config, nil
	}
	cfg, err := config.Load(rt.resolvedConfigPath(), rt.overrides)
	if err != nil {
		return nil, err
	}
	rt.Config = cfg
	return cfg, nil
}

// Open builds the logger, store, metrics, transport and session. It is a
// no-op after the first successful call. A failed Open releases the store
// and client certificate again, so it can be retried.
func (rt *Runtime) Open(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.opened {
		return nil
	}

	cfg, err := rt.loadConfigLocked()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: rt.errOut,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	logger.SetDefault(log)
	rt.Log = log

	store, err := storage.Open(ctx, storage.Config{
		Backend:    cfg.Store.Backend,
		Dir:        cfg.Store.Dir,
		Passphrase: cfg.Store.Passphrase,
		Badger:     storage.DefaultBadgerConfig(),
	}, log.Slog())
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	hc, clientCert, err := rt.httpClient(cfg)
	if err != nil {
		closeStore(log, store)
		return err
	}

	// The transport and the session refer to each other; the holder lets
	// the interceptors reach the session once it exists.
	holder := &sessionHolder{}
	metrics := metric.NewClient()
	instrumentReq, instrumentResp := connection.Instrument(metrics, log)

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	client := connection.NewClient(cfg.Server,
		connection.WithHTTPClient(hc),
		connection.WithRequestInterceptor(
			connection.UserAgent(buildinfo.UserAgent()),
			connection.RequestID(),
			connection.RateLimit(limiter),
			instrumentReq,
			connection.BearerAuth(holder),
		),
		connection.WithResponseInterceptor(
			instrumentResp,
			connection.GuardUnauthorized(holder, rt.Router),
		),
	)

	sess, err := session.Open(ctx, storage.NewRecord(store), api.NewAuth(client),
		session.WithLogger(log),
		session.WithMetrics(metrics),
	)
	if err != nil {
		if clientCert != nil {
			clientCert.Close()
		}
		closeStore(log, store)
		return err
	}
	holder.set(sess)
	metrics.Register(metric.NewSessionCollector(sess.IsAuthenticated))

	// Hooks run in reverse: textfile, client certificate, store.
	rt.Shutdown.OnShutdown(func(context.Context) error {
		return store.Close()
	})
	if clientCert != nil {
		rt.Shutdown.OnShutdown(func(context.Context) error {
			clientCert.Close()
			return nil
		})
	}
	if path := cfg.Metrics.Textfile; path != "" {
		rt.Shutdown.OnShutdown(func(context.Context) error {
			return metrics.WriteTextfile(path)
		})
	}

	rt.Router.OnChange(func(route string) {
		if route == navigate.RouteLogin && !rt.isInteractive() {
			fmt.Fprintln(rt.errOut, expiredHint)
		}
	})

	rt.Store, rt.Metrics, rt.Client, rt.Session = store, metrics, client, sess
	rt.opened = true
	return nil
}

func closeStore(log logger.Logger, store storage.Store) {
	if err := store.Close(); err != nil {
		log.Warn("failed to close session store", "error", err)
	}
}

// httpClient builds the transport. The returned client certificate, if
// any, follows its files on disk and must be closed by the caller.
func (rt *Runtime) httpClient(cfg *config.CLIConfig) (*http.Client, *tlsroots.ClientCert, error) {
	tlsCfg, clientCert, err := tlsroots.NewClientConfig(tlsroots.ClientOptions{
		CAFile:   cfg.TLS.CAFile,
		CertFile: cfg.TLS.CertFile,
		KeyFile:  cfg.TLS.KeyFile,
		Insecure: cfg.TLS.Insecure,
		Logger:   rt.Log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("tls: %w", err)
	}
	if clientCert != nil {
		// Without reloads the certificate loaded now is still served.
		if err := clientCert.Watch(); err != nil {
			rt.Log.Warn("client certificate will not reload", "error", err)
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg
	return &http.Client{Transport: transport, Timeout: cfg.Timeout}, clientCert, nil
}

func (rt *Runtime) setInteractive(v bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.interactive = v
}

func (rt *Runtime) isInteractive() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.interactive
}

// Close runs the shutdown hooks: it flushes metrics and closes the store.
func (rt *Runtime) Close() error {
	return rt.Shutdown.Shutdown()
}

// sessionHolder forwards to the session once it is opened.
type sessionHolder struct {
	mu   sync.RWMutex
	sess *session.Session
}

func (h *sessionHolder) set(s *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess = s
}

func (h *sessionHolder) get() *session.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sess
}

// Token implements connection.TokenSource.
func (h *sessionHolder) Token() string {
	if s := h.get(); s != nil {
		return s.Token()
	}
	return ""
}

// Invalidate implements connection.Invalidator.
func (h *sessionHolder) Invalidate(ctx context.Context) error {
	if s := h.get(); s != nil {
		return s.Invalidate(ctx)
	}
	return errors.New("session not opened")
}
