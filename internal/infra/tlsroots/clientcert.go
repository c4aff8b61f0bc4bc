package tlsroots

import (
	"crypto/tls"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/signalspoc/signals-cli/internal/telemetry/logger"
)

// defaultSettle is how long the files must stay quiet before a reload.
// Tools that rotate a pair usually write the cert and the key separately.
const defaultSettle = 250 * time.Millisecond

// expiryWarning is how close to NotAfter a loaded certificate gets logged.
const expiryWarning = 7 * 24 * time.Hour

// ClientCert serves the mutual TLS client certificate of the API client.
// Once Watch is called it swaps in the pair on disk whenever it changes.
// A pair that fails to load leaves the previous certificate in use.
type ClientCert struct {
	certFile string
	keyFile  string
	log      logger.Logger
	settle   time.Duration

	cur atomic.Pointer[tls.Certificate]

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// LoadClientCert reads the key pair. log may be nil.
func LoadClientCert(certFile, keyFile string, log logger.Logger) (*ClientCert, error) {
	if log == nil {
		log = logger.Nop()
	}
	c := &ClientCert{
		certFile: certFile,
		keyFile:  keyFile,
		log:      log.With("cert_file", certFile),
		settle:   defaultSettle,
		stop:     make(chan struct{}),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// GetClientCertificate is installed as tls.Config.GetClientCertificate.
func (c *ClientCert) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	return c.cur.Load(), nil
}

// Watch starts following the cert and key files in the background. The
// directories are watched, not the files, so a pair replaced by rename is
// still seen.
func (c *ClientCert) Watch() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	dirs := map[string]struct{}{
		filepath.Dir(c.certFile): {},
		filepath.Dir(c.keyFile):  {},
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}

	c.wg.Add(1)
	go c.loop(fw)
	return nil
}

// Close stops watching and waits for the background reloader to exit.
// It is safe to call more than once, and without Watch.
func (c *ClientCert) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
}

func (c *ClientCert) loop(fw *fsnotify.Watcher) {
	defer c.wg.Done()
	defer fw.Close()

	names := map[string]bool{
		filepath.Clean(c.certFile): true,
		filepath.Clean(c.keyFile):  true,
	}

	// pending fires once the pair has been quiet for c.settle.
	pending := time.NewTimer(time.Hour)
	pending.Stop()
	defer pending.Stop()

	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !names[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending.Reset(c.settle)
			}

		case <-pending.C:
			if err := c.load(); err != nil {
				c.log.Warn("keeping previous client certificate", "error", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			c.log.Warn("client certificate watch error", "error", err)

		case <-c.stop:
			return
		}
	}
}

func (c *ClientCert) load() error {
	pair, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load client certificate: %w", err)
	}
	c.cur.Store(&pair)

	if leaf := pair.Leaf; leaf != nil {
		if left := time.Until(leaf.NotAfter); left < expiryWarning {
			c.log.Warn("client certificate expires soon", "not_after", leaf.NotAfter)
		} else {
			c.log.Debug("client certificate loaded", "not_after", leaf.NotAfter)
		}
	}
	return nil
}
