package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/signalspoc/signals-cli/internal/telemetry/logger"
)

var (
	// ErrNoCertsFound is returned when a PEM bundle holds no certificates.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM file")
)

// Pool manages a pool of trusted root certificates.
type Pool struct {
	certPool *x509.CertPool
}

// NewPool creates a pool seeded with the system roots. Systems without a
// readable root store get an empty pool.
func NewPool() *Pool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}
}

// AddCertFile adds the certificates of a PEM file.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read cert file %s: %w", path, err)
	}
	return p.AddCertPEM(data)
}

// AddCertPEM adds every CERTIFICATE block of pemData.
func (p *Pool) AddCertPEM(pemData []byte) error {
	var added int
	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certPool.AddCert(cert)
		added++
	}

	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// ClientOptions selects the TLS material of the API client.
type ClientOptions struct {
	CAFile   string
	CertFile string
	KeyFile  string
	Insecure bool
	Logger   logger.Logger
}

// NewClientConfig builds a client tls.Config from opts. When a client
// certificate is configured the returned ClientCert serves it; the caller
// decides whether to Watch it and must Close it. It is nil otherwise.
func NewClientConfig(opts ClientOptions) (*tls.Config, *ClientCert, error) {
	pool := NewPool()
	if opts.CAFile != "" {
		if err := pool.AddCertFile(opts.CAFile); err != nil {
			return nil, nil, err
		}
	}

	cfg := &tls.Config{
		RootCAs:            pool.Pool(),
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: opts.Insecure,
	}

	if opts.CertFile == "" {
		return cfg, nil, nil
	}

	cc, err := LoadClientCert(opts.CertFile, opts.KeyFile, opts.Logger)
	if err != nil {
		return nil, nil, err
	}
	cfg.GetClientCertificate = cc.GetClientCertificate
	return cfg, cc, nil
}
