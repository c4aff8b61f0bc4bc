// Package tlsroots builds the TLS configuration used to reach the Signals
// API over HTTPS.
//
//   - roots.go: system roots plus an optional CA bundle
//   - clientcert.go: client certificate that reloads when its files change
package tlsroots
