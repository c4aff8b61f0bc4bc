// Package connection provides the HTTP transport of signals-cli.
//
//   - http.go: Client, request construction and JSON helpers
//   - pipeline.go: Request/response interceptor types and ordering
//   - interceptor.go: Bearer credential, 401 guard, request ID,
//     rate limiting and instrumentation stages
//   - errors.go: StatusError and status helpers
//
// Interceptors are registered once when the Client is built. Request
// interceptors run in registration order before the round trip; response
// interceptors run in registration order after it, for successes and
// failures alike.
package connection
