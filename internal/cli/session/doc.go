// Package session holds the bearer-token session of signals-cli.
//
// A Session is the single owner of the token and the user identity. It is
// restored from the persistent store at start, changed only by Login,
// Logout and Invalidate, and written through to the store before any
// change becomes visible. The transport reads the token through Token and
// tears the session down through Invalidate when the server answers 401.
package session
