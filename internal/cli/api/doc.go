// Package api holds the request builders for the Signals REST API.
//
// Each collaborator is a thin wrapper that issues calls through a
// Transport (normally *connection.Client) and decodes the JSON payload.
// Session handling, credentials and 401 detection happen in the transport
// pipeline, not here.
package api
