// Package api exposes docvault over HTTP with gorilla/mux.
//
// Routes live under /api/v1. Everything except /auth/register and
// /auth/login requires a bearer token, and the caller's profile is reloaded
// on every request. Handlers pass the caller's principal to the services,
// which make the authorization decision; a denial is rendered as 403 with the
// rule that fired:
//
//	{"error":"Requires Super Admin or above","rule":"role.minimum","request_id":"..."}
//
// Unexpected errors return a generic 500 body and are logged with the
// request id.
package api
