package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/docvault/pkg/auth"
	"github.com/platinummonkey/docvault/pkg/documents"
	"github.com/platinummonkey/docvault/pkg/httputil"
	"github.com/platinummonkey/docvault/pkg/keys"
	"github.com/platinummonkey/docvault/pkg/members"
	"github.com/platinummonkey/docvault/pkg/orgs"
	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/users"
)

// writeServiceError maps service errors onto HTTP responses. Anything not
// listed is a 500 with a generic body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if d, ok := deniedDecision(err); ok {
		writeDenied(w, d)
		return
	}

	var approval *auth.ApprovalError
	switch {
	case errors.As(err, &approval):
		httputil.WriteForbidden(w, approval.Error())

	case errors.Is(err, auth.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, err.Error())

	case errors.Is(err, keys.ErrNotFound),
		errors.Is(err, documents.ErrNotFound),
		errors.Is(err, users.ErrNotFound),
		errors.Is(err, orgs.ErrNotFound):
		httputil.WriteNotFound(w, err.Error())

	case errors.Is(err, members.ErrNotPending),
		errors.Is(err, users.ErrEmailTaken),
		errors.Is(err, keys.ErrNoUsableKey):
		httputil.WriteConflict(w, err.Error())

	case errors.Is(err, keys.ErrInvalidProvider),
		errors.Is(err, keys.ErrEmptySecret),
		errors.Is(err, orgs.ErrInvalidCode),
		errors.Is(err, auth.ErrUnknownOrgCode),
		errors.Is(err, auth.ErrPasswordTooShort):
		httputil.WriteBadRequest(w, err.Error())

	default:
		httputil.WriteInternalError(w, r, err)
	}
}

// deniedDecision unwraps the decision carried by any service's forbidden error.
func deniedDecision(err error) (rbac.Decision, bool) {
	var keyErr *keys.ForbiddenError
	if errors.As(err, &keyErr) {
		return keyErr.Decision, true
	}
	var memberErr *members.ForbiddenError
	if errors.As(err, &memberErr) {
		return memberErr.Decision, true
	}
	var docErr *documents.ForbiddenError
	if errors.As(err, &docErr) {
		return docErr.Decision, true
	}
	return rbac.Decision{}, false
}

func writeDenied(w http.ResponseWriter, d rbac.Decision) {
	httputil.WriteErrorResponse(w, http.StatusForbidden, httputil.ErrorResponse{
		Error: d.Reason,
		Rule:  d.Rule,
	})
}

func isNoUsableKey(err error) bool {
	return errors.Is(err, keys.ErrNoUsableKey)
}
