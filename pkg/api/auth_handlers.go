package api

import (
	"net/http"

	"github.com/platinummonkey/docvault/pkg/auth"
	"github.com/platinummonkey/docvault/pkg/httputil"
	"github.com/platinummonkey/docvault/pkg/middleware"
	"github.com/platinummonkey/docvault/pkg/rbac"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// register handles POST /api/v1/auth/register
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	res, err := s.deps.Auth.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, res)
}

// login handles POST /api/v1/auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	session, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, session)
}

type meResponse struct {
	User           interface{}   `json:"user"`
	Role           rbac.RoleInfo `json:"role"`
	CanAccessAdmin bool          `json:"can_access_admin"`
	CanAccessGod   bool          `json:"can_access_god_panel"`
}

// me handles GET /api/v1/me
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAuthContext(r)
	p := ac.Principal()
	httputil.WriteSuccess(w, meResponse{
		User:           ac.User,
		Role:           rbac.Info(p.Role),
		CanAccessAdmin: s.deps.Authz.Check(r.Context(), p, rbac.ActionAccess, rbac.ResourceAdminPanel, "", "").Allowed,
		CanAccessGod:   rbac.CanAccessGodPanel(p.Role),
	})
}

// listRoles handles GET /api/v1/roles
func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	out := make([]rbac.RoleInfo, 0, len(rbac.Roles))
	for _, role := range rbac.Roles {
		out = append(out, rbac.Info(role))
	}
	httputil.WriteSuccess(w, out)
}

type checkRequest struct {
	Resource      rbac.Resource `json:"resource" validate:"required"`
	Action        rbac.Action   `json:"action" validate:"required"`
	OwnerID       string        `json:"owner_id,omitempty"`
	ResourceOrgID string        `json:"resource_org_id,omitempty"`
}

// checkPermission handles POST /api/v1/permissions/check. It evaluates the
// caller's own permission; it never answers for other users.
func (s *Server) checkPermission(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	p := principal(r)
	httputil.WriteSuccess(w, s.deps.Authz.Check(r.Context(), p, req.Action, req.Resource, req.OwnerID, req.ResourceOrgID))
}
