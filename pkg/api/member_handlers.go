package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/docvault/pkg/httputil"
	"github.com/platinummonkey/docvault/pkg/members"
	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/users"
)

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type setActiveRequest struct {
	Active *bool `json:"is_active" validate:"required"`
}

type moveOrgRequest struct {
	OrgID string `json:"org_id"`
}

func (s *Server) registerMemberRoutes(r *mux.Router) {
	r.HandleFunc("/orgs/{org_id}/members", s.listMembers).Methods(http.MethodGet)
	r.HandleFunc("/orgs/{org_id}/pending-members", s.listPending).Methods(http.MethodGet)
	r.HandleFunc("/members", s.createMember).Methods(http.MethodPost)

	m := r.PathPrefix("/members/{user_id}").Subrouter()
	m.HandleFunc("/approve", s.approveMember).Methods(http.MethodPost)
	m.HandleFunc("/reject", s.rejectMember).Methods(http.MethodPost)
	m.HandleFunc("/role", s.changeRole).Methods(http.MethodPut)
	m.HandleFunc("/active", s.setActive).Methods(http.MethodPut)
	m.HandleFunc("/org", s.moveOrg).Methods(http.MethodPut)
	m.HandleFunc("", s.deleteMember).Methods(http.MethodDelete)
}

// createMember handles POST /api/v1/members. The account is active and
// approved from the start.
func (s *Server) createMember(w http.ResponseWriter, r *http.Request) {
	var req members.CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	role, err := rbac.ParseRole(string(req.Role))
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	req.Role = role

	p, err := s.deps.Members.Create(r.Context(), principal(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, p)
}

// listMembers handles GET /api/v1/orgs/{org_id}/members
func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "org_id")
	if !ok {
		return
	}

	out, err := s.deps.Members.List(r.Context(), principal(r), orgID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if out == nil {
		out = []*users.Profile{}
	}
	httputil.WriteSuccess(w, out)
}

// listPending handles GET /api/v1/orgs/{org_id}/pending-members
func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "org_id")
	if !ok {
		return
	}

	out, err := s.deps.Members.ListPending(r.Context(), principal(r), orgID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if out == nil {
		out = []*users.Profile{}
	}
	httputil.WriteSuccess(w, out)
}

// approveMember handles POST /api/v1/members/{user_id}/approve
func (s *Server) approveMember(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Members.Approve(r.Context(), principal(r), mux.Vars(r)["user_id"])
	s.writeProfile(w, r, p, err)
}

// rejectMember handles POST /api/v1/members/{user_id}/reject
func (s *Server) rejectMember(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Members.Reject(r.Context(), principal(r), mux.Vars(r)["user_id"])
	s.writeProfile(w, r, p, err)
}

// changeRole handles PUT /api/v1/members/{user_id}/role
func (s *Server) changeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	p, err := s.deps.Members.ChangeRole(r.Context(), principal(r), mux.Vars(r)["user_id"], role)
	s.writeProfile(w, r, p, err)
}

// setActive handles PUT /api/v1/members/{user_id}/active
func (s *Server) setActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	p, err := s.deps.Members.SetActive(r.Context(), principal(r), mux.Vars(r)["user_id"], *req.Active)
	s.writeProfile(w, r, p, err)
}

// moveOrg handles PUT /api/v1/members/{user_id}/org
func (s *Server) moveOrg(w http.ResponseWriter, r *http.Request) {
	var req moveOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	p, err := s.deps.Members.MoveOrg(r.Context(), principal(r), mux.Vars(r)["user_id"], req.OrgID)
	s.writeProfile(w, r, p, err)
}

// deleteMember handles DELETE /api/v1/members/{user_id}
func (s *Server) deleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Members.Delete(r.Context(), principal(r), mux.Vars(r)["user_id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) writeProfile(w http.ResponseWriter, r *http.Request, p *users.Profile, err error) {
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, p)
}
