package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/docvault/pkg/audit"
	"github.com/platinummonkey/docvault/pkg/httputil"
	"github.com/platinummonkey/docvault/pkg/orgs"
	"github.com/platinummonkey/docvault/pkg/rbac"
)

func (s *Server) registerOrgRoutes(r *mux.Router) {
	r.HandleFunc("/orgs", s.createOrganization).Methods(http.MethodPost)
	r.HandleFunc("/orgs", s.listOrganizations).Methods(http.MethodGet)
	r.HandleFunc("/orgs/{org_id}", s.getOrganization).Methods(http.MethodGet)
	r.HandleFunc("/orgs/{org_id}", s.updateOrganization).Methods(http.MethodPut)
	r.HandleFunc("/orgs/{org_id}", s.deleteOrganization).Methods(http.MethodDelete)
	r.HandleFunc("/orgs/{org_id}/stats", s.getOrganizationStats).Methods(http.MethodGet)
}

// createOrganization handles POST /api/v1/orgs. A fresh join code is
// generated for the new organization.
func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	d := s.deps.Authz.Check(r.Context(), p, rbac.ActionCreate, rbac.ResourceOrganization, "", "")
	if !d.Allowed {
		s.recordDenied(r, p, rbac.ResourceOrganization, "", d)
		writeDenied(w, d)
		return
	}

	var req orgs.CreateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	org := &orgs.Organization{
		Name:        strings.TrimSpace(req.Name),
		Slug:        req.Slug,
		Description: req.Description,
	}
	if err := s.deps.Orgs.CreateOrganization(r.Context(), org); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.record(r, audit.NewEvent(r.Context(), p.ID, audit.ActionCreate, audit.ResourceTypeOrganization, org.ID).
		With("name", org.Name).
		InOrg(org.ID))
	httputil.WriteCreated(w, org)
}

// listOrganizations handles GET /api/v1/orgs. God sees every organization;
// everyone else with organization:read sees their own.
func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	d := s.deps.Authz.Check(r.Context(), p, rbac.ActionRead, rbac.ResourceOrganization, "", p.OrgID)
	if !d.Allowed {
		writeDenied(w, d)
		return
	}

	if p.Role != rbac.RoleGod {
		if p.OrgID == "" {
			httputil.WriteSuccess(w, []*orgs.Organization{})
			return
		}
		org, err := s.deps.Orgs.GetOrganization(r.Context(), p.OrgID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		httputil.WriteSuccess(w, []*orgs.Organization{org})
		return
	}

	out, err := s.deps.Orgs.ListOrganizations(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if out == nil {
		out = []*orgs.Organization{}
	}
	httputil.WriteSuccess(w, out)
}

// getOrganization handles GET /api/v1/orgs/{org_id}
func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "org_id")
	if !ok {
		return
	}
	p := principal(r)
	d := s.deps.Authz.Check(r.Context(), p, rbac.ActionRead, rbac.ResourceOrganization, "", orgID)
	if !d.Allowed {
		writeDenied(w, d)
		return
	}

	org, err := s.deps.Orgs.GetOrganization(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

// updateOrganization handles PUT /api/v1/orgs/{org_id}
func (s *Server) updateOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, ok := s.authorizeOrg(w, r, rbac.ActionUpdate)
	if !ok {
		return
	}

	var req orgs.UpdateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	org, err := s.deps.Orgs.GetOrganization(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	req.Apply(org)
	if err := s.deps.Orgs.UpdateOrganization(r.Context(), org); err != nil {
		writeServiceError(w, r, err)
		return
	}

	event := audit.NewEvent(r.Context(), principal(r).ID, audit.ActionUpdate, audit.ResourceTypeOrganization, org.ID).InOrg(org.ID)
	if req.Name != nil {
		event.With("name", org.Name)
	}
	if req.Description != nil {
		event.With("description", org.Description)
	}
	s.record(r, event)
	httputil.WriteSuccess(w, org)
}

// deleteOrganization handles DELETE /api/v1/orgs/{org_id}. The
// organization's documents go with it; its members are left without one.
func (s *Server) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, ok := s.authorizeOrg(w, r, rbac.ActionDelete)
	if !ok {
		return
	}

	if err := s.deps.Orgs.DeleteOrganization(r.Context(), orgID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.record(r, audit.NewEvent(r.Context(), principal(r).ID, audit.ActionDelete, audit.ResourceTypeOrganization, orgID))
	httputil.WriteNoContent(w)
}

// getOrganizationStats handles GET /api/v1/orgs/{org_id}/stats
func (s *Server) getOrganizationStats(w http.ResponseWriter, r *http.Request) {
	orgID, ok := s.authorizeOrg(w, r, rbac.ActionRead)
	if !ok {
		return
	}

	stats, err := s.deps.Orgs.GetOrganizationStats(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, stats)
}

// authorizeOrg reads org_id from the path and checks action on it, writing
// the response when either step fails. Mutations are audited when denied.
func (s *Server) authorizeOrg(w http.ResponseWriter, r *http.Request, action rbac.Action) (string, bool) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "org_id")
	if !ok {
		return "", false
	}
	p := principal(r)
	d := s.deps.Authz.Check(r.Context(), p, action, rbac.ResourceOrganization, "", orgID)
	if !d.Allowed {
		if action != rbac.ActionRead {
			s.recordDenied(r, p, rbac.ResourceOrganization, orgID, d)
		}
		writeDenied(w, d)
		return "", false
	}
	return orgID, true
}

func (s *Server) record(r *http.Request, event *audit.Event) {
	if err := s.deps.Audit.Log(r.Context(), event); err != nil {
		if s.deps.Metrics != nil {
			s.deps.Metrics.AuditWriteFailures.Inc()
		}
		s.deps.Logger.WithError(err).WithField("audit_action", string(event.Action)).Warn("audit write failed")
	}
}

func (s *Server) recordDenied(r *http.Request, p rbac.Principal, resource rbac.Resource, resourceID string, d rbac.Decision) {
	s.record(r, audit.NewEvent(r.Context(), p.ID, audit.ActionAccessDenied, audit.ResourceType(resource), resourceID).
		With("rule", d.Rule).
		InOrg(p.OrgID).
		Denied(d.Reason))
}
