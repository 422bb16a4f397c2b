package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/docvault/pkg/audit"
	"github.com/platinummonkey/docvault/pkg/httputil"
	"github.com/platinummonkey/docvault/pkg/middleware"
	"github.com/platinummonkey/docvault/pkg/rbac"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

func (s *Server) registerAuditRoutes(r *mux.Router) {
	if s.deps.Search == nil {
		return
	}
	sub := r.PathPrefix("/audit-logs").Subrouter()
	sub.Use(middleware.RequirePermission(s.deps.Authz, rbac.ResourceAuditLog, rbac.ActionRead))
	sub.HandleFunc("", s.searchAudit).Methods(http.MethodGet)
}

// searchAudit handles GET /api/v1/audit-logs. Results are confined to the
// caller's organization unless the caller is God.
func (s *Server) searchAudit(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	q := r.URL.Query()

	filter := audit.SearchFilter{
		UserID:       q.Get("user_id"),
		OrgID:        q.Get("org_id"),
		ResourceType: audit.ResourceType(q.Get("resource_type")),
		Limit:        defaultAuditLimit,
	}
	if a := q.Get("action"); a != "" {
		filter.Actions = []audit.Action{audit.Action(a)}
	}
	if p.Role != rbac.RoleGod {
		if p.OrgID == "" {
			httputil.WriteSuccess(w, []*audit.Event{})
			return
		}
		filter.OrgID = p.OrgID
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			httputil.WriteBadRequest(w, "since must be an RFC3339 timestamp")
			return
		}
		filter.Since = &t
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			httputil.WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = min(n, maxAuditLimit)
	}

	events, err := s.deps.Search.Search(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []*audit.Event{}
	}
	httputil.WriteSuccess(w, events)
}
