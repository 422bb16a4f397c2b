package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/docvault/pkg/httputil"
	"github.com/platinummonkey/docvault/pkg/keys"
	"github.com/platinummonkey/docvault/pkg/middleware"
)

type addKeyRequest struct {
	Provider string `json:"provider" validate:"required"`
	APIKey   string `json:"api_key" validate:"required,max=512"`
	Label    string `json:"label,omitempty" validate:"max=100"`
}

type keyStatusResponse struct {
	Provider keys.Provider `json:"provider"`
	Usable   bool          `json:"usable"`
	Message  string        `json:"message,omitempty"`
}

func (s *Server) registerKeyRoutes(r *mux.Router) {
	base := "/users/{user_id}/ai-keys"
	r.HandleFunc(base, s.listKeys).Methods(http.MethodGet)

	submit := r.PathPrefix(base).Subrouter()
	if s.deps.KeyLimiter != nil {
		submit.Use(middleware.DistributedRateLimitMiddleware(s.deps.KeyLimiter, middleware.ByUser, "ai_key_submit", s.deps.Metrics))
	}
	submit.HandleFunc("", s.addKey).Methods(http.MethodPost)

	r.HandleFunc(base+"/{provider}/status", s.keyStatus).Methods(http.MethodGet)
	r.HandleFunc(base+"/{key_id}", s.removeKey).Methods(http.MethodDelete)
}

// listKeys handles GET /api/v1/users/{user_id}/ai-keys
func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}

	out, err := s.deps.Keys.List(r.Context(), principal(r), ownerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if out == nil {
		out = []*keys.APIKey{}
	}
	httputil.WriteSuccess(w, out)
}

// addKey handles POST /api/v1/users/{user_id}/ai-keys
func (s *Server) addKey(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}
	var req addKeyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	provider, err := keys.ParseProvider(req.Provider)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	key, err := s.deps.Keys.Add(r.Context(), principal(r), ownerID, provider, req.APIKey, req.Label)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, key)
}

// keyStatus handles GET /api/v1/users/{user_id}/ai-keys/{provider}/status.
// It decrypts the active key to prove it still works; the secret itself is
// never returned.
func (s *Server) keyStatus(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}
	provider, err := keys.ParseProvider(mux.Vars(r)["provider"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, err = s.deps.Keys.Resolve(r.Context(), principal(r), ownerID, provider)
	switch {
	case err == nil:
		httputil.WriteSuccess(w, keyStatusResponse{Provider: provider, Usable: true})
	case isNoUsableKey(err):
		httputil.WriteSuccess(w, keyStatusResponse{Provider: provider, Message: err.Error()})
	default:
		writeServiceError(w, r, err)
	}
}

// removeKey handles DELETE /api/v1/users/{user_id}/ai-keys/{key_id}
func (s *Server) removeKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.deps.Keys.Remove(r.Context(), principal(r), vars["user_id"], vars["key_id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
