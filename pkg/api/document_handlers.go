package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/docvault/pkg/httputil"
)

func (s *Server) registerDocumentRoutes(r *mux.Router) {
	r.HandleFunc("/documents/{id}", s.deleteDocument).Methods(http.MethodDelete)
}

// deleteDocument handles DELETE /api/v1/documents/{id}. Every copy sharing
// the title and owner goes with it.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	res, err := s.deps.Documents.Delete(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, res)
}
