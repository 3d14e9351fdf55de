package api

import "net/http"

// handleResync rebuilds a project's vector index from persisted chunk
// records. Safe to repeat: the collection is cleared and rebuilt.
func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	records, err := s.deps.Documents.ResyncRecords(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	docs, chunks, err := s.deps.Resyncer.Resync(r.Context(), projectID, records)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project_id":       projectID,
		"documents_synced": docs,
		"chunks_synced":    chunks,
	})
}
