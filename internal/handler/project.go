package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/opm-codegen/internal/service"
	"github.com/sakif/opm-codegen/internal/upload"
)

// ProjectHandler serves the stored-generation ("project") endpoints:
// listing, lookup, the original diagram download, stats, and deletion.
//
// OWNER IDENTITY:
// The owner arrives as the user_email query parameter, matching the
// generate endpoint's form field. The OptionalAuth middleware already
// parses a JWT cookie when present; moving ownership checks onto the
// token subject is a route-level switch away.
type ProjectHandler struct {
	generations *service.GenerationService
	validator   *upload.Validator
	logger      *slog.Logger
}

// NewProjectHandler creates a ProjectHandler.
func NewProjectHandler(generations *service.GenerationService, validator *upload.Validator, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		generations: generations,
		validator:   validator,
		logger:      logger,
	}
}

// HandleList returns all of one owner's projects, newest first.
//
// HTTP: GET /projects?user_email=alice@example.com
//
// The diagram blob never travels with listings — each entry carries
// diagram_filename and diagram_size instead. An owner with no projects
// gets an empty JSON array, not an error.
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.generations.ListByOwner(r.Context(), r.URL.Query().Get("user_email"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// HandleGet returns a single project by ID, without the diagram blob.
//
// HTTP: GET /projects/{generationID}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	gen, err := h.generations.Get(r.Context(), chi.URLParam(r, "generationID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gen)
}

// HandleDiagram streams the originally uploaded diagram back as a download.
//
// HTTP: GET /projects/{generationID}/pdf
//
// Content-Disposition: attachment tells the browser to save the file under
// its original upload name rather than render it inline. The Content-Type
// is derived from that filename (application/pdf for the stock deployment).
func (h *ProjectHandler) HandleDiagram(w http.ResponseWriter, r *http.Request) {
	filename, data, err := h.generations.Diagram(r.Context(), chi.URLParam(r, "generationID"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", h.validator.MIMEType(filename))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))

	if _, err := w.Write(data); err != nil {
		// Headers are already out — nothing to send the client, just log.
		h.logger.Error("failed to stream diagram",
			slog.String("id", chi.URLParam(r, "generationID")),
			slog.String("error", err.Error()),
		)
	}
}

// HandleStats returns derived metrics for one project.
//
// HTTP: GET /projects/{generationID}/stats
//
// Everything is recomputed from the stored record on each call — code line
// and byte counts, diagram size, and whether the project has ever been
// refined (updated_at moved past created_at).
func (h *ProjectHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.generations.Stats(r.Context(), chi.URLParam(r, "generationID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleDelete removes a project after an ownership check.
//
// HTTP: DELETE /projects/{generationID}?user_email=alice@example.com
//
// RESPONSES:
//   - 200 {"message":..., "generation_id":...}
//   - 403 when user_email doesn't match the stored owner
//   - 404 when the ID is unknown (even for a non-owner — IDs aren't secret)
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "generationID")

	err := h.generations.Delete(r.Context(), id, r.URL.Query().Get("user_email"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":       "project deleted",
		"generation_id": id,
	})
}
