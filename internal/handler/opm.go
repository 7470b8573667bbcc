package handler

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/sakif/opm-codegen/internal/service"
	"github.com/sakif/opm-codegen/internal/upload"
)

// OPMHandler exposes the diagram-to-code endpoints.
//
//   - HandleGenerate → POST /opm/generate-code: new diagram in, code out
//   - HandleRefine   → POST /opm/refine-code: rework an existing generation
//
// Both endpoints accept multipart/form-data because the diagram arrives as
// a file upload alongside plain text fields. The handler's job is purely
// mechanical: pull the file and fields out of the form, hand them to
// GenerationService, and serialize the Outcome.
//
// STATUS CODE CONTRACT:
// A model verdict of "invalid" is NOT an HTTP error — the request was
// well-formed and fully processed, the diagram just didn't pass. Those
// answers go out as 200 with {"status":"invalid", "explanation":...}.
// HTTP error codes are reserved for broken requests (400) and unknown
// records (404).
type OPMHandler struct {
	generations *service.GenerationService
	validator   *upload.Validator
	logger      *slog.Logger
}

// NewOPMHandler creates an OPMHandler.
func NewOPMHandler(generations *service.GenerationService, validator *upload.Validator, logger *slog.Logger) *OPMHandler {
	return &OPMHandler{
		generations: generations,
		validator:   validator,
		logger:      logger,
	}
}

// formFileSlack is extra request-size headroom on top of the diagram limit,
// to account for multipart boundaries and the text fields.
const formFileSlack = 1 << 20 // 1 MB

// readDiagram extracts the uploaded diagram from the multipart form.
//
// REQUEST SIZE LIMIT:
// http.MaxBytesReader caps the whole request body BEFORE parsing begins —
// without it, a client could stream gigabytes into ParseMultipartForm.
// The service validates the exact file size again afterwards; this cap is
// the transport-level backstop.
func (h *OPMHandler) readDiagram(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.validator.MaxBytes()+formFileSlack)

	// 4 MB in-memory threshold — larger parts spill to temp files, which
	// ParseMultipartForm cleans up when the request ends.
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		h.logger.Warn("failed to parse multipart form", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request must be multipart/form-data with a diagram file",
		})
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "a diagram file is required in the 'file' field",
		})
		return nil, "", false
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read uploaded diagram", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "could not read the uploaded file",
		})
		return nil, "", false
	}

	return data, header.Filename, true
}

// HandleGenerate runs the full generation workflow for a new diagram.
//
// HTTP: POST /opm/generate-code
// FORM FIELDS:
//   - file            → the OPM diagram (PDF in the stock deployment)
//   - target_language → python | java | csharp | cpp
//   - user_email      → the owner of the resulting project
//
// RESPONSES:
//   - 200 {"status":"valid","filename":...,"code":...,"explanation":...,"generation_id":...}
//   - 200 {"status":"invalid","explanation":...} — diagram rejected by the model
//   - 400 on missing/oversized file, bad language, or blank email
func (h *OPMHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	diagram, filename, ok := h.readDiagram(w, r)
	if !ok {
		return
	}

	outcome, err := h.generations.Create(
		r.Context(),
		r.FormValue("user_email"),
		diagram,
		filename,
		r.FormValue("target_language"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// HandleRefine reworks an existing generation's code.
//
// HTTP: POST /opm/refine-code
// FORM FIELDS:
//   - file             → the diagram again (possibly corrected)
//   - generation_id    → which project to refine
//   - target_language  → must match the stored generation's language
//   - previous_code    → the code being revised
//   - fix_instructions → what the user wants changed
//
// RESPONSES:
//   - 200 with the refreshed outcome; the stored record is updated in place
//   - 200 {"status":"invalid",...} — rejected, the record is untouched
//   - 400 on blank fields or a language mismatch
//   - 404 when the generation ID is unknown
func (h *OPMHandler) HandleRefine(w http.ResponseWriter, r *http.Request) {
	diagram, filename, ok := h.readDiagram(w, r)
	if !ok {
		return
	}

	outcome, err := h.generations.Refine(
		r.Context(),
		r.FormValue("generation_id"),
		diagram,
		filename,
		r.FormValue("target_language"),
		r.FormValue("previous_code"),
		r.FormValue("fix_instructions"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}
