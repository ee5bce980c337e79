package question

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/partyquiz/internal/game"
	"github.com/gokatarajesh/partyquiz/internal/question/external"
	httperrors "github.com/gokatarajesh/partyquiz/pkg/http/errors"
)

const maxUploadBytes = 2 << 20

// HTTPHandler exposes the question bank to admins.
type HTTPHandler struct {
	service *Service
	logger  zerolog.Logger
}

func NewHTTPHandler(service *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		logger:  logger.With().Str("component", "question_http").Logger(),
	}
}

// List handles GET /v1/questions
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	qs, err := h.service.List(r.Context())
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"questions": nonNil(qs)})
}

// Create handles POST /v1/questions
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	q, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, q)
}

// Update handles PUT /v1/questions/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	q, err := h.service.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, q)
}

// Delete handles DELETE /v1/questions/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.respondFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Import handles POST /v1/questions/import with a {"questions": [...]} body.
func (h *HTTPHandler) Import(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Questions []Input `json:"questions"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&body); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	h.respondImport(w, r, body.Questions)
}

// ImportCSV handles POST /v1/questions/import/csv with a raw CSV body.
func (h *HTTPHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	inputs, err := ParseCSV(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeImportFailed, err.Error())
		return
	}
	h.respondImport(w, r, inputs)
}

// ImportExternal handles POST /v1/questions/import/{provider}
func (h *HTTPHandler) ImportExternal(w http.ResponseWriter, r *http.Request) {
	var req ExternalRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
			return
		}
	}
	req.Provider = r.PathValue("provider")

	result, err := h.service.ImportExternal(r.Context(), req)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, result)
}

// Export handles GET /v1/questions/export
func (h *HTTPHandler) Export(w http.ResponseWriter, r *http.Request) {
	qs, err := h.service.Export(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("export failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeExportFailed, "Failed to export questions")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="questions.json"`)
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"questions": nonNil(qs)})
}

func (h *HTTPHandler) respondImport(w http.ResponseWriter, r *http.Request, inputs []Input) {
	if len(inputs) == 0 {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeImportFailed, "No questions to import")
		return
	}
	result, err := h.service.Import(r.Context(), inputs)
	if err != nil {
		h.logger.Error().Err(err).Msg("import failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeImportFailed, "Failed to import questions")
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, result)
}

func (h *HTTPHandler) respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuestionNotFound, "Question not found")
	case errors.Is(err, game.ErrInvalidQuestion):
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidQuestion, err.Error(), "question")
	case errors.Is(err, ErrUnknownProvider):
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, err.Error())
	case errors.Is(err, ErrProviderUnavailable):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, err.Error())
	case errors.Is(err, external.ErrRateLimited):
		httperrors.RespondError(w, http.StatusTooManyRequests, httperrors.ErrCodeUpstreamError, err.Error())
	default:
		h.logger.Error().Err(err).Msg("question request failed")
		httperrors.RespondInternalError(w, "Internal error")
	}
}

func nonNil(qs []game.Question) []game.Question {
	if qs == nil {
		return []game.Question{}
	}
	return qs
}
