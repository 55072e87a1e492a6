package reports

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"budget/internal/utils"
)

// Handler handles report HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new reports handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "reports").Logger(),
	}
}

// RegisterRoutes registers report routes on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Post("/generate/{report_name}", h.HandleGenerate)
		r.Get("/latest/{report_name}", h.HandleLatest)
	})
}

// HandleGenerate handles POST /reports/generate/{report_name} - build the
// report from the current entries, cache it and return it
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "report_name")

	doc, err := h.service.Generate(r.Context(), name)
	if err != nil {
		if errors.Is(err, ErrInvalidReportKind) {
			utils.RespondError(w, http.StatusBadRequest, "Invalid report type.")
			return
		}
		h.log.Error().Err(err).Str("report", name).Msg("Failed to generate report")
		utils.RespondError(w, http.StatusInternalServerError, "Failed to generate report.")
		return
	}

	utils.RespondJSON(w, http.StatusOK, doc)
}

// HandleLatest handles GET /reports/latest/{report_name} - return the last
// cached report
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "report_name")

	doc, err := h.service.Latest(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidReportKind):
			utils.RespondError(w, http.StatusBadRequest, "Invalid report type.")
		case errors.Is(err, ErrReportNotFound):
			utils.RespondError(w, http.StatusNotFound, "No report found.")
		default:
			h.log.Error().Err(err).Str("report", name).Msg("Failed to load report")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load report.")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, doc)
}
