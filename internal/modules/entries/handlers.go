package entries

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"budget/internal/utils"
)

const (
	defaultListLimit = 10
	maxListLimit     = 10000
	maxUploadBytes   = 16 << 20 // 16 MB
)

// Handler handles budget entry HTTP requests
type Handler struct {
	repo     *Repository
	importer *Importer
	log      zerolog.Logger
}

// NewHandler creates a new entries handler
func NewHandler(repo *Repository, importer *Importer, log zerolog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		importer: importer,
		log:      log.With().Str("handler", "entries").Logger(),
	}
}

// RegisterRoutes registers entry routes on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/entries", func(r chi.Router) {
		r.Post("/create", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/info", h.HandleInfo)
		r.Post("/update", h.HandleUpdate)
		r.Post("/upload", h.HandleUpload)
		r.Post("/clean", h.HandleClean)
	})
}

// HandleCreate handles POST /entries/create - insert one entry
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := entry.Validate(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.Create(&entry); err != nil {
		h.log.Error().Err(err).Msg("Failed to create entry")
		utils.RespondError(w, http.StatusInternalServerError, "Failed to create entry.")
		return
	}

	utils.RespondJSON(w, http.StatusOK, utils.Message("Entry is added successfully."))
}

// HandleList handles GET /entries/ - paginated entries, most recent first
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip := 0
	limit := defaultListLimit

	if s := r.URL.Query().Get("skip"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			utils.RespondError(w, http.StatusBadRequest, "Invalid skip. Must be >= 0")
			return
		}
		skip = v
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > maxListLimit {
			utils.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid limit. Must be 1-%d", maxListLimit))
			return
		}
		limit = v
	}

	list, err := h.repo.List(skip, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list entries")
		utils.RespondError(w, http.StatusInternalServerError, "Failed to retrieve entries.")
		return
	}

	utils.RespondJSON(w, http.StatusOK, list)
}

// HandleInfo handles GET /entries/info - aggregate summary
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	summary, err := h.repo.Summary()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get entries summary")
		utils.RespondError(w, http.StatusInternalServerError, "Failed to retrieve summary.")
		return
	}

	utils.RespondJSON(w, http.StatusOK, summary)
}

// HandleUpdate handles POST /entries/update - bulk upsert in one transaction
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var batch []Entry
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	for i := range batch {
		// Old clients send -1 for "new entry"; treat it as an unset id
		if batch[i].ID != nil && *batch[i].ID == -1 {
			batch[i].ID = nil
		}
		if err := batch[i].Validate(); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := h.repo.UpsertMany(batch); err != nil {
		if errors.Is(err, ErrProcessing) {
			utils.RespondError(w, http.StatusBadRequest, "Error processing entries.")
			return
		}
		h.log.Error().Err(err).Msg("Failed to upsert entries")
		utils.RespondError(w, http.StatusInternalServerError, "Failed to save entries.")
		return
	}

	utils.RespondJSON(w, http.StatusOK, utils.Message("Entries are saved successfully."))
}

// HandleUpload handles POST /entries/upload - multipart CSV import
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil || header.Size == 0 {
		utils.RespondError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer file.Close()

	uploadID := uuid.New().String()
	log := h.log.With().Str("upload_id", uploadID).Str("filename", header.Filename).Logger()

	count, err := h.importer.Import(file)
	if err != nil {
		var missingErr *MissingColumnsError
		var rowErr *RowError
		switch {
		case errors.Is(err, ErrNoFileUploaded):
			utils.RespondError(w, http.StatusBadRequest, "No file uploaded.")
		case errors.As(err, &missingErr):
			log.Warn().Strs("columns", missingErr.Columns).Msg("Upload rejected: missing columns")
			utils.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Missing columns: %s.", strings.Join(missingErr.Columns, ", ")))
		case errors.As(err, &rowErr):
			log.Warn().Err(rowErr).Msg("Upload rejected: malformed row")
			utils.RespondError(w, http.StatusBadRequest, rowErr.Error())
		case errors.Is(err, ErrProcessing):
			utils.RespondError(w, http.StatusBadRequest, "Error processing entries.")
		default:
			log.Error().Err(err).Msg("Failed to import entries")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to import entries.")
		}
		return
	}

	log.Info().Int("rows", count).Msg("Upload complete")
	utils.RespondJSON(w, http.StatusOK, utils.Message(fmt.Sprintf("%d entries is uploaded successfully.", count)))
}

// HandleClean handles POST /entries/clean - delete every entry
func (h *Handler) HandleClean(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteAll(); err != nil {
		h.log.Error().Err(err).Msg("Failed to delete entries")
		utils.RespondError(w, http.StatusInternalServerError, "Failed to delete entries.")
		return
	}

	utils.RespondJSON(w, http.StatusOK, utils.Message("All entries are deleted successfully."))
}
