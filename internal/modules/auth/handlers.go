package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"budget/internal/utils"
)

// IdentityProvider is the managed identity backend. Implementations
// translate their own failure types into this package's error vocabulary.
type IdentityProvider interface {
	Register(ctx context.Context, username, password string) error
	Confirm(ctx context.Context, username, code string) error
	// Login returns the provider's access token on success.
	Login(ctx context.Context, username, password string) (string, error)
}

// Credentials is the register/login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Confirmation is the confirm request body.
type Confirmation struct {
	Username         string `json:"username"`
	ConfirmationCode string `json:"confirmation_code"`
}

// Handler handles auth HTTP requests
type Handler struct {
	provider IdentityProvider
	log      zerolog.Logger
}

// NewHandler creates a new auth handler
func NewHandler(provider IdentityProvider, log zerolog.Logger) *Handler {
	return &Handler{
		provider: provider,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

// RegisterRoutes registers auth routes on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/confirm", h.HandleConfirm)
		r.Post("/login", h.HandleLogin)
	})
}

// HandleRegister handles POST /auth/register - sign a new user up with the
// identity provider
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Username == "" || creds.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "Username and password are required.")
		return
	}

	if err := h.provider.Register(r.Context(), creds.Username, creds.Password); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			utils.RespondError(w, http.StatusBadRequest, "User already exists.")
			return
		}
		h.log.Error().Err(err).Msg("Registration failed")
		utils.RespondError(w, http.StatusInternalServerError, "Registration failed.")
		return
	}

	utils.RespondJSON(w, http.StatusOK, utils.Message("User registered, confirm the email."))
}

// HandleConfirm handles POST /auth/confirm - confirm a registered user with
// the emailed code
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var conf Confirmation
	if err := json.NewDecoder(r.Body).Decode(&conf); err != nil || conf.Username == "" {
		utils.RespondError(w, http.StatusBadRequest, "Username is required.")
		return
	}

	if err := h.provider.Confirm(r.Context(), conf.Username, conf.ConfirmationCode); err != nil {
		if errors.Is(err, ErrInvalidConfirmationCode) {
			utils.RespondError(w, http.StatusBadRequest, "Invalid confirmation code.")
			return
		}
		h.log.Error().Err(err).Msg("Confirmation failed")
		utils.RespondError(w, http.StatusInternalServerError, "Confirmation failed.")
		return
	}

	utils.RespondJSON(w, http.StatusOK, utils.Message("User confirmed. You can now log in."))
}

// HandleLogin handles POST /auth/login - exchange credentials for an access
// token
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Username == "" || creds.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "Username and password are required.")
		return
	}

	token, err := h.provider.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			utils.RespondError(w, http.StatusBadRequest, "User not found.")
		case errors.Is(err, ErrIncorrectCredentials):
			utils.RespondError(w, http.StatusUnauthorized, "Incorrect username or password.")
		case errors.Is(err, ErrUserNotConfirmed):
			utils.RespondError(w, http.StatusForbidden, "User is not confirmed.")
		default:
			h.log.Error().Err(err).Msg("Login failed")
			utils.RespondError(w, http.StatusInternalServerError, "Login failed.")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"access_token": token})
}
