package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/auth"
	"github.com/ukydev/fleetflow/internal/logging"
	"github.com/ukydev/fleetflow/internal/models"
)

// IdentityManager is the identity service as seen by the auth handlers,
// implemented by auth.Resolver.
type IdentityManager interface {
	SignIn(ctx context.Context, email, password string) (*models.Identity, error)
	SignUp(ctx context.Context, email, password string) (*models.Identity, error)
	SignOut(ctx context.Context) error
	CurrentIdentity() *models.Identity
	Loading() bool
}

// AuthHandler handles authentication requests
type AuthHandler struct {
	identities IdentityManager
	logger     logrus.FieldLogger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(identities IdentityManager, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		identities: identities,
		logger:     logger.WithField("component", "auth_handler"),
	}
}

// IdentityResponse describes the signed-in identity, if any.
type IdentityResponse struct {
	Identity *models.Identity `json:"identity"`
	Loading  bool             `json:"loading"`
	Admin    bool             `json:"admin"`
}

// SignIn handles POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	identity, err := h.identities.SignIn(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IdentityResponse{Identity: identity, Admin: identity.IsAdmin()})
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	identity, err := h.identities.SignUp(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IdentityResponse{Identity: identity, Admin: identity.IsAdmin()})
}

// SignOut handles POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.identities.SignOut(r.Context()); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IdentityResponse{})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := h.identities.CurrentIdentity()
	writeJSON(w, http.StatusOK, IdentityResponse{
		Identity: identity,
		Loading:  h.identities.Loading(),
		Admin:    identity.IsAdmin(),
	})
}

func (h *AuthHandler) readCredentials(w http.ResponseWriter, r *http.Request) (models.Credentials, bool) {
	var creds models.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return creds, false
	}
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return creds, false
	}
	return creds, true
}

// writeAuthError surfaces the identity service's message verbatim.
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUserInactive):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailInUse):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusBadRequest
	default:
		logging.FromContext(r.Context(), h.logger).WithError(err).Error("Identity service failed")
	}
	writeError(w, status, err.Error())
}
