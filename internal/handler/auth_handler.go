// Package handler provides HTTP handlers for the API.
package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/keyfold/keyfold/internal/middleware"
	"github.com/keyfold/keyfold/internal/models"
	apierrors "github.com/keyfold/keyfold/internal/pkg/errors"
	"github.com/keyfold/keyfold/internal/pkg/response"
	"github.com/keyfold/keyfold/internal/service"
)

const oauthSessionName = "keyfold_oauth"

// AuthHandler handles authentication HTTP requests.
type AuthHandler struct {
	auth        service.AuthService
	tokens      service.TokenService
	audit       service.AuditService
	sessions    sessions.Store
	frontendURL string
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	auth service.AuthService,
	tokens service.TokenService,
	audit service.AuditService,
	sessionStore sessions.Store,
	frontendURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		tokens:      tokens,
		audit:       audit,
		sessions:    sessionStore,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// OAuthRoutes returns a chi router with the browser-facing OAuth routes.
func (h *AuthHandler) OAuthRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/google", h.GoogleLogin)
	r.Get("/google/callback", h.GoogleCallback)
	return r
}

// GoogleLogin handles GET /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		response.InternalError(w)
		return
	}

	session, _ := h.sessions.Get(r, oauthSessionName)
	session.Values["state"] = state
	session.Options.HttpOnly = true
	session.Options.MaxAge = 600
	if err := session.Save(r, w); err != nil {
		h.logger.Error("saving oauth session", "error", err)
		response.InternalError(w)
		return
	}

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback handles GET /auth/google/callback
//
// The frontend login page reads token and user_id from the redirect URL.
// The token is the provider's short-lived access token and is never stored.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectLogin(w, r, url.Values{"error": {"no_code"}})
		return
	}

	session, _ := h.sessions.Get(r, oauthSessionName)
	want, _ := session.Values["state"].(string)
	if want == "" || want != r.URL.Query().Get("state") {
		h.logger.Warn("oauth state mismatch", "remote_addr", r.RemoteAddr)
		h.redirectLogin(w, r, url.Values{"error": {"auth_failed"}})
		return
	}
	// One-shot state: clear it regardless of outcome.
	delete(session.Values, "state")
	_ = session.Save(r, w)

	user, accessToken, err := h.auth.ResolveAuthorizationCode(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback failed", "error", err)
		h.redirectLogin(w, r, url.Values{"error": {"auth_failed"}})
		return
	}

	h.audit.Record(r.Context(), r, models.AuditEventAuthLogin, &user.ID, models.ResourceTypeUser, user.ID.String())
	middleware.IncrementLogins()

	h.redirectLogin(w, r, url.Values{
		"token":   {accessToken},
		"user_id": {user.ID.String()},
	})
}

func (h *AuthHandler) redirectLogin(w http.ResponseWriter, r *http.Request, params url.Values) {
	target := strings.TrimRight(h.frontendURL, "/") + "/login?" + params.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

// VerifyTokenRequest is the HTTP request body for token verification.
type VerifyTokenRequest struct {
	IDToken string `json:"id_token"`
}

// VerifyToken handles POST /v1/auth/verify-token
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if req.IDToken == "" {
		response.ValidationError(w, "id_token", "id_token is required")
		return
	}

	user, err := h.auth.ResolveIdentityToken(r.Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, service.ErrTokenVerification) {
			response.Error(w, apierrors.ErrInvalidToken)
			return
		}
		h.logger.Error("token verification failed", "error", err)
		response.InternalError(w)
		return
	}

	token, err := h.tokens.Issue(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("issuing api token", "error", err)
		response.InternalError(w)
		return
	}

	h.audit.Record(r.Context(), r, models.AuditEventAuthLogin, &user.ID, models.ResourceTypeUser, user.ID.String())
	middleware.IncrementLogins()

	response.OK(w, "Token verified", map[string]any{
		"id":          user.ID,
		"email":       user.Email,
		"name":        user.Name,
		"picture_url": user.PictureURL,
		"token":       token,
	})
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetToken(r.Context())
	if token == "" {
		response.Error(w, apierrors.ErrUnauthorized)
		return
	}

	if err := h.tokens.Revoke(r.Context(), token); err != nil {
		h.logger.Error("revoking token", "error", err)
		response.InternalError(w)
		return
	}

	if userID, ok := middleware.GetUserID(r.Context()); ok {
		h.audit.Record(r.Context(), r, models.AuditEventAuthLogout, &userID, models.ResourceTypeUser, userID.String())
	}

	response.OK(w, "Logged out successfully", nil)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
