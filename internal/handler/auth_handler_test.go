package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/keyfold/internal/middleware"
	"github.com/keyfold/keyfold/internal/models"
	"github.com/keyfold/keyfold/internal/service"
)

type fakeAuthService struct {
	user        *models.User
	accessToken string
	resolveErr  error
}

func (s *fakeAuthService) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (s *fakeAuthService) ResolveAuthorizationCode(ctx context.Context, code string) (*models.User, string, error) {
	if s.resolveErr != nil {
		return nil, "", s.resolveErr
	}
	return s.user, s.accessToken, nil
}

func (s *fakeAuthService) ResolveIdentityToken(ctx context.Context, idToken string) (*models.User, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	return s.user, nil
}

type fakeTokenService struct {
	issued  string
	userID  uuid.UUID
	revoked []string
}

func (s *fakeTokenService) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	s.userID = userID
	return s.issued, nil
}

func (s *fakeTokenService) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	if token != s.issued {
		return uuid.Nil, service.ErrTokenInvalid
	}
	return s.userID, nil
}

func (s *fakeTokenService) Revoke(ctx context.Context, token string) error {
	s.revoked = append(s.revoked, token)
	return nil
}

func testUser() *models.User {
	name := "Alice"
	pic := "https://img/a.png"
	return &models.User{
		ID:         uuid.New(),
		Email:      "alice@example.com",
		Name:       &name,
		PictureURL: &pic,
	}
}

func newAuthTestServer(auth *fakeAuthService, tokens *fakeTokenService) *httptest.Server {
	h := NewAuthHandler(
		auth,
		tokens,
		&fakeAuditService{},
		sessions.NewCookieStore([]byte("test-session-key")),
		"http://localhost:3000",
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	r := chi.NewRouter()
	r.Mount("/auth", h.OAuthRoutes())
	r.Post("/v1/auth/verify-token", h.VerifyToken)
	r.With(middleware.Auth(tokens)).Post("/v1/auth/logout", h.Logout)
	return httptest.NewServer(r)
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestVerifyToken(t *testing.T) {
	user := testUser()
	tokens := &fakeTokenService{issued: "local-api-token"}
	srv := newAuthTestServer(&fakeAuthService{user: user}, tokens)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/auth/verify-token", "application/json",
		strings.NewReader(`{"id_token":"google-id-token"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, "Token verified", env.Message)

	data := env.Data.(map[string]any)
	assert.Equal(t, user.ID.String(), data["id"])
	assert.Equal(t, "alice@example.com", data["email"])
	assert.Equal(t, "Alice", data["name"])
	assert.Equal(t, "local-api-token", data["token"])
}

func TestVerifyToken_Invalid(t *testing.T) {
	auth := &fakeAuthService{resolveErr: service.ErrTokenVerification}
	srv := newAuthTestServer(auth, &fakeTokenService{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/auth/verify-token", "application/json",
		strings.NewReader(`{"id_token":"garbage"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "Invalid token", env.Message)
}

func TestVerifyToken_MissingField(t *testing.T) {
	srv := newAuthTestServer(&fakeAuthService{user: testUser()}, &fakeTokenService{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/auth/verify-token", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGoogleLogin_Redirects(t *testing.T) {
	srv := newAuthTestServer(&fakeAuthService{}, &fakeTokenService{})
	defer srv.Close()

	resp, err := noRedirectClient().Get(srv.URL + "/auth/google")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.Contains(t, loc, "accounts.example.com")
	assert.Contains(t, loc, "state=")
	assert.NotEmpty(t, resp.Cookies())
}

func TestGoogleCallback_NoCode(t *testing.T) {
	srv := newAuthTestServer(&fakeAuthService{}, &fakeTokenService{})
	defer srv.Close()

	resp, err := noRedirectClient().Get(srv.URL + "/auth/google/callback")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000/login?error=no_code", resp.Header.Get("Location"))
}

func TestGoogleCallback_StateMismatch(t *testing.T) {
	srv := newAuthTestServer(&fakeAuthService{user: testUser()}, &fakeTokenService{})
	defer srv.Close()

	resp, err := noRedirectClient().Get(srv.URL + "/auth/google/callback?code=abc&state=wrong")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000/login?error=auth_failed", resp.Header.Get("Location"))
}

func TestGoogleCallback_Success(t *testing.T) {
	user := testUser()
	srv := newAuthTestServer(&fakeAuthService{user: user, accessToken: "ya29.access"}, &fakeTokenService{})
	defer srv.Close()

	client := noRedirectClient()

	// Start the flow to obtain the state cookie.
	loginResp, err := client.Get(srv.URL + "/auth/google")
	require.NoError(t, err)
	loginResp.Body.Close()

	loc, err := url.Parse(loginResp.Header.Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	req, _ := http.NewRequest(http.MethodGet,
		srv.URL+"/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil)
	for _, c := range loginResp.Cookies() {
		req.AddCookie(c)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	redirect, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", redirect.Path)
	assert.Equal(t, "ya29.access", redirect.Query().Get("token"))
	assert.Equal(t, user.ID.String(), redirect.Query().Get("user_id"))
}

func TestLogout(t *testing.T) {
	user := testUser()
	tokens := &fakeTokenService{issued: "local-api-token", userID: user.ID}
	srv := newAuthTestServer(&fakeAuthService{user: user}, tokens)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer local-api-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "Logged out successfully", env.Message)
	assert.Equal(t, []string{"local-api-token"}, tokens.revoked)
}

func TestLogout_NoToken(t *testing.T) {
	srv := newAuthTestServer(&fakeAuthService{}, &fakeTokenService{issued: "tok"})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/auth/logout", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
