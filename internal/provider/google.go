package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserinfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleTokeninfoURL = "https://oauth2.googleapis.com/tokeninfo"

	defaultTimeout = 10 * time.Second
)

// Google authenticates users against Google's OAuth 2.0 endpoints.
type Google struct {
	oauth        *oauth2.Config
	client       *http.Client
	userinfoURL  string
	tokeninfoURL string
}

var _ Provider = (*Google)(nil)

// GoogleOption customizes a Google provider.
type GoogleOption func(*Google)

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(g *Google) { g.client = c }
}

// WithEndpoints overrides the userinfo and tokeninfo endpoints.
func WithEndpoints(userinfo, tokeninfo string) GoogleOption {
	return func(g *Google) {
		g.userinfoURL = userinfo
		g.tokeninfoURL = tokeninfo
	}
}

// NewGoogle builds a Google provider for the given OAuth client.
func NewGoogle(clientID, clientSecret, redirectURL string, opts ...GoogleOption) *Google {
	g := &Google{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		client:       &http.Client{Timeout: defaultTimeout},
		userinfoURL:  googleUserinfoURL,
		tokeninfoURL: googleTokeninfoURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Google) Name() string { return "google" }

func (g *Google) AuthURL(state string) string {
	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account consent"),
	)
}

func (g *Google) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok.AccessToken, nil
}

func (g *Google) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}

	var info struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	if info.ID == "" || info.Email == "" {
		return nil, fmt.Errorf("userinfo missing required fields")
	}

	return &Profile{
		ProviderID: info.ID,
		Email:      info.Email,
		Name:       info.Name,
		PictureURL: info.Picture,
	}, nil
}

func (g *Google) VerifyIDToken(ctx context.Context, idToken string) (*Profile, error) {
	endpoint := g.tokeninfoURL + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building tokeninfo request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}
	defer resp.Body.Close()

	// Google answers 4xx for malformed, expired or revoked tokens.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, ErrTokenInvalid
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokeninfo returned %d", resp.StatusCode)
	}

	var claims struct {
		Sub     string `json:"sub"`
		Aud     string `json:"aud"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("decoding tokeninfo: %w", err)
	}
	if claims.Sub == "" || claims.Email == "" {
		return nil, ErrTokenInvalid
	}
	if claims.Aud != g.oauth.ClientID {
		return nil, ErrTokenInvalid
	}

	return &Profile{
		ProviderID: claims.Sub,
		Email:      claims.Email,
		Name:       claims.Name,
		PictureURL: claims.Picture,
	}, nil
}
