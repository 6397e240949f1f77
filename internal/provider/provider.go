// Package provider abstracts external identity providers.
package provider

import (
	"context"
	"errors"
)

// ErrTokenInvalid is returned when a provider rejects an identity token.
var ErrTokenInvalid = errors.New("provider: token invalid")

// Profile is the normalized identity returned by a provider.
type Profile struct {
	ProviderID string
	Email      string
	Name       string
	PictureURL string
}

// Provider is an external OAuth identity provider.
type Provider interface {
	// Name returns the provider identifier stored alongside user records.
	Name() string

	// AuthURL builds the authorization redirect URL for the given
	// anti-forgery state value.
	AuthURL(state string) string

	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string) (accessToken string, err error)

	// FetchProfile retrieves the user profile for an access token.
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)

	// VerifyIDToken validates an ID token with the provider and returns
	// the profile it asserts. Returns ErrTokenInvalid when the provider
	// rejects the token.
	VerifyIDToken(ctx context.Context, idToken string) (*Profile, error)
}
