// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/keyfold/keyfold/internal/models"
	"github.com/keyfold/keyfold/internal/provider"
	"github.com/keyfold/keyfold/internal/repository"
)

// Sentinel errors for distinguishing provider failure modes.
var (
	ErrExchange          = errors.New("auth: authorization code exchange failed")
	ErrProfileFetch      = errors.New("auth: profile fetch failed")
	ErrTokenVerification = errors.New("auth: identity token verification failed")
)

// AuthService resolves external provider identities to local users.
type AuthService interface {
	// AuthURL returns the provider authorization URL for the given state.
	AuthURL(state string) string

	// ResolveAuthorizationCode exchanges an authorization code, fetches the
	// provider profile, and finds or creates the matching local user.
	// Returns the provider access token alongside; the token is never stored.
	ResolveAuthorizationCode(ctx context.Context, code string) (*models.User, string, error)

	// ResolveIdentityToken verifies a provider ID token and finds or creates
	// the matching local user.
	ResolveIdentityToken(ctx context.Context, idToken string) (*models.User, error)
}

type authService struct {
	provider provider.Provider
	userRepo repository.UserRepository
}

// NewAuthService creates a new auth service backed by the given provider.
func NewAuthService(p provider.Provider, userRepo repository.UserRepository) AuthService {
	return &authService{provider: p, userRepo: userRepo}
}

func (s *authService) AuthURL(state string) string {
	return s.provider.AuthURL(state)
}

func (s *authService) ResolveAuthorizationCode(ctx context.Context, code string) (*models.User, string, error) {
	accessToken, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrExchange, err)
	}

	profile, err := s.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}

	user, err := s.findOrCreateUser(ctx, profile)
	if err != nil {
		return nil, "", err
	}
	return user, accessToken, nil
}

func (s *authService) ResolveIdentityToken(ctx context.Context, idToken string) (*models.User, error) {
	profile, err := s.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		// Fail closed: transport and provider errors read as a bad token.
		// Detail stays in the wrapped error for server-side logs.
		return nil, fmt.Errorf("%w: %w", ErrTokenVerification, err)
	}
	return s.findOrCreateUser(ctx, profile)
}

// findOrCreateUser resolves a provider profile to a local user. Lookup order
// is provider identity first, then email for account linking, then create.
func (s *authService) findOrCreateUser(ctx context.Context, profile *provider.Profile) (*models.User, error) {
	providerName := s.provider.Name()

	user, err := s.userRepo.GetByProvider(ctx, providerName, profile.ProviderID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		// Refresh profile fields that may have changed at the provider.
		user.Name = &profile.Name
		user.PictureURL = &profile.PictureURL
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	if profile.Email != "" {
		user, err = s.userRepo.GetByEmail(ctx, profile.Email)
		if err != nil {
			return nil, err
		}
		if user != nil {
			// Link the provider identity to the existing account.
			user.Name = &profile.Name
			user.PictureURL = &profile.PictureURL
			user.ProviderID = &profile.ProviderID
			user.ProviderName = &providerName
			if err := s.userRepo.Update(ctx, user); err != nil {
				return nil, err
			}
			return user, nil
		}
	}

	user = &models.User{
		Email:        profile.Email,
		Name:         &profile.Name,
		PictureURL:   &profile.PictureURL,
		ProviderID:   &profile.ProviderID,
		ProviderName: &providerName,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Compile-time check to ensure authService implements AuthService.
var _ AuthService = (*authService)(nil)
