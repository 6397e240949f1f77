package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogle_AuthURL(t *testing.T) {
	g := NewGoogle("client-id", "secret", "http://localhost:8080/auth/google/callback")

	u := g.AuthURL("state-123")
	assert.Contains(t, u, "client_id=client-id")
	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, "prompt=select_account")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "scope=openid+email+profile")
}

func TestGoogle_FetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"108","email":"a@example.com","name":"Alice","picture":"https://img/a.png"}`))
	}))
	defer srv.Close()

	g := NewGoogle("client-id", "secret", "http://cb", WithEndpoints(srv.URL, srv.URL))

	p, err := g.FetchProfile(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "108", p.ProviderID)
	assert.Equal(t, "a@example.com", p.Email)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, "https://img/a.png", p.PictureURL)
}

func TestGoogle_FetchProfile_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewGoogle("client-id", "secret", "http://cb", WithEndpoints(srv.URL, srv.URL))

	_, err := g.FetchProfile(context.Background(), "bad")
	assert.Error(t, err)
}

func TestGoogle_VerifyIDToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_token") != "valid-token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"108","aud":"client-id","email":"a@example.com","name":"Alice","picture":"https://img/a.png"}`))
	}))
	defer srv.Close()

	g := NewGoogle("client-id", "secret", "http://cb", WithEndpoints(srv.URL, srv.URL))

	p, err := g.VerifyIDToken(context.Background(), "valid-token")
	require.NoError(t, err)
	assert.Equal(t, "108", p.ProviderID)
	assert.Equal(t, "a@example.com", p.Email)

	_, err = g.VerifyIDToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestGoogle_VerifyIDToken_AudienceMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"108","aud":"someone-else","email":"a@example.com"}`))
	}))
	defer srv.Close()

	g := NewGoogle("client-id", "secret", "http://cb", WithEndpoints(srv.URL, srv.URL))

	_, err := g.VerifyIDToken(context.Background(), "token")
	assert.True(t, errors.Is(err, ErrTokenInvalid))
}
