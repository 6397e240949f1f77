package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/keyfold/internal/models"
	"github.com/keyfold/keyfold/internal/pkg/response"
)

func newVaultTestServer(repo *fakeVaultRepo) *httptest.Server {
	h := NewVaultHandler(repo, &fakeAuditService{})
	r := chi.NewRouter()
	r.Mount("/v1/vaults", h.Routes())
	return httptest.NewServer(r)
}

func decodeEnvelope(t *testing.T, resp *http.Response) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestVaultCreate(t *testing.T) {
	repo := newFakeVaultRepo()
	srv := newVaultTestServer(repo)
	defer srv.Close()

	ownerID := uuid.New().String()
	body := `{"name":"Personal","description":"My vault","owner_user_id":"` + ownerID + `"}`

	resp, err := http.Post(srv.URL+"/v1/vaults", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, "Vault created successfully", env.Message)

	data := env.Data.(map[string]any)
	assert.Equal(t, "Personal", data["name"])
	assert.Equal(t, ownerID, data["owner_user_id"])
	assert.Len(t, repo.vaults, 1)
}

func TestVaultCreate_MissingName(t *testing.T) {
	srv := newVaultTestServer(newFakeVaultRepo())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/vaults", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "error", env.Status)
}

func TestVaultList_ByOwner(t *testing.T) {
	repo := newFakeVaultRepo()
	ownerID := uuid.New()
	otherID := uuid.New()
	_ = repo.Create(t.Context(), &models.Vault{OwnerUserID: &ownerID, Name: "Mine"})
	_ = repo.Create(t.Context(), &models.Vault{OwnerUserID: &otherID, Name: "Theirs"})

	srv := newVaultTestServer(repo)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/vaults?owner_id=" + ownerID.String())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "ok", env.Message)

	items := env.Data.([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Mine", items[0].(map[string]any)["name"])
}

func TestVaultList_EmptyIsArray(t *testing.T) {
	srv := newVaultTestServer(newFakeVaultRepo())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/vaults?owner_id=" + uuid.New().String())
	require.NoError(t, err)
	defer resp.Body.Close()

	env := decodeEnvelope(t, resp)
	items, ok := env.Data.([]any)
	require.True(t, ok, "data must be a JSON array, not null")
	assert.Empty(t, items)
}

func TestVaultDelete(t *testing.T) {
	repo := newFakeVaultRepo()
	vault := &models.Vault{Name: "Doomed"}
	_ = repo.Create(t.Context(), vault)

	srv := newVaultTestServer(repo)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/vaults/"+vault.ID.String(), nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "Vault deleted successfully", env.Message)
	assert.Empty(t, repo.vaults)
}

func TestVaultDelete_NotFound(t *testing.T) {
	srv := newVaultTestServer(newFakeVaultRepo())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/vaults/"+uuid.New().String(), nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "Vault not found", env.Message)
}
