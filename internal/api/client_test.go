package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawsync/pawsync/internal/domain/pet"
	"github.com/pawsync/pawsync/internal/domain/record"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL}, nil)
}

func TestBearerTokenAttached(t *testing.T) {
	var seen string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})

	c.SetToken("tok-123")
	resp, err := c.Get(context.Background(), "/x")
	require.NoError(t, err)
	require.NoError(t, DecodeResponse(resp, nil))
	assert.Equal(t, "Bearer tok-123", seen)

	c.ClearToken()
	resp, err = c.Get(context.Background(), "/x")
	require.NoError(t, err)
	require.NoError(t, DecodeResponse(resp, nil))
	assert.Empty(t, seen)
}

func TestErrorBodyMessageExtracted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"insufficient tokens"}`))
	})

	resp, err := c.Get(context.Background(), "/x")
	require.NoError(t, err)

	err = DecodeResponse(resp, &struct{}{})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusPaymentRequired, statusErr.Status)
	assert.Equal(t, "insufficient tokens", statusErr.Message)
}

func TestErrorBodyPlainText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusBadGateway)
	})

	resp, err := c.Get(context.Background(), "/x")
	require.NoError(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, DecodeResponse(resp, nil), &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
	assert.Equal(t, "gateway timeout", statusErr.Message)
}

func TestPetCreateEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/pets", r.URL.Path)

		var p pet.Pet
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		p.ID = "p-1"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"entity": p})
	})

	remote := NewRemotes(c).Pets()
	res, err := remote.Create(context.Background(), pet.Pet{Name: "Rex"})
	require.NoError(t, err)
	assert.Equal(t, "p-1", res.Entity.ID)
	assert.Nil(t, res.Ledger, "pet mutations carry no balance")
}

func TestRecordCreateCarriesLedgerDelta(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/pets/p-1/feedings", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"entity":{"id":"f-1","pet_id":"p-1"},"tokens":99,"tokens_used":1}`))
	})

	remote := NewRemotes(c).Feedings()
	res, err := remote.Create(context.Background(), record.Feeding{PetID: "p-1"})
	require.NoError(t, err)
	assert.Equal(t, "f-1", res.Entity.ID)
	require.NotNil(t, res.Ledger)
	assert.Equal(t, int64(99), res.Ledger.Tokens)
	assert.Equal(t, int64(1), res.Ledger.TokensUsed)
}

func TestRecordDeleteRoute(t *testing.T) {
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	remote := NewRemotes(c).Medications()
	_, err := remote.Delete(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/api/v1/records/medications/m-1", path)
}

func TestFetchSnapshotReturnsRawBytes(t *testing.T) {
	payload := []byte(`{"user":{"id":"u1","tokens":42,"tokens_used":0},"pets":[{"id":"p1","name":"Rex"}]}`)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sync/snapshot", r.URL.Path)
		_, _ = w.Write(payload)
	})

	snap, raw, err := NewRemotes(c).FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payload, raw)
	assert.Equal(t, "u1", snap.User.ID)
	require.Len(t, snap.Pets, 1)
	assert.Equal(t, "Rex", snap.Pets[0].Name)
}

func TestAuthEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			_ = json.NewEncoder(w).Encode(TokenPair{AccessToken: "a", RefreshToken: "r"})
		case "/api/v1/auth/refresh":
			var body struct {
				RefreshToken string `json:"refresh_token"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "r", body.RefreshToken)
			_ = json.NewEncoder(w).Encode(TokenPair{AccessToken: "a2", RefreshToken: "r2"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	pair, err := c.Login(context.Background(), Credentials{Email: "e", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "a", pair.AccessToken)

	pair, err = c.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "a2", pair.AccessToken)
}
