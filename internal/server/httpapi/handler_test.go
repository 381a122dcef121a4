package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/internal/server/auth"
	"github.com/pawsync/pawsync/internal/server/middleware"
	petsvc "github.com/pawsync/pawsync/internal/server/services/pets"
	recsvc "github.com/pawsync/pawsync/internal/server/services/records"
	ticketsvc "github.com/pawsync/pawsync/internal/server/services/tickets"
	usersvc "github.com/pawsync/pawsync/internal/server/services/users"
	"github.com/pawsync/pawsync/internal/server/storage/memory"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *memory.Memory) {
	t.Helper()
	store := memory.New()

	users := usersvc.New(store, nil)
	pets := petsvc.New(store, nil)
	records := recsvc.New(store, store, users, nil)
	tickets := ticketsvc.New(store, nil)
	issuer := auth.NewIssuer([]byte(testSecret), 0, 0)

	h := NewHandler(users, pets, records, tickets, issuer, nil)
	authMW := middleware.NewAuthMiddleware([]byte(testSecret), nil, AuthSkipPaths())

	srv := httptest.NewServer(authMW.Handler(h.Routes()))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url, token string, body interface{}, target interface{}) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func registerUser(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	var pair auth.TokenPair
	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"name":     "Tester",
		"password": "secret123",
	}, &pair)
	if status != http.StatusCreated {
		t.Fatalf("register: status %d", status)
	}
	return pair.AccessToken
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/pets")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLoginAndRefresh(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "login@example.com")

	var pair auth.TokenPair
	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "login@example.com", "password": "secret123",
	}, &pair)
	if status != http.StatusOK {
		t.Fatalf("login: status %d", status)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("incomplete token pair")
	}

	var refreshed auth.TokenPair
	status = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, &refreshed)
	if status != http.StatusOK {
		t.Fatalf("refresh: status %d", status)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("no refreshed access token")
	}

	status = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "login@example.com", "password": "wrong",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d", status)
	}
}

func TestRefreshTokenNotABearerCredential(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "refresh@example.com")

	var pair auth.TokenPair
	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "refresh@example.com", "password": "secret123",
	}, &pair)
	if status != http.StatusOK {
		t.Fatalf("login: status %d", status)
	}

	status = doJSON(t, http.MethodGet, srv.URL+"/api/v1/pets", pair.RefreshToken, nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("refresh token accepted on a protected route: %d", status)
	}
}

func TestPetAndRecordFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerUser(t, srv, "flow@example.com")

	var petEnv struct {
		Entity struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"entity"`
		Tokens *int64 `json:"tokens"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/pets", token, map[string]string{
		"name": "Rex", "species": "dog",
	}, &petEnv)
	if status != http.StatusCreated {
		t.Fatalf("create pet: status %d", status)
	}
	if petEnv.Entity.ID == "" {
		t.Fatal("no pet id")
	}
	if petEnv.Tokens != nil {
		t.Fatal("pet creation must not carry a balance")
	}

	var recEnv struct {
		Entity struct {
			ID    string `json:"id"`
			PetID string `json:"pet_id"`
		} `json:"entity"`
		Tokens     *int64 `json:"tokens"`
		TokensUsed *int64 `json:"tokens_used"`
	}
	recordURL := fmt.Sprintf("%s/api/v1/pets/%s/feedings", srv.URL, petEnv.Entity.ID)
	status = doJSON(t, http.MethodPost, recordURL, token, map[string]interface{}{
		"amount_g": 120,
	}, &recEnv)
	if status != http.StatusCreated {
		t.Fatalf("create record: status %d", status)
	}
	if recEnv.Tokens == nil || recEnv.TokensUsed == nil {
		t.Fatal("billable creation must carry the balance pair")
	}
	cost := recsvc.Costs["feedings"]
	if *recEnv.Tokens != usersvc.SignupGrant-cost || *recEnv.TokensUsed != cost {
		t.Fatalf("unexpected balance: %d/%d", *recEnv.Tokens, *recEnv.TokensUsed)
	}

	var listed []json.RawMessage
	status = doJSON(t, http.MethodGet, recordURL, token, nil, &listed)
	if status != http.StatusOK || len(listed) != 1 {
		t.Fatalf("list records: status %d, %d items", status, len(listed))
	}

	deleteURL := fmt.Sprintf("%s/api/v1/records/feedings/%s", srv.URL, recEnv.Entity.ID)
	status = doJSON(t, http.MethodDelete, deleteURL, token, nil, nil)
	if status != http.StatusNoContent {
		t.Fatalf("delete record: status %d", status)
	}
}

func TestSnapshotShape(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerUser(t, srv, "snap@example.com")

	var petEnv struct {
		Entity struct {
			ID string `json:"id"`
		} `json:"entity"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/pets", token, map[string]string{"name": "Rex"}, &petEnv)
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/v1/pets/%s/water", srv.URL, petEnv.Entity.ID), token,
		map[string]interface{}{"amount_ml": 200}, nil)

	var snap map[string]json.RawMessage
	status := doJSON(t, http.MethodGet, srv.URL+"/api/v1/sync/snapshot", token, nil, &snap)
	if status != http.StatusOK {
		t.Fatalf("snapshot: status %d", status)
	}
	for _, key := range []string{"user", "pets", "feedings", "water", "medications", "pain_scores",
		"seizures", "vitals", "movements", "appointments", "blood_sugar", "gallery", "tickets"} {
		if _, ok := snap[key]; !ok {
			t.Fatalf("snapshot missing %q", key)
		}
	}

	var water []json.RawMessage
	if err := json.Unmarshal(snap["water"], &water); err != nil {
		t.Fatalf("water collection: %v", err)
	}
	if len(water) != 1 {
		t.Fatalf("expected 1 water record, got %d", len(water))
	}
}

func TestRecordCreationRejectsNonObjectBody(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerUser(t, srv, "raw@example.com")

	var petEnv struct {
		Entity struct {
			ID string `json:"id"`
		} `json:"entity"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/pets", token, map[string]string{"name": "Rex"}, &petEnv)

	var errBody map[string]string
	status := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/v1/pets/%s/feedings", srv.URL, petEnv.Entity.ID),
		token, "just a string", &errBody)
	if status != http.StatusBadRequest {
		t.Fatalf("non-object body: got %d, want 400", status)
	}
	if errBody["error"] == "" {
		t.Fatal("error body missing message")
	}

	// the snapshot must stay serializable
	var snap map[string]json.RawMessage
	status = doJSON(t, http.MethodGet, srv.URL+"/api/v1/sync/snapshot", token, nil, &snap)
	if status != http.StatusOK {
		t.Fatalf("snapshot after rejected record: status %d", status)
	}
	var feedings []json.RawMessage
	if err := json.Unmarshal(snap["feedings"], &feedings); err != nil {
		t.Fatalf("feedings collection: %v", err)
	}
	if len(feedings) != 0 {
		t.Fatalf("rejected record leaked into the snapshot: %d", len(feedings))
	}
}

func TestRecordCreationInsufficientTokens(t *testing.T) {
	srv, store := newTestServer(t)
	token := registerUser(t, srv, "broke@example.com")

	var petEnv struct {
		Entity struct {
			ID string `json:"id"`
		} `json:"entity"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/pets", token, map[string]string{"name": "Rex"}, &petEnv)

	// drain the balance directly
	u, err := store.GetUserByEmail(context.Background(), "broke@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	u.Tokens = 0
	if _, err := store.UpdateUser(context.Background(), u); err != nil {
		t.Fatalf("drain: %v", err)
	}

	var errBody map[string]string
	status := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/v1/pets/%s/gallery", srv.URL, petEnv.Entity.ID),
		token, map[string]interface{}{"url": "x"}, &errBody)
	if status != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", status)
	}
	if errBody["error"] == "" {
		t.Fatal("error body missing message")
	}
}

func TestOwnershipEnforced(t *testing.T) {
	srv, _ := newTestServer(t)
	ownerToken := registerUser(t, srv, "owner@example.com")
	otherToken := registerUser(t, srv, "other@example.com")

	var petEnv struct {
		Entity struct {
			ID string `json:"id"`
		} `json:"entity"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/pets", ownerToken, map[string]string{"name": "Rex"}, &petEnv)

	status := doJSON(t, http.MethodGet, srv.URL+"/api/v1/pets/"+petEnv.Entity.ID, otherToken, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}
	status = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/pets/"+petEnv.Entity.ID, otherToken, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 on delete, got %d", status)
	}
}

func TestAdminRoutesRequireRole(t *testing.T) {
	srv, store := newTestServer(t)
	token := registerUser(t, srv, "plain@example.com")

	status := doJSON(t, http.MethodGet, srv.URL+"/api/v1/admin/users", token, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", status)
	}

	// promote and sign in again so the token carries the admin role
	u, err := store.GetUserByEmail(context.Background(), "plain@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	u.Role = user.RoleAdmin
	if _, err := store.UpdateUser(context.Background(), u); err != nil {
		t.Fatalf("promote: %v", err)
	}

	var pair auth.TokenPair
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "plain@example.com", "password": "secret123",
	}, &pair)

	var list []user.User
	status = doJSON(t, http.MethodGet, srv.URL+"/api/v1/admin/users", pair.AccessToken, nil, &list)
	if status != http.StatusOK {
		t.Fatalf("admin list: status %d", status)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 user, got %d", len(list))
	}

	var granted user.User
	status = doJSON(t, http.MethodPost, srv.URL+"/api/v1/admin/users/"+u.ID+"/tokens", pair.AccessToken,
		map[string]int64{"amount": 500}, &granted)
	if status != http.StatusOK {
		t.Fatalf("grant: status %d", status)
	}
	if granted.Tokens != usersvc.SignupGrant+500 {
		t.Fatalf("grant not applied: %d", granted.Tokens)
	}
}

func TestTicketFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerUser(t, srv, "tickets@example.com")

	var env struct {
		Entity struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"entity"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/tickets", token, map[string]string{
		"subject": "help", "body": "question",
	}, &env)
	if status != http.StatusCreated {
		t.Fatalf("create ticket: status %d", status)
	}
	if env.Entity.Status != "open" {
		t.Fatalf("unexpected status: %s", env.Entity.Status)
	}

	status = doJSON(t, http.MethodPatch, srv.URL+"/api/v1/tickets/"+env.Entity.ID, token,
		map[string]string{"status": "closed"}, &env)
	if status != http.StatusOK {
		t.Fatalf("close ticket: status %d", status)
	}
	if env.Entity.Status != "closed" {
		t.Fatalf("ticket not closed: %s", env.Entity.Status)
	}
}
