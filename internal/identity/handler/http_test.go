package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"storefront/backend/internal/identity/service"
	"storefront/backend/internal/kvstore"
	"storefront/backend/internal/security"
	"storefront/backend/internal/server/middleware"
	sessionsvc "storefront/backend/internal/session/service"
	userrepo "storefront/backend/internal/user/repository"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := kvstore.NewMemory()
	sessions := sessionsvc.NewManager(store, sessionsvc.Config{})
	t.Cleanup(func() { _ = sessions.Clear(context.Background()) })
	tokens, err := security.NewEphemeralTokenProvider("test-issuer", "test-audience", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewEphemeralTokenProvider: %v", err)
	}
	svc := service.NewAuthService(userrepo.NewMemoryRepository(), sessions, store, security.NewHasher(bcrypt.MinCost), tokens)

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		NewHandler(svc).Routes(r, middleware.Auth(tokens, sessions))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, url, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type authResponse struct {
	AccessToken string         `json:"accessToken"`
	DeviceID    string         `json:"deviceId"`
	User        map[string]any `json:"user"`
}

func TestRegisterLoginMeLogout(t *testing.T) {
	srv := newTestServer(t)
	body := map[string]string{"name": "Amira", "email": "amira@example.com", "password": "s3cretpass"}

	resp := do(t, http.MethodPost, srv.URL+"/v1/auth/register", "", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}
	var reg authResponse
	_ = json.NewDecoder(resp.Body).Decode(&reg)
	if reg.AccessToken == "" || reg.DeviceID == "" {
		t.Fatalf("register response = %+v", reg)
	}
	if _, ok := reg.User["passwordHash"]; ok {
		t.Error("password hash leaked")
	}

	if resp := do(t, http.MethodPost, srv.URL+"/v1/auth/register", "", body); resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register: status %d, want 409", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, srv.URL+"/v1/auth/login", "", map[string]string{"email": "amira@example.com", "password": "s3cretpass"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}
	var login authResponse
	_ = json.NewDecoder(resp.Body).Decode(&login)

	resp = do(t, http.MethodGet, srv.URL+"/v1/auth/me", login.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: status %d", resp.StatusCode)
	}
	var me map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&me)
	if me["email"] != "amira@example.com" {
		t.Errorf("me email = %v", me["email"])
	}

	if resp := do(t, http.MethodPost, srv.URL+"/v1/auth/logout", login.AccessToken, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: status %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, srv.URL+"/v1/auth/me", login.AccessToken, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("me after logout: status %d, want 401", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	do(t, http.MethodPost, srv.URL+"/v1/auth/register", "", map[string]string{"name": "A", "email": "a@example.com", "password": "s3cretpass"})
	resp := do(t, http.MethodPost, srv.URL+"/v1/auth/login", "", map[string]string{"email": "a@example.com", "password": "nope12345"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status %d, want 401", resp.StatusCode)
	}
}

func TestRegisterAdminForbidden(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/v1/auth/register", "",
		map[string]string{"name": "A", "email": "a@example.com", "password": "s3cretpass", "role": "admin"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status %d, want 403", resp.StatusCode)
	}
}

func TestUpdateProfile(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/v1/auth/register", "", map[string]string{"name": "A", "email": "a@example.com", "password": "s3cretpass"})
	var reg authResponse
	_ = json.NewDecoder(resp.Body).Decode(&reg)

	resp = do(t, http.MethodPatch, srv.URL+"/v1/auth/profile", reg.AccessToken, map[string]string{"name": "Amira"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var u map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&u)
	if u["name"] != "Amira" {
		t.Errorf("name = %v", u["name"])
	}
	if resp := do(t, http.MethodPatch, srv.URL+"/v1/auth/profile", "", map[string]string{"name": "X"}); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", resp.StatusCode)
	}
}
