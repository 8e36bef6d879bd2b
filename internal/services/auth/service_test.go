package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/igebriel/taskweave/internal/api"
	"github.com/igebriel/taskweave/internal/storage"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func setupStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func setupService(t *testing.T, handler http.HandlerFunc) (Service, *api.Client, *storage.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := setupStore(t)
	client := api.NewClient(srv.URL, api.WithStore(store))
	return NewService(client, store), client, store
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("Failed to encode response: %v", err)
	}
}

// ============================================================================
// LOGIN
// ============================================================================

func TestLoginStoresTokenAndUser(t *testing.T) {
	t.Parallel()

	svc, client, store := setupService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != "dev@example.com" {
			t.Errorf("Unexpected email: %q", creds["email"])
		}
		writeJSON(t, w, map[string]any{
			"success": true,
			"data": map[string]any{
				"token": "tok-123",
				"user":  map[string]string{"id": "u1", "email": "dev@example.com"},
			},
		})
	})

	user, err := svc.Login(context.Background(), "dev@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user == nil || user.ID != "u1" {
		t.Fatalf("Unexpected user: %+v", user)
	}
	if client.Token() != "tok-123" {
		t.Errorf("Expected token installed on client, got %q", client.Token())
	}

	found, err := store.Has(storage.KeyAuthUser)
	if err != nil || !found {
		t.Errorf("Expected user record persisted, found=%v err=%v", found, err)
	}
}

func TestLoginValidatesInput(t *testing.T) {
	t.Parallel()

	svc, _, _ := setupService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("No request should be made for invalid input")
	})

	if _, err := svc.Login(context.Background(), "", "pw"); !errors.Is(err, ErrEmptyEmail) {
		t.Errorf("Expected ErrEmptyEmail, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "a@b.c", ""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("Expected ErrEmptyPassword, got %v", err)
	}
}

func TestLoginWithoutToken(t *testing.T) {
	t.Parallel()

	svc, _, _ := setupService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"success": true, "data": map[string]any{}})
	})

	if _, err := svc.Login(context.Background(), "a@b.c", "pw"); !errors.Is(err, ErrMalformedLogin) {
		t.Errorf("Expected ErrMalformedLogin, got %v", err)
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	t.Parallel()

	svc, client, _ := setupService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(t, w, map[string]any{"success": false, "message": "Invalid credentials"})
	})

	_, err := svc.Login(context.Background(), "a@b.c", "wrong")
	apiErr, ok := api.AsError(err)
	if !ok || apiErr.Status != 401 {
		t.Fatalf("Expected 401 api error, got %v", err)
	}
	if apiErr.Message != "Invalid credentials" {
		t.Errorf("Expected server message passthrough, got %q", apiErr.Message)
	}
	if client.Token() != "" {
		t.Errorf("Expected no token after rejected login, got %q", client.Token())
	}
}

// ============================================================================
// LOGOUT
// ============================================================================

func TestLogoutClearsSession(t *testing.T) {
	t.Parallel()

	svc, client, store := setupService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"success": true})
	})
	client.SetToken("tok-123")
	_ = store.Set(storage.KeyAuthUser, map[string]string{"id": "u1"})

	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if client.Token() != "" {
		t.Errorf("Expected token cleared, got %q", client.Token())
	}
	if found, _ := store.Has(storage.KeyAuthUser); found {
		t.Error("Expected user record removed")
	}
}

func TestLogoutSurvivesNetworkFailure(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	client := api.NewClient("http://127.0.0.1:1", api.WithStore(store))
	client.SetToken("tok-123")
	svc := NewService(client, store)

	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("Expected local logout despite network failure, got %v", err)
	}
	if client.Token() != "" {
		t.Errorf("Expected token cleared, got %q", client.Token())
	}
}

// ============================================================================
// REFRESH / VALIDATE
// ============================================================================

func TestRefreshSwapsToken(t *testing.T) {
	t.Parallel()

	svc, client, _ := setupService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer old-token" {
			t.Errorf("Expected old token on refresh request, got %q", r.Header.Get("Authorization"))
		}
		writeJSON(t, w, map[string]any{"success": true, "data": map[string]string{"token": "new-token"}})
	})
	client.SetToken("old-token")

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if client.Token() != "new-token" {
		t.Errorf("Expected new token, got %q", client.Token())
	}
}

func TestRefreshWithoutSession(t *testing.T) {
	t.Parallel()

	svc, _, _ := setupService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("No request should be made without a session")
	})

	if err := svc.Refresh(context.Background()); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("Expected ErrNotSignedIn, got %v", err)
	}
}

func TestValidateExpiredSession(t *testing.T) {
	t.Parallel()

	svc, client, _ := setupService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(t, w, map[string]any{"success": false, "message": "Token expired"})
	})
	client.SetToken("stale")

	if err := svc.Validate(context.Background()); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("Expected ErrSessionInvalid, got %v", err)
	}
	// The transport client clears a 401-rejected token on its own
	if client.Token() != "" {
		t.Errorf("Expected token cleared after 401, got %q", client.Token())
	}
}

func TestValidateGoodSession(t *testing.T) {
	t.Parallel()

	svc, client, _ := setupService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"success": true})
	})
	client.SetToken("tok-123")

	if err := svc.Validate(context.Background()); err != nil {
		t.Errorf("Expected valid session, got %v", err)
	}
}

// ============================================================================
// CURRENT USER
// ============================================================================

func TestCurrentUserRoundTrip(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	svc := NewService(api.NewClient("http://unused"), store)

	if _, err := svc.CurrentUser(); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("Expected ErrNotSignedIn with empty store, got %v", err)
	}

	_ = store.Set(storage.KeyAuthUser, map[string]string{"id": "u1", "email": "dev@example.com"})
	user, err := svc.CurrentUser()
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if user.ID != "u1" || user.Email != "dev@example.com" {
		t.Errorf("Unexpected user: %+v", user)
	}
}
