package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jisc/backend/internal/users"
	"golang.org/x/oauth2"
)

type fakeGoogleProvider struct {
	server      *httptest.Server
	profile     map[string]string
	rejectCode  bool
	accessToken string
}

func newFakeGoogleProvider(t *testing.T) *fakeGoogleProvider {
	t.Helper()
	provider := &fakeGoogleProvider{
		profile:     map[string]string{},
		accessToken: "provider-access-token",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if provider.rejectCode {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": provider.accessToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(provider.profile)
	})
	provider.server = httptest.NewServer(mux)
	t.Cleanup(provider.server.Close)
	return provider
}

func newGoogleFixture(t *testing.T, provider *fakeGoogleProvider) (*GoogleService, *fakeUserStore) {
	t.Helper()

	store := newFakeUserStore()
	resolver, err := users.NewResolver(store)
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("google-flow-secret"),
		Issuer:        "jisc-api",
	})
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}

	service, err := NewGoogleService(GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
		Resolver:     resolver,
		Tokens:       issuer,
		Endpoint: oauth2.Endpoint{
			AuthURL:  provider.server.URL + "/auth",
			TokenURL: provider.server.URL + "/token",
		},
		UserInfoURL: provider.server.URL + "/userinfo",
	})
	if err != nil {
		t.Fatalf("failed to create google service: %v", err)
	}
	return service, store
}

func TestGoogleCallbackCreatesUserAndIssuesSession(t *testing.T) {
	provider := newFakeGoogleProvider(t)
	provider.profile = map[string]string{
		"id":    "google-subject-1",
		"email": "A@Example.com",
		"name":  "Ada Example",
	}
	service, store := newGoogleFixture(t, provider)

	sessionToken, user, err := service.Callback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("expected callback to succeed: %v", err)
	}
	if sessionToken == "" {
		t.Fatalf("expected session token")
	}
	if user.Email != "a@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Provider != users.ProviderGoogle {
		t.Fatalf("expected google provider, got %q", user.Provider)
	}
	if user.Name != "Ada Example" {
		t.Fatalf("expected display name from profile, got %q", user.Name)
	}

	stored, err := store.FindByEmail(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("expected user persisted: %v", err)
	}
	if stored.ID != user.ID {
		t.Fatalf("expected stable identity, got %q vs %q", stored.ID, user.ID)
	}
}

func TestGoogleCallbackFailsWithoutEmail(t *testing.T) {
	provider := newFakeGoogleProvider(t)
	provider.profile = map[string]string{
		"id":   "google-subject-2",
		"name": "No Email",
	}
	service, store := newGoogleFixture(t, provider)

	_, _, err := service.Callback(context.Background(), "auth-code")
	if !errors.Is(err, ErrMissingEmail) {
		t.Fatalf("expected missing email error, got %v", err)
	}
	if _, err := store.FindByEmail(context.Background(), ""); !errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("no user must be created without an email")
	}
}

func TestGoogleCallbackFailsOnRejectedCode(t *testing.T) {
	provider := newFakeGoogleProvider(t)
	provider.rejectCode = true
	service, _ := newGoogleFixture(t, provider)

	_, _, err := service.Callback(context.Background(), "bad-code")
	if !errors.Is(err, ErrCodeExchangeFailed) {
		t.Fatalf("expected code exchange failure, got %v", err)
	}
}

func TestGoogleAuthCodeURLCarriesState(t *testing.T) {
	provider := newFakeGoogleProvider(t)
	service, _ := newGoogleFixture(t, provider)

	state, err := service.NewState()
	if err != nil {
		t.Fatalf("unexpected state error: %v", err)
	}
	if state == "" {
		t.Fatalf("expected non-empty state")
	}

	authURL := service.AuthCodeURL(state)
	if !strings.Contains(authURL, "state="+state) {
		t.Fatalf("expected auth url to carry state, got %s", authURL)
	}
}
