package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/jisc/backend/internal/athletes"
	"github.com/jisc/backend/internal/auth"
	"github.com/jisc/backend/internal/users"
	"gorm.io/gorm"
)

type stubMagicLinkFlow struct {
	requestErr   error
	redeemErr    error
	redeemToken  string
	redeemUser   *users.User
	requestedFor []string
}

func (s *stubMagicLinkFlow) Request(_ context.Context, email string) error {
	s.requestedFor = append(s.requestedFor, email)
	return s.requestErr
}

func (s *stubMagicLinkFlow) Redeem(context.Context, string) (string, *users.User, error) {
	if s.redeemErr != nil {
		return "", nil, s.redeemErr
	}
	return s.redeemToken, s.redeemUser, nil
}

type stubGoogleFlow struct {
	state        string
	stateErr     error
	callbackErr  error
	sessionToken string
	user         *users.User
}

func (s *stubGoogleFlow) NewState() (string, error) {
	if s.stateErr != nil {
		return "", s.stateErr
	}
	if s.state == "" {
		return "stub-state", nil
	}
	return s.state, nil
}

func (s *stubGoogleFlow) AuthCodeURL(state string) string {
	return "https://accounts.example.com/consent?state=" + state
}

func (s *stubGoogleFlow) Callback(context.Context, string) (string, *users.User, error) {
	if s.callbackErr != nil {
		return "", nil, s.callbackErr
	}
	return s.sessionToken, s.user, nil
}

type stubSessionVerifier struct {
	claims    auth.SessionClaims
	verifyErr error
}

func (s *stubSessionVerifier) VerifySessionToken(string) (auth.SessionClaims, error) {
	if s.verifyErr != nil {
		return auth.SessionClaims{}, s.verifyErr
	}
	return s.claims, nil
}

type routerFixture struct {
	handler   http.Handler
	magicLink *stubMagicLinkFlow
	google    *stubGoogleFlow
	sessions  *stubSessionVerifier
	users     *users.Store
	athletes  *athletes.Service
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	databasePath := filepath.Join(t.TempDir(), "server.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&users.User{}, &athletes.Athlete{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	userStore, err := users.NewStore(db)
	if err != nil {
		t.Fatalf("failed to create user store: %v", err)
	}
	athleteService, err := athletes.NewService(db)
	if err != nil {
		t.Fatalf("failed to create athlete service: %v", err)
	}

	fixture := &routerFixture{
		magicLink: &stubMagicLinkFlow{},
		google:    &stubGoogleFlow{},
		sessions: &stubSessionVerifier{
			claims: auth.SessionClaims{Email: "a@example.com"},
		},
		users:    userStore,
		athletes: athleteService,
	}

	handler, err := NewHTTPHandler(Dependencies{
		MagicLink:   fixture.magicLink,
		Google:      fixture.google,
		Sessions:    fixture.sessions,
		Users:       userStore,
		Athletes:    athleteService,
		FrontendURL: "http://localhost:3000",
		Environment: "test",
	})
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}
	fixture.handler = handler
	return fixture
}

func (f *routerFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response envelope: %v", err)
	}
	if body.Timestamp == "" {
		t.Fatalf("expected timestamp on every envelope")
	}
	return body
}
