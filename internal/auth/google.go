package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jisc/backend/internal/users"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	// ErrMissingEmail indicates the provider granted no email for the
	// account. Email is the identity join key, so the flow must abort
	// rather than create a user without one.
	ErrMissingEmail = errors.New("auth: provider returned no email")
	// ErrCodeExchangeFailed indicates the authorization code could not be
	// exchanged for an access token.
	ErrCodeExchangeFailed = errors.New("auth: authorization code exchange failed")
)

// GoogleConfig configures the Google OAuth callback flow. All provider
// parameters are explicit constructor inputs; nothing is registered globally.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Resolver     *users.Resolver
	Tokens       *TokenIssuer
	Logger       *zap.Logger
	HTTPClient   *http.Client
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
}

// GoogleService drives the authorization-code handshake with Google and turns
// the resulting profile into a canonical user plus a session token.
type GoogleService struct {
	oauth       *oauth2.Config
	resolver    *users.Resolver
	tokens      *TokenIssuer
	logger      *zap.Logger
	httpClient  *http.Client
	userInfoURL string
}

// NewGoogleService constructs the flow with validated configuration.
func NewGoogleService(cfg GoogleConfig) (*GoogleService, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, fmt.Errorf("auth: google client id and secret required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, fmt.Errorf("auth: google redirect url required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("auth: user resolver required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("auth: token issuer required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := strings.TrimSpace(cfg.UserInfoURL)
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}
	return &GoogleService{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     endpoint,
		},
		resolver:    cfg.Resolver,
		tokens:      cfg.Tokens,
		logger:      logger,
		httpClient:  httpClient,
		userInfoURL: userInfoURL,
	}, nil
}

// AuthCodeURL returns the provider consent-screen URL carrying the state.
func (s *GoogleService) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// NewState produces an unpredictable state value for CSRF protection.
func (s *GoogleService) NewState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Callback exchanges the authorization code, resolves the profile to a
// canonical user, and issues a bearer session token for it.
func (s *GoogleService) Callback(ctx context.Context, code string) (string, *users.User, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("google code exchange failed", zap.Error(err))
		return "", nil, fmt.Errorf("%w: %v", ErrCodeExchangeFailed, err)
	}

	profile, err := s.fetchProfile(ctx, token.AccessToken)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(profile.Email) == "" {
		return "", nil, ErrMissingEmail
	}

	user, err := s.resolver.ResolveOrCreate(ctx, users.Assertion{
		Provider:    users.ProviderGoogle,
		SubjectID:   profile.ID,
		Email:       profile.Email,
		DisplayName: profile.Name,
	})
	if err != nil {
		return "", nil, err
	}

	sessionToken, err := s.tokens.IssueSessionToken(user.ID, user.Email)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("google sign-in completed", zap.String("user_id", user.ID))
	return sessionToken, user, nil
}

type googleProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *GoogleService) fetchProfile(ctx context.Context, accessToken string) (*googleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: fetch google profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("auth: google userinfo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("auth: decode google profile: %w", err)
	}
	return &profile, nil
}
