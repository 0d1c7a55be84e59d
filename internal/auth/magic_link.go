package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jisc/backend/internal/users"
	"go.uber.org/zap"
)

var (
	// ErrDeliveryFailed indicates the sign-in email could not be handed to
	// the mail transport. The persisted token stays valid; the user recovers
	// by requesting a fresh link.
	ErrDeliveryFailed = errors.New("auth: magic link delivery failed")
	// ErrInvalidOrExpiredToken covers every redemption failure: bad
	// signature, past expiry, already consumed, superseded. Callers must not
	// tell these apart, so token guessing gets no feedback.
	ErrInvalidOrExpiredToken = errors.New("auth: invalid or expired magic link token")
)

// MagicLinkStore is the slice of user persistence the flow needs: email
// lookup plus the pending-token pair on the user record.
type MagicLinkStore interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	SetPendingMagicToken(ctx context.Context, id, token string, expiresAt time.Time) error
	ConsumePendingMagicToken(ctx context.Context, id, token string) (bool, error)
}

// Mailer delivers a single templated message. Success or failure only.
type Mailer interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// MagicLinkConfig wires the collaborators of the magic-link flow.
type MagicLinkConfig struct {
	Tokens      *TokenIssuer
	Resolver    *users.Resolver
	Store       MagicLinkStore
	Mailer      Mailer
	FrontendURL string
	Logger      *zap.Logger
	Clock       func() time.Time
}

// MagicLinkService orchestrates passwordless sign-in: it issues tokens,
// persists them on the user, mails the link, and redeems tokens exactly once.
type MagicLinkService struct {
	tokens      *TokenIssuer
	resolver    *users.Resolver
	store       MagicLinkStore
	mailer      Mailer
	frontendURL string
	logger      *zap.Logger
	clock       func() time.Time
}

// NewMagicLinkService constructs the flow with validated dependencies.
func NewMagicLinkService(cfg MagicLinkConfig) (*MagicLinkService, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("auth: token issuer required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("auth: user resolver required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("auth: user store required")
	}
	if cfg.Mailer == nil {
		return nil, fmt.Errorf("auth: mailer required")
	}
	frontendURL := strings.TrimSuffix(strings.TrimSpace(cfg.FrontendURL), "/")
	if frontendURL == "" {
		return nil, fmt.Errorf("auth: frontend url required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &MagicLinkService{
		tokens:      cfg.Tokens,
		resolver:    cfg.Resolver,
		store:       cfg.Store,
		mailer:      cfg.Mailer,
		frontendURL: frontendURL,
		logger:      logger,
		clock:       clock,
	}, nil
}

// Request issues a fresh magic-link token for the address and mails it.
// Any token still pending on the user is superseded, which is how "at most
// one live token per user" holds; resending is therefore always friction
// free. The user record is created on first contact.
func (s *MagicLinkService) Request(ctx context.Context, email string) error {
	user, err := s.resolver.ResolveOrCreate(ctx, users.Assertion{Email: email})
	if err != nil {
		return err
	}

	token, expiresAt, err := s.tokens.IssueMagicToken(user.Email)
	if err != nil {
		return err
	}

	if err := s.store.SetPendingMagicToken(ctx, user.ID, token, expiresAt); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/auth/magic-link?token=%s", s.frontendURL, url.QueryEscape(token))
	textBody := fmt.Sprintf("Click here to sign in: %s", link)
	htmlBody := fmt.Sprintf(`<p>Click <a href="%s">here</a> to sign in.</p>`, link)

	if err := s.mailer.Send(ctx, user.Email, "Your Magic Link", textBody, htmlBody); err != nil {
		s.logger.Error("magic link delivery failed",
			zap.String("email", user.Email),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	s.logger.Info("magic link sent", zap.String("email", user.Email))
	return nil
}

// Redeem verifies a raw magic-link token, consumes it, and returns a bearer
// session token with the authenticated user. The signed payload is checked
// first; the stored pending token is then cleared with a conditional update
// so that concurrent redemptions of the same token succeed at most once.
func (s *MagicLinkService) Redeem(ctx context.Context, rawToken string) (string, *users.User, error) {
	claims, err := s.tokens.VerifyMagicToken(rawToken)
	if err != nil {
		s.logger.Info("magic token verification failed", zap.Error(err))
		return "", nil, ErrInvalidOrExpiredToken
	}

	user, err := s.store.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return "", nil, ErrInvalidOrExpiredToken
		}
		return "", nil, err
	}

	// The stored expiry is re-checked independently of the signed one so a
	// token superseded and later restored by storage drift cannot outlive
	// its window.
	if user.PendingMagicToken == nil || user.PendingMagicExpiry == nil ||
		!user.PendingMagicExpiry.After(s.clock()) {
		return "", nil, ErrInvalidOrExpiredToken
	}

	consumed, err := s.store.ConsumePendingMagicToken(ctx, user.ID, rawToken)
	if err != nil {
		return "", nil, err
	}
	if !consumed {
		// Already redeemed or superseded by a newer link.
		return "", nil, ErrInvalidOrExpiredToken
	}

	sessionToken, err := s.tokens.IssueSessionToken(user.ID, user.Email)
	if err != nil {
		return "", nil, err
	}

	user.PendingMagicToken = nil
	user.PendingMagicExpiry = nil

	s.logger.Info("magic link redeemed", zap.String("user_id", user.ID))
	return sessionToken, user, nil
}
