package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultMagicTokenTTL   = 15 * time.Minute
	defaultSessionTokenTTL = 7 * 24 * time.Hour

	tokenUseMagic   = "magic_link"
	tokenUseSession = "session"
)

var (
	ErrMissingSigningSecret = errors.New("auth: signing secret required")
	ErrMissingIssuer        = errors.New("auth: issuer required")
	ErrMissingEmailClaim    = errors.New("auth: email claim required")
	ErrMissingSubjectClaim  = errors.New("auth: subject claim required")
	ErrInvalidToken         = errors.New("auth: invalid token")
	ErrExpiredToken         = errors.New("auth: token expired")
)

// SessionClaims is the payload carried by a bearer session token.
type SessionClaims struct {
	Email    string `json:"email"`
	TokenUse string `json:"use"`
	jwt.RegisteredClaims
}

// MagicClaims is the payload carried by a single-use magic-link token.
type MagicClaims struct {
	Email    string `json:"email"`
	TokenUse string `json:"use"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig configures signing and lifetimes for both token classes.
type TokenIssuerConfig struct {
	SigningSecret []byte
	Issuer        string
	MagicTTL      time.Duration
	SessionTTL    time.Duration
	Clock         func() time.Time
}

// TokenIssuer mints and verifies the two token classes the authentication
// flows rely on: short-lived magic-link tokens and longer-lived bearer
// session tokens. Both are HS256 JWTs, so verification needs no storage.
type TokenIssuer struct {
	signingSecret []byte
	issuer        string
	magicTTL      time.Duration
	sessionTTL    time.Duration
	clock         func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer with validated configuration.
func NewTokenIssuer(cfg TokenIssuerConfig) (*TokenIssuer, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, ErrMissingIssuer
	}
	magicTTL := cfg.MagicTTL
	if magicTTL <= 0 {
		magicTTL = defaultMagicTokenTTL
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenIssuer{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        issuer,
		magicTTL:      magicTTL,
		sessionTTL:    sessionTTL,
		clock:         clock,
	}, nil
}

// IssueMagicToken produces a signed single-use token for the address and the
// expiry it carries. Persisting the token onto the user is the caller's job.
func (i *TokenIssuer) IssueMagicToken(email string) (string, time.Time, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", time.Time{}, ErrMissingEmailClaim
	}

	now := i.clock().UTC()
	expiresAt := now.Add(i.magicTTL)

	claims := MagicClaims{
		Email:    email,
		TokenUse: tokenUseMagic,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// IssueSessionToken produces a signed bearer credential for the user.
func (i *TokenIssuer) IssueSessionToken(userID, email string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrMissingSubjectClaim
	}

	now := i.clock().UTC()
	claims := SessionClaims{
		Email:    email,
		TokenUse: tokenUseSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.sessionTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingSecret)
}

// VerifySessionToken checks signature and expiry of a bearer session token.
func (i *TokenIssuer) VerifySessionToken(tokenString string) (SessionClaims, error) {
	claims := &SessionClaims{}
	if err := i.parse(tokenString, claims); err != nil {
		return SessionClaims{}, err
	}
	if claims.TokenUse != tokenUseSession {
		return SessionClaims{}, fmt.Errorf("%w: wrong token use", ErrInvalidToken)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return SessionClaims{}, ErrMissingSubjectClaim
	}
	return *claims, nil
}

// VerifyMagicToken checks signature and expiry of a magic-link token and
// returns the email it was issued for.
func (i *TokenIssuer) VerifyMagicToken(tokenString string) (MagicClaims, error) {
	claims := &MagicClaims{}
	if err := i.parse(tokenString, claims); err != nil {
		return MagicClaims{}, err
	}
	if claims.TokenUse != tokenUseMagic {
		return MagicClaims{}, fmt.Errorf("%w: wrong token use", ErrInvalidToken)
	}
	if strings.TrimSpace(claims.Email) == "" {
		return MagicClaims{}, ErrMissingEmailClaim
	}
	return *claims, nil
}

func (i *TokenIssuer) parse(tokenString string, claims jwt.Claims) error {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("%w: unexpected signing algorithm %s", ErrInvalidToken, t.Method.Alg())
			}
			return i.signingSecret, nil
		},
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
