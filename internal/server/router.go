package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jisc/backend/internal/athletes"
	"github.com/jisc/backend/internal/auth"
	"github.com/jisc/backend/internal/users"
	"go.uber.org/zap"
)

const (
	userIDContextKey    = "jisc_user_id"
	userEmailContextKey = "jisc_user_email"
)

var (
	errMissingMagicLinkFlow  = errors.New("magic link flow dependency required")
	errMissingGoogleFlow     = errors.New("google flow dependency required")
	errMissingSessionTokens  = errors.New("session verifier dependency required")
	errMissingUserStore      = errors.New("user store dependency required")
	errMissingAthleteService = errors.New("athlete service dependency required")
)

// MagicLinkFlow drives passwordless sign-in.
type MagicLinkFlow interface {
	Request(ctx context.Context, email string) error
	Redeem(ctx context.Context, rawToken string) (string, *users.User, error)
}

// GoogleFlow drives the OAuth handshake with Google.
type GoogleFlow interface {
	NewState() (string, error)
	AuthCodeURL(state string) string
	Callback(ctx context.Context, code string) (string, *users.User, error)
}

// SessionVerifier validates bearer session tokens on protected routes.
type SessionVerifier interface {
	VerifySessionToken(token string) (auth.SessionClaims, error)
}

// Dependencies wires collaborators into the HTTP layer.
type Dependencies struct {
	MagicLink   MagicLinkFlow
	Google      GoogleFlow
	Sessions    SessionVerifier
	Users       *users.Store
	Athletes    *athletes.Service
	FrontendURL string
	Environment string
	Logger      *zap.Logger
}

// NewHTTPHandler assembles the gin router with all route groups attached.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.MagicLink == nil {
		return nil, errMissingMagicLinkFlow
	}
	if deps.Google == nil {
		return nil, errMissingGoogleFlow
	}
	if deps.Sessions == nil {
		return nil, errMissingSessionTokens
	}
	if deps.Users == nil {
		return nil, errMissingUserStore
	}
	if deps.Athletes == nil {
		return nil, errMissingAthleteService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		magicLink:   deps.MagicLink,
		google:      deps.Google,
		sessions:    deps.Sessions,
		users:       deps.Users,
		athletes:    deps.Athletes,
		frontendURL: strings.TrimSuffix(deps.FrontendURL, "/"),
		environment: deps.Environment,
		startedAt:   time.Now(),
		logger:      logger,
	}

	router.GET("/health", handler.handleHealth)
	router.GET("/status", handler.handleStatus)

	router.POST("/auth/magic-link", handler.handleMagicLinkRequest)
	router.GET("/auth/magic-link", handler.handleMagicLinkRedeem)
	router.GET("/auth/google", handler.handleGoogleRedirect)
	router.GET("/auth/google/callback", handler.handleGoogleCallback)
	router.POST("/auth/logout", handler.handleLogout)

	api := router.Group("/api")
	api.POST("/users", handler.handleCreateUser)
	api.GET("/users", handler.handleListUsers)
	api.GET("/users/:id", handler.handleGetUser)
	api.PUT("/users/:id", handler.authorizeRequest, handler.handleUpdateUser)
	api.DELETE("/users/:id", handler.authorizeRequest, handler.handleDeleteUser)

	api.POST("/athletes", handler.handleCreateAthlete)
	api.GET("/athletes", handler.handleListAthletes)
	api.GET("/athletes/:id", handler.handleGetAthlete)
	api.PUT("/athletes/:id", handler.authorizeRequest, handler.handleUpdateAthlete)
	api.DELETE("/athletes/:id", handler.authorizeRequest, handler.handleDeleteAthlete)

	router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "Route not found", "")
	})

	return router, nil
}

type httpHandler struct {
	magicLink   MagicLinkFlow
	google      GoogleFlow
	sessions    SessionVerifier
	users       *users.Store
	athletes    *athletes.Service
	frontendURL string
	environment string
	startedAt   time.Time
	logger      *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	respond(c, http.StatusOK, "Server is healthy", gin.H{
		"uptime":      time.Since(h.startedAt).Seconds(),
		"environment": h.environment,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *httpHandler) handleStatus(c *gin.Context) {
	respond(c, http.StatusOK, "Application is running", gin.H{
		"name":        "JISC Backend API",
		"version":     "1.0.0",
		"environment": h.environment,
	})
}

// authorizeRequest guards mutating routes with bearer session tokens. A
// missing credential and a bad credential get different statuses: 401 when
// nothing was presented, 403 when what was presented does not verify.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		abortError(c, http.StatusUnauthorized, "Access token required")
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		abortError(c, http.StatusUnauthorized, "Access token required")
		return
	}

	claims, err := h.sessions.VerifySessionToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			h.logger.Info("session token expired", zap.Error(err))
		} else {
			h.logger.Warn("session token validation failed", zap.Error(err))
		}
		abortError(c, http.StatusForbidden, "Invalid token")
		return
	}

	c.Set(userIDContextKey, claims.Subject)
	c.Set(userEmailContextKey, claims.Email)
	c.Next()
}
