package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jisc/backend/internal/auth"
	"go.uber.org/zap"
)

const oauthStateCookie = "oauth_state"

type magicLinkRequestPayload struct {
	Email string `json:"email" binding:"required,email"`
}

type redeemedSessionPayload struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

func (h *httpHandler) handleMagicLinkRequest(c *gin.Context) {
	var request magicLinkRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, http.StatusBadRequest, "Valid email is required", err.Error())
		return
	}

	if err := h.magicLink.Request(c.Request.Context(), request.Email); err != nil {
		h.logger.Error("magic link request failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to send magic link", err.Error())
		return
	}

	respond(c, http.StatusOK, "Magic link sent", nil)
}

func (h *httpHandler) handleMagicLinkRedeem(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		respondError(c, http.StatusBadRequest, "Token required", "")
		return
	}

	sessionToken, user, err := h.magicLink.Redeem(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidOrExpiredToken) {
			respondError(c, http.StatusBadRequest, "Invalid or expired token", "")
			return
		}
		h.logger.Error("magic link redemption failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Authentication failed", err.Error())
		return
	}

	respond(c, http.StatusOK, "Authenticated", redeemedSessionPayload{
		Token: sessionToken,
		User:  user,
	})
}

func (h *httpHandler) handleGoogleRedirect(c *gin.Context) {
	state, err := h.google.NewState()
	if err != nil {
		h.logger.Error("failed to generate oauth state", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to start Google sign-in", "")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
}

func (h *httpHandler) handleGoogleCallback(c *gin.Context) {
	failureURL := h.frontendURL + "/login"

	if providerErr := c.Query("error"); providerErr != "" {
		h.logger.Warn("google callback reported provider error", zap.String("error", providerErr))
		c.Redirect(http.StatusFound, failureURL)
		return
	}

	state := c.Query("state")
	cookieState, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != cookieState {
		h.logger.Warn("google callback state mismatch")
		c.Redirect(http.StatusFound, failureURL)
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, failureURL)
		return
	}

	sessionToken, _, err := h.google.Callback(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("google callback failed", zap.Error(err))
		c.Redirect(http.StatusFound, failureURL)
		return
	}

	c.Redirect(http.StatusFound, h.frontendURL+"/auth/callback?token="+url.QueryEscape(sessionToken))
}

// handleLogout is a stateless no-op: sessions are self-contained JWTs with no
// server-side revocation list, so invalidation is the client deleting its copy.
func (h *httpHandler) handleLogout(c *gin.Context) {
	respond(c, http.StatusOK, "Logged out", nil)
}
