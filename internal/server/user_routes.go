package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jisc/backend/internal/users"
	"go.uber.org/zap"
)

type createUserPayload struct {
	Name  string `json:"name" binding:"required,min=1,max=100"`
	Email string `json:"email" binding:"required,email,max=255"`
}

type updateUserPayload struct {
	Name  string `json:"name" binding:"omitempty,min=1,max=100"`
	Email string `json:"email" binding:"omitempty,email,max=255"`
}

func (h *httpHandler) handleCreateUser(c *gin.Context) {
	var payload createUserPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "Failed to create user", err.Error())
		return
	}

	user := &users.User{
		Name:  payload.Name,
		Email: payload.Email,
	}
	if err := h.users.Insert(c.Request.Context(), user); err != nil {
		respondError(c, http.StatusBadRequest, "Failed to create user", err.Error())
		return
	}

	respond(c, http.StatusCreated, "User created successfully", user)
}

func (h *httpHandler) handleListUsers(c *gin.Context) {
	records, err := h.users.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch users", err.Error())
		return
	}
	respond(c, http.StatusOK, "Users fetched successfully", records)
}

func (h *httpHandler) handleGetUser(c *gin.Context) {
	id, ok := requireUUIDParam(c)
	if !ok {
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found", "")
			return
		}
		h.logger.Error("failed to fetch user", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch user", err.Error())
		return
	}
	respond(c, http.StatusOK, "User fetched successfully", user)
}

func (h *httpHandler) handleUpdateUser(c *gin.Context) {
	id, ok := requireUUIDParam(c)
	if !ok {
		return
	}

	var payload updateUserPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "Failed to update user", err.Error())
		return
	}

	updates := map[string]interface{}{}
	if payload.Name != "" {
		updates["name"] = payload.Name
	}
	if payload.Email != "" {
		updates["email"] = users.NormalizeEmail(payload.Email)
	}
	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "Failed to update user", "no fields to update")
		return
	}

	user, err := h.users.Update(c.Request.Context(), id, updates)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found", "")
			return
		}
		respondError(c, http.StatusBadRequest, "Failed to update user", err.Error())
		return
	}
	respond(c, http.StatusOK, "User updated successfully", user)
}

func (h *httpHandler) handleDeleteUser(c *gin.Context) {
	id, ok := requireUUIDParam(c)
	if !ok {
		return
	}

	user, err := h.users.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found", "")
			return
		}
		h.logger.Error("failed to delete user", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to delete user", err.Error())
		return
	}
	respond(c, http.StatusOK, "User deleted successfully", user)
}

// requireUUIDParam validates the :id path parameter, responding 400 itself
// when the value is not a UUID.
func requireUUIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid ID format", "")
		return "", false
	}
	return id, true
}
