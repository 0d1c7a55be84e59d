package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jisc/backend/internal/athletes"
	"go.uber.org/zap"
)

type createAthletePayload struct {
	UserID      string `json:"userId" binding:"required,uuid"`
	FullName    string `json:"fullName" binding:"required,min=1,max=100"`
	DateOfBirth string `json:"dateOfBirth" binding:"required"`
	CPF         string `json:"cpf" binding:"required,min=1,max=20"`
	Phone       string `json:"phone" binding:"required,min=1,max=20"`
}

type updateAthletePayload struct {
	FullName    string `json:"fullName" binding:"omitempty,min=1,max=100"`
	DateOfBirth string `json:"dateOfBirth" binding:"omitempty"`
	CPF         string `json:"cpf" binding:"omitempty,min=1,max=20"`
	Phone       string `json:"phone" binding:"omitempty,min=1,max=20"`
}

func parseDateOfBirth(value string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", value)
}

func (h *httpHandler) handleCreateAthlete(c *gin.Context) {
	var payload createAthletePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "Failed to create athlete", err.Error())
		return
	}

	dateOfBirth, err := parseDateOfBirth(payload.DateOfBirth)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Failed to create athlete", "valid date is required")
		return
	}

	athlete := &athletes.Athlete{
		UserID:      payload.UserID,
		FullName:    payload.FullName,
		DateOfBirth: dateOfBirth,
		CPF:         payload.CPF,
		Phone:       payload.Phone,
	}
	if err := h.athletes.Create(c.Request.Context(), athlete); err != nil {
		respondError(c, http.StatusBadRequest, "Failed to create athlete", err.Error())
		return
	}

	respond(c, http.StatusCreated, "Athlete created successfully", athlete)
}

func (h *httpHandler) handleListAthletes(c *gin.Context) {
	records, err := h.athletes.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list athletes", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch athletes", err.Error())
		return
	}
	respond(c, http.StatusOK, "Athletes fetched successfully", records)
}

func (h *httpHandler) handleGetAthlete(c *gin.Context) {
	id, ok := requireUUIDParam(c)
	if !ok {
		return
	}

	athlete, err := h.athletes.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, athletes.ErrAthleteNotFound) {
			respondError(c, http.StatusNotFound, "Athlete not found", "")
			return
		}
		h.logger.Error("failed to fetch athlete", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch athlete", err.Error())
		return
	}
	respond(c, http.StatusOK, "Athlete fetched successfully", athlete)
}

func (h *httpHandler) handleUpdateAthlete(c *gin.Context) {
	id, ok := requireUUIDParam(c)
	if !ok {
		return
	}

	var payload updateAthletePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "Failed to update athlete", err.Error())
		return
	}

	updates := map[string]interface{}{}
	if payload.FullName != "" {
		updates["full_name"] = payload.FullName
	}
	if payload.DateOfBirth != "" {
		dateOfBirth, err := parseDateOfBirth(payload.DateOfBirth)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Failed to update athlete", "valid date is required")
			return
		}
		updates["date_of_birth"] = dateOfBirth
	}
	if payload.CPF != "" {
		updates["cpf"] = payload.CPF
	}
	if payload.Phone != "" {
		updates["phone"] = payload.Phone
	}
	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "Failed to update athlete", "no fields to update")
		return
	}

	athlete, err := h.athletes.Update(c.Request.Context(), id, updates)
	if err != nil {
		if errors.Is(err, athletes.ErrAthleteNotFound) {
			respondError(c, http.StatusNotFound, "Athlete not found", "")
			return
		}
		respondError(c, http.StatusBadRequest, "Failed to update athlete", err.Error())
		return
	}
	respond(c, http.StatusOK, "Athlete updated successfully", athlete)
}

func (h *httpHandler) handleDeleteAthlete(c *gin.Context) {
	id, ok := requireUUIDParam(c)
	if !ok {
		return
	}

	athlete, err := h.athletes.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, athletes.ErrAthleteNotFound) {
			respondError(c, http.StatusNotFound, "Athlete not found", "")
			return
		}
		h.logger.Error("failed to delete athlete", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to delete athlete", err.Error())
		return
	}
	respond(c, http.StatusOK, "Athlete deleted successfully", athlete)
}
