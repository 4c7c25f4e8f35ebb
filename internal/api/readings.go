package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jgoulah/meterbook/internal/database"
	"github.com/jgoulah/meterbook/pkg/models"
)

// readingRequest distinguishes missing fields from zero values
type readingRequest struct {
	Date    *string  `json:"date"`
	Unit    *int     `json:"unit"`
	Utility *string  `json:"utility"`
	Value   *float64 `json:"value"`
}

func (r readingRequest) toInput() (models.ReadingInput, error) {
	if r.Date == nil || *r.Date == "" || r.Unit == nil || *r.Unit == 0 || r.Utility == nil || *r.Utility == "" || r.Value == nil {
		return models.ReadingInput{}, &models.ValidationError{Field: "body", Message: "Missing required fields"}
	}

	input := models.ReadingInput{
		Date:    *r.Date,
		Unit:    models.Unit(*r.Unit),
		Utility: models.Utility(*r.Utility),
		Value:   *r.Value,
	}
	return input, input.Validate()
}

func bindInput(c *gin.Context) (models.ReadingInput, error) {
	var req readingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return models.ReadingInput{}, &models.ValidationError{Field: "body", Message: "Invalid JSON body"}
	}
	return req.toInput()
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		errorJSON(c, http.StatusBadRequest, "Invalid reading id")
		return 0, false
	}
	return id, true
}

// ListReadings returns all readings, or those matching ?unit= and ?utility=
func (h *Handler) ListReadings(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	readings, err := h.loadReadings(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, readings)
}

// CreateReading stores a new reading
func (h *Handler) CreateReading(c *gin.Context) {
	input, err := bindInput(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	reading, err := h.store.Create(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.LogStorageOperation("create", reading.ID)
	c.JSON(http.StatusCreated, reading)
}

// UpdateReading replaces an existing reading
func (h *Handler) UpdateReading(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	input, err := bindInput(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	reading, err := h.store.Update(c.Request.Context(), id, input)
	if errors.Is(err, database.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "Reading not found")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.LogStorageOperation("update", id)
	c.JSON(http.StatusOK, reading)
}

// DeleteReading removes a reading
func (h *Handler) DeleteReading(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	deleted, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !deleted {
		errorJSON(c, http.StatusNotFound, "Reading not found")
		return
	}

	h.logger.LogStorageOperation("delete", id)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
