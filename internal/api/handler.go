package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jgoulah/meterbook/internal/consumption"
	"github.com/jgoulah/meterbook/internal/logging"
	"github.com/jgoulah/meterbook/pkg/models"
)

// ReadingStore is the record store behind the API
type ReadingStore interface {
	ListAll(ctx context.Context) ([]models.Reading, error)
	ListFiltered(ctx context.Context, unit models.Unit, utility models.Utility) ([]models.Reading, error)
	Create(ctx context.Context, input models.ReadingInput) (*models.Reading, error)
	Update(ctx context.Context, id int64, input models.ReadingInput) (*models.Reading, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Handler serves the readings and consumption endpoints
type Handler struct {
	store   ReadingStore
	opts    consumption.Options
	logger  *logging.Logger
	version string
}

// NewHandler creates an API handler
func NewHandler(store ReadingStore, opts consumption.Options, logger *logging.Logger, version string) *Handler {
	return &Handler{
		store:   store,
		opts:    opts,
		logger:  logger.WithComponent("api"),
		version: version,
	}
}

// RegisterRoutes registers the API routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/status", h.GetStatus)

	router.GET("/readings", h.ListReadings)
	router.POST("/readings", h.CreateReading)
	router.PUT("/readings/:id", h.UpdateReading)
	router.DELETE("/readings/:id", h.DeleteReading)

	router.GET("/consumption/rates", h.GetRates)
	router.GET("/consumption/yearly", h.GetYearly)
	router.GET("/consumption/chart.png", h.GetChart)

	router.GET("/export.xlsx", h.Export)
}

// GetStatus reports liveness
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

func errorJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// fail maps an error to a response; validation errors are the client's fault
func (h *Handler) fail(c *gin.Context, err error) {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		errorJSON(c, http.StatusBadRequest, vErr.Message)
		return
	}
	h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	errorJSON(c, http.StatusInternalServerError, "Internal server error")
}

// parseFilter reads the optional unit and utility query parameters
func parseFilter(c *gin.Context) (consumption.Filter, error) {
	var f consumption.Filter
	if s := c.Query("unit"); s != "" {
		unit, err := models.ParseUnit(s)
		if err != nil {
			return f, err
		}
		f.Unit = unit
	}
	if s := c.Query("utility"); s != "" {
		utility, err := models.ParseUtility(s)
		if err != nil {
			return f, err
		}
		f.Utility = utility
	}
	return f, nil
}

// loadReadings fetches the readings selected by the filter
func (h *Handler) loadReadings(ctx context.Context, f consumption.Filter) ([]models.Reading, error) {
	if f.Unit == 0 && f.Utility == "" {
		return h.store.ListAll(ctx)
	}
	return h.store.ListFiltered(ctx, f.Unit, f.Utility)
}
