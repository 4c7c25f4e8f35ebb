package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jgoulah/meterbook/internal/consumption"
	"github.com/jgoulah/meterbook/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ratesResponse struct {
	*consumption.RateSeries
	Seasons          []consumption.Band `json:"seasons"`
	InsufficientData bool               `json:"insufficient_data"`
}

// GetRates returns monthly rates, trends and season bands for the selected meters
func (h *Handler) GetRates(c *gin.Context) {
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

	series := h.opts.BuildRateSeries(readings, filter)
	h.logger.LogDerivation("rates", len(readings), len(series.Series), len(series.Points))

	resp := ratesResponse{
		RateSeries:       series,
		Seasons:          []consumption.Band{},
		InsufficientData: series.Empty(),
	}
	if !series.Empty() {
		resp.Seasons = consumption.SeasonBands(series.Points[0].Timestamp, series.Points[len(series.Points)-1].Timestamp)
	}

	c.JSON(http.StatusOK, resp)
}

// GetYearly returns estimated consumption per calendar year. Years without any
// estimate are left out unless ?all=true.
func (h *Handler) GetYearly(c *gin.Context) {
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

	table := consumption.BuildYearlyTable(readings, filter)
	h.logger.LogDerivation("yearly", len(readings), len(table.GroupKeys), len(table.Rows))

	if c.Query("all") != "true" {
		table.Rows = table.NonEmptyRows()
	}
	c.JSON(http.StatusOK, table)
}

// GetChart renders the rate series as a PNG
func (h *Handler) GetChart(c *gin.Context) {
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

	png, err := export.Chart(h.opts.BuildRateSeries(readings, filter))
	if errors.Is(err, export.ErrNoData) {
		errorJSON(c, http.StatusNotFound, "Not enough readings")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// Export returns readings, rates and yearly totals as an Excel workbook
func (h *Handler) Export(c *gin.Context) {
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

	f, err := export.Workbook(readings, h.opts.BuildRateSeries(readings, filter), consumption.BuildYearlyTable(readings, filter))
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="meterbook.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
