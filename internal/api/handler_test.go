package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/meterbook/internal/consumption"
	"github.com/jgoulah/meterbook/internal/database"
	"github.com/jgoulah/meterbook/internal/logging"
	"github.com/jgoulah/meterbook/pkg/models"
)

// memStore is an in-memory ReadingStore
type memStore struct {
	readings []models.Reading
	nextID   int64
	failWith error
}

func (s *memStore) ListAll(ctx context.Context) ([]models.Reading, error) {
	return s.ListFiltered(ctx, 0, "")
}

func (s *memStore) ListFiltered(_ context.Context, unit models.Unit, utility models.Utility) ([]models.Reading, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	out := []models.Reading{}
	for _, r := range s.readings {
		if unit != 0 && r.Unit != unit {
			continue
		}
		if utility != "" && r.Utility != utility {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *memStore) Create(_ context.Context, in models.ReadingInput) (*models.Reading, error) {
	s.nextID++
	r := models.Reading{ID: s.nextID, Date: in.Date, Unit: in.Unit, Utility: in.Utility, Value: in.Value, CreatedAt: time.Now().UTC().Format(time.DateTime)}
	s.readings = append(s.readings, r)
	return &r, nil
}

func (s *memStore) Update(_ context.Context, id int64, in models.ReadingInput) (*models.Reading, error) {
	for i := range s.readings {
		if s.readings[i].ID == id {
			s.readings[i].Date = in.Date
			s.readings[i].Unit = in.Unit
			s.readings[i].Utility = in.Utility
			s.readings[i].Value = in.Value
			r := s.readings[i]
			return &r, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memStore) Delete(_ context.Context, id int64) (bool, error) {
	for i := range s.readings {
		if s.readings[i].ID == id {
			s.readings = append(s.readings[:i], s.readings[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func newTestRouter(store ReadingStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(store, consumption.DefaultOptions, logging.Nop(), "test")
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func seeded() *memStore {
	s := &memStore{}
	for _, in := range []models.ReadingInput{
		{Date: "2024-01-01", Unit: 1, Utility: models.Gas, Value: 100},
		{Date: "2024-02-01", Unit: 1, Utility: models.Gas, Value: 131},
		{Date: "2024-01-01", Unit: 2, Utility: models.Water, Value: 10},
		{Date: "2024-03-01", Unit: 2, Utility: models.Water, Value: 12},
	} {
		s.Create(context.Background(), in)
	}
	return s
}

func TestGetStatus(t *testing.T) {
	w := do(t, newTestRouter(&memStore{}), http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, w.Body.String())
}

func TestCreateReading(t *testing.T) {
	ts := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{"valid", `{"date":"2024-05-01","unit":1,"utility":"gas","value":12.5}`, http.StatusCreated, ""},
		{"zero value", `{"date":"2024-05-01","unit":2,"utility":"water","value":0}`, http.StatusCreated, ""},
		{"missing value", `{"date":"2024-05-01","unit":1,"utility":"gas"}`, http.StatusBadRequest, "Missing required fields"},
		{"missing date", `{"unit":1,"utility":"gas","value":1}`, http.StatusBadRequest, "Missing required fields"},
		{"bad unit", `{"date":"2024-05-01","unit":3,"utility":"gas","value":1}`, http.StatusBadRequest, "Unit must be 1 or 2"},
		{"bad utility", `{"date":"2024-05-01","unit":1,"utility":"oil","value":1}`, http.StatusBadRequest, "Invalid utility type"},
		{"bad date", `{"date":"01.05.2024","unit":1,"utility":"gas","value":1}`, http.StatusBadRequest, "Date must be YYYY-MM-DD"},
		{"not json", `{date`, http.StatusBadRequest, "Invalid JSON body"},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			w := do(t, newTestRouter(store), http.MethodPost, "/api/readings", tt.body)
			require.Equal(t, tt.code, w.Code, w.Body.String())

			if tt.message != "" {
				assert.Equal(t, tt.message, errorOf(t, w))
				assert.Empty(t, store.readings)
				return
			}

			var got models.Reading
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, int64(1), got.ID)
			assert.Equal(t, "2024-05-01", got.Date)
			assert.Len(t, store.readings, 1)
		})
	}
}

func TestListReadingsFilters(t *testing.T) {
	r := newTestRouter(seeded())

	var all []models.Reading
	w := do(t, r, http.MethodGet, "/api/readings", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 4)

	var water []models.Reading
	w = do(t, r, http.MethodGet, "/api/readings?utility=water", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &water))
	require.Len(t, water, 2)
	assert.Equal(t, models.UnitGroundFloor, water[0].Unit)

	w = do(t, r, http.MethodGet, "/api/readings?unit=7", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unit must be 1 or 2", errorOf(t, w))
}

func TestUpdateAndDeleteReading(t *testing.T) {
	store := seeded()
	r := newTestRouter(store)

	w := do(t, r, http.MethodPut, "/api/readings/2", `{"date":"2024-02-02","unit":1,"utility":"gas","value":140}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 140.0, store.readings[1].Value)

	w = do(t, r, http.MethodPut, "/api/readings/99", `{"date":"2024-02-02","unit":1,"utility":"gas","value":140}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Reading not found", errorOf(t, w))

	w = do(t, r, http.MethodPut, "/api/readings/abc", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodDelete, "/api/readings/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Len(t, store.readings, 3)

	w = do(t, r, http.MethodDelete, "/api/readings/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRates(t *testing.T) {
	r := newTestRouter(seeded())

	w := do(t, r, http.MethodGet, "/api/consumption/rates?utility=gas", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Points []struct {
			Date   string                       `json:"date"`
			Values map[string]consumption.Value `json:"values"`
		} `json:"points"`
		Series           []consumption.Series `json:"series"`
		Seasons          []consumption.Band   `json:"seasons"`
		InsufficientData bool                 `json:"insufficient_data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Len(t, body.Points, 1)
	assert.Equal(t, "2024-02-01", body.Points[0].Date)
	assert.Equal(t, consumption.Value{Rate: 30.44, Trend: 30.44}, body.Points[0].Values["1-gas"])
	require.Len(t, body.Series, 1)
	assert.Equal(t, "WG Oben – Gas", body.Series[0].DisplayKey)
	assert.False(t, body.InsufficientData)
	assert.NotNil(t, body.Seasons)
}

func TestGetRatesInsufficientData(t *testing.T) {
	w := do(t, newTestRouter(&memStore{}), http.MethodGet, "/api/consumption/rates", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"points":[],"series":[],"seasons":[],"insufficient_data":true}`, w.Body.String())
}

func TestGetYearly(t *testing.T) {
	store := &memStore{}
	for _, in := range []models.ReadingInput{
		{Date: "2023-12-01", Unit: 1, Utility: models.Gas, Value: 0},
		{Date: "2025-02-01", Unit: 1, Utility: models.Gas, Value: 428},
	} {
		store.Create(context.Background(), in)
	}
	r := newTestRouter(store)

	w := do(t, r, http.MethodGet, "/api/consumption/yearly", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rows":[{"year":2024,"values":{"1-gas":365}}],"group_keys":["1-gas"]}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/consumption/yearly?all=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	var table consumption.YearlyTable
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &table))
	assert.Len(t, table.Rows, 3)
}

func TestGetChart(t *testing.T) {
	w := do(t, newTestRouter(&memStore{}), http.MethodGet, "/api/consumption/chart.png", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not enough readings", errorOf(t, w))

	w = do(t, newTestRouter(seeded()), http.MethodGet, "/api/consumption/chart.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"))
}

func TestExport(t *testing.T) {
	w := do(t, newTestRouter(seeded()), http.MethodGet, "/api/export.xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "meterbook.xlsx")
	// xlsx files are zip archives
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))
}

func TestStoreFailureIsInternalError(t *testing.T) {
	store := &memStore{failWith: errors.New("disk on fire")}
	w := do(t, newTestRouter(store), http.MethodGet, "/api/readings", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", errorOf(t, w))
}
