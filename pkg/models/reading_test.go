package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingInputValidate(t *testing.T) {
	valid := ReadingInput{Date: "2024-02-29", Unit: UnitUpstairs, Utility: Gas, Value: 0}
	require.NoError(t, valid.Validate())

	ts := []struct {
		name    string
		mutate  func(*ReadingInput)
		field   string
		message string
	}{
		{"missing date", func(in *ReadingInput) { in.Date = "" }, "date", "Missing required fields"},
		{"bad date layout", func(in *ReadingInput) { in.Date = "29.02.2024" }, "date", "Date must be YYYY-MM-DD"},
		{"impossible date", func(in *ReadingInput) { in.Date = "2023-02-29" }, "date", "Date must be YYYY-MM-DD"},
		{"unit zero", func(in *ReadingInput) { in.Unit = 0 }, "unit", "Unit must be 1 or 2"},
		{"unit out of set", func(in *ReadingInput) { in.Unit = 3 }, "unit", "Unit must be 1 or 2"},
		{"utility out of set", func(in *ReadingInput) { in.Utility = "oil" }, "utility", "Invalid utility type"},
		{"utility wrong case", func(in *ReadingInput) { in.Utility = "Gas" }, "utility", "Invalid utility type"},
		{"negative value", func(in *ReadingInput) { in.Value = -0.01 }, "value", "Value must not be negative"},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			err := in.Validate()
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, tt.message, vErr.Message)
		})
	}
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit("2")
	require.NoError(t, err)
	assert.Equal(t, UnitGroundFloor, u)

	for _, s := range []string{"", "0", "3", "-1", "one"} {
		_, err := ParseUnit(s)
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr), s)
		assert.Equal(t, "Unit must be 1 or 2", vErr.Message)
		assert.Equal(t, s, vErr.Value)
	}
}

func TestParseUtility(t *testing.T) {
	for _, u := range Utilities {
		got, err := ParseUtility(string(u))
		require.NoError(t, err)
		assert.Equal(t, u, got)
	}

	_, err := ParseUtility("heat")
	assert.EqualError(t, err, "validation error for utility (heat): Invalid utility type")
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "WG Oben", UnitUpstairs.Label())
	assert.Equal(t, "EG Wohnung", UnitGroundFloor.Label())
	assert.Equal(t, "Wasser", Water.Label())
	assert.Equal(t, "Strom", Electricity.Label())
	assert.Equal(t, "m³", Gas.MeasurementUnit())
	assert.Equal(t, "kWh", Electricity.MeasurementUnit())
}

func TestReadingTime(t *testing.T) {
	got, err := Reading{Date: "2024-03-01"}.Time()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), got)
}
