package consumption

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/meterbook/pkg/models"
)

func years(table *YearlyTable) []int {
	var out []int
	for _, row := range table.Rows {
		out = append(out, row.Year)
	}
	return out
}

func TestBuildYearlyTableEmpty(t *testing.T) {
	table := BuildYearlyTable(nil, Filter{})
	assert.Empty(t, table.Rows)
	assert.Empty(t, table.GroupKeys)

	table = BuildYearlyTable([]models.Reading{
		reading(1, models.Gas, "2024-01-01", 0),
	}, Filter{Unit: 2})
	assert.Empty(t, table.Rows)
	assert.Empty(t, table.GroupKeys)
}

func TestBuildYearlyTableInterpolatesAcrossBoundaries(t *testing.T) {
	// One unit per day from 2023-12-01 to 2025-02-01 (428 days)
	table := BuildYearlyTable([]models.Reading{
		reading(1, models.Gas, "2023-12-01", 0),
		reading(1, models.Gas, "2025-02-01", 428),
	}, Filter{})

	key := GroupKey{Unit: 1, Utility: models.Gas}
	assert.Equal(t, []GroupKey{key}, table.GroupKeys)
	assert.Equal(t, []int{2023, 2024, 2025}, years(table))

	_, ok := table.Rows[0].Value(key)
	assert.False(t, ok, "2023 starts before the first reading")

	total, ok := table.Rows[1].Value(key)
	require.True(t, ok)
	assert.Equal(t, 365.0, total)

	_, ok = table.Rows[2].Value(key)
	assert.False(t, ok, "2025 ends after the last reading")
}

func TestBuildYearlyTableEndpointsAreExcluded(t *testing.T) {
	table := BuildYearlyTable([]models.Reading{
		reading(1, models.Gas, "2024-01-01", 0),
		reading(1, models.Gas, "2025-01-01", 366),
	}, Filter{})

	require.Equal(t, []int{2024, 2025}, years(table))
	for _, row := range table.Rows {
		assert.False(t, row.HasData(), "year %d", row.Year)
	}
	assert.Empty(t, table.NonEmptyRows())
}

func TestBuildYearlyTableGapYear(t *testing.T) {
	t.Run("bracketed", func(t *testing.T) {
		table := BuildYearlyTable([]models.Reading{
			reading(1, models.Water, "2023-06-01", 100),
			reading(1, models.Water, "2025-06-01", 100),
		}, Filter{})

		require.Equal(t, []int{2023, 2024, 2025}, years(table))
		total, ok := table.Rows[1].Value(GroupKey{Unit: 1, Utility: models.Water})
		require.True(t, ok)
		assert.Equal(t, 0.0, total)
		assert.Len(t, table.NonEmptyRows(), 1)
	})

	t.Run("not bracketed", func(t *testing.T) {
		table := BuildYearlyTable([]models.Reading{
			reading(1, models.Water, "2023-02-01", 0),
			reading(1, models.Water, "2023-10-01", 10),
			reading(2, models.Water, "2025-02-01", 0),
			reading(2, models.Water, "2025-10-01", 10),
		}, Filter{})

		require.Equal(t, []int{2023, 2024, 2025}, years(table))
		assert.Len(t, table.GroupKeys, 2)
		for _, row := range table.Rows {
			assert.Len(t, row.Values, 2)
			assert.False(t, row.HasData(), "year %d", row.Year)
		}
	})
}

func TestBuildYearlyTableGroupKeysSorted(t *testing.T) {
	table := BuildYearlyTable([]models.Reading{
		reading(2, models.Water, "2024-01-01", 0),
		reading(1, models.Gas, "2024-01-01", 0),
		reading(1, models.Electricity, "2024-01-01", 0),
	}, Filter{})

	var keys []string
	for _, k := range table.GroupKeys {
		keys = append(keys, k.String())
	}
	assert.Equal(t, []string{"1-electricity", "1-gas", "2-water"}, keys)
	assert.Equal(t, []int{2024}, years(table))
}

func TestInterpolateAt(t *testing.T) {
	readings := []models.Reading{
		reading(1, models.Gas, "2024-05-01", 100),
		reading(1, models.Gas, "2024-01-01", 0),
		reading(1, models.Gas, "2024-03-01", 60),
	}

	cases := []struct {
		date string
		want float64
		ok   bool
	}{
		{"2023-12-31", 0, false},
		{"2024-01-01", 0, false},
		{"2024-02-01", 31, true},
		{"2024-03-01", 60, true},
		{"2024-05-01", 0, false},
		{"2024-06-01", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.date, func(t *testing.T) {
			got, ok := InterpolateAt(readings, tc.date)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.InDelta(t, tc.want, got, 1e-9)
			}
		})
	}

	t.Run("multiple meters", func(t *testing.T) {
		mixed := append([]models.Reading{reading(2, models.Gas, "2024-02-01", 5)}, readings...)
		_, ok := InterpolateAt(mixed, "2024-02-01")
		assert.False(t, ok)
	})
}
