package consumption

import (
	"fmt"

	"github.com/jgoulah/meterbook/pkg/models"
)

// YearlyRow holds the estimated consumption of one calendar year per meter.
// A nil value means the year could not be interpolated for that meter.
type YearlyRow struct {
	Year   int                   `json:"year"`
	Values map[GroupKey]*float64 `json:"values"`
}

// Value returns the total for key and whether it is available
func (r YearlyRow) Value(key GroupKey) (float64, bool) {
	v := r.Values[key]
	if v == nil {
		return 0, false
	}
	return *v, true
}

// HasData reports whether any meter has a total for the year
func (r YearlyRow) HasData() bool {
	for _, v := range r.Values {
		if v != nil {
			return true
		}
	}
	return false
}

// YearlyTable is one row per year from the earliest to the latest reading
type YearlyTable struct {
	Rows      []YearlyRow `json:"rows"`
	GroupKeys []GroupKey  `json:"group_keys"`
}

// NonEmptyRows returns the rows where at least one meter has a total
func (t *YearlyTable) NonEmptyRows() []YearlyRow {
	rows := []YearlyRow{}
	for _, row := range t.Rows {
		if row.HasData() {
			rows = append(rows, row)
		}
	}
	return rows
}

// BuildYearlyTable estimates each meter's consumption per calendar year as the difference
// of the interpolated meter values on Jan 1 and Dec 31. Years that cannot be bracketed by
// readings are reported as unavailable; the table never extrapolates.
func BuildYearlyTable(readings []models.Reading, filter Filter) *YearlyTable {
	table := &YearlyTable{Rows: []YearlyRow{}, GroupKeys: []GroupKey{}}

	groups := groupReadings(readings, filter)
	if len(groups) == 0 {
		return table
	}

	sorted := make(map[GroupKey][]entry, len(groups))
	minYear, maxYear := 0, 0
	for i, g := range groups {
		table.GroupKeys = append(table.GroupKeys, g.key)
		sorted[g.key] = g.entries

		first := yearOf(g.entries[0].ts)
		last := yearOf(g.entries[len(g.entries)-1].ts)
		if i == 0 || first < minYear {
			minYear = first
		}
		if i == 0 || last > maxYear {
			maxYear = last
		}
	}
	sortKeys(table.GroupKeys)

	for y := minYear; y <= maxYear; y++ {
		startDate := fmt.Sprintf("%04d-01-01", y)
		endDate := fmt.Sprintf("%04d-12-31", y)
		row := YearlyRow{Year: y, Values: make(map[GroupKey]*float64, len(table.GroupKeys))}

		for _, key := range table.GroupKeys {
			startVal, okStart := interpolateAt(sorted[key], startDate)
			endVal, okEnd := interpolateAt(sorted[key], endDate)
			if okStart && okEnd {
				total := round2(endVal - startVal)
				row.Values[key] = &total
			} else {
				row.Values[key] = nil
			}
		}

		table.Rows = append(table.Rows, row)
	}

	return table
}

// InterpolateAt estimates the cumulative meter value on date (YYYY-MM-DD) from the readings
// of a single meter. It reports false on or outside the first and last reading dates, and
// when the readings span more than one meter.
func InterpolateAt(readings []models.Reading, date string) (float64, bool) {
	groups := groupReadings(readings, Filter{})
	if len(groups) != 1 {
		return 0, false
	}
	return interpolateAt(groups[0].entries, date)
}

func interpolateAt(entries []entry, target string) (float64, bool) {
	if len(entries) == 0 {
		return 0, false
	}
	if target <= entries[0].date || target >= entries[len(entries)-1].date {
		return 0, false
	}
	dt, ok := timestamp(target)
	if !ok {
		return 0, false
	}

	for i := 0; i < len(entries)-1; i++ {
		lo, hi := entries[i], entries[i+1]
		if lo.date <= target && hi.date >= target {
			ratio := float64(dt-lo.ts) / float64(hi.ts-lo.ts)
			return lo.value + ratio*(hi.value-lo.value), true
		}
	}
	return 0, false
}
