package publisher

import (
	"sort"

	"github.com/jgoulah/meterbook/internal/consumption"
)

// GroupSummary is the latest known state of one meter
type GroupSummary struct {
	Key             consumption.GroupKey `json:"key"`
	Label           string               `json:"label"`
	MeasurementUnit string               `json:"unit_of_measurement"`
	Date            string               `json:"date,omitempty"`
	Rate            *float64             `json:"rate"`
	Trend           *float64             `json:"trend"`
	Year            int                  `json:"year,omitempty"`
	YearlyTotal     *float64             `json:"yearly_total"`
}

// Summary is what gets published for every meter
type Summary struct {
	Groups []GroupSummary `json:"groups"`
}

// BuildSummary picks the most recent rate, trend and available yearly total per meter
func BuildSummary(rs *consumption.RateSeries, table *consumption.YearlyTable) Summary {
	byKey := make(map[consumption.GroupKey]*GroupSummary)
	get := func(key consumption.GroupKey) *GroupSummary {
		gs, ok := byKey[key]
		if !ok {
			gs = &GroupSummary{
				Key:             key,
				Label:           key.Label(),
				MeasurementUnit: key.Utility.MeasurementUnit(),
			}
			byKey[key] = gs
		}
		return gs
	}

	for _, s := range rs.Series {
		gs := get(s.Key)
		for i := len(rs.Points) - 1; i >= 0; i-- {
			v, ok := rs.Points[i].Values[s.Key]
			if !ok {
				continue
			}
			gs.Date = rs.Points[i].Date
			gs.Rate = &v.Rate
			gs.Trend = &v.Trend
			break
		}
	}

	for _, key := range table.GroupKeys {
		gs := get(key)
		for i := len(table.Rows) - 1; i >= 0; i-- {
			if v, ok := table.Rows[i].Value(key); ok {
				gs.Year = table.Rows[i].Year
				gs.YearlyTotal = &v
				break
			}
		}
	}

	summary := Summary{Groups: make([]GroupSummary, 0, len(byKey))}
	for _, gs := range byKey {
		summary.Groups = append(summary.Groups, *gs)
	}
	sort.Slice(summary.Groups, func(i, j int) bool {
		return summary.Groups[i].Key.String() < summary.Groups[j].Key.String()
	})

	return summary
}
