package consumption

import (
	"math"
	"sort"

	"github.com/jgoulah/meterbook/pkg/models"
)

// RatePoint is the normalized monthly rate between two consecutive readings,
// stamped with the later reading's date
type RatePoint struct {
	Date      string  `json:"date"`
	Timestamp int64   `json:"timestamp"`
	Rate      float64 `json:"rate"`
}

// Value is one meter's contribution to a Point
type Value struct {
	Rate  float64 `json:"rate"`
	Trend float64 `json:"trend"`
}

// Point is one position on the shared date axis
type Point struct {
	Date      string             `json:"date"`
	Timestamp int64              `json:"timestamp"`
	Values    map[GroupKey]Value `json:"values"`
}

// Series describes one meter present in the points
type Series struct {
	Key        GroupKey    `json:"key"`
	DisplayKey string      `json:"display_key"`
	TrendKey   string      `json:"trend_key"`
	Color      string      `json:"color"`
	Dashed     bool        `json:"dashed"`
	Unit       models.Unit `json:"unit"`
}

// RateSeries is the merged rate and trend data of all selected meters
type RateSeries struct {
	Points []Point  `json:"points"`
	Series []Series `json:"series"`
}

// Empty reports whether no meter had two usable readings
func (rs *RateSeries) Empty() bool {
	return len(rs.Points) == 0
}

// BuildRateSeries computes rates and trends with DefaultOptions
func BuildRateSeries(readings []models.Reading, filter Filter) *RateSeries {
	return DefaultOptions.BuildRateSeries(readings, filter)
}

// BuildRateSeries groups the readings by meter, computes the monthly rate of every gap
// between consecutive readings, smooths it, and merges all meters onto one date axis.
func (o Options) BuildRateSeries(readings []models.Reading, filter Filter) *RateSeries {
	byTimestamp := make(map[int64]*Point)
	result := &RateSeries{Points: []Point{}, Series: []Series{}}

	for _, g := range groupReadings(readings, filter) {
		rates := o.monthlyRates(g.entries)
		if len(rates) == 0 {
			continue
		}
		trend := o.smoothTrend(rates)

		result.Series = append(result.Series, newSeries(g.key))

		for i, rp := range rates {
			p, ok := byTimestamp[rp.Timestamp]
			if !ok {
				p = &Point{Date: rp.Date, Timestamp: rp.Timestamp, Values: make(map[GroupKey]Value)}
				byTimestamp[rp.Timestamp] = p
			}
			p.Values[g.key] = Value{Rate: rp.Rate, Trend: trend[i]}
		}
	}

	for _, p := range byTimestamp {
		result.Points = append(result.Points, *p)
	}
	sort.Slice(result.Points, func(i, j int) bool {
		return result.Points[i].Timestamp < result.Points[j].Timestamp
	})
	sort.Slice(result.Series, func(i, j int) bool {
		return result.Series[i].Key.String() < result.Series[j].Key.String()
	})

	return result
}

// monthlyRates turns date-sorted readings into per-gap rates. Gaps of zero or negative
// length are skipped; negative consumption is passed through.
func (o Options) monthlyRates(entries []entry) []RatePoint {
	var points []RatePoint
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		days := float64(cur.ts-prev.ts) / msPerDay
		if days <= 0 {
			continue
		}
		consumption := cur.value - prev.value
		points = append(points, RatePoint{
			Date:      cur.date,
			Timestamp: cur.ts,
			Rate:      round2(consumption / days * o.DaysPerMonth),
		})
	}
	return points
}

// smoothTrend returns a time-weighted average over each point and its direct neighbours
func (o Options) smoothTrend(points []RatePoint) []float64 {
	n := len(points)
	trend := make([]float64, n)

	for i := range points {
		ts := float64(points[i].Timestamp)
		interior := i > 0 && i < n-1

		var weighted, total float64
		for j := max(0, i-1); j <= min(n-1, i+1); j++ {
			timeDist := math.Abs(float64(points[j].Timestamp) - ts)

			var maxDist float64
			if interior {
				maxDist = math.Max(
					math.Abs(float64(points[i-1].Timestamp)-ts),
					math.Abs(float64(points[i+1].Timestamp)-ts),
				)
			} else {
				maxDist = timeDist
				if maxDist == 0 {
					maxDist = 1
				}
			}

			weight := 1.0
			if maxDist > 0 {
				weight = 1 - timeDist/(maxDist*2)
			}
			weight = math.Max(weight, o.TrendWeightFloor)

			weighted += points[j].Rate * weight
			total += weight
		}
		trend[i] = round2(weighted / total)
	}

	return trend
}

func newSeries(key GroupKey) Series {
	return Series{
		Key:        key,
		DisplayKey: key.Label(),
		TrendKey:   key.Label() + " (Trend)",
		Color:      seriesColor(key),
		Dashed:     key.Unit == models.UnitGroundFloor,
		Unit:       key.Unit,
	}
}

func seriesColor(key GroupKey) string {
	if !key.Utility.Valid() {
		return "#888"
	}
	switch key.Unit {
	case models.UnitUpstairs:
		return "#dc2626"
	case models.UnitGroundFloor:
		return "#2563eb"
	default:
		return "#888"
	}
}
