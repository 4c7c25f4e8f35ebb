package export

import (
	"errors"
	"fmt"
	"time"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/jgoulah/meterbook/internal/consumption"
)

// ErrNoData is returned when there is nothing to export
var ErrNoData = errors.New("not enough readings")

var monthsShort = []string{"Jan", "Feb", "Mär", "Apr", "Mai", "Jun", "Jul", "Aug", "Sep", "Okt", "Nov", "Dez"}

// monthLabel formats a timestamp like "Mär-24"
func monthLabel(ts int64) string {
	t := time.UnixMilli(ts).UTC()
	return fmt.Sprintf("%s-%02d", monthsShort[t.Month()-1], t.Year()%100)
}

// Chart renders the monthly rate and trend of every series as a PNG line chart
func Chart(rs *consumption.RateSeries) ([]byte, error) {
	if rs.Empty() {
		return nil, ErrNoData
	}

	labels := make([]string, 0, len(rs.Points))
	for _, p := range rs.Points {
		labels = append(labels, monthLabel(p.Timestamp))
	}

	values := make([][]float64, 0, len(rs.Series)*2)
	legendLabels := make([]string, 0, len(rs.Series)*2)

	for _, s := range rs.Series {
		rates := make([]float64, 0, len(rs.Points))
		trend := make([]float64, 0, len(rs.Points))
		for _, p := range rs.Points {
			v, ok := p.Values[s.Key]
			if !ok {
				rates = append(rates, charts.GetNullValue())
				trend = append(trend, charts.GetNullValue())
				continue
			}
			rates = append(rates, v.Rate)
			trend = append(trend, v.Trend)
		}

		values = append(values, rates, trend)
		legendLabels = append(legendLabels, s.DisplayKey, s.TrendKey)
	}

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc("Monatlicher Verbrauch"),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc(legendLabels, charts.PositionRight),
		charts.ThemeOptionFunc("light"),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(400),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("rendering rate chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding rate chart: %w", err)
	}

	return buf, nil
}
