package consumption

import (
	"fmt"
	"time"
)

// Season names a highlighted stretch of the year
type Season string

const (
	Winter Season = "winter"
	Summer Season = "summer"
)

// Band is a season range on the chart axis, in Unix milliseconds
type Band struct {
	Season Season `json:"season"`
	From   int64  `json:"from"`
	To     int64  `json:"to"`
	Color  string `json:"color"`
}

// SeasonBands returns the winter (Nov 1 - Feb 28) and summer (May 1 - Aug 31) bands
// overlapping [minTs, maxTs], clipped to that range
func SeasonBands(minTs, maxTs int64) []Band {
	bands := []Band{}
	if maxTs < minTs {
		return bands
	}

	startYear := yearOf(minTs) - 1
	endYear := yearOf(maxTs) + 1

	for y := startYear; y <= endYear; y++ {
		candidates := []Band{
			{
				Season: Winter,
				From:   mustTimestamp(y, time.November, 1),
				To:     mustTimestamp(y+1, time.February, 28),
				Color:  "rgba(191, 219, 254, 0.35)",
			},
			{
				Season: Summer,
				From:   mustTimestamp(y, time.May, 1),
				To:     mustTimestamp(y, time.August, 31),
				Color:  "rgba(253, 224, 171, 0.35)",
			},
		}
		for _, b := range candidates {
			if b.To < minTs || b.From > maxTs {
				continue
			}
			b.From = max(b.From, minTs)
			b.To = min(b.To, maxTs)
			bands = append(bands, b)
		}
	}

	return bands
}

func mustTimestamp(year int, month time.Month, day int) int64 {
	ts, ok := timestamp(fmt.Sprintf("%04d-%02d-%02d", year, int(month), day))
	if !ok {
		panic(fmt.Sprintf("invalid season boundary %d-%d-%d", year, month, day))
	}
	return ts
}
