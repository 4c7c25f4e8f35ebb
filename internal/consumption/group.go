// Package consumption derives consumption analytics from cumulative meter readings.
//
// Everything here is a pure projection of the readings passed in: nothing is cached and no
// function returns an error. Readings whose date cannot be parsed are ignored.
package consumption

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/meterbook/pkg/models"
)

const msPerDay = 86400000

// Options holds the tunable constants of the derivation
type Options struct {
	DaysPerMonth     float64 // Average month length used to normalize rates
	TrendWeightFloor float64 // Minimum weight of a trend window member
}

// DefaultOptions are the constants the charts were calibrated with
var DefaultOptions = Options{
	DaysPerMonth:     30.4375,
	TrendWeightFloor: 0.1,
}

// Filter restricts the readings considered. Zero values match everything.
type Filter struct {
	Unit    models.Unit
	Utility models.Utility
}

func (f Filter) matches(r models.Reading) bool {
	if f.Unit != 0 && r.Unit != f.Unit {
		return false
	}
	if f.Utility != "" && r.Utility != f.Utility {
		return false
	}
	return true
}

// GroupKey identifies the readings of one meter
type GroupKey struct {
	Unit    models.Unit
	Utility models.Utility
}

// String returns the key as "<unit>-<utility>", e.g. "1-gas"
func (k GroupKey) String() string {
	return strconv.Itoa(int(k.Unit)) + "-" + string(k.Utility)
}

// MarshalText lets GroupKey be used as a JSON object key
func (k GroupKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the "<unit>-<utility>" form
func (k *GroupKey) UnmarshalText(text []byte) error {
	unitStr, utility, ok := strings.Cut(string(text), "-")
	if !ok {
		return fmt.Errorf("invalid group key %q", text)
	}
	unit, err := strconv.Atoi(unitStr)
	if err != nil {
		return fmt.Errorf("invalid group key %q: %w", text, err)
	}
	k.Unit = models.Unit(unit)
	k.Utility = models.Utility(utility)
	return nil
}

// Label returns "<unit label> – <utility label>"
func (k GroupKey) Label() string {
	return k.Unit.Label() + " – " + k.Utility.Label()
}

// entry is a reading with its parsed timestamp
type entry struct {
	date  string
	ts    int64 // Unix milliseconds at UTC midnight
	value float64
}

// group is the readings of one meter, sorted ascending by date
type group struct {
	key     GroupKey
	entries []entry
}

// groupReadings partitions the matching readings by meter. Groups come back in order of
// first occurrence; entries are stably sorted by date so equal dates keep input order.
func groupReadings(readings []models.Reading, filter Filter) []*group {
	index := make(map[GroupKey]*group)
	var groups []*group

	for _, r := range readings {
		if !filter.matches(r) {
			continue
		}
		t, err := r.Time()
		if err != nil {
			continue
		}

		key := GroupKey{Unit: r.Unit, Utility: r.Utility}
		g, ok := index[key]
		if !ok {
			g = &group{key: key}
			index[key] = g
			groups = append(groups, g)
		}
		g.entries = append(g.entries, entry{date: r.Date, ts: t.UnixMilli(), value: r.Value})
	}

	for _, g := range groups {
		sort.SliceStable(g.entries, func(i, j int) bool {
			return g.entries[i].date < g.entries[j].date
		})
	}

	return groups
}

func sortKeys(keys []GroupKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}

// round2 rounds to two decimals, halves away from zero
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func timestamp(date string) (int64, bool) {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}

func yearOf(ts int64) int {
	return time.UnixMilli(ts).UTC().Year()
}
