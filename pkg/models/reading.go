package models

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the storage format of a reading date
const DateLayout = "2006-01-02"

// Unit identifies a housing unit
type Unit int

const (
	UnitUpstairs    Unit = 1
	UnitGroundFloor Unit = 2
)

// Units lists every known housing unit
var Units = []Unit{UnitUpstairs, UnitGroundFloor}

// Valid reports whether u is one of the known housing units
func (u Unit) Valid() bool {
	return u == UnitUpstairs || u == UnitGroundFloor
}

// Label returns the display name of the unit
func (u Unit) Label() string {
	switch u {
	case UnitUpstairs:
		return "WG Oben"
	case UnitGroundFloor:
		return "EG Wohnung"
	default:
		return "Unit " + strconv.Itoa(int(u))
	}
}

// ParseUnit parses a unit number such as "1"
func ParseUnit(s string) (Unit, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !Unit(n).Valid() {
		return 0, &ValidationError{Field: "unit", Value: s, Message: "Unit must be 1 or 2"}
	}
	return Unit(n), nil
}

// Utility is the metered commodity
type Utility string

const (
	Gas         Utility = "gas"
	Water       Utility = "water"
	Electricity Utility = "electricity"
)

// Utilities lists every known utility type
var Utilities = []Utility{Gas, Water, Electricity}

// Valid reports whether u is one of the known utility types
func (u Utility) Valid() bool {
	switch u {
	case Gas, Water, Electricity:
		return true
	}
	return false
}

// Label returns the display name of the utility
func (u Utility) Label() string {
	switch u {
	case Gas:
		return "Gas"
	case Water:
		return "Wasser"
	case Electricity:
		return "Strom"
	default:
		return string(u)
	}
}

// MeasurementUnit returns the unit the meter counts in
func (u Utility) MeasurementUnit() string {
	switch u {
	case Gas, Water:
		return "m³"
	case Electricity:
		return "kWh"
	default:
		return ""
	}
}

// ParseUtility parses a utility name such as "gas"
func ParseUtility(s string) (Utility, error) {
	u := Utility(s)
	if !u.Valid() {
		return "", &ValidationError{Field: "utility", Value: s, Message: "Invalid utility type"}
	}
	return u, nil
}

// Reading is one cumulative meter observation
type Reading struct {
	ID        int64   `json:"id"`
	Date      string  `json:"date"` // YYYY-MM-DD
	Unit      Unit    `json:"unit"`
	Utility   Utility `json:"utility"`
	Value     float64 `json:"value"` // Cumulative meter value
	CreatedAt string  `json:"created_at"`
}

// Time returns the reading date at UTC midnight
func (r Reading) Time() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}

// ReadingInput holds the user-supplied fields of a reading
type ReadingInput struct {
	Date    string  `json:"date"`
	Unit    Unit    `json:"unit"`
	Utility Utility `json:"utility"`
	Value   float64 `json:"value"`
}

// Validate checks the input against the closed unit and utility sets
func (in ReadingInput) Validate() error {
	if in.Date == "" {
		return &ValidationError{Field: "date", Message: "Missing required fields"}
	}
	if _, err := time.Parse(DateLayout, in.Date); err != nil {
		return &ValidationError{Field: "date", Value: in.Date, Message: "Date must be YYYY-MM-DD"}
	}
	if !in.Unit.Valid() {
		return &ValidationError{Field: "unit", Value: strconv.Itoa(int(in.Unit)), Message: "Unit must be 1 or 2"}
	}
	if !in.Utility.Valid() {
		return &ValidationError{Field: "utility", Value: string(in.Utility), Message: "Invalid utility type"}
	}
	if in.Value < 0 {
		return &ValidationError{Field: "value", Value: strconv.FormatFloat(in.Value, 'f', -1, 64), Message: "Value must not be negative"}
	}
	return nil
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation error for %s (%s): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}
