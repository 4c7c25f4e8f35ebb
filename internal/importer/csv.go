package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/meterbook/pkg/models"
)

// RowError describes a data row that could not be imported
type RowError struct {
	Row    int // 1-based record number, header included
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Result holds the importable readings and the rejected rows
type Result struct {
	Inputs []models.ReadingInput
	Errors []RowError
}

// ParseCSV reads readings from a CSV file with a header row naming the
// date, unit, utility and value columns in any order
func ParseCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	dateCol, unitCol, utilityCol, valueCol := -1, -1, -1, -1
	for i, col := range header {
		colLower := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		switch {
		case dateCol == -1 && (strings.Contains(colLower, "date") || colLower == "datum"):
			dateCol = i
		case utilityCol == -1 && (strings.Contains(colLower, "utility") || colLower == "art"):
			utilityCol = i
		case unitCol == -1 && (strings.Contains(colLower, "unit") || colLower == "wohnung"):
			unitCol = i
		case valueCol == -1 && (strings.Contains(colLower, "value") || colLower == "stand" || colLower == "zählerstand"):
			valueCol = i
		}
	}

	if dateCol == -1 || unitCol == -1 || utilityCol == -1 || valueCol == -1 {
		return nil, fmt.Errorf("could not find required columns (date, unit, utility, value) in CSV. Header: %v", header)
	}
	lastCol := max(dateCol, unitCol, utilityCol, valueCol)

	result := &Result{Inputs: []models.ReadingInput{}, Errors: []RowError{}}
	row := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Errors = append(result.Errors, RowError{Row: row, Reason: parseErr.Err.Error()})
				continue
			}
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}

		if isBlank(record) {
			continue
		}
		if len(record) <= lastCol {
			result.Errors = append(result.Errors, RowError{Row: row, Reason: "too few columns"})
			continue
		}

		input, err := parseRecord(record[dateCol], record[unitCol], record[utilityCol], record[valueCol])
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: row, Reason: reason(err)})
			continue
		}
		result.Inputs = append(result.Inputs, input)
	}

	return result, nil
}

func parseRecord(dateStr, unitStr, utilityStr, valueStr string) (models.ReadingInput, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return models.ReadingInput{}, err
	}

	unit, err := models.ParseUnit(strings.TrimSpace(unitStr))
	if err != nil {
		if u, ok := unitByLabel(unitStr); ok {
			unit = u
		} else {
			return models.ReadingInput{}, err
		}
	}

	utility, err := models.ParseUtility(strings.ToLower(strings.TrimSpace(utilityStr)))
	if err != nil {
		if u, ok := utilityByLabel(utilityStr); ok {
			utility = u
		} else {
			return models.ReadingInput{}, err
		}
	}

	value, err := parseValue(valueStr)
	if err != nil {
		return models.ReadingInput{}, err
	}

	input := models.ReadingInput{
		Date:    date.Format(models.DateLayout),
		Unit:    unit,
		Utility: utility,
		Value:   value,
	}
	return input, input.Validate()
}

// parseDate accepts the layouts spreadsheets commonly export
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	formats := []string{
		models.DateLayout,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"02.01.2006",
		"2.1.2006",
		"01/02/2006",
		"1/2/2006",
		"Jan 2, 2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &models.ValidationError{Field: "date", Value: s, Message: "unrecognized date"}
}

// parseValue parses a meter value written with either "." or "," as the decimal
// separator. The last separator is the decimal one when both appear. A lone comma
// followed by exactly three digits could be either and is rejected.
func parseValue(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, " ", "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		switch {
		case strings.Count(s, ",") > 1:
			// 1,234,567
			s = strings.ReplaceAll(s, ",", "")
		case len(s)-lastComma-1 == 3:
			return 0, &models.ValidationError{Field: "value", Value: raw, Message: "ambiguous decimal separator"}
		default:
			// 1234,5
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		// 1.234.567
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &models.ValidationError{Field: "value", Value: raw, Message: "not a number"}
	}
	return v, nil
}

func unitByLabel(s string) (models.Unit, bool) {
	s = strings.TrimSpace(s)
	for _, u := range models.Units {
		if strings.EqualFold(u.Label(), s) {
			return u, true
		}
	}
	return 0, false
}

func utilityByLabel(s string) (models.Utility, bool) {
	s = strings.TrimSpace(s)
	for _, u := range models.Utilities {
		if strings.EqualFold(u.Label(), s) {
			return u, true
		}
	}
	return "", false
}

func reason(err error) string {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		if vErr.Value != "" {
			return fmt.Sprintf("%s (%s)", vErr.Message, vErr.Value)
		}
		return vErr.Message
	}
	return err.Error()
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
