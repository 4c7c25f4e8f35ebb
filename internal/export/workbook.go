package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jgoulah/meterbook/internal/consumption"
	"github.com/jgoulah/meterbook/pkg/models"
)

const (
	SheetReadings = "Readings"
	SheetRates    = "Monthly rates"
	SheetYearly   = "Yearly"
)

// Workbook builds an Excel file with the raw readings, the monthly rate series
// and the yearly totals. Unavailable values are left blank.
func Workbook(readings []models.Reading, rs *consumption.RateSeries, table *consumption.YearlyTable) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetReadings); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	for _, name := range []string{SheetRates, SheetYearly} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	if err := writeReadings(f, headerStyle, readings); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRates(f, headerStyle, rs); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeYearly(f, headerStyle, table); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("writing %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, style int, headers []string) error {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := writeRow(f, sheet, 1, values); err != nil {
		return err
	}
	return f.SetRowStyle(sheet, 1, 1, style)
}

func writeReadings(f *excelize.File, style int, readings []models.Reading) error {
	headers := []string{"Date", "Unit", "Utility", "Value", "Measurement unit"}
	if err := writeHeader(f, SheetReadings, style, headers); err != nil {
		return err
	}

	for i, r := range readings {
		row := []any{r.Date, r.Unit.Label(), r.Utility.Label(), r.Value, r.Utility.MeasurementUnit()}
		if err := writeRow(f, SheetReadings, i+2, row); err != nil {
			return err
		}
	}

	return f.SetColWidth(SheetReadings, "A", "E", 16)
}

func writeRates(f *excelize.File, style int, rs *consumption.RateSeries) error {
	headers := []string{"Date"}
	for _, s := range rs.Series {
		headers = append(headers, s.DisplayKey, s.TrendKey)
	}
	if err := writeHeader(f, SheetRates, style, headers); err != nil {
		return err
	}

	for i, p := range rs.Points {
		row := []any{p.Date}
		for _, s := range rs.Series {
			v, ok := p.Values[s.Key]
			if !ok {
				row = append(row, nil, nil)
				continue
			}
			row = append(row, v.Rate, v.Trend)
		}
		if err := writeRow(f, SheetRates, i+2, row); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetRates, "A", lastCol, 24); err != nil {
		return err
	}

	if rs.Empty() {
		return nil
	}

	png, err := Chart(rs)
	if err != nil {
		return err
	}
	anchor, err := excelize.CoordinatesToCellName(len(headers)+2, 2)
	if err != nil {
		return err
	}
	if err := f.AddPictureFromBytes(SheetRates, anchor, &excelize.Picture{
		Extension: ".png",
		File:      png,
		Format:    &excelize.GraphicOptions{ScaleX: 0.6, ScaleY: 0.6},
	}); err != nil {
		return fmt.Errorf("embedding rate chart: %w", err)
	}

	return nil
}

func writeYearly(f *excelize.File, style int, table *consumption.YearlyTable) error {
	headers := []string{"Year"}
	for _, key := range table.GroupKeys {
		headers = append(headers, fmt.Sprintf("%s (%s)", key.Label(), key.Utility.MeasurementUnit()))
	}
	if err := writeHeader(f, SheetYearly, style, headers); err != nil {
		return err
	}

	for i, r := range table.NonEmptyRows() {
		row := []any{r.Year}
		for _, key := range table.GroupKeys {
			if v, ok := r.Value(key); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		if err := writeRow(f, SheetYearly, i+2, row); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(SheetYearly, "A", lastCol, 24)
}
