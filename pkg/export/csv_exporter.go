package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// WeeklyGrid is a rendered weekly timetable: one row per period, one column
// per day, with the period label in the leading column.
type WeeklyGrid struct {
	Title      string
	Days       []string
	PeriodRows []PeriodRow
}

// PeriodRow is one period across the week. Cells align with WeeklyGrid.Days.
type PeriodRow struct {
	Label string
	Cells []string
}

// CSVExporter renders weekly grids into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the grid.
func (e *CSVExporter) Render(grid WeeklyGrid) ([]byte, error) {
	if len(grid.Days) == 0 {
		return nil, fmt.Errorf("csv requires at least one day column")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	header := append([]string{"Period"}, grid.Days...)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range grid.PeriodRows {
		record := make([]string, 0, len(grid.Days)+1)
		record = append(record, row.Label)
		for i := range grid.Days {
			if i < len(row.Cells) {
				record = append(record, row.Cells[i])
			} else {
				record = append(record, "")
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
