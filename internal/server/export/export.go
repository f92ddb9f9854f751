// Package export renders admin results as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/dmitrijs2005/neurorecall/internal/server/approval"
	"github.com/xuri/excelize/v2"
)

// Sheet is the worksheet holding the results.
const Sheet = "Sheet1"

// ContentType of the produced workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []any{"username", "age", "sex", "test_number", "round_number", "score", "test_time", "approved", "total_score"}

// WriteResults writes rows as an XLSX workbook to w. Missing age or sex
// leave the cell empty; totals of unapproved attempts read "N/A".
func WriteResults(w io.Writer, rows []approval.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(Sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(Sheet, "A1", "I1", bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetColWidth(Sheet, "A", "I", 16); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.UserName,
			optional(r.Age),
			optional(r.Sex),
			r.TestNumber,
			r.RoundNumber,
			r.Score.Score,
			r.TestTime.UTC().Format("2006-01-02T15:04:05"),
			r.Label(),
			total(r.Total),
		}
		if err := f.SetSheetRow(Sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func optional[T any](p *T) any {
	if p == nil {
		return ""
	}
	return *p
}

func total(t approval.Total) any {
	if !t.Valid {
		return t.String()
	}
	return t.Value
}
