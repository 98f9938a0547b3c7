package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// WriteExcel renders the report as an xlsx workbook with Summary,
// Requests and Balances sheets.
func WriteExcel(w io.Writer, report Report, title string) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeSummarySheet(f, report, title, bold); err != nil {
		return err
	}
	if err := writeRequestsSheet(f, report, bold); err != nil {
		return err
	}
	if err := writeBalancesSheet(f, report, bold); err != nil {
		return err
	}

	// The default sheet excelize creates; the summary replaces it.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	index, err := f.GetSheetIndex("Summary")
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	return f.Write(w)
}

func writeSummarySheet(f *excelize.File, report Report, title string, bold int) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]any{
		{"Metric", "Value"},
		{"Report", title},
		{"Interval start", report.Interval.Start.Format(time.RFC3339)},
		{"Interval end", report.Interval.End.Format(time.RFC3339)},
		{"Total requests", report.Totals.TotalRequests},
		{"Days requested", report.Totals.DaysRequested},
		{"Effective days approved", report.Totals.EffectiveDaysApproved},
		{"Interrupted requests", report.Totals.InterruptedCount},
		{},
		{"By status"},
	}
	for _, status := range []string{"DRAFT", "SUBMITTED", "APPROVED", "REJECTED", "CANCELLED", "INTERRUPTED"} {
		if n, ok := report.Totals.ByStatus[status]; ok {
			rows = append(rows, []any{status, n})
		}
	}
	rows = append(rows, []any{}, []any{"By type"})
	for _, leaveType := range []string{"CO", "COR"} {
		if n, ok := report.Totals.ByType[leaveType]; ok {
			rows = append(rows, []any{leaveType, n})
		}
	}

	for i, row := range rows {
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "B", 35); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", "B1", bold)
}

func writeRequestsSheet(f *excelize.File, report Report, bold int) error {
	const sheet = "Requests"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []any{"ID", "Requester", "Type", "Status", "Start", "End", "DaysCount", "EffectiveDays", "ApprovedBy", "InterruptedAt", "InterruptedBy"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, r := range report.Rows {
		row := []any{
			r.ID,
			r.RequesterName,
			r.Type,
			r.Status,
			r.StartDate.Format("2006-01-02"),
			r.EndDate.Format("2006-01-02"),
			r.DaysCount,
			r.EffectiveDays,
			strOrEmpty(r.ApprovedByName),
			timeOrEmpty(r.InterruptedAt),
			strOrEmpty(r.InterruptedByName),
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "B", "B", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "E", "F", 14); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "I", "K", 22); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", "K1", bold)
}

func writeBalancesSheet(f *excelize.File, report Report, bold int) error {
	const sheet = "Balances"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []any{
		"UserId", "Username", "FullName",
		"CO Annual", "CO Carryover", "CO Used", "CO Remaining",
		"COR Annual", "COR Carryover", "COR Used", "COR Remaining",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	next := 2
	for _, b := range report.Balances {
		row := append([]any{b.UserID, b.Username, b.FullName}, balanceCells(b.CO, b.COR)...)
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", next), &row); err != nil {
			return err
		}
		next++
	}

	next++ // blank separator row
	totalsRow := append([]any{0, "TOTAL", ""}, balanceCells(report.BalancesTotals.CO, report.BalancesTotals.COR)...)
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", next), &totalsRow); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", next), fmt.Sprintf("K%d", next), bold); err != nil {
		return err
	}

	if err := f.SetColWidth(sheet, "B", "C", 24); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", "K1", bold)
}

func balanceCells(co, cor *BalanceLine) []any {
	cells := make([]any, 0, 8)
	for _, line := range []*BalanceLine{co, cor} {
		if line == nil {
			cells = append(cells, 0, 0, 0, 0)
			continue
		}
		cells = append(cells, line.AnnualDays, line.CarryoverDays, line.UsedDays, line.RemainingDays)
	}
	return cells
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
