package reports

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// WritePDF renders a compact printable version of the report: the
// summary block followed by one line per request.
func WritePDF(w io.Writer, report Report, title string) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Interval: %s to %s",
		report.Interval.Start.Format("2006-01-02"),
		report.Interval.End.Format("2006-01-02")))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Requests: %d   Days requested: %d   Effective days approved: %d   Interrupted: %d",
		report.Totals.TotalRequests,
		report.Totals.DaysRequested,
		report.Totals.EffectiveDaysApproved,
		report.Totals.InterruptedCount))
	pdf.Ln(10)

	headers := []string{"ID", "Requester", "Type", "Status", "Start", "End", "Days", "Effective"}
	widths := []float64{14, 70, 16, 28, 26, 26, 14, 20}

	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, r := range report.Rows {
		cells := []string{
			fmt.Sprintf("%d", r.ID),
			r.RequesterName,
			r.Type,
			r.Status,
			r.StartDate.Format("2006-01-02"),
			r.EndDate.Format("2006-01-02"),
			fmt.Sprintf("%d", r.DaysCount),
			fmt.Sprintf("%d", r.EffectiveDays),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 7, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
