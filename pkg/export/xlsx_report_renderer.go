package export

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/pkg/report"
	"github.com/tiffintracker/tiffin/pkg/tracker"
	"github.com/xuri/excelize/v2"
)

const (
	XlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	SummarySheet      = "Summary"
	DailyEntriesSheet = "Daily Entries"
)

// XlsxReportRendererImpl writes the report as a workbook with a summary sheet and
// one row per day, carrying the same rows as the CSV export.
type XlsxReportRendererImpl struct {
}

func NewXlsxReportRenderer() *XlsxReportRendererImpl {
	return &XlsxReportRendererImpl{}
}

func (x *XlsxReportRendererImpl) RenderReport(data report.ReportData, settings tracker.Settings) ([]byte, error) {
	start, err := displayDate(data.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := displayDate(data.EndDate)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnf("could not close workbook: %v", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("could not create summary sheet: %w", err)
	}
	if _, err := f.NewSheet(DailyEntriesSheet); err != nil {
		return nil, fmt.Errorf("could not create daily entries sheet: %w", err)
	}

	amountHeader := "Total Amount (" + CurrencySymbol(settings.Currency) + ")"
	summaryRows := [][]any{
		{"TiffinTracker Report"},
		{"Period", start + " to " + end},
		{},
		{"Category", "None", "Half", "Full", amountHeader},
		{"Lunch", data.LunchCounts.None, data.LunchCounts.Half, data.LunchCounts.Full, data.TotalLunchAmount.InexactFloat64()},
		{"Dinner", data.DinnerCounts.None, data.DinnerCounts.Half, data.DinnerCounts.Full, data.TotalDinnerAmount.InexactFloat64()},
		{"Grand Total", nil, nil, nil, data.GrandTotal.InexactFloat64()},
	}
	if err := writeRows(f, SummarySheet, summaryRows); err != nil {
		return nil, err
	}

	dailyRows := make([][]any, 0, len(data.Entries)+1)
	dailyRows = append(dailyRows, []any{"Date", "Lunch Type", "Lunch Price", "Dinner Type", "Dinner Price", "Notes"})
	for _, entry := range data.Entries {
		date, err := displayDate(entry.Date)
		if err != nil {
			return nil, err
		}
		dailyRows = append(dailyRows, []any{
			date,
			string(entry.LunchType),
			report.EffectivePrice(entry.LunchType, entry.LunchPrice, settings),
			string(entry.DinnerType),
			report.EffectivePrice(entry.DinnerType, entry.DinnerPrice, settings),
			entry.Notes,
		})
	}
	if err := writeRows(f, DailyEntriesSheet, dailyRows); err != nil {
		return nil, err
	}

	if err := styleHeaders(f); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (x *XlsxReportRendererImpl) ContentType() string {
	return XlsxContentType
}

func (x *XlsxReportRendererImpl) Filename(data report.ReportData) string {
	return XlsxReportFilename(data.StartDate, data.EndDate)
}

func (x *XlsxReportRendererImpl) Render(result report.Result) ([]byte, error) {
	return x.RenderReport(result.Data, result.Settings)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("could not write row %d of %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

func styleHeaders(f *excelize.File) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("could not create header style: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "A1", bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A4", "E4", bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(DailyEntriesSheet, "A1", "F1", bold); err != nil {
		return err
	}
	return f.SetColWidth(DailyEntriesSheet, "A", "F", 14)
}
