package export

import (
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/pkg/date_range"
	"github.com/tiffintracker/tiffin/pkg/report"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

const (
	CsvContentType = "text/csv"
	displayLayout  = "02 Jan 2006"
)

// CsvReportRendererImpl writes the spreadsheet-friendly CSV export of a report.
// Notes are always quoted, nothing else ever is, so the rows are assembled by hand.
type CsvReportRendererImpl struct {
}

func NewCsvReportRenderer() *CsvReportRendererImpl {
	return &CsvReportRendererImpl{}
}

func (c *CsvReportRendererImpl) RenderReport(data report.ReportData, settings tracker.Settings) (string, error) {
	start, err := displayDate(data.StartDate)
	if err != nil {
		return "", err
	}
	end, err := displayDate(data.EndDate)
	if err != nil {
		return "", err
	}
	currency := CurrencySymbol(settings.Currency)

	var b strings.Builder
	b.WriteString("TiffinTracker Report\n")
	fmt.Fprintf(&b, "Period: %s to %s\n\n", start, end)

	b.WriteString("Summary\n")
	b.WriteString("Category,None,Half,Full,Total Amount\n")
	fmt.Fprintf(&b, "Lunch,%d,%d,%d,%s%s\n",
		data.LunchCounts.None, data.LunchCounts.Half, data.LunchCounts.Full, currency, data.TotalLunchAmount.String())
	fmt.Fprintf(&b, "Dinner,%d,%d,%d,%s%s\n",
		data.DinnerCounts.None, data.DinnerCounts.Half, data.DinnerCounts.Full, currency, data.TotalDinnerAmount.String())
	fmt.Fprintf(&b, "Grand Total,,,,%s%s\n\n", currency, data.GrandTotal.String())

	b.WriteString("Daily Entries\n")
	b.WriteString("Date,Lunch Type,Lunch Price,Dinner Type,Dinner Price,Notes\n")
	for _, entry := range data.Entries {
		date, err := displayDate(entry.Date)
		if err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,\"%s\"\n",
			date,
			entry.LunchType,
			formatAmount(report.EffectivePrice(entry.LunchType, entry.LunchPrice, settings)),
			entry.DinnerType,
			formatAmount(report.EffectivePrice(entry.DinnerType, entry.DinnerPrice, settings)),
			strings.ReplaceAll(entry.Notes, `"`, `""`),
		)
	}

	return b.String(), nil
}

func (c *CsvReportRendererImpl) ContentType() string {
	return CsvContentType
}

func (c *CsvReportRendererImpl) Filename(data report.ReportData) string {
	return ReportFilename(data.StartDate, data.EndDate)
}

func (c *CsvReportRendererImpl) Render(result report.Result) ([]byte, error) {
	csv, err := c.RenderReport(result.Data, result.Settings)
	if err != nil {
		return nil, err
	}
	return []byte(csv), nil
}

// CurrencySymbol is the prefix printed before amounts. Only INR has a symbol of
// its own; every other code is printed as is.
func CurrencySymbol(currency string) string {
	if currency == "INR" {
		return "Rs."
	}
	return currency
}

func displayDate(date string) (string, error) {
	t, err := date_range.ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.Format(displayLayout), nil
}

// formatAmount prints the shortest decimal form: 60, 12.5.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
