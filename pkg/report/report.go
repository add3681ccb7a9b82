package report

import (
	"github.com/shopspring/decimal"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

func init() {
	// Amounts go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type MealCounts struct {
	None int `json:"none"`
	Half int `json:"half"`
	Full int `json:"full"`
}

func (c *MealCounts) add(mealType tracker.MealType) {
	switch mealType {
	case tracker.MealHalf:
		c.Half++
	case tracker.MealFull:
		c.Full++
	default:
		c.None++
	}
}

// ReportData is the aggregation of a closed date range. It is computed on demand
// and never stored.
type ReportData struct {
	StartDate         string             `json:"startDate"`
	EndDate           string             `json:"endDate"`
	LunchCounts       MealCounts         `json:"lunchCounts"`
	DinnerCounts      MealCounts         `json:"dinnerCounts"`
	TotalLunchAmount  decimal.Decimal    `json:"totalLunchAmount"`
	TotalDinnerAmount decimal.Decimal    `json:"totalDinnerAmount"`
	GrandTotal        decimal.Decimal    `json:"grandTotal"`
	Entries           []tracker.DayEntry `json:"entries"`
}

// Result is a report together with the settings it was priced with.
type Result struct {
	Data     ReportData
	Settings tracker.Settings
}

// EffectivePrice is what one meal costs: nothing for None, otherwise the entry's
// override when present, otherwise the tier price from settings.
func EffectivePrice(mealType tracker.MealType, override *float64, settings tracker.Settings) float64 {
	switch mealType {
	case tracker.MealHalf:
		if override != nil {
			return *override
		}
		return settings.HalfPrice
	case tracker.MealFull:
		if override != nil {
			return *override
		}
		return settings.FullPrice
	default:
		return 0
	}
}

// GenerateReport counts portions and sums effective prices over entries. It does
// not filter or sort: entries are expected to be the range [start, end] already.
func GenerateReport(entries []tracker.DayEntry, settings tracker.Settings, start, end string) ReportData {
	report := ReportData{
		StartDate:         start,
		EndDate:           end,
		TotalLunchAmount:  decimal.Zero,
		TotalDinnerAmount: decimal.Zero,
		Entries:           entries,
	}

	for _, entry := range entries {
		report.LunchCounts.add(entry.LunchType)
		report.DinnerCounts.add(entry.DinnerType)
		if entry.LunchType != tracker.MealNone {
			report.TotalLunchAmount = report.TotalLunchAmount.Add(
				decimal.NewFromFloat(EffectivePrice(entry.LunchType, entry.LunchPrice, settings)))
		}
		if entry.DinnerType != tracker.MealNone {
			report.TotalDinnerAmount = report.TotalDinnerAmount.Add(
				decimal.NewFromFloat(EffectivePrice(entry.DinnerType, entry.DinnerPrice, settings)))
		}
	}

	report.GrandTotal = report.TotalLunchAmount.Add(report.TotalDinnerAmount)
	return report
}
