package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiffintracker/tiffin/internal/utils"
	"github.com/tiffintracker/tiffin/pkg/date_range"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

type entrySourceStub struct {
	entries    []tracker.DayEntry
	settings   tracker.Settings
	err        error
	rangeCalls int
	lastStart  string
	lastEnd    string
}

func (s *entrySourceStub) GetRange(ctx context.Context, start, end string) ([]tracker.DayEntry, error) {
	s.rangeCalls++
	s.lastStart, s.lastEnd = start, end
	if s.err != nil {
		return nil, s.err
	}
	var result []tracker.DayEntry
	for _, e := range s.entries {
		if e.Date >= start && e.Date <= end {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *entrySourceStub) GetSettings(ctx context.Context) (tracker.Settings, error) {
	return s.settings, nil
}

var reportNow = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)

func setupReportService(entries ...tracker.DayEntry) (*ServiceImpl, *entrySourceStub) {
	source := &entrySourceStub{entries: entries, settings: tracker.DefaultSettings()}
	return NewService(source, utils.NewMockClock(reportNow)), source
}

func TestServiceImpl_GetReport(t *testing.T) {
	t.Run("aggregates entries in range with current settings", func(t *testing.T) {
		// given
		service, source := setupReportService(
			entry("2023-12-31", tracker.MealFull, tracker.MealFull, nil, nil),
			entry("2024-01-05", tracker.MealFull, tracker.MealHalf, nil, tracker.Price(40)),
			entry("2024-01-06", tracker.MealNone, tracker.MealNone, nil, nil),
		)
		source.settings.Currency = "EUR"

		// when
		result, err := service.GetReport(context.Background(), "2024-01-01", "2024-01-31")

		// then
		require.NoError(t, err)
		assert.Equal(t, "100", result.Data.GrandTotal.String())
		assert.Len(t, result.Data.Entries, 2)
		assert.Equal(t, "EUR", result.Settings.Currency)
	})

	t.Run("rejects reversed range before reading storage", func(t *testing.T) {
		service, source := setupReportService()

		_, err := service.GetReport(context.Background(), "2024-01-31", "2024-01-01")

		assert.ErrorIs(t, err, date_range.ErrInvalidRange)
		assert.Zero(t, source.rangeCalls)
	})

	t.Run("rejects malformed dates before reading storage", func(t *testing.T) {
		service, source := setupReportService()

		_, err := service.GetReport(context.Background(), "2024-1-01", "2024-01-31")

		assert.ErrorIs(t, err, date_range.ErrInvalidDate)
		assert.Zero(t, source.rangeCalls)
	})

	t.Run("single day range", func(t *testing.T) {
		service, _ := setupReportService(entry("2024-01-05", tracker.MealHalf, tracker.MealNone, nil, nil))

		result, err := service.GetReport(context.Background(), "2024-01-05", "2024-01-05")

		require.NoError(t, err)
		assert.Equal(t, 1, result.Data.LunchCounts.Half)
		assert.Equal(t, "50", result.Data.GrandTotal.String())
	})

	t.Run("wraps storage failures", func(t *testing.T) {
		service, source := setupReportService()
		source.err = errors.New("disk on fire")

		_, err := service.GetReport(context.Background(), "2024-01-01", "2024-01-31")

		assert.ErrorIs(t, err, source.err)
	})
}

func TestServiceImpl_GetPresetReport(t *testing.T) {
	t.Run("this month", func(t *testing.T) {
		service, source := setupReportService()

		result, err := service.GetPresetReport(context.Background(), date_range.ThisMonth)

		require.NoError(t, err)
		assert.Equal(t, "2024-01-01", result.Data.StartDate)
		assert.Equal(t, "2024-01-31", result.Data.EndDate)
		assert.Equal(t, "2024-01-01", source.lastStart)
		assert.Equal(t, "2024-01-31", source.lastEnd)
	})

	t.Run("last month crosses the year boundary", func(t *testing.T) {
		service, _ := setupReportService()

		result, err := service.GetPresetReport(context.Background(), date_range.LastMonth)

		require.NoError(t, err)
		assert.Equal(t, "2023-12-01", result.Data.StartDate)
		assert.Equal(t, "2023-12-31", result.Data.EndDate)
	})

	t.Run("custom needs explicit bounds", func(t *testing.T) {
		service, source := setupReportService()

		_, err := service.GetPresetReport(context.Background(), date_range.Custom)

		assert.ErrorIs(t, err, date_range.ErrCustomRangeRequired)
		assert.Zero(t, source.rangeCalls)
	})
}

func TestServiceImpl_Resolve(t *testing.T) {
	service, _ := setupReportService()

	custom, err := service.Resolve(Period{Preset: date_range.Custom, Custom: date_range.Range{Start: "2024-02-10", End: "2024-02-12"}})
	require.NoError(t, err)
	assert.Equal(t, date_range.Range{Start: "2024-02-10", End: "2024-02-12"}, custom)

	_, err = service.Resolve(Period{Preset: date_range.Custom, Custom: date_range.Range{Start: "2024-02-12", End: "2024-02-10"}})
	assert.ErrorIs(t, err, date_range.ErrInvalidRange)

	_, err = service.Resolve(Period{Preset: "nextYear"})
	assert.ErrorIs(t, err, date_range.ErrUnknownPreset)
}
