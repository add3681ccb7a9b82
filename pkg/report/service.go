package report

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/internal/utils"
	"github.com/tiffintracker/tiffin/pkg/date_range"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

// EntrySource is the part of the entry store a report reads from.
type EntrySource interface {
	GetRange(ctx context.Context, start, end string) ([]tracker.DayEntry, error)
	GetSettings(ctx context.Context) (tracker.Settings, error)
}

// Period is a report period as requested: a named preset, or custom bounds.
type Period struct {
	Preset date_range.Preset
	Custom date_range.Range
}

type Service interface {
	Resolve(period Period) (date_range.Range, error)
	GetReport(ctx context.Context, start, end string) (Result, error)
	GetPresetReport(ctx context.Context, preset date_range.Preset) (Result, error)
}

type ServiceImpl struct {
	entries EntrySource
	clock   utils.Clock
}

func NewService(entries EntrySource, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{entries: entries, clock: clock}
}

// GetReport validates the range before any storage access, then aggregates it.
func (s *ServiceImpl) GetReport(ctx context.Context, start, end string) (Result, error) {
	if err := date_range.ValidateRange(start, end); err != nil {
		return Result{}, err
	}

	entries, err := s.entries.GetRange(ctx, start, end)
	if err != nil {
		return Result{}, fmt.Errorf("could not load entries for report: %w", err)
	}
	settings, err := s.entries.GetSettings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("could not load settings for report: %w", err)
	}

	data := GenerateReport(entries, settings, start, end)
	log.Debugf("generated report %s..%s over %d entries, total %s", start, end, len(entries), data.GrandTotal)
	return Result{Data: data, Settings: settings}, nil
}

// Resolve turns a period into concrete bounds. Custom bounds are validated again
// since a Period may be built outside PeriodFromQuery.
func (s *ServiceImpl) Resolve(period Period) (date_range.Range, error) {
	if period.Preset == date_range.Custom {
		return date_range.NewCustomRange(period.Custom.Start, period.Custom.End)
	}
	return date_range.Resolve(period.Preset, s.clock.Now())
}

func (s *ServiceImpl) GetPresetReport(ctx context.Context, preset date_range.Preset) (Result, error) {
	r, err := date_range.Resolve(preset, s.clock.Now())
	if err != nil {
		return Result{}, err
	}
	return s.GetReport(ctx, r.Start, r.End)
}
