package export

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/internal/utils"
	"github.com/tiffintracker/tiffin/pkg/date_range"
	"github.com/tiffintracker/tiffin/pkg/report"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

type Format string

const (
	FormatCsv  Format = "csv"
	FormatXlsx Format = "xlsx"
)

var ErrUnknownFormat = tracker.NewKindError(tracker.KindInvalidFormat, "unknown export format")

func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "":
		return FormatCsv, nil
	case FormatCsv, FormatXlsx:
		return Format(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, value)
	}
}

// Document is a rendered export together with its suggested filename.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// BackupSource is the part of the entry store a backup reads from.
type BackupSource interface {
	GetAll(ctx context.Context) ([]tracker.DayEntry, error)
	GetSettings(ctx context.Context) (tracker.Settings, error)
}

type Service interface {
	ExportReport(ctx context.Context, period date_range.Range, format Format) (Document, error)
	ExportBackup(ctx context.Context) (Document, error)
	// ShareReport and ShareBackup deliver to the configured sink. On a sink failure
	// the rendered document is returned along with the error.
	ShareReport(ctx context.Context, period date_range.Range, format Format) (Document, error)
	ShareBackup(ctx context.Context) (Document, error)
	SinkName() string
}

type ServiceImpl struct {
	store   BackupSource
	reports report.Service
	sink    Sink
	clock   utils.Clock
	csv     *CsvReportRendererImpl
	xlsx    *XlsxReportRendererImpl
}

func NewService(store BackupSource, reports report.Service, sink Sink, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		store:   store,
		reports: reports,
		sink:    sink,
		clock:   clock,
		csv:     NewCsvReportRenderer(),
		xlsx:    NewXlsxReportRenderer(),
	}
}

func (s *ServiceImpl) ExportReport(ctx context.Context, period date_range.Range, format Format) (Document, error) {
	var renderer report.Renderer
	switch format {
	case FormatCsv:
		renderer = s.csv
	case FormatXlsx:
		renderer = s.xlsx
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	result, err := s.reports.GetReport(ctx, period.Start, period.End)
	if err != nil {
		return Document{}, err
	}
	content, err := renderer.Render(result)
	if err != nil {
		return Document{}, fmt.Errorf("could not render %s report: %w", format, err)
	}
	return Document{
		Filename:    renderer.Filename(result.Data),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func (s *ServiceImpl) ExportBackup(ctx context.Context) (Document, error) {
	entries, err := s.store.GetAll(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("could not load entries for backup: %w", err)
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("could not load settings for backup: %w", err)
	}

	backup, err := RenderBackup(entries, settings)
	if err != nil {
		return Document{}, err
	}
	log.Debugf("rendered backup with %d entries", len(entries))
	return Document{
		Filename:    BackupFilename(s.clock.Now()),
		ContentType: BackupContentType,
		Content:     []byte(backup),
	}, nil
}

func (s *ServiceImpl) ShareReport(ctx context.Context, period date_range.Range, format Format) (Document, error) {
	doc, err := s.ExportReport(ctx, period, format)
	if err != nil {
		return Document{}, err
	}
	return doc, s.deliver(ctx, doc)
}

func (s *ServiceImpl) ShareBackup(ctx context.Context) (Document, error) {
	doc, err := s.ExportBackup(ctx)
	if err != nil {
		return Document{}, err
	}
	return doc, s.deliver(ctx, doc)
}

func (s *ServiceImpl) SinkName() string {
	if s.sink == nil {
		return ""
	}
	return s.sink.Name()
}

func (s *ServiceImpl) deliver(ctx context.Context, doc Document) error {
	if s.sink == nil {
		return fmt.Errorf("%w: no export destination configured", ErrSinkUnavailable)
	}
	if err := s.sink.Deliver(ctx, doc.Filename, doc.ContentType, doc.Content); err != nil {
		if !errors.Is(err, ErrSinkUnavailable) {
			err = fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
		}
		return err
	}
	log.Infof("delivered %s to %s", doc.Filename, s.sink.Name())
	return nil
}

// BackupRestorer applies a parsed backup atomically.
type BackupRestorer interface {
	RestoreBackup(ctx context.Context, restore tracker.Restore) error
}

// Importer restores a JSON backup produced by ExportBackup.
type Importer struct {
	store BackupRestorer
}

func NewImporter(store BackupRestorer) *Importer {
	return &Importer{store: store}
}

// ImportBackup validates the whole payload before handing it to the store, so a
// malformed backup changes nothing.
func (i *Importer) ImportBackup(ctx context.Context, text string) error {
	restore, err := ParseBackup(text)
	if err != nil {
		log.Warnf("rejected backup import: %v", err)
		return err
	}
	if err := i.store.RestoreBackup(ctx, restore); err != nil {
		return fmt.Errorf("could not restore backup: %w", err)
	}
	return nil
}
