package app

import (
	"math/rand/v2"

	"github.com/tiffintracker/tiffin/internal/event_bus"
	"github.com/tiffintracker/tiffin/internal/utils"
	"github.com/tiffintracker/tiffin/pkg/export"
	"github.com/tiffintracker/tiffin/pkg/report"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus

	EntryService *tracker.ServiceImpl
	EntryHandler *tracker.Handler

	ReportService *report.ServiceImpl
	CsvRenderer   *export.CsvReportRendererImpl
	XlsxRenderer  *export.XlsxReportRendererImpl
	ReportHandler *report.Handler

	ExportService *export.ServiceImpl
	Importer      *export.Importer
	ExportHandler *export.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(infra *Infrastructure, clock utils.Clock) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = clock
	deps.EventBus = event_bus.NewEventBus()
	subscribeEventLogging(deps.EventBus)

	random := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	deps.EntryService = tracker.NewService(infra.Repository, infra.Locker, deps.Clock, random, deps.EventBus)
	deps.EntryHandler = tracker.NewHandler(deps.EntryService)

	deps.ReportService = report.NewService(deps.EntryService, deps.Clock)
	deps.CsvRenderer = export.NewCsvReportRenderer()
	deps.XlsxRenderer = export.NewXlsxReportRenderer()
	deps.ReportHandler = report.NewHandler(deps.ReportService, deps.CsvRenderer, deps.XlsxRenderer)

	deps.ExportService = export.NewService(deps.EntryService, deps.ReportService, infra.Sink, deps.Clock)
	deps.Importer = export.NewImporter(deps.EntryService)
	deps.ExportHandler = export.NewHandler(deps.ExportService, deps.ReportService, deps.Importer)

	return deps
}
