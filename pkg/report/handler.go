package report

import (
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/internal/rest"
	"github.com/tiffintracker/tiffin/pkg/date_range"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

// Renderer turns a report into a downloadable document of one media type.
type Renderer interface {
	ContentType() string
	Filename(report ReportData) string
	Render(result Result) ([]byte, error)
}

type ReportDTO struct {
	ReportData
	Currency string `json:"currency"`
}

type Handler struct {
	service   Service
	renderers []Renderer
}

func NewHandler(service Service, renderers ...Renderer) *Handler {
	return &Handler{service: service, renderers: renderers}
}

// GetReport godoc
// @Summary Get the meal report for a period
// @Description Without Accept header (or with application/json) the report is returned as JSON.
// @Description Accept: text/csv returns the CSV export, the spreadsheet media type returns XLSX.
// @Tags Report
// @Produce json
// @Produce text/csv
// @Param preset query string false "thisMonth, lastMonth or custom"
// @Param from query string false "Start date (YYYY-MM-DD), required for custom"
// @Param to query string false "End date (YYYY-MM-DD), required for custom"
// @Success 200 {object} ReportDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid date range"
// @Router /api/report [get]
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	period, err := PeriodFromQuery(r.URL.Query())
	if err != nil {
		tracker.WriteServiceError(w, err)
		return
	}
	bounds, err := h.service.Resolve(period)
	if err != nil {
		tracker.WriteServiceError(w, err)
		return
	}
	log.Tracef("Getting report for %s..%s", bounds.Start, bounds.End)

	result, err := h.service.GetReport(r.Context(), bounds.Start, bounds.End)
	if err != nil {
		tracker.WriteServiceError(w, err)
		return
	}

	accept := r.Header.Get("Accept")
	for _, renderer := range h.renderers {
		if !strings.Contains(accept, renderer.ContentType()) {
			continue
		}
		content, err := renderer.Render(result)
		if err != nil {
			log.Errorf("could not render %s report: %v", renderer.ContentType(), err)
			rest.WriteError(w, http.StatusInternalServerError, "Failed to render report", err.Error())
			return
		}
		rest.WriteAttachment(w, renderer.Filename(result.Data), renderer.ContentType(), content)
		return
	}

	rest.WriteJSON(w, http.StatusOK, ReportDTO{ReportData: result.Data, Currency: result.Settings.Currency})
}

// PeriodFromQuery reads the report period from the preset, from and to query
// parameters. A bare from/to pair means custom, no parameters at all means this
// month. Custom bounds are validated here; named presets are resolved later
// against the service clock.
func PeriodFromQuery(query url.Values) (Period, error) {
	from, to := query.Get("from"), query.Get("to")

	presetParam := query.Get("preset")
	if presetParam == "" {
		if from == "" && to == "" {
			presetParam = string(date_range.ThisMonth)
		} else {
			presetParam = string(date_range.Custom)
		}
	}

	preset, err := date_range.ParsePreset(presetParam)
	if err != nil {
		return Period{}, err
	}
	if preset != date_range.Custom {
		return Period{Preset: preset}, nil
	}
	if from == "" || to == "" {
		return Period{}, date_range.ErrCustomRangeRequired
	}
	custom, err := date_range.NewCustomRange(from, to)
	if err != nil {
		return Period{}, err
	}
	return Period{Preset: preset, Custom: custom}, nil
}
