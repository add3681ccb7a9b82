package export

import (
	"context"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/internal/rest"
	"github.com/tiffintracker/tiffin/pkg/report"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

const maxBackupSize = 10 << 20

// ExportErrorHeader carries the delivery failure when a share response falls back
// to returning the document.
const ExportErrorHeader = "X-Export-Error"

type BackupImporter interface {
	ImportBackup(ctx context.Context, text string) error
}

type ShareResultDTO struct {
	Filename    string `json:"filename"`
	Destination string `json:"destination"`
	Size        int    `json:"size"`
}

type Handler struct {
	service  Service
	reports  report.Service
	importer BackupImporter
}

func NewHandler(service Service, reports report.Service, importer BackupImporter) *Handler {
	return &Handler{service: service, reports: reports, importer: importer}
}

// DownloadBackup godoc
// @Summary Download a JSON backup of all entries and settings
// @Tags Export
// @Produce json
// @Success 200 {file} file "TiffinTracker_Backup_<date>.json"
// @Failure 500 {object} rest.ErrorResponse
// @Router /api/export/backup [get]
func (h *Handler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.ExportBackup(r.Context())
	if err != nil {
		tracker.WriteServiceError(w, err)
		return
	}
	rest.WriteAttachment(w, doc.Filename, doc.ContentType, doc.Content)
}

// ShareBackup godoc
// @Summary Deliver a JSON backup to the configured export destination
// @Tags Export
// @Produce json
// @Success 200 {object} ShareResultDTO
// @Failure 502 {file} file "Export destination unavailable, the backup is returned instead"
// @Router /api/export/backup/share [post]
func (h *Handler) ShareBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.ShareBackup(r.Context())
	h.writeShareResult(w, doc, err)
}

// ShareReport godoc
// @Summary Deliver a report export to the configured export destination
// @Tags Export
// @Produce json
// @Param preset query string false "thisMonth, lastMonth or custom"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {object} ShareResultDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid date range or format"
// @Failure 502 {file} file "Export destination unavailable, the report is returned instead"
// @Router /api/export/report/share [post]
func (h *Handler) ShareReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	format, err := ParseFormat(query.Get("format"))
	if err != nil {
		tracker.WriteServiceError(w, err)
		return
	}
	period, err := report.PeriodFromQuery(query)
	if err != nil {
		tracker.WriteServiceError(w, err)
		return
	}
	bounds, err := h.reports.Resolve(period)
	if err != nil {
		tracker.WriteServiceError(w, err)
		return
	}

	doc, err := h.service.ShareReport(r.Context(), bounds, format)
	h.writeShareResult(w, doc, err)
}

// ImportBackup godoc
// @Summary Restore a JSON backup
// @Description The whole payload is validated first; a malformed backup changes nothing.
// @Tags Export
// @Accept json
// @Success 204 "Backup restored"
// @Failure 400 {object} rest.ErrorResponse "Malformed backup"
// @Router /api/import/backup [post]
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBackupSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rest.WriteError(w, http.StatusRequestEntityTooLarge, "Backup too large", err.Error())
			return
		}
		rest.WriteError(w, http.StatusBadRequest, "Could not read request body", err.Error())
		return
	}

	if err := h.importer.ImportBackup(r.Context(), string(body)); err != nil {
		tracker.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeShareResult answers a share request. When the document was rendered but the
// sink refused it, the document itself comes back with a 502 so the caller keeps it.
func (h *Handler) writeShareResult(w http.ResponseWriter, doc Document, err error) {
	if err != nil {
		if doc.Filename == "" || !errors.Is(err, ErrSinkUnavailable) {
			tracker.WriteServiceError(w, err)
			return
		}
		log.Warnf("export %s was rendered but not delivered: %v", doc.Filename, err)
		w.Header().Set(ExportErrorHeader, err.Error())
		rest.WriteAttachmentStatus(w, http.StatusBadGateway, doc.Filename, doc.ContentType, doc.Content)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ShareResultDTO{
		Filename:    doc.Filename,
		Destination: h.service.SinkName(),
		Size:        len(doc.Content),
	})
}
