package tracker

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/internal/rest"
)

// EntryPatchDTO is the body of PUT /api/entry/{date}. A null or missing field keeps
// the stored value; clearLunchPrice/clearDinnerPrice drop a price override.
type EntryPatchDTO struct {
	LunchType        Optional[MealType] `json:"lunchType"`
	DinnerType       Optional[MealType] `json:"dinnerType"`
	LunchPrice       Optional[*float64] `json:"lunchPrice"`
	DinnerPrice      Optional[*float64] `json:"dinnerPrice"`
	Notes            Optional[string]   `json:"notes"`
	ClearLunchPrice  bool               `json:"clearLunchPrice"`
	ClearDinnerPrice bool               `json:"clearDinnerPrice"`
}

type SeedResultDTO struct {
	Days int `json:"days"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetEntry godoc
// @Summary Get the entry for a day
// @Tags Entry
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} DayEntry
// @Failure 400 {object} rest.ErrorResponse "Invalid date"
// @Failure 404 {object} rest.ErrorResponse "No entry for the date"
// @Router /api/entry/{date} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	log.Tracef("Getting entry for %s", date)

	entry, err := h.service.GetByDate(r.Context(), date)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if entry == nil {
		rest.WriteError(w, http.StatusNotFound, "Entry not found", "no entry recorded for "+date)
		return
	}
	rest.WriteJSON(w, http.StatusOK, entry)
}

// UpsertEntry godoc
// @Summary Create or update the entry for a day
// @Tags Entry
// @Accept json
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param entry body EntryPatchDTO true "Fields to change"
// @Success 200 {object} DayEntry
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/entry/{date} [put]
func (h *Handler) UpsertEntry(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]

	var dto EntryPatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	entry, err := h.service.Upsert(r.Context(), dtoToPatch(date, dto))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, entry)
}

// DeleteEntry godoc
// @Summary Delete the entry for a day
// @Tags Entry
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 204
// @Router /api/entry/{date} [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if err := h.service.Delete(r.Context(), date); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetEntries godoc
// @Summary List entries
// @Description Without parameters every entry is returned, newest first. With from/to only the
// @Description inclusive range is returned, oldest first.
// @Tags Entry
// @Produce json
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Success 200 {array} DayEntry
// @Failure 400 {object} rest.ErrorResponse "Invalid range"
// @Router /api/entry [get]
func (h *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var entries []DayEntry
	var err error
	if query.Has("from") || query.Has("to") {
		entries, err = h.service.GetRange(r.Context(), query.Get("from"), query.Get("to"))
	} else {
		entries, err = h.service.GetAll(r.Context())
	}
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, entries)
}

// GetSettings godoc
// @Summary Get settings
// @Tags Settings
// @Produce json
// @Success 200 {object} Settings
// @Router /api/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetSettings(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary Update settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param settings body SettingsPatch true "Fields to change"
// @Success 200 {object} Settings
// @Failure 400 {object} rest.ErrorResponse "Invalid settings"
// @Router /api/settings [patch]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	settings, err := h.service.UpdateSettings(r.Context(), patch)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, settings)
}

// ClearAll godoc
// @Summary Delete every entry and reset the demo flag
// @Tags Data
// @Success 204
// @Router /api/data [delete]
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearAll(r.Context()); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SeedDemoData godoc
// @Summary Fill the current month with random entries
// @Tags Data
// @Produce json
// @Success 201 {object} SeedResultDTO
// @Router /api/demo [post]
func (h *Handler) SeedDemoData(w http.ResponseWriter, r *http.Request) {
	days, err := h.service.SeedDemoData(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, SeedResultDTO{Days: days})
}

// WriteServiceError maps err to a status code through KindOf and writes it.
func WriteServiceError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	status := http.StatusInternalServerError
	message := "Internal error"
	switch kind {
	case KindInvalidDate:
		status, message = http.StatusBadRequest, "Invalid date"
	case KindInvalidRange:
		status, message = http.StatusBadRequest, "Invalid date range"
	case KindInvalidEntry:
		status, message = http.StatusBadRequest, "Invalid entry"
	case KindInvalidSettings:
		status, message = http.StatusBadRequest, "Invalid settings"
	case KindInvalidFormat:
		status, message = http.StatusBadRequest, "Unsupported export format"
	case KindImportMalformed:
		status, message = http.StatusBadRequest, "Malformed backup"
	case KindSinkUnavailable:
		status, message = http.StatusBadGateway, "Export destination unavailable"
	case KindBusy:
		status, message = http.StatusServiceUnavailable, "Entry is being modified, try again"
	default:
		log.Errorf("request failed: %v", err)
	}
	rest.WriteError(w, status, message, err.Error())
}

func dtoToPatch(date string, dto EntryPatchDTO) EntryPatch {
	patch := EntryPatch{
		Date:        date,
		LunchType:   dto.LunchType,
		DinnerType:  dto.DinnerType,
		LunchPrice:  dto.LunchPrice,
		DinnerPrice: dto.DinnerPrice,
		Notes:       dto.Notes,
	}
	if dto.ClearLunchPrice {
		patch.LunchPrice = Some[*float64](nil)
	}
	if dto.ClearDinnerPrice {
		patch.DinnerPrice = Some[*float64](nil)
	}
	return patch
}
