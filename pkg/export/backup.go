package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tiffintracker/tiffin/pkg/date_range"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

const BackupContentType = "application/json"

var ErrImportMalformed = tracker.NewKindError(tracker.KindImportMalformed, "malformed backup")

type backupDocument struct {
	Entries  []tracker.DayEntry `json:"entries"`
	Settings tracker.Settings   `json:"settings"`
}

// backupEntry is how an entry is read back. Everything but the date is optional,
// so hand-written or partial backups restore with the usual merge rule.
type backupEntry struct {
	ID          string                             `json:"id"`
	Date        string                             `json:"date"`
	LunchType   tracker.Optional[tracker.MealType] `json:"lunchType"`
	DinnerType  tracker.Optional[tracker.MealType] `json:"dinnerType"`
	LunchPrice  tracker.Optional[*float64]         `json:"lunchPrice"`
	DinnerPrice tracker.Optional[*float64]         `json:"dinnerPrice"`
	Notes       tracker.Optional[string]           `json:"notes"`
	CreatedAt   string                             `json:"createdAt"`
}

// RenderBackup serializes every entry and the settings as indented JSON.
func RenderBackup(entries []tracker.DayEntry, settings tracker.Settings) (string, error) {
	if entries == nil {
		entries = []tracker.DayEntry{}
	}
	data, err := json.MarshalIndent(backupDocument{Entries: entries, Settings: settings}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not render backup: %w", err)
	}
	return string(data), nil
}

// ParseBackup decodes and validates a whole backup. Nothing is returned unless
// every part of the payload is usable, so a failed import never applies anything.
func ParseBackup(text string) (tracker.Restore, error) {
	var document map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &document); err != nil {
		return tracker.Restore{}, fmt.Errorf("%w: %v", ErrImportMalformed, err)
	}
	if document == nil {
		return tracker.Restore{}, fmt.Errorf("%w: backup must be a JSON object", ErrImportMalformed)
	}

	var restore tracker.Restore
	if raw, ok := document["settings"]; ok && !isNull(raw) {
		settings, err := parseSettings(raw)
		if err != nil {
			return tracker.Restore{}, err
		}
		restore.Settings = &settings
	}

	if raw, ok := document["entries"]; ok && !isNull(raw) {
		var elements []json.RawMessage
		if err := json.Unmarshal(raw, &elements); err != nil {
			return tracker.Restore{}, fmt.Errorf("%w: entries must be an array: %v", ErrImportMalformed, err)
		}
		restore.Entries = make([]tracker.RestoredEntry, 0, len(elements))
		for i, element := range elements {
			entry, err := parseEntry(element)
			if err != nil {
				return tracker.Restore{}, fmt.Errorf("%w: entry %d: %v", ErrImportMalformed, i, err)
			}
			restore.Entries = append(restore.Entries, entry)
		}
	}

	return restore, nil
}

func parseEntry(raw json.RawMessage) (tracker.RestoredEntry, error) {
	var entry backupEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return tracker.RestoredEntry{}, err
	}
	if _, err := date_range.ParseDate(entry.Date); err != nil {
		return tracker.RestoredEntry{}, fmt.Errorf("invalid date %q", entry.Date)
	}
	for _, mealType := range []tracker.Optional[tracker.MealType]{entry.LunchType, entry.DinnerType} {
		if value, ok := mealType.Get(); ok {
			if err := tracker.ValidateMealType(value); err != nil {
				return tracker.RestoredEntry{}, fmt.Errorf("unknown meal type %q", value)
			}
		}
	}
	for _, price := range []tracker.Optional[*float64]{entry.LunchPrice, entry.DinnerPrice} {
		if value, ok := price.Get(); ok && value != nil && *value < 0 {
			return tracker.RestoredEntry{}, fmt.Errorf("negative price %v", *value)
		}
	}

	restored := tracker.RestoredEntry{
		Patch: tracker.EntryPatch{
			Date:        entry.Date,
			LunchType:   entry.LunchType,
			DinnerType:  entry.DinnerType,
			LunchPrice:  entry.LunchPrice,
			DinnerPrice: entry.DinnerPrice,
			Notes:       entry.Notes,
		},
	}
	// Identity is only carried over when it is well formed; otherwise the store assigns one.
	if _, err := uuid.Parse(entry.ID); err == nil {
		restored.ID = entry.ID
	}
	if createdAt, err := time.Parse(time.RFC3339Nano, entry.CreatedAt); err == nil {
		createdAt = createdAt.UTC().Truncate(time.Microsecond)
		restored.CreatedAt = &createdAt
	}
	return restored, nil
}

func parseSettings(raw json.RawMessage) (tracker.SettingsPatch, error) {
	var patch tracker.SettingsPatch
	if err := json.Unmarshal(raw, &patch); err != nil {
		return tracker.SettingsPatch{}, fmt.Errorf("%w: settings: %v", ErrImportMalformed, err)
	}
	for name, price := range map[string]tracker.Optional[float64]{"halfPrice": patch.HalfPrice, "fullPrice": patch.FullPrice} {
		if value, ok := price.Get(); ok && value <= 0 {
			return tracker.SettingsPatch{}, fmt.Errorf("%w: settings: %s must be positive", ErrImportMalformed, name)
		}
	}
	if currency, ok := patch.Currency.Get(); ok && currency == "" {
		return tracker.SettingsPatch{}, fmt.Errorf("%w: settings: currency must not be empty", ErrImportMalformed)
	}
	return patch, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
