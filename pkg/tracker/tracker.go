package tracker

import (
	"encoding/json"
	"time"
)

type MealType string

const (
	MealNone MealType = "None"
	MealHalf MealType = "Half"
	MealFull MealType = "Full"
)

// MealTypes lists the portion tiers in display order.
var MealTypes = []MealType{MealNone, MealHalf, MealFull}

// DayEntry is the record for one calendar day. Date is the natural key and never
// changes once the entry exists.
type DayEntry struct {
	ID          string    `json:"id" validate:"required"`
	Date        string    `json:"date" validate:"required,datetime=2006-01-02"`
	LunchType   MealType  `json:"lunchType" validate:"oneof=None Half Full"`
	DinnerType  MealType  `json:"dinnerType" validate:"oneof=None Half Full"`
	LunchPrice  *float64  `json:"lunchPrice" validate:"omitempty,gte=0"`
	DinnerPrice *float64  `json:"dinnerPrice" validate:"omitempty,gte=0"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Settings struct {
	HalfPrice   float64 `json:"halfPrice" validate:"gt=0"`
	FullPrice   float64 `json:"fullPrice" validate:"gt=0"`
	Currency    string  `json:"currency" validate:"required"`
	DisplayName string  `json:"displayName"`
	HasDemoData bool    `json:"hasDemoData"`
}

func DefaultSettings() Settings {
	return Settings{
		HalfPrice:   50,
		FullPrice:   60,
		Currency:    "INR",
		DisplayName: "User",
		HasDemoData: false,
	}
}

// Optional distinguishes "leave as is" from "set to this value" in patches.
// The zero value is unset. A JSON null decodes as unset as well.
type Optional[T any] struct {
	value T
	set   bool
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, set: true}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

func (o Optional[T]) OrElse(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*o = Some(value)
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// EntryPatch is a partial DayEntry keyed by date. For prices, Some(nil) removes
// the override while an unset field keeps it.
type EntryPatch struct {
	Date        string             `json:"date"`
	LunchType   Optional[MealType] `json:"lunchType"`
	DinnerType  Optional[MealType] `json:"dinnerType"`
	LunchPrice  Optional[*float64] `json:"lunchPrice"`
	DinnerPrice Optional[*float64] `json:"dinnerPrice"`
	Notes       Optional[string]   `json:"notes"`
}

type SettingsPatch struct {
	HalfPrice   Optional[float64] `json:"halfPrice"`
	FullPrice   Optional[float64] `json:"fullPrice"`
	Currency    Optional[string]  `json:"currency"`
	DisplayName Optional[string]  `json:"displayName"`
	HasDemoData Optional[bool]    `json:"hasDemoData"`
}

// RestoredEntry is one entry read back from a backup. ID and CreatedAt are only
// honoured when the date does not exist in the store yet.
type RestoredEntry struct {
	Patch     EntryPatch
	ID        string
	CreatedAt *time.Time
}

type Restore struct {
	Entries  []RestoredEntry
	Settings *SettingsPatch
}

// Price returns a pointer to value, for building price overrides.
func Price(value float64) *float64 {
	return &value
}

func clonePrice(price *float64) *float64 {
	if price == nil {
		return nil
	}
	value := *price
	return &value
}

// mergeEntry applies patch on top of existing, or on top of creation defaults when
// existing is nil. Identity fields come from existing when present.
func mergeEntry(existing *DayEntry, patch EntryPatch, now time.Time, id string, createdAt time.Time) DayEntry {
	base := DayEntry{
		ID:         id,
		Date:       patch.Date,
		LunchType:  MealNone,
		DinnerType: MealNone,
		Notes:      "",
		CreatedAt:  createdAt,
	}
	if existing != nil {
		base = *existing
		base.LunchPrice = clonePrice(existing.LunchPrice)
		base.DinnerPrice = clonePrice(existing.DinnerPrice)
	}

	base.LunchType = patch.LunchType.OrElse(base.LunchType)
	base.DinnerType = patch.DinnerType.OrElse(base.DinnerType)
	if price, ok := patch.LunchPrice.Get(); ok {
		base.LunchPrice = clonePrice(price)
	}
	if price, ok := patch.DinnerPrice.Get(); ok {
		base.DinnerPrice = clonePrice(price)
	}
	base.Notes = patch.Notes.OrElse(base.Notes)
	base.UpdatedAt = now
	return base
}

func mergeSettings(current Settings, patch SettingsPatch) Settings {
	return Settings{
		HalfPrice:   patch.HalfPrice.OrElse(current.HalfPrice),
		FullPrice:   patch.FullPrice.OrElse(current.FullPrice),
		Currency:    patch.Currency.OrElse(current.Currency),
		DisplayName: patch.DisplayName.OrElse(current.DisplayName),
		HasDemoData: patch.HasDemoData.OrElse(current.HasDemoData),
	}
}
