package tracker

import (
	"errors"

	"github.com/tiffintracker/tiffin/internal/lock"
	"github.com/tiffintracker/tiffin/pkg/date_range"
)

type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindInvalidDate     ErrorKind = "invalid_date"
	KindInvalidRange    ErrorKind = "invalid_range"
	KindInvalidEntry    ErrorKind = "invalid_entry"
	KindInvalidSettings ErrorKind = "invalid_settings"
	KindInvalidFormat   ErrorKind = "invalid_format"
	KindImportMalformed ErrorKind = "import_malformed"
	KindSinkUnavailable ErrorKind = "sink_unavailable"
	KindBusy            ErrorKind = "busy"
	KindStorage         ErrorKind = "storage"
)

type kindError struct {
	kind ErrorKind
	msg  string
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Kind() ErrorKind {
	return e.kind
}

// NewKindError creates a sentinel error that KindOf classifies as kind.
func NewKindError(kind ErrorKind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var ErrInvalidEntry = NewKindError(KindInvalidEntry, "invalid day entry")
var ErrInvalidSettings = NewKindError(KindInvalidSettings, "invalid settings")

// KindOf classifies err. Anything unrecognised is treated as a storage failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	switch {
	case errors.Is(err, date_range.ErrInvalidDate):
		return KindInvalidDate
	case errors.Is(err, date_range.ErrInvalidRange),
		errors.Is(err, date_range.ErrUnknownPreset),
		errors.Is(err, date_range.ErrCustomRangeRequired):
		return KindInvalidRange
	case errors.Is(err, lock.ErrNotObtained):
		return KindBusy
	}
	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return KindStorage
}
