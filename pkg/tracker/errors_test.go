package tracker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tiffintracker/tiffin/internal/lock"
	"github.com/tiffintracker/tiffin/pkg/date_range"
)

func TestKindOf(t *testing.T) {
	errSinkDown := NewKindError(KindSinkUnavailable, "sink down")
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "invalid date", err: fmt.Errorf("wrapped: %w", date_range.ErrInvalidDate), want: KindInvalidDate},
		{name: "invalid range", err: date_range.ErrInvalidRange, want: KindInvalidRange},
		{name: "unknown preset", err: date_range.ErrUnknownPreset, want: KindInvalidRange},
		{name: "invalid entry", err: fmt.Errorf("%w: bad", ErrInvalidEntry), want: KindInvalidEntry},
		{name: "invalid settings", err: ErrInvalidSettings, want: KindInvalidSettings},
		{name: "kinded error from another package", err: fmt.Errorf("deliver: %w", errSinkDown), want: KindSinkUnavailable},
		{name: "lock not obtained", err: fmt.Errorf("could not lock: %w", lock.ErrNotObtained), want: KindBusy},
		{name: "anything else", err: errors.New("disk full"), want: KindStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
