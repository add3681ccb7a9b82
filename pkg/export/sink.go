package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

var ErrSinkUnavailable = tracker.NewKindError(tracker.KindSinkUnavailable, "export destination unavailable")

// Sink is where shared exports are delivered.
type Sink interface {
	Deliver(ctx context.Context, filename string, contentType string, content []byte) error
	// Name describes the destination for logs and responses.
	Name() string
}

// FileSink drops exports into a directory on local disk.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Deliver(ctx context.Context, filename string, contentType string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		err := fmt.Errorf("%w: could not create export directory %s: %v", ErrSinkUnavailable, s.dir, err)
		log.Error(err)
		return err
	}

	path := filepath.Join(s.dir, filepath.Base(filename))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		err := fmt.Errorf("%w: could not write %s: %v", ErrSinkUnavailable, path, err)
		log.Error(err)
		return err
	}
	log.Debugf("wrote export %s (%d bytes)", path, len(content))
	return nil
}

func (s *FileSink) Name() string {
	return "file:" + s.dir
}
