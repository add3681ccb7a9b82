package export

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tiffintracker/tiffin/internal/event_bus"
	"github.com/tiffintracker/tiffin/internal/lock"
	"github.com/tiffintracker/tiffin/internal/utils"
	"github.com/tiffintracker/tiffin/pkg/report"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

var exportNow = time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)

type delivery struct {
	filename    string
	contentType string
	content     []byte
}

type recordingSink struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
}

func (s *recordingSink) Deliver(ctx context.Context, filename string, contentType string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.deliveries = append(s.deliveries, delivery{filename: filename, contentType: contentType, content: content})
	return nil
}

func (s *recordingSink) Name() string {
	return "recording"
}

type exportFixture struct {
	ctx      context.Context
	store    *tracker.ServiceImpl
	repo     *tracker.RepositoryStub
	clock    *utils.MockClock
	reports  *report.ServiceImpl
	service  *ServiceImpl
	importer *Importer
	sink     *recordingSink
}

func setupExportTest(t *testing.T) exportFixture {
	t.Helper()
	repo := tracker.NewRepositoryStub()
	clock := utils.NewMockClock(exportNow)
	store := tracker.NewService(repo, lock.NewKeyedMutex(), clock, rand.New(rand.NewPCG(3, 5)), event_bus.NewEventBus())
	reports := report.NewService(store, clock)
	sink := &recordingSink{}
	return exportFixture{
		ctx:      context.Background(),
		store:    store,
		repo:     repo,
		clock:    clock,
		reports:  reports,
		service:  NewService(store, reports, sink, clock),
		importer: NewImporter(store),
		sink:     sink,
	}
}

func (f exportFixture) upsert(t *testing.T, patches ...tracker.EntryPatch) {
	t.Helper()
	for _, patch := range patches {
		_, err := f.store.Upsert(f.ctx, patch)
		require.NoError(t, err)
	}
}

// sampleEntries is a day with a dinner override and quoted notes followed by an empty day.
func sampleEntries() []tracker.EntryPatch {
	return []tracker.EntryPatch{
		{
			Date:        "2024-03-01",
			LunchType:   tracker.Some(tracker.MealFull),
			DinnerType:  tracker.Some(tracker.MealHalf),
			DinnerPrice: tracker.Some(tracker.Price(40)),
			Notes:       tracker.Some(`Said "extra roti"`),
		},
		{
			Date: "2024-03-02",
		},
	}
}

var errSinkDown = errors.New("connection refused")
