package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/internal/event_bus"
	"github.com/tiffintracker/tiffin/internal/lock"
	"github.com/tiffintracker/tiffin/internal/utils"
	"github.com/tiffintracker/tiffin/pkg/date_range"
)

type Service interface {
	// GetByDate returns nil, nil when nothing is recorded for date.
	GetByDate(ctx context.Context, date string) (*DayEntry, error)
	Upsert(ctx context.Context, patch EntryPatch) (DayEntry, error)
	Delete(ctx context.Context, date string) error
	GetRange(ctx context.Context, start, end string) ([]DayEntry, error)
	GetAll(ctx context.Context) ([]DayEntry, error)
	GetSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error)
	ClearAll(ctx context.Context) error
	SeedDemoData(ctx context.Context) (int, error)
	RestoreBackup(ctx context.Context, restore Restore) error
}

// RandomSource picks demo meal types. *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type ServiceImpl struct {
	repo     Repository
	locker   lock.Locker
	clock    utils.Clock
	random   RandomSource
	randomMu sync.Mutex
	eventBus *event_bus.EventBus
}

func NewService(
	repo Repository,
	locker lock.Locker,
	clock utils.Clock,
	random RandomSource,
	eventBus *event_bus.EventBus,
) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		locker:   locker,
		clock:    clock,
		random:   random,
		eventBus: eventBus,
	}
}

func (s *ServiceImpl) GetByDate(ctx context.Context, date string) (*DayEntry, error) {
	if _, err := date_range.ParseDate(date); err != nil {
		return nil, err
	}
	return s.repo.GetEntry(ctx, date)
}

// Upsert merges patch into the entry for patch.Date, creating it if needed.
// Concurrent upserts for the same date are serialized by the locker.
func (s *ServiceImpl) Upsert(ctx context.Context, patch EntryPatch) (DayEntry, error) {
	if _, err := date_range.ParseDate(patch.Date); err != nil {
		return DayEntry{}, err
	}

	unlock, err := s.locker.Lock(ctx, patch.Date)
	if err != nil {
		return DayEntry{}, fmt.Errorf("could not lock %s: %w", patch.Date, err)
	}
	defer unlock()

	var saved DayEntry
	var created bool
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		var err error
		saved, created, err = s.upsertEntry(ctx, repo, RestoredEntry{Patch: patch}, s.now(), nil)
		return err
	})
	if err != nil {
		return DayEntry{}, err
	}
	log.Tracef("upserted entry: %+v", saved)

	s.publish(ctx, event_bus.EntryUpsertedType, event_bus.EntryUpserted{
		EntryId: saved.ID,
		Date:    saved.Date,
		Created: created,
	})
	return saved, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, date string) error {
	if _, err := date_range.ParseDate(date); err != nil {
		return err
	}

	unlock, err := s.locker.Lock(ctx, date)
	if err != nil {
		return fmt.Errorf("could not lock %s: %w", date, err)
	}
	defer unlock()

	deleted, err := s.repo.DeleteEntry(ctx, date)
	if err != nil {
		return err
	}
	if !deleted {
		log.Debugf("no entry to delete for %s", date)
		return nil
	}
	s.publish(ctx, event_bus.EntryDeletedType, event_bus.EntryDeleted{Date: date})
	return nil
}

func (s *ServiceImpl) GetRange(ctx context.Context, start, end string) ([]DayEntry, error) {
	if err := date_range.ValidateRange(start, end); err != nil {
		return nil, err
	}
	return s.repo.GetEntriesInRange(ctx, start, end)
}

func (s *ServiceImpl) GetAll(ctx context.Context) ([]DayEntry, error) {
	return s.repo.GetAllEntries(ctx)
}

func (s *ServiceImpl) GetSettings(ctx context.Context) (Settings, error) {
	return s.repo.GetSettings(ctx)
}

func (s *ServiceImpl) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	var saved Settings
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		var err error
		saved, err = updateSettings(ctx, repo, patch)
		return err
	})
	if err != nil {
		return Settings{}, err
	}
	return saved, nil
}

// ClearAll removes every entry and resets the demo flag. Other settings are kept.
func (s *ServiceImpl) ClearAll(ctx context.Context) error {
	removed := 0
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		var err error
		removed, err = repo.DeleteAllEntries(ctx)
		if err != nil {
			return err
		}
		_, err = updateSettings(ctx, repo, SettingsPatch{HasDemoData: Some(false)})
		return err
	})
	if err != nil {
		return err
	}
	log.Infof("cleared all data, %d entries removed", removed)

	s.publish(ctx, event_bus.DataClearedType, event_bus.DataCleared{EntriesRemoved: removed})
	return nil
}

// SeedDemoData writes a random entry for every day from the 1st of the current
// month up to today, replacing whatever was there, and marks the store as holding
// demo data. It returns the number of days written.
func (s *ServiceImpl) SeedDemoData(ctx context.Context) (int, error) {
	today := s.clock.Now()
	month := date_range.Range{
		Start: date_range.FormatDate(time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())),
		End:   date_range.FormatDate(today),
	}
	days, err := month.Days()
	if err != nil {
		return 0, err
	}

	now := s.now()
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		for _, day := range days {
			entry := DayEntry{
				ID:         uuid.NewString(),
				Date:       day,
				LunchType:  s.randomMealType(),
				DinnerType: s.randomMealType(),
				Notes:      "",
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := repo.StoreEntry(ctx, entry); err != nil {
				return err
			}
		}
		_, err := updateSettings(ctx, repo, SettingsPatch{HasDemoData: Some(true)})
		return err
	})
	if err != nil {
		return 0, err
	}
	log.Infof("seeded demo data for %d days", len(days))

	s.publish(ctx, event_bus.DemoSeededType, event_bus.DemoSeeded{
		Month: today.Format("2006-01"),
		Days:  len(days),
	})
	return len(days), nil
}

// RestoreBackup applies a parsed backup in a single transaction: settings first,
// then every entry with the usual merge rule.
func (s *ServiceImpl) RestoreBackup(ctx context.Context, restore Restore) error {
	now := s.now()
	adoptedIds := make(map[string]struct{}, len(restore.Entries))
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		if restore.Settings != nil {
			if _, err := updateSettings(ctx, repo, *restore.Settings); err != nil {
				return err
			}
		}
		for _, restored := range restore.Entries {
			if _, _, err := s.upsertEntry(ctx, repo, restored, now, adoptedIds); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Infof("restored backup with %d entries", len(restore.Entries))

	s.publish(ctx, event_bus.BackupRestoredType, event_bus.BackupRestored{
		Entries:          len(restore.Entries),
		SettingsRestored: restore.Settings != nil,
	})
	return nil
}

// upsertEntry does the read-merge-write for one date on repo. When adoptedIds is
// non-nil the backup identity of new dates is kept, unless the id was already used.
func (s *ServiceImpl) upsertEntry(
	ctx context.Context,
	repo Repository,
	restored RestoredEntry,
	now time.Time,
	adoptedIds map[string]struct{},
) (DayEntry, bool, error) {
	patch := restored.Patch
	if _, err := date_range.ParseDate(patch.Date); err != nil {
		return DayEntry{}, false, err
	}
	existing, err := repo.GetEntry(ctx, patch.Date)
	if err != nil {
		return DayEntry{}, false, err
	}

	id := uuid.NewString()
	createdAt := now
	if existing == nil && adoptedIds != nil {
		if _, used := adoptedIds[restored.ID]; restored.ID != "" && !used {
			id = restored.ID
		}
		if restored.CreatedAt != nil {
			createdAt = restored.CreatedAt.UTC()
		}
	}

	merged := mergeEntry(existing, patch, now, id, createdAt)
	if err := ValidateEntry(merged); err != nil {
		return DayEntry{}, false, err
	}
	if adoptedIds != nil {
		adoptedIds[merged.ID] = struct{}{}
	}
	if err := repo.StoreEntry(ctx, merged); err != nil {
		return DayEntry{}, false, err
	}
	return merged, existing == nil, nil
}

func updateSettings(ctx context.Context, repo Repository, patch SettingsPatch) (Settings, error) {
	current, err := repo.GetSettings(ctx)
	if err != nil {
		return Settings{}, err
	}
	merged := mergeSettings(current, patch)
	if err := ValidateSettings(merged); err != nil {
		return Settings{}, err
	}
	if err := repo.StoreSettings(ctx, merged); err != nil {
		return Settings{}, err
	}
	return merged, nil
}

func (s *ServiceImpl) randomMealType() MealType {
	s.randomMu.Lock()
	defer s.randomMu.Unlock()
	return MealTypes[s.random.IntN(len(MealTypes))]
}

// now is the timestamp stored on entries: UTC, at the precision every backend keeps.
func (s *ServiceImpl) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if s.eventBus == nil {
		return
	}
	// The change is already committed; a failing subscriber must not turn it into an error.
	err := s.eventBus.Publish(event_bus.NewEventAt(ctx, eventType, data, s.clock.Now()))
	if err != nil {
		log.Errorf("failed to publish %s event: %v", eventType, err)
	}
}
