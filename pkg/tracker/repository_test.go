package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiffintracker/tiffin/internal/test_utils"
)

func setupTestRepository(t *testing.T) Repository {
	db := test_utils.SetupTestDB(t)
	return NewRepository(db)
}

func TestRepositoryImpl(t *testing.T) {
	testRepositoryContract(t, setupTestRepository)
}

func TestRepositoryStub(t *testing.T) {
	testRepositoryContract(t, func(t *testing.T) Repository {
		return NewRepositoryStub()
	})
}

var baseTime = time.Date(2024, 3, 1, 8, 30, 0, 123456000, time.UTC)

func testEntry(date string, lunch, dinner MealType) DayEntry {
	return DayEntry{
		ID:         "id-" + date,
		Date:       date,
		LunchType:  lunch,
		DinnerType: dinner,
		Notes:      "",
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	}
}

func assertEntryEqual(t *testing.T, expected DayEntry, actual DayEntry) {
	t.Helper()
	assert.Equal(t, expected.ID, actual.ID)
	assert.Equal(t, expected.Date, actual.Date)
	assert.Equal(t, expected.LunchType, actual.LunchType)
	assert.Equal(t, expected.DinnerType, actual.DinnerType)
	assert.Equal(t, expected.LunchPrice, actual.LunchPrice)
	assert.Equal(t, expected.DinnerPrice, actual.DinnerPrice)
	assert.Equal(t, expected.Notes, actual.Notes)
	assert.True(t, expected.CreatedAt.Equal(actual.CreatedAt), "createdAt %v != %v", expected.CreatedAt, actual.CreatedAt)
	assert.True(t, expected.UpdatedAt.Equal(actual.UpdatedAt), "updatedAt %v != %v", expected.UpdatedAt, actual.UpdatedAt)
}

func entryDates(entries []DayEntry) []string {
	dates := make([]string, 0, len(entries))
	for _, e := range entries {
		dates = append(dates, e.Date)
	}
	return dates
}

func storeEntries(t *testing.T, repo Repository, entries ...DayEntry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, repo.StoreEntry(context.Background(), e))
	}
}

func testRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("should store and read back an entry", func(t *testing.T) {
		// given
		repo := newRepo(t)
		entry := testEntry("2024-03-01", MealFull, MealHalf)
		entry.LunchPrice = Price(72.5)
		entry.Notes = `said "no onions", thanks`
		entry.UpdatedAt = baseTime.Add(90 * time.Minute)

		// when
		err := repo.StoreEntry(ctx, entry)

		// then
		require.NoError(t, err)
		stored, err := repo.GetEntry(ctx, "2024-03-01")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assertEntryEqual(t, entry, *stored)
	})

	t.Run("should return nil for a missing date", func(t *testing.T) {
		repo := newRepo(t)

		stored, err := repo.GetEntry(ctx, "2024-03-01")

		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("should replace the entry stored under the same date", func(t *testing.T) {
		// given
		repo := newRepo(t)
		storeEntries(t, repo, testEntry("2024-03-01", MealFull, MealFull))
		replacement := testEntry("2024-03-01", MealNone, MealHalf)
		replacement.ID = "replacement-id"
		replacement.DinnerPrice = Price(40)

		// when
		err := repo.StoreEntry(ctx, replacement)

		// then
		require.NoError(t, err)
		all, err := repo.GetAllEntries(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assertEntryEqual(t, replacement, all[0])
	})

	t.Run("should return an inclusive range in ascending order", func(t *testing.T) {
		// given
		repo := newRepo(t)
		storeEntries(t, repo,
			testEntry("2024-04-01", MealFull, MealFull),
			testEntry("2024-03-10", MealHalf, MealNone),
			testEntry("2024-02-29", MealFull, MealNone),
			testEntry("2024-03-01", MealHalf, MealHalf),
			testEntry("2024-03-05", MealNone, MealFull),
		)

		// when
		entries, err := repo.GetEntriesInRange(ctx, "2024-03-01", "2024-03-10")

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-03-01", "2024-03-05", "2024-03-10"}, entryDates(entries))
	})

	t.Run("should return a single day range", func(t *testing.T) {
		repo := newRepo(t)
		storeEntries(t, repo, testEntry("2024-03-05", MealHalf, MealNone), testEntry("2024-03-06", MealHalf, MealNone))

		entries, err := repo.GetEntriesInRange(ctx, "2024-03-05", "2024-03-05")

		require.NoError(t, err)
		assert.Equal(t, []string{"2024-03-05"}, entryDates(entries))
	})

	t.Run("should return an empty slice for a range without entries", func(t *testing.T) {
		repo := newRepo(t)
		storeEntries(t, repo, testEntry("2024-03-05", MealHalf, MealNone))

		entries, err := repo.GetEntriesInRange(ctx, "2024-05-01", "2024-05-31")

		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	t.Run("should list all entries newest first", func(t *testing.T) {
		repo := newRepo(t)
		storeEntries(t, repo,
			testEntry("2024-03-05", MealHalf, MealNone),
			testEntry("2023-12-31", MealHalf, MealNone),
			testEntry("2024-01-15", MealHalf, MealNone),
		)

		entries, err := repo.GetAllEntries(ctx)

		require.NoError(t, err)
		assert.Equal(t, []string{"2024-03-05", "2024-01-15", "2023-12-31"}, entryDates(entries))
	})

	t.Run("should delete a single entry", func(t *testing.T) {
		// given
		repo := newRepo(t)
		storeEntries(t, repo, testEntry("2024-03-05", MealHalf, MealNone), testEntry("2024-03-06", MealHalf, MealNone))

		// when
		deleted, err := repo.DeleteEntry(ctx, "2024-03-05")

		// then
		require.NoError(t, err)
		assert.True(t, deleted)
		stored, err := repo.GetEntry(ctx, "2024-03-05")
		require.NoError(t, err)
		assert.Nil(t, stored)
		other, err := repo.GetEntry(ctx, "2024-03-06")
		require.NoError(t, err)
		assert.NotNil(t, other)
	})

	t.Run("should reject an id already used by another date", func(t *testing.T) {
		// given
		repo := newRepo(t)
		first := testEntry("2024-03-05", MealHalf, MealNone)
		storeEntries(t, repo, first)
		clash := testEntry("2024-03-06", MealFull, MealFull)
		clash.ID = first.ID

		// when
		err := repo.StoreEntry(ctx, clash)

		// then
		assert.Error(t, err)
		all, err := repo.GetAllEntries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-03-05"}, entryDates(all))
	})

	t.Run("should keep the id when replacing the same date", func(t *testing.T) {
		repo := newRepo(t)
		entry := testEntry("2024-03-05", MealHalf, MealNone)
		storeEntries(t, repo, entry)
		entry.LunchType = MealFull

		require.NoError(t, repo.StoreEntry(ctx, entry))

		stored, err := repo.GetEntry(ctx, "2024-03-05")
		require.NoError(t, err)
		assert.Equal(t, entry.ID, stored.ID)
		assert.Equal(t, MealFull, stored.LunchType)
	})

	t.Run("should report nothing deleted for a missing date", func(t *testing.T) {
		repo := newRepo(t)

		deleted, err := repo.DeleteEntry(ctx, "2024-03-05")

		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("should delete all entries", func(t *testing.T) {
		repo := newRepo(t)
		storeEntries(t, repo, testEntry("2024-03-05", MealHalf, MealNone), testEntry("2024-03-06", MealHalf, MealNone))

		removed, err := repo.DeleteAllEntries(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, removed)
		all, err := repo.GetAllEntries(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("should start with default settings", func(t *testing.T) {
		repo := newRepo(t)

		settings, err := repo.GetSettings(ctx)

		require.NoError(t, err)
		assert.Equal(t, DefaultSettings(), settings)
	})

	t.Run("should store settings", func(t *testing.T) {
		// given
		repo := newRepo(t)
		settings := Settings{HalfPrice: 45.5, FullPrice: 80, Currency: "USD", DisplayName: "Ravi", HasDemoData: true}

		// when
		err := repo.StoreSettings(ctx, settings)

		// then
		require.NoError(t, err)
		stored, err := repo.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, settings, stored)
	})

	t.Run("should commit a successful transaction", func(t *testing.T) {
		repo := newRepo(t)

		err := repo.WithTransaction(ctx, func(tx Repository) error {
			if err := tx.StoreEntry(ctx, testEntry("2024-03-05", MealHalf, MealNone)); err != nil {
				return err
			}
			stored, err := tx.GetEntry(ctx, "2024-03-05")
			if err != nil {
				return err
			}
			assert.NotNil(t, stored, "writes must be visible inside the transaction")
			return tx.StoreSettings(ctx, Settings{HalfPrice: 1, FullPrice: 2, Currency: "INR", DisplayName: "User"})
		})

		require.NoError(t, err)
		stored, err := repo.GetEntry(ctx, "2024-03-05")
		require.NoError(t, err)
		assert.NotNil(t, stored)
		settings, err := repo.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1.0, settings.HalfPrice)
	})

	t.Run("should roll back a failed transaction", func(t *testing.T) {
		// given
		repo := newRepo(t)
		storeEntries(t, repo, testEntry("2024-03-01", MealFull, MealFull))
		failure := errors.New("abort")

		// when
		err := repo.WithTransaction(ctx, func(tx Repository) error {
			if _, err := tx.DeleteAllEntries(ctx); err != nil {
				return err
			}
			if err := tx.StoreEntry(ctx, testEntry("2024-03-05", MealHalf, MealNone)); err != nil {
				return err
			}
			if err := tx.StoreSettings(ctx, Settings{HalfPrice: 1, FullPrice: 2, Currency: "INR"}); err != nil {
				return err
			}
			return failure
		})

		// then
		assert.ErrorIs(t, err, failure)
		all, err := repo.GetAllEntries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-03-01"}, entryDates(all))
		settings, err := repo.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, DefaultSettings(), settings)
	})
}

func TestRepositoryStub_FailAfterWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewRepositoryStub()
	failure := errors.New("disk full")
	repo.FailAfterWrites(1, failure)

	err := repo.WithTransaction(ctx, func(tx Repository) error {
		if err := tx.StoreEntry(ctx, testEntry("2024-03-01", MealHalf, MealNone)); err != nil {
			return err
		}
		return tx.StoreEntry(ctx, testEntry("2024-03-02", MealHalf, MealNone))
	})

	assert.ErrorIs(t, err, failure)
	assert.Zero(t, repo.EntryCount())
}
