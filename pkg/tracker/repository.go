package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Repository is the storage boundary for day entries and settings. Every call
// returns after its write is durable, so a read issued afterwards observes it.
type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	// GetEntry returns nil, nil when no entry exists for date.
	GetEntry(ctx context.Context, date string) (*DayEntry, error)
	// StoreEntry inserts the entry or replaces the one stored under the same date.
	StoreEntry(ctx context.Context, entry DayEntry) error
	DeleteEntry(ctx context.Context, date string) (bool, error)
	// GetEntriesInRange returns entries with start <= date <= end ordered by date ascending.
	GetEntriesInRange(ctx context.Context, start, end string) ([]DayEntry, error)
	// GetAllEntries returns every entry ordered by date descending.
	GetAllEntries(ctx context.Context) ([]DayEntry, error)
	DeleteAllEntries(ctx context.Context) (int, error)
	GetSettings(ctx context.Context) (Settings, error)
	StoreSettings(ctx context.Context, settings Settings) error
}

type RepositoryImpl struct {
	db *sql.DB
	tx *sql.Tx
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db, tx: nil}
}

// getQueryer returns the appropriate database interface for queries (either tx or db)
func (r *RepositoryImpl) getQueryer() interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.tx != nil {
		// already inside a transaction, join it
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// The Rollback will be a no-op if the transaction was already committed
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	txRepo := &RepositoryImpl{db: r.db, tx: tx}

	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

const entryColumns = `id, date, lunch_type, dinner_type, lunch_price, dinner_price, notes, created_at, updated_at`

func (r *RepositoryImpl) GetEntry(ctx context.Context, date string) (*DayEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM day_entries WHERE date = ?`

	entry, err := scanEntry(r.getQueryer().QueryRowContext(ctx, query, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		err := fmt.Errorf("could not get entry for %s: %w", date, err)
		log.Error(err)
		return nil, err
	}
	return &entry, nil
}

func (r *RepositoryImpl) StoreEntry(ctx context.Context, entry DayEntry) error {
	query := `INSERT INTO day_entries (` + entryColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT (date) DO UPDATE SET
			      id = excluded.id,
			      lunch_type = excluded.lunch_type,
			      dinner_type = excluded.dinner_type,
			      lunch_price = excluded.lunch_price,
			      dinner_price = excluded.dinner_price,
			      notes = excluded.notes,
			      created_at = excluded.created_at,
			      updated_at = excluded.updated_at`

	_, err := r.getQueryer().ExecContext(ctx, query,
		entry.ID,
		entry.Date,
		string(entry.LunchType),
		string(entry.DinnerType),
		nullablePrice(entry.LunchPrice),
		nullablePrice(entry.DinnerPrice),
		entry.Notes,
		formatTimestamp(entry.CreatedAt),
		formatTimestamp(entry.UpdatedAt),
	)
	if err != nil {
		err := fmt.Errorf("could not store entry for %s: %w", entry.Date, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) DeleteEntry(ctx context.Context, date string) (bool, error) {
	result, err := r.getQueryer().ExecContext(ctx, `DELETE FROM day_entries WHERE date = ?`, date)
	if err != nil {
		err := fmt.Errorf("could not delete entry for %s: %w", date, err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get affected rows: %w", err)
		log.Error(err)
		return false, err
	}
	return affected > 0, nil
}

func (r *RepositoryImpl) GetEntriesInRange(ctx context.Context, start, end string) ([]DayEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM day_entries WHERE date >= ? AND date <= ? ORDER BY date ASC`
	return r.queryEntries(ctx, query, start, end)
}

func (r *RepositoryImpl) GetAllEntries(ctx context.Context) ([]DayEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM day_entries ORDER BY date DESC`
	return r.queryEntries(ctx, query)
}

func (r *RepositoryImpl) DeleteAllEntries(ctx context.Context) (int, error) {
	result, err := r.getQueryer().ExecContext(ctx, `DELETE FROM day_entries`)
	if err != nil {
		err := fmt.Errorf("could not delete entries: %w", err)
		log.Error(err)
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get affected rows: %w", err)
		log.Error(err)
		return 0, err
	}
	return int(affected), nil
}

func (r *RepositoryImpl) GetSettings(ctx context.Context) (Settings, error) {
	query := `SELECT half_price, full_price, currency, display_name, has_demo_data FROM settings WHERE id = 1`

	var settings Settings
	err := r.getQueryer().QueryRowContext(ctx, query).Scan(
		&settings.HalfPrice,
		&settings.FullPrice,
		&settings.Currency,
		&settings.DisplayName,
		&settings.HasDemoData,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DefaultSettings(), nil
		}
		err := fmt.Errorf("could not get settings: %w", err)
		log.Error(err)
		return Settings{}, err
	}
	return settings, nil
}

func (r *RepositoryImpl) StoreSettings(ctx context.Context, settings Settings) error {
	query := `INSERT INTO settings (id, half_price, full_price, currency, display_name, has_demo_data)
			  VALUES (1, ?, ?, ?, ?, ?)
			  ON CONFLICT (id) DO UPDATE SET
			      half_price = excluded.half_price,
			      full_price = excluded.full_price,
			      currency = excluded.currency,
			      display_name = excluded.display_name,
			      has_demo_data = excluded.has_demo_data`

	_, err := r.getQueryer().ExecContext(ctx, query,
		settings.HalfPrice,
		settings.FullPrice,
		settings.Currency,
		settings.DisplayName,
		settings.HasDemoData,
	)
	if err != nil {
		err := fmt.Errorf("could not store settings: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) queryEntries(ctx context.Context, query string, args ...any) ([]DayEntry, error) {
	rows, err := r.getQueryer().QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query entries: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	entries := make([]DayEntry, 0, 31)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("could not iterate entries: %w", err)
		log.Error(err)
		return nil, err
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (DayEntry, error) {
	var entry DayEntry
	var lunchType, dinnerType string
	var lunchPrice, dinnerPrice sql.NullFloat64
	var createdAt, updatedAt string
	err := row.Scan(
		&entry.ID,
		&entry.Date,
		&lunchType,
		&dinnerType,
		&lunchPrice,
		&dinnerPrice,
		&entry.Notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return DayEntry{}, err
	}
	entry.LunchType = MealType(lunchType)
	entry.DinnerType = MealType(dinnerType)
	entry.LunchPrice = priceFromNull(lunchPrice)
	entry.DinnerPrice = priceFromNull(dinnerPrice)
	if entry.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return DayEntry{}, err
	}
	if entry.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return DayEntry{}, err
	}
	return entry, nil
}

func nullablePrice(price *float64) sql.NullFloat64 {
	if price == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *price, Valid: true}
}

func priceFromNull(price sql.NullFloat64) *float64 {
	if !price.Valid {
		return nil
	}
	return Price(price.Float64)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}
