package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// PostgresRepository stores entries in Postgres. Timestamps are TIMESTAMPTZ and
// are always handed back in UTC.
type PostgresRepository struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// getQueryer returns the appropriate database interface for queries (either tx or db)
func (r *PostgresRepository) getQueryer() interface {
	Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *PostgresRepository) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// The Rollback will be a no-op if the transaction was already committed
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	txRepo := &PostgresRepository{db: r.db, tx: tx}

	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetEntry(ctx context.Context, date string) (*DayEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM day_entries WHERE date = $1`

	entry, err := scanPgEntry(r.getQueryer().QueryRow(ctx, query, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		err := fmt.Errorf("could not get entry for %s: %w", date, err)
		log.Error(err)
		return nil, err
	}
	return &entry, nil
}

func (r *PostgresRepository) StoreEntry(ctx context.Context, entry DayEntry) error {
	query := `INSERT INTO day_entries (` + entryColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  ON CONFLICT (date) DO UPDATE SET
			      id = excluded.id,
			      lunch_type = excluded.lunch_type,
			      dinner_type = excluded.dinner_type,
			      lunch_price = excluded.lunch_price,
			      dinner_price = excluded.dinner_price,
			      notes = excluded.notes,
			      created_at = excluded.created_at,
			      updated_at = excluded.updated_at`

	_, err := r.getQueryer().Exec(ctx, query,
		entry.ID,
		entry.Date,
		string(entry.LunchType),
		string(entry.DinnerType),
		entry.LunchPrice,
		entry.DinnerPrice,
		entry.Notes,
		entry.CreatedAt.UTC(),
		entry.UpdatedAt.UTC(),
	)
	if err != nil {
		err := fmt.Errorf("could not store entry for %s: %w", entry.Date, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *PostgresRepository) DeleteEntry(ctx context.Context, date string) (bool, error) {
	result, err := r.getQueryer().Exec(ctx, `DELETE FROM day_entries WHERE date = $1`, date)
	if err != nil {
		err := fmt.Errorf("could not delete entry for %s: %w", date, err)
		log.Error(err)
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *PostgresRepository) GetEntriesInRange(ctx context.Context, start, end string) ([]DayEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM day_entries WHERE date >= $1 AND date <= $2 ORDER BY date ASC`
	return r.queryEntries(ctx, query, start, end)
}

func (r *PostgresRepository) GetAllEntries(ctx context.Context) ([]DayEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM day_entries ORDER BY date DESC`
	return r.queryEntries(ctx, query)
}

func (r *PostgresRepository) DeleteAllEntries(ctx context.Context) (int, error) {
	result, err := r.getQueryer().Exec(ctx, `DELETE FROM day_entries`)
	if err != nil {
		err := fmt.Errorf("could not delete entries: %w", err)
		log.Error(err)
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

func (r *PostgresRepository) GetSettings(ctx context.Context) (Settings, error) {
	query := `SELECT half_price, full_price, currency, display_name, has_demo_data FROM settings WHERE id = 1`

	var settings Settings
	err := r.getQueryer().QueryRow(ctx, query).Scan(
		&settings.HalfPrice,
		&settings.FullPrice,
		&settings.Currency,
		&settings.DisplayName,
		&settings.HasDemoData,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultSettings(), nil
		}
		err := fmt.Errorf("could not get settings: %w", err)
		log.Error(err)
		return Settings{}, err
	}
	return settings, nil
}

func (r *PostgresRepository) StoreSettings(ctx context.Context, settings Settings) error {
	query := `INSERT INTO settings (id, half_price, full_price, currency, display_name, has_demo_data)
			  VALUES (1, $1, $2, $3, $4, $5)
			  ON CONFLICT (id) DO UPDATE SET
			      half_price = excluded.half_price,
			      full_price = excluded.full_price,
			      currency = excluded.currency,
			      display_name = excluded.display_name,
			      has_demo_data = excluded.has_demo_data`

	_, err := r.getQueryer().Exec(ctx, query,
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

func (r *PostgresRepository) queryEntries(ctx context.Context, query string, args ...any) ([]DayEntry, error) {
	rows, err := r.getQueryer().Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query entries: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	entries := make([]DayEntry, 0, 31)
	for rows.Next() {
		entry, err := scanPgEntry(rows)
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

func scanPgEntry(row rowScanner) (DayEntry, error) {
	var entry DayEntry
	var lunchType, dinnerType string
	err := row.Scan(
		&entry.ID,
		&entry.Date,
		&lunchType,
		&dinnerType,
		&entry.LunchPrice,
		&entry.DinnerPrice,
		&entry.Notes,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return DayEntry{}, err
	}
	entry.LunchType = MealType(lunchType)
	entry.DinnerType = MealType(dinnerType)
	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	return entry, nil
}
