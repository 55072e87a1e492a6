// Package entries implements the budget entry store: durable CRUD over
// budget_entries rows plus bulk upsert and CSV import.
package entries

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"budget/internal/database"
)

// Repository handles budget entry persistence.
//
// All SQL uses $N placeholders, which both the PostgreSQL and SQLite drivers
// accept, so the same repository serves production and in-memory test
// databases.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new budget entry repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "entries").Logger(),
	}
}

const entryColumns = "id, date, shop, product, amount, category, person, currency"

// Create inserts a single entry. The assigned id is written back to e.ID.
func (r *Repository) Create(e *Entry) error {
	query := `
		INSERT INTO budget_entries (date, shop, product, amount, category, person, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(query, e.Date, e.Shop, e.Product, e.Amount, e.Category, e.Person, e.Currency).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	e.ID = &id
	return nil
}

// List returns entries ordered most-recent-first (date descending, ties
// broken by highest id), honoring an offset/limit window. A non-positive
// limit returns all entries from skip onward; the reporting path relies on
// List(0, 0) to read the full table.
func (r *Repository) List(skip, limit int) ([]Entry, error) {
	query := "SELECT " + entryColumns + " FROM budget_entries ORDER BY date DESC, id DESC"

	var (
		rows *sql.Rows
		err  error
	)
	if limit <= 0 && skip <= 0 {
		rows, err = r.db.Query(query)
	} else {
		if limit <= 0 {
			// Skip without a cap: both drivers want LIMIT before OFFSET
			limit = math.MaxInt32
		}
		rows, err = r.db.Query(query+" LIMIT $1 OFFSET $2", limit, skip)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListAll returns every entry, most-recent-first.
func (r *Repository) ListAll() ([]Entry, error) {
	return r.List(0, 0)
}

// Summary returns aggregate counts and the date bounds over the whole table.
// Date bounds are nil when the table is empty.
func (r *Repository) Summary() (*Summary, error) {
	query := `
		SELECT COUNT(id), MIN(date), MAX(date),
		       COUNT(DISTINCT category), COUNT(DISTINCT person)
		FROM budget_entries
	`

	var (
		s                Summary
		minDate, maxDate sql.NullString
	)
	err := r.db.QueryRow(query).Scan(&s.EntriesNumber, &minDate, &maxDate, &s.CategoriesNumber, &s.PersonsNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries summary: %w", err)
	}
	if minDate.Valid {
		s.MinDate = &minDate.String
	}
	if maxDate.Valid {
		s.MaxDate = &maxDate.String
	}
	return &s, nil
}

// UpsertMany applies a batch of entries within a single transaction.
// An entry with a nil id is inserted; an entry whose id matches an existing
// row overwrites every field of that row; an entry with an unmatched id is
// inserted under that id. Any integrity violation aborts and rolls back the
// entire batch, surfaced as ErrProcessing - no partial commit.
func (r *Repository) UpsertMany(batch []Entry) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for i := range batch {
			if err := upsertOne(tx, &batch[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isConstraintViolation(err) {
			r.log.Warn().Err(err).Int("batch_size", len(batch)).Msg("Entry batch rolled back")
			return fmt.Errorf("%w: %v", ErrProcessing, err)
		}
		return err
	}
	return nil
}

// InsertMany inserts a batch of new entries within a single transaction.
// Used by the CSV importer; ids on the inputs are ignored.
func (r *Repository) InsertMany(batch []Entry) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for i := range batch {
			if err := insertNew(tx, &batch[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %v", ErrProcessing, err)
		}
		return err
	}
	return nil
}

// DeleteAll removes every entry unconditionally.
func (r *Repository) DeleteAll() error {
	result, err := r.db.Exec("DELETE FROM budget_entries")
	if err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil {
		r.log.Info().Int64("deleted", n).Msg("Deleted all entries")
	}
	return nil
}

// upsertOne updates the row matching e.ID, inserting instead when the id is
// nil or matches no row. Row-not-found is the trigger for the insert branch,
// never an error.
func upsertOne(tx *sql.Tx, e *Entry) error {
	if e.ID == nil {
		return insertNew(tx, e)
	}

	query := `
		UPDATE budget_entries
		SET date = $1, shop = $2, product = $3, amount = $4,
		    category = $5, person = $6, currency = $7
		WHERE id = $8
	`
	result, err := tx.Exec(query, e.Date, e.Shop, e.Product, e.Amount, e.Category, e.Person, e.Currency, *e.ID)
	if err != nil {
		return fmt.Errorf("failed to update entry %d: %w", *e.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// No matching row: insert under the requested id
	insert := `
		INSERT INTO budget_entries (id, date, shop, product, amount, category, person, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.Exec(insert, *e.ID, e.Date, e.Shop, e.Product, e.Amount, e.Category, e.Person, e.Currency); err != nil {
		return fmt.Errorf("failed to insert entry with id %d: %w", *e.ID, err)
	}
	return nil
}

func insertNew(tx *sql.Tx, e *Entry) error {
	query := `
		INSERT INTO budget_entries (date, shop, product, amount, category, person, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	if err := tx.QueryRow(query, e.Date, e.Shop, e.Product, e.Amount, e.Category, e.Person, e.Currency).Scan(&id); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	e.ID = &id
	return nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		var (
			e  Entry
			id int64
		)
		if err := rows.Scan(&id, &e.Date, &e.Shop, &e.Product, &e.Amount, &e.Category, &e.Person, &e.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.ID = &id
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// isConstraintViolation reports whether err is an integrity/uniqueness
// violation from either supported driver.
func isConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 23 - integrity constraint violation
		return strings.HasPrefix(string(pqErr.Code), "23")
	}
	return strings.Contains(strings.ToLower(err.Error()), "constraint")
}
