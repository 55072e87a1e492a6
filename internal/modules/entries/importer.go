package entries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ErrNoFileUploaded signals a missing or empty upload, rejected before any
// parsing is attempted.
var ErrNoFileUploaded = errors.New("no file uploaded")

// MissingColumnsError reports every required column absent from an uploaded
// file, not just the first.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing columns: %s", strings.Join(e.Columns, ", "))
}

// RowError reports a malformed value in a specific data row. Row numbers are
// 1-based and count the header.
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: invalid %s: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Importer turns an uploaded ;-separated file into validated entry
// insertions. All rows from one file are inserted in a single transaction;
// any failure means nothing is persisted.
type Importer struct {
	repo *Repository
	log  zerolog.Logger
}

// NewImporter creates a new CSV importer feeding the given repository
func NewImporter(repo *Repository, log zerolog.Logger) *Importer {
	return &Importer{
		repo: repo,
		log:  log.With().Str("component", "importer").Logger(),
	}
}

// Import parses and stores the uploaded file, returning the number of rows
// imported.
func (imp *Importer) Import(r io.Reader) (int, error) {
	batch, err := Parse(r)
	if err != nil {
		return 0, err
	}
	if err := imp.repo.InsertMany(batch); err != nil {
		return 0, err
	}
	imp.log.Info().Int("rows", len(batch)).Msg("Imported entries from CSV")
	return len(batch), nil
}

// Parse reads a ;-separated file into a batch of validated entries without
// touching the database.
//
// The header row must contain all required columns (any order, extra columns
// are ignored). Dates are normalized to YYYY-MM-DD.
func Parse(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoFileUploaded
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map column name -> position
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.ToLower(name))] = i
	}

	var missing []string
	for _, column := range Columns {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	var batch []Entry
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}

		field := func(name string) string {
			i := index[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		date, err := NormalizeDate(field("date"))
		if err != nil {
			return nil, &RowError{Row: row, Column: "date", Err: err}
		}
		amount, err := strconv.ParseFloat(field("amount"), 64)
		if err != nil {
			return nil, &RowError{Row: row, Column: "amount", Err: err}
		}

		entry := Entry{
			Date:     date,
			Shop:     field("shop"),
			Product:  field("product"),
			Amount:   amount,
			Category: field("category"),
			Person:   field("person"),
			Currency: field("currency"),
		}
		if err := entry.Validate(); err != nil {
			return nil, &RowError{Row: row, Column: "entry", Err: err}
		}
		batch = append(batch, entry)
	}

	return batch, nil
}
