package entries

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the canonical date representation used throughout the
// service. Entries have date-only semantics; times of day are discarded.
const DateFormat = "2006-01-02"

// Entry represents a single budget entry (one recorded expense transaction).
// A nil ID marks a record that has not been persisted yet.
type Entry struct {
	ID       *int64  `json:"id,omitempty"`
	Date     string  `json:"date"` // YYYY-MM-DD
	Shop     string  `json:"shop"`
	Product  string  `json:"product"`
	Amount   float64 `json:"amount"` // signed; non-positive values are stored but excluded from reports
	Category string  `json:"category"`
	Person   string  `json:"person"`
	Currency string  `json:"currency"`

	// Set during JSON decoding when the amount field was absent. A zero
	// amount cannot stand in for "not sent": 0 is a valid stored value.
	amountMissing bool
}

// UnmarshalJSON decodes an entry while recording whether the amount field
// was present in the payload, so Validate can reject its absence.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	aux := struct {
		Amount *float64 `json:"amount"`
		*plain
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Amount == nil {
		e.amountMissing = true
		return nil
	}
	e.Amount = *aux.Amount
	e.amountMissing = false
	return nil
}

// Columns lists the required CSV / wire columns, i.e. every field except id.
var Columns = []string{"date", "shop", "product", "amount", "category", "person", "currency"}

// ErrProcessing signals an integrity failure while applying a batch of
// entries. The whole batch has been rolled back.
var ErrProcessing = errors.New("error processing entries")

// Validate checks that all required fields are present and the date parses.
func (e *Entry) Validate() error {
	var missing []string
	if e.Date == "" {
		missing = append(missing, "date")
	}
	if e.Shop == "" {
		missing = append(missing, "shop")
	}
	if e.Product == "" {
		missing = append(missing, "product")
	}
	if e.amountMissing {
		missing = append(missing, "amount")
	}
	if e.Category == "" {
		missing = append(missing, "category")
	}
	if e.Person == "" {
		missing = append(missing, "person")
	}
	if e.Currency == "" {
		missing = append(missing, "currency")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	normalized, err := NormalizeDate(e.Date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", e.Date, err)
	}
	e.Date = normalized
	return nil
}

// NormalizeDate parses a date string in one of the accepted layouts and
// returns it in the canonical YYYY-MM-DD form.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	layouts := []string{
		DateFormat,
		"2006-01-02 15:04:05",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateFormat), nil
		}
	}
	return "", fmt.Errorf("unrecognized date format")
}

// Summary holds aggregate information about the stored entries.
// MinDate and MaxDate are nil when the table is empty.
type Summary struct {
	EntriesNumber    int64   `json:"entries_number"`
	MinDate          *string `json:"min_date"`
	MaxDate          *string `json:"max_date"`
	CategoriesNumber int64   `json:"categories_number"`
	PersonsNumber    int64   `json:"persons_number"`
}
