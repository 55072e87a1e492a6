// Package reports aggregates stored budget entries into named report
// documents and caches the latest document per report kind in an object
// store.
package reports

import "errors"

// Kind identifies a supported report.
type Kind string

const (
	// ExpensesPerCategory groups positive amounts by time bucket, then
	// category.
	ExpensesPerCategory Kind = "expenses_per_category"
	// ExpensesPerInterval is the symmetric view: category first, then time
	// bucket.
	ExpensesPerInterval Kind = "expenses_per_interval"
	// MeanExpensesPerDay plots the summed expenses of each day together
	// with their mean.
	MeanExpensesPerDay Kind = "mean_expenses_per_day"
)

var (
	// ErrInvalidReportKind rejects report names outside the supported set.
	ErrInvalidReportKind = errors.New("invalid report type")
	// ErrReportNotFound signals that no report of the requested kind has
	// been generated yet.
	ErrReportNotFound = errors.New("no report found")
)

// ParseKind maps a report name from the URL to its Kind, rejecting unknown
// names.
func ParseKind(name string) (Kind, error) {
	kind := Kind(name)
	if _, ok := generators[kind]; !ok {
		return "", ErrInvalidReportKind
	}
	return kind, nil
}

// Document is a generated report ready for JSON serialization. The concrete
// shape differs per report kind.
type Document map[string]any

// Buckets holds one aggregation level of a report: parallel label and amount
// arrays, e.g. {"category": [...], "amount": [...]}.
type Buckets map[string]any
