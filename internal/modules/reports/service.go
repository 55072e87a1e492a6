package reports

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"budget/internal/modules/entries"
)

// EntrySource provides the full entry set the aggregations run over.
type EntrySource interface {
	ListAll() ([]entries.Entry, error)
}

// Service generates reports from the entry store and keeps the latest
// document per kind in the cache.
type Service struct {
	source EntrySource
	cache  *Cache
	log    zerolog.Logger
}

// NewService creates a new reports service
func NewService(source EntrySource, cache *Cache, log zerolog.Logger) *Service {
	return &Service{
		source: source,
		cache:  cache,
		log:    log.With().Str("service", "reports").Logger(),
	}
}

// Generate builds the named report from the current entry set, caches it and
// returns it. Unknown report names fail with ErrInvalidReportKind.
func (s *Service) Generate(ctx context.Context, name string) (Document, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}

	list, err := s.source.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for report %s: %w", kind, err)
	}

	doc := generators[kind](list)
	if err := s.cache.Save(ctx, kind, doc); err != nil {
		return nil, err
	}

	s.log.Info().Str("kind", string(kind)).Int("entries", len(list)).Msg("Generated report")
	return doc, nil
}

// Latest returns the last generated document for the named report.
// ErrReportNotFound when the report has never been generated,
// ErrInvalidReportKind for unknown names.
func (s *Service) Latest(ctx context.Context, name string) (Document, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return s.cache.Load(ctx, kind)
}
