package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/modules/entries"
)

// memStore is an in-memory BlobStore.
type memStore struct {
	objects map[string][]byte
	putErr  error
	getErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = data
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	data, ok := m.objects[key]
	return data, ok, nil
}

type fakeSource struct {
	list []entries.Entry
	err  error
}

func (f *fakeSource) ListAll() ([]entries.Entry, error) {
	return f.list, f.err
}

func newTestService(source EntrySource, store BlobStore) *Service {
	cache := NewCache(store, zerolog.Nop())
	return NewService(source, cache, zerolog.Nop())
}

func TestService_GenerateThenLatest(t *testing.T) {
	store := newMemStore()
	service := newTestService(&fakeSource{list: sampleEntries()}, store)

	generated, err := service.Generate(context.Background(), "expenses_per_category")
	require.NoError(t, err)
	require.NotNil(t, generated)

	// Cached under the derived object key
	assert.Contains(t, store.objects, "reports/expenses_per_category.json")

	latest, err := service.Latest(context.Background(), "expenses_per_category")
	require.NoError(t, err)

	// The loaded document carries the same aggregates
	months := latest["month"].(map[string]any)
	jan := months["2024-01"].(map[string]any)
	categories := jan["category"].([]any)
	assert.Equal(t, []any{"food", "transport"}, categories)
}

func TestService_GenerateOverwritesPrevious(t *testing.T) {
	store := newMemStore()
	source := &fakeSource{list: sampleEntries()}
	service := newTestService(source, store)

	_, err := service.Generate(context.Background(), "expenses_per_interval")
	require.NoError(t, err)
	first := store.objects["reports/expenses_per_interval.json"]

	source.list = append(source.list, testEntry("2024-03-01", "leisure", "bob", 50))
	_, err = service.Generate(context.Background(), "expenses_per_interval")
	require.NoError(t, err)
	second := store.objects["reports/expenses_per_interval.json"]

	assert.NotEqual(t, first, second)

	latest, err := service.Latest(context.Background(), "expenses_per_interval")
	require.NoError(t, err)
	assert.Contains(t, latest, "leisure")
}

func TestService_InvalidKind(t *testing.T) {
	service := newTestService(&fakeSource{}, newMemStore())

	_, err := service.Generate(context.Background(), "category_expenses_per_week")
	assert.ErrorIs(t, err, ErrInvalidReportKind)

	_, err = service.Latest(context.Background(), "nonsense")
	assert.ErrorIs(t, err, ErrInvalidReportKind)
}

func TestService_LatestNeverGenerated(t *testing.T) {
	service := newTestService(&fakeSource{}, newMemStore())

	_, err := service.Latest(context.Background(), "expenses_per_category")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestService_SourceFailure(t *testing.T) {
	service := newTestService(&fakeSource{err: errors.New("db down")}, newMemStore())

	_, err := service.Generate(context.Background(), "expenses_per_category")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidReportKind)
}

func TestService_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.putErr = errors.New("s3 down")
	service := newTestService(&fakeSource{list: sampleEntries()}, store)

	_, err := service.Generate(context.Background(), "expenses_per_category")
	require.Error(t, err)
}
