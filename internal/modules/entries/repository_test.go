package entries

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	require.NoError(t, InitSchema(db, "sqlite"))
	return db
}

func testEntry(date, category string, amount float64) Entry {
	return Entry{
		Date:     date,
		Shop:     "Lidl",
		Product:  "groceries",
		Amount:   amount,
		Category: category,
		Person:   "alice",
		Currency: "EUR",
	}
}

func TestCreate_AssignsID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	entry := testEntry("2024-03-01", "food", 12.50)
	err := repo.Create(&entry)
	require.NoError(t, err)
	require.NotNil(t, entry.ID)
	assert.Positive(t, *entry.ID)

	all, err := repo.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "2024-03-01", all[0].Date)
	assert.Equal(t, 12.50, all[0].Amount)
}

func TestList_Ordering(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	// Insert out of date order, with two entries sharing a date
	dates := []string{"2024-01-15", "2024-03-01", "2024-01-15", "2024-02-10"}
	for _, d := range dates {
		e := testEntry(d, "food", 10)
		require.NoError(t, repo.Create(&e))
	}

	list, err := repo.List(0, 0)
	require.NoError(t, err)
	require.Len(t, list, 4)

	assert.Equal(t, "2024-03-01", list[0].Date)
	assert.Equal(t, "2024-02-10", list[1].Date)
	// Same date: later insert (higher id) first
	assert.Equal(t, "2024-01-15", list[2].Date)
	assert.Equal(t, "2024-01-15", list[3].Date)
	assert.Greater(t, *list[2].ID, *list[3].ID)
}

func TestList_SkipAndLimit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	for i := 1; i <= 5; i++ {
		e := testEntry(fmt.Sprintf("2024-01-%02d", i), "food", float64(i))
		require.NoError(t, repo.Create(&e))
	}

	page, err := repo.List(1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "2024-01-04", page[0].Date)
	assert.Equal(t, "2024-01-03", page[1].Date)

	// Skip without limit returns the remainder
	rest, err := repo.List(3, 0)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "2024-01-02", rest[0].Date)
}

func TestList_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	list, err := repo.List(0, 10)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Len(t, list, 0)
}

func TestSummary(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	e1 := testEntry("2024-01-10", "food", 10)
	e2 := testEntry("2024-02-20", "transport", 20)
	e3 := testEntry("2024-03-05", "food", 30)
	e3.Person = "bob"
	require.NoError(t, repo.Create(&e1))
	require.NoError(t, repo.Create(&e2))
	require.NoError(t, repo.Create(&e3))

	summary, err := repo.Summary()
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.EntriesNumber)
	require.NotNil(t, summary.MinDate)
	require.NotNil(t, summary.MaxDate)
	assert.Equal(t, "2024-01-10", *summary.MinDate)
	assert.Equal(t, "2024-03-05", *summary.MaxDate)
	assert.Equal(t, int64(2), summary.CategoriesNumber)
	assert.Equal(t, int64(2), summary.PersonsNumber)
}

func TestSummary_EmptyTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	summary, err := repo.Summary()
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.EntriesNumber)
	assert.Nil(t, summary.MinDate)
	assert.Nil(t, summary.MaxDate)
	assert.Equal(t, int64(0), summary.CategoriesNumber)
	assert.Equal(t, int64(0), summary.PersonsNumber)
}

func TestUpsertMany_InsertAndUpdate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	existing := testEntry("2024-01-01", "food", 5)
	require.NoError(t, repo.Create(&existing))

	updated := testEntry("2024-01-01", "food", 99)
	updated.ID = existing.ID
	fresh := testEntry("2024-02-01", "transport", 7)

	err := repo.UpsertMany([]Entry{updated, fresh})
	require.NoError(t, err)

	all, err := repo.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 2)

	byDate := map[string]Entry{}
	for _, e := range all {
		byDate[e.Date] = e
	}
	assert.Equal(t, 99.0, byDate["2024-01-01"].Amount)
	assert.Equal(t, *existing.ID, *byDate["2024-01-01"].ID)
	assert.Equal(t, 7.0, byDate["2024-02-01"].Amount)
}

func TestUpsertMany_UnmatchedIDInserts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	id := int64(42)
	entry := testEntry("2024-05-05", "leisure", 15)
	entry.ID = &id

	require.NoError(t, repo.UpsertMany([]Entry{entry}))

	all, err := repo.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(42), *all[0].ID)
	assert.Equal(t, "2024-05-05", all[0].Date)
}

func TestUpsertMany_RollbackOnConstraintViolation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	// Uniqueness on (date, shop, product) so a duplicate in the batch fails
	_, err := db.Exec("CREATE UNIQUE INDEX idx_test_unique ON budget_entries(date, shop, product)")
	require.NoError(t, err)

	repo := NewRepository(db, zerolog.Nop())

	good := testEntry("2024-01-01", "food", 5)
	dup := testEntry("2024-01-01", "food", 6)

	err = repo.UpsertMany([]Entry{good, dup})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProcessing)

	// Nothing from the batch was persisted
	summary, err := repo.Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.EntriesNumber)
}

func TestDeleteAll(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	for i := 1; i <= 3; i++ {
		e := testEntry(fmt.Sprintf("2024-01-%02d", i), "food", float64(i))
		require.NoError(t, repo.Create(&e))
	}

	require.NoError(t, repo.DeleteAll())

	summary, err := repo.Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.EntriesNumber)
	assert.Nil(t, summary.MinDate)

	// Deleting an already-empty table is fine
	require.NoError(t, repo.DeleteAll())
}
