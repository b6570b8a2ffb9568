package source

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T, rows int) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "source.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE sales (id INTEGER PRIMARY KEY, region TEXT, amount REAL)`)
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		region := "east"
		if i%2 == 0 {
			region = "west"
		}
		_, err = db.Exec(`INSERT INTO sales (region, amount) VALUES (?, ?)`, region, float64(i))
		require.NoError(t, err)
	}
	return db
}

func TestSQLSourcePaging(t *testing.T) {
	db := testDB(t, 25)
	src := NewSQLSource(db, "SELECT id, region, amount FROM sales ORDER BY id")
	ctx := context.Background()

	var total int
	var pages int
	for {
		page, err := src.NextPage(ctx, 10)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		pages++
		total += len(page)
	}
	assert.Equal(t, 25, total)
	assert.Equal(t, 3, pages)

	// Exhaustion is terminal.
	page, err := src.NextPage(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestSQLSourceRecordShape(t *testing.T) {
	db := testDB(t, 1)
	src := NewSQLSource(db, "SELECT id, region, amount FROM sales ORDER BY id")

	page, err := src.NextPage(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, page, 1)

	rec := page[0]
	assert.Equal(t, int64(1), rec["id"])
	assert.Equal(t, "west", rec["region"])
	assert.Equal(t, 0.0, rec["amount"])
}

func TestSQLSourceValidate(t *testing.T) {
	db := testDB(t, 0)
	src := NewSQLSource(db, "SELECT * FROM sales")
	assert.NoError(t, src.Validate(context.Background()))
}

func TestSQLSourceQueryError(t *testing.T) {
	db := testDB(t, 0)
	src := NewSQLSource(db, "SELECT * FROM missing_table")
	_, err := src.NextPage(context.Background(), 10)
	assert.Error(t, err)
}

func TestSQLSourceCloseLeavesBorrowedDBOpen(t *testing.T) {
	db := testDB(t, 1)
	src := NewSQLSource(db, "SELECT * FROM sales")
	require.NoError(t, src.Close())
	assert.NoError(t, db.Ping())
}
