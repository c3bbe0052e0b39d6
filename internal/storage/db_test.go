package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect_Rebind(t *testing.T) {
	q := "SELECT id FROM products WHERE name LIKE ? AND category = ? LIMIT ?"

	assert.Equal(t, q, DialectSQLite.Rebind(q))
	assert.Equal(t,
		"SELECT id FROM products WHERE name LIKE $1 AND category = $2 LIMIT $3",
		DialectPostgres.Rebind(q))
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver  string
		want    Dialect
		wantErr bool
	}{
		{"sqlite", DialectSQLite, false},
		{"sqlite3", DialectSQLite, false},
		{"postgres", DialectPostgres, false},
		{"postgresql", DialectPostgres, false},
		{"mysql", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.driver, func(t *testing.T) {
			got, err := DialectFor(tc.driver)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedDriver)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOpen_SQLiteMemory(t *testing.T) {
	db, dialect, err := Open(context.Background(), Options{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DialectSQLite, dialect)

	var one int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}
