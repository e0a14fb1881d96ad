package testutils

import (
	"database/sql"
	"fmt"
	"net"
	"testing"

	_ "github.com/mattn/go-sqlite3" // sqlite driver for test databases
	"github.com/stretchr/testify/require"
)

/*
General purpose test utilitites.
*/

////////////////////////////////////////////////////////////////////////////////

// GetOpenPort returns an open port that can be used for testing.
func GetOpenPort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("failed to get open port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// NewSQLiteDB returns an in-memory sqlite database that is closed when the
// test ends. The pool is limited to one connection, because every
// connection to :memory: opens a separate database.
func NewSQLiteDB(tb testing.TB) *sql.DB {
	tb.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(tb, err)
	db.SetMaxOpenConns(1)
	tb.Cleanup(func() {
		require.NoError(tb, db.Close())
	})
	return db
}
