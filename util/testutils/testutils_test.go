package testutils_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/outline/util/testutils"
)

func TestGetOpenPort(t *testing.T) {
	port, err := testutils.GetOpenPort()
	require.NoError(t, err)
	require.Positive(t, port)
}

func TestNewSQLiteDB(t *testing.T) {
	db := testutils.NewSQLiteDB(t)
	var n int
	require.NoError(t, db.QueryRow("select 1").Scan(&n))
	require.Equal(t, 1, n)
}
