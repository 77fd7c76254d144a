package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relatepg "github.com/pagekeep/pagekeep/relate/postgres"
)

func Test_NewRelateRegistry_PassesSourceValidation(t *testing.T) {
	// arrange: sql.Open does not connect, so a dummy DSN is enough
	db, err := sql.Open("postgres", "host=localhost")
	require.NoError(t, err)
	defer db.Close()

	// act
	_, err = relatepg.NewSourceFromSQLDB(db, NewRelateRegistry())

	// assert
	assert.NoError(t, err)
}

func Test_NullFK_When_ColumnIsNull(t *testing.T) {
	// arrange
	id := int64(42)

	// act
	err := nullFK(&id).Scan(nil)

	// assert
	require.NoError(t, err)
	assert.Zero(t, id)
}

func Test_NullFK_When_ColumnHasValue(t *testing.T) {
	var id int64

	err := nullFK(&id).Scan(int64(7))

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func Test_NullFK_When_ColumnHasUnexpectedType(t *testing.T) {
	var id int64

	err := nullFK(&id).Scan("7")

	assert.Error(t, err)
}

func Test_NullTime_When_ColumnIsNull(t *testing.T) {
	// arrange
	existing := time.Now()
	dst := &existing

	// act
	err := nullTime(&dst).Scan(nil)

	// assert
	require.NoError(t, err)
	assert.Nil(t, dst)
}

func Test_NullTime_When_ColumnHasValue(t *testing.T) {
	var dst *time.Time
	stamp := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

	err := nullTime(&dst).Scan(stamp)

	require.NoError(t, err)
	require.NotNil(t, dst)
	assert.True(t, dst.Equal(stamp))
}
