package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tables = []string{
	"users", "buildings", "room_types", "rooms", "registrations",
	"contracts", "payments", "maintenance_requests", "contract_history",
}

func TestStatements(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, len(tables))
	for i, stmt := range stmts {
		assert.True(t, strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS "+tables[i]+" ("), stmt)
		assert.NotContains(t, stmt, "--")
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range Statements() {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	stmts := Statements()
	mock.ExpectExec(regexp.QuoteMeta(stmts[0])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(stmts[1])).WillReturnError(errors.New("access denied"))

	err = Migrate(context.Background(), db)
	require.ErrorContains(t, err, "statement 2")
	require.ErrorContains(t, err, "access denied")
	require.NoError(t, mock.ExpectationsWereMet())
}
