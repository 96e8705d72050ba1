package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rekord-dev/rekord/dialect"
	"github.com/rekord-dev/rekord/dialect/sqlite"
)

func newMockDriver(t *testing.T) (*sqlite.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlite.OpenDB(db), mock
}

func TestDialect(t *testing.T) {
	t.Parallel()

	drv, _ := newMockDriver(t)
	assert.Equal(t, dialect.SQLite, drv.Dialect())
}

func TestGetColumns(t *testing.T) {
	t.Parallel()

	drv, mock := newMockDriver(t)
	mock.ExpectQuery("PRAGMA table_info(`cats`)").WillReturnRows(
		sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"}).
			AddRow(0, "id", "INTEGER", 1, nil, 1).
			AddRow(1, "name", "TEXT", 0, nil, 0))

	ctx := context.Background()
	conn, err := drv.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	cols, err := conn.GetColumns(ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOne(t *testing.T) {
	t.Parallel()

	drv, mock := newMockDriver(t)
	mock.ExpectExec("DELETE FROM `cats` WHERE `id` = 3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("VACUUM").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	conn, err := drv.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.DeleteOne(ctx, "cats", "id", 3, dialect.DeleteOptions{Optimize: true})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestDeleteOneRetriesOnBusy checks that a transient busy signal is retried
// and the delete eventually succeeds.
func TestDeleteOneRetriesOnBusy(t *testing.T) {
	t.Parallel()

	drv, mock := newMockDriver(t)
	mock.ExpectExec("DELETE FROM `cats` WHERE `id` = 3").WillReturnError(dialect.ErrBusy)
	mock.ExpectExec("DELETE FROM `cats` WHERE `id` = 3").WillReturnError(dialect.ErrBusy)
	mock.ExpectExec("DELETE FROM `cats` WHERE `id` = 3").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	conn, err := drv.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.DeleteOne(ctx, "cats", "id", 3, dialect.DeleteOptions{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestDeleteOneBusyCeiling checks that the retry loop gives up after the
// fixed ceiling and surfaces ErrBusy.
func TestDeleteOneBusyCeiling(t *testing.T) {
	t.Parallel()

	drv, mock := newMockDriver(t)
	for i := 0; i < 6; i++ {
		mock.ExpectExec("DELETE FROM `cats` WHERE `id` = 3").WillReturnError(dialect.ErrBusy)
	}

	ctx := context.Background()
	conn, err := drv.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.DeleteOne(ctx, "cats", "id", 3, dialect.DeleteOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dialect.ErrBusy))
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestDeleteOneOtherErrorNotRetried checks that non-busy failures surface
// immediately.
func TestDeleteOneOtherErrorNotRetried(t *testing.T) {
	t.Parallel()

	drv, mock := newMockDriver(t)
	boom := errors.New("no such table: cats")
	mock.ExpectExec("DELETE FROM `cats` WHERE `id` = 3").WillReturnError(boom)

	ctx := context.Background()
	conn, err := drv.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.DeleteOne(ctx, "cats", "id", 3, dialect.DeleteOptions{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, dialect.ErrBusy))
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestConnCloseNoop checks that releasing a connection does not close the
// shared handle.
func TestConnCloseNoop(t *testing.T) {
	t.Parallel()

	drv, mock := newMockDriver(t)
	mock.ExpectExec("DELETE FROM `cats` WHERE `id` = 1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	conn, err := drv.Conn(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// The handle is still usable after Close.
	err = conn.DeleteOne(ctx, "cats", "id", 1, dialect.DeleteOptions{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
