package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishultan/go-strata/core/persistence"
	"github.com/kishultan/go-strata/core/query"
	"github.com/kishultan/go-strata/core/schema"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func userMapper() *persistence.Mapper {
	return persistence.NewMapper(&user{}, persistence.WithResolver(schema.NewResolver()))
}

func TestExecuteList(t *testing.T) {
	db, mock := newMock(t)
	executor := NewExecutor(db)

	mock.ExpectQuery("SELECT * FROM user WHERE status = ?").
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status"}).
			AddRow(int64(1), "ada", "active").
			AddRow(int64(2), []byte("grace"), "active"))

	rendered := &query.Rendered{
		Kind:   query.KindList,
		Entity: "user",
		Text:   "SELECT * FROM user WHERE status = ?",
		Params: []any{"active"},
	}
	out, err := executor.ExecuteList(context.Background(), rendered, userMapper())
	require.NoError(t, err)
	require.Len(t, out, 2)

	first := out[0].(*user)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "ada", first.Name)
	second := out[1].(*user)
	assert.Equal(t, "grace", second.Name, "driver byte slices normalize to strings")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteCount(t *testing.T) {
	db, mock := newMock(t)
	executor := NewExecutor(db)

	mock.ExpectQuery("SELECT COUNT(*) AS count FROM user").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	rendered := &query.Rendered{
		Kind:   query.KindCount,
		Entity: "user",
		Text:   "SELECT COUNT(*) AS count FROM user",
	}
	count, err := executor.ExecuteCount(context.Background(), rendered)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteWrite(t *testing.T) {
	db, mock := newMock(t)
	executor := NewExecutor(db)

	mock.ExpectExec("UPDATE user SET name = ? WHERE id = ?").
		WithArgs("z", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	rendered := &query.Rendered{
		Kind:   query.KindUpdate,
		Entity: "user",
		Text:   "UPDATE user SET name = ? WHERE id = ?",
		Params: []any{"z", int64(1)},
	}
	affected, err := executor.ExecuteWrite(context.Background(), rendered)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutionFailureWrapsRepresentation(t *testing.T) {
	db, mock := newMock(t)
	executor := NewExecutor(db)

	mock.ExpectQuery("SELECT * FROM user").
		WillReturnError(fmt.Errorf("disk I/O error"))

	rendered := &query.Rendered{
		Kind:   query.KindList,
		Entity: "user",
		Text:   "SELECT * FROM user",
		Params: []any{},
	}
	_, err := executor.ExecuteList(context.Background(), rendered, userMapper())
	require.Error(t, err)

	var execErr *persistence.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "SELECT * FROM user", execErr.Representation)
	assert.ErrorContains(t, execErr.Err, "disk I/O error")
}

type stubTxProvider struct {
	tx *sql.Tx
}

func (p *stubTxProvider) ActiveTx(ctx context.Context) (*sql.Tx, bool) {
	return p.tx, p.tx != nil
}

func TestExecutorReusesActiveTransaction(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user WHERE id = ?").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	executor := NewExecutor(db, WithTxProvider(&stubTxProvider{tx: tx}))
	rendered := &query.Rendered{
		Kind:   query.KindDelete,
		Entity: "user",
		Text:   "DELETE FROM user WHERE id = ?",
		Params: []any{int64(1)},
	}
	affected, err := executor.ExecuteWrite(context.Background(), rendered)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
