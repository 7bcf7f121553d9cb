package sqlstore

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStoreFromDB(db), mock
}

func TestPostgresStore_GetState(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the stored value", func(t *testing.T) {
		store, mock := newMockedPostgres(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM stash_state WHERE namespace = $1 AND key = $2`)).
			WithArgs("ws", "dock").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"isOpen":true}`)))

		raw, err := store.GetState(ctx, "ws", "dock")
		require.NoError(t, err)
		assert.JSONEq(t, `{"isOpen":true}`, string(raw))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent row returns nil without error", func(t *testing.T) {
		store, mock := newMockedPostgres(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM stash_state WHERE namespace = $1 AND key = $2`)).
			WithArgs("ws", "missing").
			WillReturnRows(sqlmock.NewRows([]string{"value"}))

		raw, err := store.GetState(ctx, "ws", "missing")
		require.NoError(t, err)
		assert.Nil(t, raw)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_SetState(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockedPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO stash_state (namespace, key, value) VALUES ($1, $2, $3)`)).
		WithArgs("ws", "dock", []byte(`{"isOpen":true}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SetState(ctx, "ws", "dock", json.RawMessage(`{"isOpen":true}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteState(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockedPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM stash_state WHERE namespace = $1 AND key = $2`)).
		WithArgs("ws", "dock").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.DeleteState(ctx, "ws", "dock"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
