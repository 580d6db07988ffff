package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func noop(context.Context, *sql.Tx) error { return nil }

func TestRunInTransaction(t *testing.T) {
	errWork := errors.New("work failed")

	testCases := []struct {
		name    string
		expect  func(m sqlmock.Sqlmock)
		fn      TxFn
		wantErr error
	}{
		{
			name:   "commits on success",
			expect: func(m sqlmock.Sqlmock) { m.ExpectBegin(); m.ExpectCommit() },
			fn:     noop,
		},
		{
			name:    "rolls back on error",
			expect:  func(m sqlmock.Sqlmock) { m.ExpectBegin(); m.ExpectRollback() },
			fn:      func(context.Context, *sql.Tx) error { return errWork },
			wantErr: errWork,
		},
		{
			name: "commit failure is a transaction failure",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectCommit().WillReturnError(errors.New("connection lost"))
			},
			fn:      noop,
			wantErr: ErrTransactionFailed,
		},
		{
			name: "rollback failure keeps the original error",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectRollback().WillReturnError(errors.New("rollback failed"))
			},
			fn:      func(context.Context, *sql.Tx) error { return errWork },
			wantErr: errWork,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tc.expect(mock)

			err := RunInTransaction(context.Background(), db, nil, tc.fn)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRunInTransaction_BeginError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := RunInTransaction(context.Background(), db, nil, func(context.Context, *sql.Tx) error {
		called = true
		return nil
	})

	assert.ErrorContains(t, err, "failed to begin transaction")
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_PanicRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = RunInTransaction(context.Background(), db, nil, func(context.Context, *sql.Tx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_RetriesTransactionFailures(t *testing.T) {
	db, mock := newMockDB(t)
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}
	mock.ExpectBegin()
	mock.ExpectCommit()

	attempts := 0
	err := NewTransactor(db).WithinTx(context.Background(), func(context.Context, *sql.Tx) error {
		attempts++
		if attempts < 3 {
			return ErrTransactionFailed
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_GivesUpAfterRetries(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err := NewTransactor(db, WithRetries(1)).WithinTx(context.Background(), func(context.Context, *sql.Tx) error {
		attempts++
		return ErrTransactionFailed
	})

	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_DoesNotRetryOtherErrors(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err := NewTransactor(db).WithinTx(context.Background(), func(context.Context, *sql.Tx) error {
		attempts++
		return ErrCardNotFound
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_Isolation(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	tr := NewTransactor(db, WithIsolation(sql.LevelSerializable))
	require.NoError(t, tr.WithinTx(context.Background(), noop))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewTransactor_NilDB(t *testing.T) {
	assert.Panics(t, func() { NewTransactor(nil) })
}
