package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/certquest-api/internal/store"
	"github.com/stretchr/testify/assert"
)

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestMapError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"queue primary key", &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "matchmaking_queue_pkey"}, store.ErrQueueEntryExists},
		{"season primary key", &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "seasons_pkey"}, store.ErrSeasonExists},
		{"unknown question", &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "learning_events_question_id_fkey"}, store.ErrQuestionNotFound},
		{"reward for unknown season", &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "season_rewards_season_id_fkey"}, store.ErrSeasonNotFound},
		{"other unique", &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "season_records_pkey"}, store.ErrDuplicate},
		{"check", &pgconn.PgError{Code: checkViolationCode, ConstraintName: "memory_cards_easiness_check"}, store.ErrInvalidEntity},
		{"not null", &pgconn.PgError{Code: notNullViolationCode, ColumnName: "rating"}, store.ErrInvalidEntity},
		{"serialization", &pgconn.PgError{Code: serializationFailureCode}, store.ErrTransactionFailed},
		{"deadlock", &pgconn.PgError{Code: deadlockDetectedCode}, store.ErrTransactionFailed},
		{"wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolationCode}), store.ErrDuplicate},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError(tc.err)
			assert.ErrorIs(t, got, tc.wantErr)

			var pgErr *pgconn.PgError
			assert.False(t, errors.As(got, &pgErr), "driver error should not leak through the chain")
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	t.Parallel()

	assert.NoError(t, MapError(nil))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, MapError(plain))

	unknown := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	assert.Equal(t, error(unknown), MapError(unknown))
}

func TestMapError_DoesNotExposeDetail(t *testing.T) {
	t.Parallel()

	err := MapError(&pgconn.PgError{
		Code:           uniqueViolationCode,
		ConstraintName: "season_records_pkey",
		Detail:         "Key (season_id, player_id)=(S1, 42) already exists.",
	})
	assert.NotContains(t, err.Error(), "S1, 42")
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: uniqueViolationCode})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: foreignKeyViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("duplicate")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestRequireRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, requireRowsAffected(fakeResult{rows: 1}, store.ErrCardNotFound))
	assert.ErrorIs(t, requireRowsAffected(fakeResult{rows: 0}, store.ErrCardNotFound), store.ErrCardNotFound)

	boom := errors.New("driver does not support rows affected")
	err := requireRowsAffected(fakeResult{err: boom}, store.ErrCardNotFound)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, store.ErrCardNotFound)
}
