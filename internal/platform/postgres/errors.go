package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/certquest-api/internal/store"
)

// SQLSTATE codes the stores translate.
const (
	uniqueViolationCode      = "23505"
	foreignKeyViolationCode  = "23503"
	checkViolationCode       = "23514"
	notNullViolationCode     = "23502"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
)

// constraintErrors names the store error reported for a specific constraint.
// Constraints not listed fall back to the generic mapping by SQLSTATE.
var constraintErrors = map[string]error{
	"matchmaking_queue_pkey":                 store.ErrQueueEntryExists,
	"seasons_pkey":                           store.ErrSeasonExists,
	"learning_events_question_id_fkey":       store.ErrQuestionNotFound,
	"season_records_season_id_fkey":          store.ErrSeasonNotFound,
	"season_rewards_season_id_fkey":          store.ErrSeasonNotFound,
	"battle_results_battle_id_player_id_key": store.ErrDuplicate,
}

// MapError translates a driver error into a store error. The driver error
// is kept in the chain only as text so constraint details never surface
// through errors.As on the result.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	if specific, ok := constraintErrors[pgErr.ConstraintName]; ok {
		return fmt.Errorf("%w: constraint %s", specific, pgErr.ConstraintName)
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%w: constraint %s", store.ErrDuplicate, pgErr.ConstraintName)
	case foreignKeyViolationCode, checkViolationCode:
		return fmt.Errorf("%w: constraint %s", store.ErrInvalidEntity, pgErr.ConstraintName)
	case notNullViolationCode:
		return fmt.Errorf("%w: column %s is required", store.ErrInvalidEntity, pgErr.ColumnName)
	case serializationFailureCode, deadlockDetectedCode:
		return fmt.Errorf("%w: concurrent update (%s)", store.ErrTransactionFailed, pgErr.Code)
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// requireRowsAffected returns notFound when an UPDATE or DELETE touched no rows.
func requireRowsAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
