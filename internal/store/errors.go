package store

import (
	"errors"
	"fmt"
)

// Generic store errors. Entity-specific errors below wrap one of these so
// callers can match either the general or the specific case with errors.Is.
var (
	ErrNotFound  = errors.New("entity not found")
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when a row violates a schema constraint
	// or carries a value the store cannot encode.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when a conditional update matched no rows.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a commit fails or the database
	// aborts the transaction on a serialization conflict or deadlock. Work
	// failing with it is safe to re-run.
	ErrTransactionFailed = errors.New("transaction failed")
)

var (
	ErrCardNotFound         = fmt.Errorf("%w: memory card", ErrNotFound)
	ErrProfileNotFound      = fmt.Errorf("%w: learner profile", ErrNotFound)
	ErrQuestionNotFound     = fmt.Errorf("%w: question", ErrNotFound)
	ErrRatingNotFound       = fmt.Errorf("%w: player rating", ErrNotFound)
	ErrQueueEntryNotFound   = fmt.Errorf("%w: queue entry", ErrNotFound)
	ErrBotNotFound          = fmt.Errorf("%w: bot", ErrNotFound)
	ErrSeasonNotFound       = fmt.Errorf("%w: season", ErrNotFound)
	ErrSeasonRecordNotFound = fmt.Errorf("%w: season record", ErrNotFound)

	// ErrSessionNotFound means a battle session or pending match expired or never existed.
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
)

var (
	ErrQueueEntryExists = fmt.Errorf("%w: queue entry", ErrDuplicate)
	ErrSeasonExists     = fmt.Errorf("%w: season", ErrDuplicate)
)
