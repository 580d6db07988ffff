package pvp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPlayer indicates a non-positive player id.
	ErrInvalidPlayer = errors.New("invalid player id")

	// ErrInvalidRating indicates a rating below the configured floor.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrBotCannotQueue indicates that a bot id tried to join the queue.
	ErrBotCannotQueue = errors.New("bots cannot join the queue")

	// ErrAlreadyQueued indicates that the player is already waiting in the queue.
	ErrAlreadyQueued = errors.New("player already in queue")

	// ErrNotQueued indicates that the player is not waiting in the queue.
	ErrNotQueued = errors.New("player not in queue")

	// ErrBattleNotFound indicates an unknown or expired battle session.
	ErrBattleNotFound = errors.New("battle not found")

	// ErrNotParticipant indicates that the player did not take part in the battle.
	ErrNotParticipant = errors.New("player is not a participant in this battle")

	// ErrResultAlreadySubmitted indicates that the battle already has a result.
	ErrResultAlreadySubmitted = errors.New("battle result already submitted")

	// ErrNoActiveSeason indicates that no season is running.
	ErrNoActiveSeason = errors.New("no active season")

	// ErrSeasonNotFound indicates an unknown season id.
	ErrSeasonNotFound = errors.New("season not found")

	// ErrInvalidSeasonID indicates an empty or oversized season id.
	ErrInvalidSeasonID = errors.New("invalid season id")

	// ErrDuplicateTransition indicates a season transition that already happened.
	ErrDuplicateTransition = errors.New("season transition already applied")

	// ErrNoSeasonRecord indicates that the player has no record for the season.
	ErrNoSeasonRecord = errors.New("no season record for player")

	// ErrAlreadyClaimed indicates that the season reward was already claimed.
	ErrAlreadyClaimed = errors.New("season reward already claimed")

	// ErrPlayerNotRanked indicates that the player has no rating yet.
	ErrPlayerNotRanked = errors.New("player has no rating")

	// ErrInvalidLimit indicates a limit outside the accepted range.
	ErrInvalidLimit = errors.New("invalid limit")
)

// ServiceError wraps unexpected errors from the PvP service with the failing operation.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pvp %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("pvp %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}

// isExpected reports whether err is one of the sentinels callers branch on.
func isExpected(err error) bool {
	for _, target := range []error{
		ErrInvalidPlayer, ErrInvalidRating, ErrBotCannotQueue, ErrAlreadyQueued, ErrNotQueued,
		ErrBattleNotFound, ErrNotParticipant, ErrResultAlreadySubmitted,
		ErrNoActiveSeason, ErrSeasonNotFound, ErrInvalidSeasonID, ErrDuplicateTransition,
		ErrNoSeasonRecord, ErrAlreadyClaimed, ErrPlayerNotRanked, ErrInvalidLimit,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// wrap passes expected errors through and wraps everything else in a ServiceError.
func wrap(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if isExpected(err) {
		return err
	}
	return newServiceError(operation, message, err)
}
