package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/domain/srs"
	"github.com/phrazzld/certquest-api/internal/service/auth"
	"github.com/phrazzld/certquest-api/internal/service/learner"
	"github.com/phrazzld/certquest-api/internal/service/pvp"
	"github.com/phrazzld/certquest-api/internal/service/review"
	"github.com/phrazzld/certquest-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingIdentity):
		return http.StatusUnauthorized

	case errors.Is(err, pvp.ErrNotParticipant),
		errors.Is(err, pvp.ErrBotCannotQueue):
		return http.StatusForbidden

	case errors.Is(err, review.ErrCardNotFound),
		errors.Is(err, learner.ErrQuestionNotFound),
		errors.Is(err, learner.ErrNoCandidates),
		errors.Is(err, pvp.ErrNotQueued),
		errors.Is(err, pvp.ErrBattleNotFound),
		errors.Is(err, pvp.ErrNoActiveSeason),
		errors.Is(err, pvp.ErrSeasonNotFound),
		errors.Is(err, pvp.ErrNoSeasonRecord),
		errors.Is(err, pvp.ErrPlayerNotRanked):
		return http.StatusNotFound

	case errors.Is(err, pvp.ErrAlreadyQueued),
		errors.Is(err, pvp.ErrAlreadyClaimed),
		errors.Is(err, pvp.ErrDuplicateTransition),
		errors.Is(err, pvp.ErrResultAlreadySubmitted):
		return http.StatusConflict

	case errors.Is(err, srs.ErrInvalidQuality),
		errors.Is(err, domain.ErrInvalidStrategy),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, review.ErrInvalidDays),
		errors.Is(err, review.ErrInvalidLimit),
		errors.Is(err, learner.ErrCertificationMismatch),
		errors.Is(err, learner.ErrInvalidResponseTime),
		errors.Is(err, pvp.ErrInvalidPlayer),
		errors.Is(err, pvp.ErrInvalidRating),
		errors.Is(err, pvp.ErrInvalidSeasonID),
		errors.Is(err, pvp.ErrInvalidLimit),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return fmt.Sprintf("Invalid %s: %s", verr.Field, verr.Message)
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingIdentity):
		return "Invalid token"

	case errors.Is(err, pvp.ErrNotParticipant):
		return "You did not take part in this battle"
	case errors.Is(err, pvp.ErrBotCannotQueue):
		return "Bots cannot join the queue"

	case errors.Is(err, review.ErrCardNotFound):
		return "Card not found"
	case errors.Is(err, learner.ErrQuestionNotFound):
		return "Question not found"
	case errors.Is(err, learner.ErrNoCandidates):
		return "No questions available at this difficulty"
	case errors.Is(err, pvp.ErrNotQueued):
		return "Player is not in the queue"
	case errors.Is(err, pvp.ErrBattleNotFound):
		return "Battle not found"
	case errors.Is(err, pvp.ErrNoActiveSeason):
		return "No active season"
	case errors.Is(err, pvp.ErrSeasonNotFound):
		return "Season not found"
	case errors.Is(err, pvp.ErrNoSeasonRecord):
		return "No record for this season"
	case errors.Is(err, pvp.ErrPlayerNotRanked):
		return "Player has no rating"

	case errors.Is(err, pvp.ErrAlreadyQueued):
		return "Player already in queue"
	case errors.Is(err, pvp.ErrAlreadyClaimed):
		return "Reward already claimed"
	case errors.Is(err, pvp.ErrDuplicateTransition):
		return "Season transition already applied"
	case errors.Is(err, pvp.ErrResultAlreadySubmitted):
		return "Battle result already submitted"

	case errors.Is(err, srs.ErrInvalidQuality):
		return "Quality must be between 0 and 5"
	case errors.Is(err, domain.ErrInvalidStrategy):
		return "Invalid strategy"
	case errors.Is(err, review.ErrInvalidDays):
		return "Invalid number of days"
	case errors.Is(err, review.ErrInvalidLimit),
		errors.Is(err, pvp.ErrInvalidLimit):
		return "Invalid limit"
	case errors.Is(err, learner.ErrCertificationMismatch):
		return "Question belongs to a different certification"
	case errors.Is(err, learner.ErrInvalidResponseTime):
		return "Invalid response time"
	case errors.Is(err, pvp.ErrInvalidPlayer):
		return "Invalid player id"
	case errors.Is(err, pvp.ErrInvalidRating):
		return "Invalid rating"
	case errors.Is(err, pvp.ErrInvalidSeasonID):
		return "Invalid season id"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a message that names
// the field without echoing internal struct names.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example: "Key: 'reviewRequest.Quality' Error:Field validation for 'Quality' failed on the 'max' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
