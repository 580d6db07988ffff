package api

import (
	"github.com/phrazzld/certquest-api/internal/domain"
)

// AddToDeckRequest is the body of POST /review/cards.
type AddToDeckRequest struct {
	Certification string `json:"certification" validate:"required,max=64"`
	Limit         int    `json:"limit"         validate:"omitempty,min=1,max=100"`
}

// AddToDeckResponse reports how many cards were created.
type AddToDeckResponse struct {
	Added int `json:"added"`
}

// ReviewRequest is the body of POST /review/cards/{item}/review.
// The 0..5 range is enforced by the scheduler.
type ReviewRequest struct {
	Quality *int `json:"quality" validate:"required"`
}

// AnswerRequest is the body of POST /learn/{cert}/answers.
type AnswerRequest struct {
	QuestionID     string `json:"question_id"      validate:"required,max=64"`
	Correct        *bool  `json:"correct"          validate:"required"`
	ResponseTimeMs int    `json:"response_time_ms"`
}

// JoinQueueRequest is the optional body of POST /pvp/queue. Without a rating
// the stored or default rating is used.
type JoinQueueRequest struct {
	Rating *int `json:"rating,omitempty"`
}

// MatchResponse is returned by POST /pvp/queue/match. Match is nil while the
// player should keep polling.
type MatchResponse struct {
	Matched bool          `json:"matched"`
	Match   *domain.Match `json:"match,omitempty"`
}

// SubmitResultRequest is the body of POST /pvp/battles/{id}/result.
type SubmitResultRequest struct {
	Won *bool `json:"won" validate:"required"`
}

// StartSeasonRequest is the body of POST /pvp/seasons.
type StartSeasonRequest struct {
	ID   string `json:"id"   validate:"required,max=64"`
	Name string `json:"name" validate:"required,max=128"`
}

// SoftResetResponse reports how many ratings were reset.
type SoftResetResponse struct {
	Players int `json:"players"`
}

// PlayerProfileResponse is returned by GET /pvp/me.
type PlayerProfileResponse struct {
	*domain.PlayerRating
	Tier  domain.RankTier `json:"tier"`
	Games int             `json:"games"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
