// Package learner adapts question difficulty to each learner. It keeps one
// profile per (user, certification), picks the next question from the bank
// and folds every answer back into the profile.
package learner

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/certquest-api/internal/domain"
)

// Service selects questions and records answers for the adaptive selector.
type Service interface {
	// GetProfile returns the learner's profile, or a default profile when the
	// learner has not answered anything for the certification yet.
	GetProfile(ctx context.Context, userID, certification string) (*domain.LearnerProfile, error)

	// SelectQuestion picks the best-scoring candidate around the target difficulty.
	// Returns ErrNoCandidates when the bank has nothing in range.
	SelectQuestion(
		ctx context.Context,
		userID, certification string,
		strategy domain.Strategy,
		excludeIDs []string,
	) (*Selection, error)

	// RecordAnswer updates the profile with one answer and logs a learning event.
	RecordAnswer(
		ctx context.Context,
		userID, certification, questionID string,
		correct bool,
		responseTimeMs int,
	) (*AnswerResult, error)

	// Stats summarises the profile for display.
	Stats(ctx context.Context, userID, certification string) (*Stats, error)
}

// Selection is the question chosen for a learner and how it was chosen.
type Selection struct {
	Question         *domain.Question `json:"question"`
	TargetDifficulty int              `json:"target_difficulty"`
	ExpectedAccuracy float64          `json:"expected_accuracy"`
	Score            float64          `json:"score"`
	Reason           string           `json:"reason"`
}

// AnswerResult is the profile after an answer.
type AnswerResult struct {
	Profile       *domain.LearnerProfile `json:"profile"`
	AbilityChange float64                `json:"ability_change"`
}

// Stats is the display form of a learner profile.
type Stats struct {
	Certification         string                  `json:"certification"`
	Ability               float64                 `json:"ability"`
	Stability             float64                 `json:"stability"`
	Momentum              float64                 `json:"momentum"`
	RecentAccuracy        float64                 `json:"recent_accuracy"`
	WeakDomains           []string                `json:"weak_domains"`
	StrongDomains         []string                `json:"strong_domains"`
	DomainAbilities       map[string]float64      `json:"domain_abilities"`
	RecommendedDifficulty int                     `json:"recommended_difficulty"`
	RecentEvents          []*domain.LearningEvent `json:"recent_events"`
}

var (
	// ErrNoCandidates indicates that no question matches the target difficulty range.
	ErrNoCandidates = errors.New("no candidate questions available")

	// ErrQuestionNotFound indicates that the answered question is not in the bank.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrCertificationMismatch indicates that a question belongs to another certification.
	ErrCertificationMismatch = errors.New("question belongs to a different certification")

	// ErrInvalidResponseTime indicates a negative response time.
	ErrInvalidResponseTime = errors.New("response time cannot be negative")
)

// ServiceError wraps errors from the learner service with the failing operation.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("learner %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("learner %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
