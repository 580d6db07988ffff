package learner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/domain/adaptive"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/store"
)

// DefaultCandidateLimit is the number of random candidates scored per selection.
const DefaultCandidateLimit = 50

// recentEventLimit is the number of learning events returned by Stats.
const recentEventLimit = 10

var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	profiles       store.LearnerProfileStore
	events         store.LearningEventStore
	questions      store.QuestionStore
	tx             store.Transactor
	params         *adaptive.Params
	candidateLimit int
	now            func() time.Time
	logger         *slog.Logger
}

// Option customises a learner service.
type Option func(*serviceImpl)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *serviceImpl) { s.now = now }
}

// WithCandidateLimit sets how many candidates are scored per selection.
func WithCandidateLimit(limit int) Option {
	return func(s *serviceImpl) {
		if limit > 0 {
			s.candidateLimit = limit
		}
	}
}

// NewService creates a learner Service. A nil params uses adaptive.NewDefaultParams.
func NewService(
	profiles store.LearnerProfileStore,
	events store.LearningEventStore,
	questions store.QuestionStore,
	tx store.Transactor,
	params *adaptive.Params,
	logger *slog.Logger,
	opts ...Option,
) (Service, error) {
	if profiles == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("profiles cannot be nil")
	}
	if events == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("events cannot be nil")
	}
	if questions == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("questions cannot be nil")
	}
	if tx == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("tx cannot be nil")
	}
	if params == nil {
		params = adaptive.NewDefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &serviceImpl{
		profiles:       profiles,
		events:         events,
		questions:      questions,
		tx:             tx,
		params:         params,
		candidateLimit: DefaultCandidateLimit,
		now:            time.Now,
		logger:         logger.With(slog.String("component", "learner_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetProfile implements Service.GetProfile.
func (s *serviceImpl) GetProfile(ctx context.Context, userID, certification string) (*domain.LearnerProfile, error) {
	profile, err := s.profiles.Get(ctx, userID, certification)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			return domain.NewLearnerProfile(userID, certification), nil
		}
		return nil, newServiceError("get_profile", "failed to load profile", err)
	}
	return profile, nil
}

// SelectQuestion implements Service.SelectQuestion.
func (s *serviceImpl) SelectQuestion(
	ctx context.Context,
	userID, certification string,
	strategy domain.Strategy,
	excludeIDs []string,
) (*Selection, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, strategy)
	}

	profile, err := s.GetProfile(ctx, userID, certification)
	if err != nil {
		return nil, err
	}

	target := adaptive.TargetDifficulty(profile, strategy, s.params)
	lo, hi := adaptive.DifficultyRange(target, s.params)

	candidates, err := s.questions.FindCandidates(ctx, store.CandidateQuery{
		Certification: certification,
		MinDifficulty: lo,
		MaxDifficulty: hi,
		ExcludeIDs:    excludeIDs,
		Limit:         s.candidateLimit,
	})
	if err != nil {
		return nil, newServiceError("select_question", "failed to find candidates", err)
	}
	if len(candidates) == 0 {
		log.Debug("no candidates in range",
			slog.String("user_id", userID),
			slog.String("certification", certification),
			slog.Int("min_difficulty", lo),
			slog.Int("max_difficulty", hi))
		return nil, ErrNoCandidates
	}

	best := candidates[0]
	bestScore := adaptive.ScoreCandidate(profile, best.Difficulty, best.Domain, target, strategy)
	for _, q := range candidates[1:] {
		if score := adaptive.ScoreCandidate(profile, q.Difficulty, q.Domain, target, strategy); score > bestScore {
			best, bestScore = q, score
		}
	}

	return &Selection{
		Question:         best,
		TargetDifficulty: target,
		ExpectedAccuracy: roundTo(adaptive.PredictCorrect(profile.Ability, best.Difficulty), 2),
		Score:            roundTo(bestScore, 3),
		Reason:           adaptive.SelectionReason(profile, best, strategy, s.params),
	}, nil
}

// RecordAnswer implements Service.RecordAnswer.
func (s *serviceImpl) RecordAnswer(
	ctx context.Context,
	userID, certification, questionID string,
	correct bool,
	responseTimeMs int,
) (*AnswerResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if responseTimeMs < 0 {
		return nil, ErrInvalidResponseTime
	}

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, store.ErrQuestionNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, newServiceError("record_answer", "failed to load question", err)
	}
	if question.Certification != certification {
		return nil, fmt.Errorf("%w: %s is not part of %s", ErrCertificationMismatch, questionID, certification)
	}

	var result AnswerResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		profiles := s.profiles.WithTx(tx)

		before, err := profiles.GetForUpdate(ctx, userID, certification)
		if err != nil {
			if !errors.Is(err, store.ErrProfileNotFound) {
				return fmt.Errorf("failed to lock profile: %w", err)
			}
			before = domain.NewLearnerProfile(userID, certification)
		}

		now := s.now().UTC()
		after := adaptive.RecordOutcome(before, question.Difficulty, question.Domain, correct, s.params)
		after.UpdatedAt = now

		if err := profiles.Upsert(ctx, after); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		event := &domain.LearningEvent{
			UserID:         userID,
			Certification:  certification,
			QuestionID:     questionID,
			Difficulty:     question.Difficulty,
			Domain:         question.Domain,
			Correct:        correct,
			ResponseTimeMs: responseTimeMs,
			AbilityBefore:  before.Ability,
			AbilityAfter:   after.Ability,
			CreatedAt:      now,
		}
		if err := s.events.WithTx(tx).Create(ctx, event); err != nil {
			return fmt.Errorf("failed to append learning event: %w", err)
		}

		result = AnswerResult{Profile: after, AbilityChange: roundTo(after.Ability-before.Ability, 4)}
		return nil
	})
	if err != nil {
		log.Error("failed to record answer",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("question_id", questionID))
		return nil, newServiceError("record_answer", "failed to update profile", err)
	}

	log.Debug("recorded answer",
		slog.String("user_id", userID),
		slog.String("question_id", questionID),
		slog.Bool("correct", correct),
		slog.Float64("ability", result.Profile.Ability))
	return &result, nil
}

// Stats implements Service.Stats.
func (s *serviceImpl) Stats(ctx context.Context, userID, certification string) (*Stats, error) {
	profile, err := s.GetProfile(ctx, userID, certification)
	if err != nil {
		return nil, err
	}

	events, err := s.events.ListRecent(ctx, userID, certification, recentEventLimit)
	if err != nil {
		return nil, newServiceError("stats", "failed to list learning events", err)
	}

	abilities := make(map[string]float64, len(profile.DomainAbilities))
	for d, v := range profile.DomainAbilities {
		abilities[d] = roundTo(v, 2)
	}

	return &Stats{
		Certification:         certification,
		Ability:               roundTo(profile.Ability, 2),
		Stability:             roundTo(profile.Stability, 2),
		Momentum:              roundTo(profile.Momentum, 2),
		RecentAccuracy:        roundTo(profile.RecentAccuracy()*100, 1),
		WeakDomains:           profile.WeakDomains,
		StrongDomains:         profile.StrongDomains,
		DomainAbilities:       abilities,
		RecommendedDifficulty: adaptive.TargetDifficulty(profile, domain.StrategyBalanced, s.params),
		RecentEvents:          events,
	}, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
