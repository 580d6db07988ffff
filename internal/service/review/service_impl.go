package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/domain/srs"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/store"
)

// DefaultDueLimit is used when DueCards is called without a limit.
const DefaultDueLimit = 20

// maxDueLimit bounds a single DueCards page.
const maxDueLimit = 100

// maxDaysAhead bounds retention predictions.
const maxDaysAhead = 365

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	cards     store.MemoryCardStore
	logs      store.ReviewLogStore
	questions store.QuestionStore
	tx        store.Transactor
	srs       srs.Service
	dueLimit  int
	now       func() time.Time
	logger    *slog.Logger
}

// Option customises a review service.
type Option func(*serviceImpl)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *serviceImpl) { s.now = now }
}

// WithDueLimit sets the page size used when DueCards gets no limit.
func WithDueLimit(limit int) Option {
	return func(s *serviceImpl) {
		if limit > 0 {
			s.dueLimit = limit
		}
	}
}

// NewService creates a review Service.
func NewService(
	cards store.MemoryCardStore,
	logs store.ReviewLogStore,
	questions store.QuestionStore,
	tx store.Transactor,
	srsService srs.Service,
	logger *slog.Logger,
	opts ...Option,
) Service {
	if cards == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("cards cannot be nil")
	}
	if logs == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logs cannot be nil")
	}
	if questions == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("questions cannot be nil")
	}
	if tx == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("tx cannot be nil")
	}
	if srsService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("srsService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &serviceImpl{
		cards:     cards,
		logs:      logs,
		questions: questions,
		tx:        tx,
		srs:       srsService,
		dueLimit:  DefaultDueLimit,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "review_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) clock() time.Time {
	return s.now().UTC()
}

// GetOrCreateCard implements Service.GetOrCreateCard.
func (s *serviceImpl) GetOrCreateCard(
	ctx context.Context,
	userID, itemID, collection string,
) (*domain.MemoryCard, error) {
	var card *domain.MemoryCard
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		card, err = s.loadOrCreate(ctx, s.cards.WithTx(tx), userID, itemID, collection)
		return err
	})
	if err != nil {
		return nil, newServiceError("get_or_create_card", "failed to load card", err)
	}
	return card, nil
}

// loadOrCreate locks the card row, or persists a fresh card when there is none.
func (s *serviceImpl) loadOrCreate(
	ctx context.Context,
	cards store.MemoryCardStore,
	userID, itemID, collection string,
) (*domain.MemoryCard, error) {
	card, err := cards.GetForUpdate(ctx, userID, itemID)
	if err == nil {
		return card, nil
	}
	if !errors.Is(err, store.ErrCardNotFound) {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	if collection == "" {
		collection, err = s.collectionOf(ctx, itemID)
		if err != nil {
			return nil, err
		}
	}

	card, err = s.srs.NewCard(userID, itemID, collection, s.clock())
	if err != nil {
		return nil, fmt.Errorf("failed to build card: %w", err)
	}
	if err := cards.Upsert(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("created memory card",
		slog.String("user_id", userID),
		slog.String("item_id", itemID))
	return card, nil
}

// collectionOf returns the certification of the bank question behind itemID,
// or "" for items that are not in the bank.
func (s *serviceImpl) collectionOf(ctx context.Context, itemID string) (string, error) {
	q, err := s.questions.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up question: %w", err)
	}
	return q.Certification, nil
}

// Review implements Service.Review.
func (s *serviceImpl) Review(ctx context.Context, userID, itemID string, quality int) (*ReviewResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if quality < 0 || quality > 5 {
		log.Warn("rejected review quality",
			slog.String("user_id", userID),
			slog.String("item_id", itemID),
			slog.Int("quality", quality))
		return nil, fmt.Errorf("%w: got %d", srs.ErrInvalidQuality, quality)
	}

	var result ReviewResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)

		before, err := s.loadOrCreate(ctx, cards, userID, itemID, "")
		if err != nil {
			return err
		}

		now := s.clock()
		after, err := s.srs.Review(before, quality, now)
		if err != nil {
			return err
		}
		if err := cards.Upsert(ctx, after); err != nil {
			return fmt.Errorf("failed to save card: %w", err)
		}
		if err := s.logs.WithTx(tx).Create(ctx, domain.NewReviewLog(before, after, quality, now)); err != nil {
			return fmt.Errorf("failed to append review log: %w", err)
		}

		result = ReviewResult{Card: after, Before: before}
		return nil
	})
	if err != nil {
		if errors.Is(err, srs.ErrInvalidQuality) {
			return nil, err
		}
		log.Error("failed to review card",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("item_id", itemID))
		return nil, newServiceError("review", "failed to apply review", err)
	}

	log.Info("card reviewed",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
		slog.Int("quality", quality),
		slog.Int("interval", result.Card.Interval))
	return &result, nil
}

// DueCards implements Service.DueCards.
func (s *serviceImpl) DueCards(
	ctx context.Context,
	userID, collection string,
	limit int,
) ([]*domain.MemoryCard, error) {
	if limit <= 0 {
		limit = s.dueLimit
	}
	if limit > maxDueLimit {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrInvalidLimit, limit, maxDueLimit)
	}

	cards, err := s.cards.ListDue(ctx, userID, collection, s.clock(), limit)
	if err != nil {
		return nil, newServiceError("due_cards", "failed to list due cards", err)
	}
	return cards, nil
}

// Schedule implements Service.Schedule.
func (s *serviceImpl) Schedule(ctx context.Context, userID, collection string, days int) ([]ScheduleDay, error) {
	if days <= 0 {
		days = DefaultScheduleDays
	}
	if days > MaxScheduleDays {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrInvalidDays, days, MaxScheduleDays)
	}

	from := s.clock()
	counts, err := s.cards.CountDueByDay(ctx, userID, collection, from, from.AddDate(0, 0, days))
	if err != nil {
		return nil, newServiceError("schedule", "failed to count due cards", err)
	}

	schedule := make([]ScheduleDay, 0, len(counts))
	for _, c := range counts {
		schedule = append(schedule, ScheduleDay{Date: c.Day.UTC().Format(time.DateOnly), Count: c.Count})
	}
	return schedule, nil
}

// RetentionStats implements Service.RetentionStats.
func (s *serviceImpl) RetentionStats(ctx context.Context, userID, collection string) (*RetentionStats, error) {
	cards, err := s.cards.ListByUser(ctx, userID, collection)
	if err != nil {
		return nil, newServiceError("retention_stats", "failed to list cards", err)
	}

	stats := &RetentionStats{TotalCards: len(cards)}
	if len(cards) == 0 {
		return stats, nil
	}

	var correct int
	var easiness, interval float64
	for _, c := range cards {
		stats.TotalReviews += c.TotalReviews
		correct += c.CorrectCount
		easiness += c.Easiness
		interval += float64(c.Interval)
		if c.Repetitions >= MasteredRepetitions {
			stats.MasteredCards++
		}
	}

	n := float64(len(cards))
	stats.RetentionRate = roundTo(float64(correct)/math.Max(float64(stats.TotalReviews), 1)*100, 1)
	stats.AverageEasiness = roundTo(easiness/n, 2)
	stats.AverageInterval = roundTo(interval/n, 1)
	stats.MasteryRate = roundTo(float64(stats.MasteredCards)/n*100, 1)
	return stats, nil
}

// AddToDeck implements Service.AddToDeck.
func (s *serviceImpl) AddToDeck(ctx context.Context, userID, certification string, limit int) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 || limit > MaxDeckBatch {
		return 0, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidLimit, MaxDeckBatch)
	}

	questions, err := s.questions.ListNotInDeck(ctx, certification, userID, limit)
	if err != nil {
		return 0, newServiceError("add_to_deck", "failed to list questions", err)
	}
	if len(questions) == 0 {
		return 0, nil
	}

	now := s.clock()
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)
		for _, q := range questions {
			card, err := s.srs.NewCard(userID, q.ID, certification, now)
			if err != nil {
				return err
			}
			if err := cards.Upsert(ctx, card); err != nil {
				return fmt.Errorf("failed to create card for %s: %w", q.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to add questions to deck",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("certification", certification))
		return 0, newServiceError("add_to_deck", "failed to create cards", err)
	}

	log.Info("added questions to deck",
		slog.String("user_id", userID),
		slog.String("certification", certification),
		slog.Int("count", len(questions)))
	return len(questions), nil
}

// PredictRetention implements Service.PredictRetention.
func (s *serviceImpl) PredictRetention(
	ctx context.Context,
	userID, itemID string,
	daysAhead float64,
) (*RetentionPrediction, error) {
	if daysAhead < 0 || daysAhead > maxDaysAhead {
		return nil, fmt.Errorf("%w: days ahead must be between 0 and %d", ErrInvalidDays, maxDaysAhead)
	}

	card, err := s.cards.Get(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, newServiceError("predict_retention", "failed to load card", err)
	}

	elapsed := daysAhead
	if card.LastReview != nil {
		elapsed += s.clock().Sub(*card.LastReview).Hours() / 24
	}

	return &RetentionPrediction{
		ItemID:       card.ItemID,
		DaysElapsed:  roundTo(elapsed, 2),
		Retention:    s.srs.PredictRetention(card, elapsed),
		NextReview:   card.NextReview,
		IntervalDays: card.Interval,
	}, nil
}

// DeleteCard implements Service.DeleteCard.
func (s *serviceImpl) DeleteCard(ctx context.Context, userID, itemID string) error {
	if err := s.cards.Delete(ctx, userID, itemID); err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return ErrCardNotFound
		}
		return newServiceError("delete_card", "failed to delete card", err)
	}
	return nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
