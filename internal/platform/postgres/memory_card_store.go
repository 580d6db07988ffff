package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/store"
)

const memoryCardColumns = `user_id, item_id, collection, easiness, interval_days, repetitions,
	next_review, last_review, total_reviews, correct_count, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresMemoryCardStore implements the store.MemoryCardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMemoryCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMemoryCardStore creates a new PostgreSQL implementation of the MemoryCardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresMemoryCardStore(db store.DBTX, logger *slog.Logger) *PostgresMemoryCardStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMemoryCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "memory_card_store")),
	}
}

// Ensure PostgresMemoryCardStore implements store.MemoryCardStore interface
var _ store.MemoryCardStore = (*PostgresMemoryCardStore)(nil)

// WithTx implements store.MemoryCardStore.WithTx
func (s *PostgresMemoryCardStore) WithTx(tx *sql.Tx) store.MemoryCardStore {
	return &PostgresMemoryCardStore{db: tx, logger: s.logger}
}

func scanMemoryCard(row rowScanner) (*domain.MemoryCard, error) {
	var card domain.MemoryCard
	var lastReview sql.NullTime
	err := row.Scan(
		&card.UserID,
		&card.ItemID,
		&card.Collection,
		&card.Easiness,
		&card.Interval,
		&card.Repetitions,
		&card.NextReview,
		&lastReview,
		&card.TotalReviews,
		&card.CorrectCount,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastReview.Valid {
		t := lastReview.Time
		card.LastReview = &t
	}
	return &card, nil
}

// Get implements store.MemoryCardStore.Get
func (s *PostgresMemoryCardStore) Get(ctx context.Context, userID, itemID string) (*domain.MemoryCard, error) {
	return s.get(ctx, userID, itemID, false)
}

// GetForUpdate implements store.MemoryCardStore.GetForUpdate
func (s *PostgresMemoryCardStore) GetForUpdate(ctx context.Context, userID, itemID string) (*domain.MemoryCard, error) {
	return s.get(ctx, userID, itemID, true)
}

func (s *PostgresMemoryCardStore) get(ctx context.Context, userID, itemID string, forUpdate bool) (*domain.MemoryCard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + memoryCardColumns + ` FROM memory_cards WHERE user_id = $1 AND item_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	card, err := scanMemoryCard(s.db.QueryRowContext(ctx, query, userID, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get memory card",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("item_id", itemID))
		return nil, MapError(err)
	}
	return card, nil
}

// Upsert implements store.MemoryCardStore.Upsert
func (s *PostgresMemoryCardStore) Upsert(ctx context.Context, card *domain.MemoryCard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("memory card validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("card", card.Key()))
		return err
	}

	query := `
		INSERT INTO memory_cards (` + memoryCardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, item_id) DO UPDATE SET
			collection = EXCLUDED.collection,
			easiness = EXCLUDED.easiness,
			interval_days = EXCLUDED.interval_days,
			repetitions = EXCLUDED.repetitions,
			next_review = EXCLUDED.next_review,
			last_review = EXCLUDED.last_review,
			total_reviews = EXCLUDED.total_reviews,
			correct_count = EXCLUDED.correct_count,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		card.UserID,
		card.ItemID,
		card.Collection,
		card.Easiness,
		card.Interval,
		card.Repetitions,
		card.NextReview,
		card.LastReview,
		card.TotalReviews,
		card.CorrectCount,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to upsert memory card",
			slog.String("error", err.Error()),
			slog.String("card", card.Key()))
		return MapError(err)
	}
	return nil
}

// Delete implements store.MemoryCardStore.Delete
func (s *PostgresMemoryCardStore) Delete(ctx context.Context, userID, itemID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_cards WHERE user_id = $1 AND item_id = $2`, userID, itemID)
	if err != nil {
		log.Error("failed to delete memory card",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("item_id", itemID))
		return MapError(err)
	}
	return requireRowsAffected(result, store.ErrCardNotFound)
}

// ListDue implements store.MemoryCardStore.ListDue
func (s *PostgresMemoryCardStore) ListDue(
	ctx context.Context,
	userID, collection string,
	now time.Time,
	limit int,
) ([]*domain.MemoryCard, error) {
	query := `SELECT ` + memoryCardColumns + ` FROM memory_cards
		WHERE user_id = $1 AND next_review <= $2 AND ($3::text = '' OR collection = $3)
		ORDER BY next_review ASC, item_id ASC
		LIMIT $4`
	return s.list(ctx, "list due memory cards", query, userID, now, collection, limit)
}

// ListByUser implements store.MemoryCardStore.ListByUser
func (s *PostgresMemoryCardStore) ListByUser(
	ctx context.Context,
	userID, collection string,
) ([]*domain.MemoryCard, error) {
	query := `SELECT ` + memoryCardColumns + ` FROM memory_cards
		WHERE user_id = $1 AND ($2::text = '' OR collection = $2)
		ORDER BY item_id`
	return s.list(ctx, "list memory cards", query, userID, collection)
}

func (s *PostgresMemoryCardStore) list(ctx context.Context, op, query string, args ...any) ([]*domain.MemoryCard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to "+op, slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	cards := []*domain.MemoryCard{}
	for rows.Next() {
		card, err := scanMemoryCard(rows)
		if err != nil {
			log.Error("failed to scan memory card row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan memory card row: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memory card rows: %w", err)
	}
	return cards, nil
}

// CountDueByDay implements store.MemoryCardStore.CountDueByDay
func (s *PostgresMemoryCardStore) CountDueByDay(
	ctx context.Context,
	userID, collection string,
	from, to time.Time,
) ([]store.DayCount, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT date_trunc('day', next_review AT TIME ZONE 'UTC') AS day, COUNT(*)
		FROM memory_cards
		WHERE user_id = $1 AND next_review >= $2 AND next_review < $3
			AND ($4::text = '' OR collection = $4)
		GROUP BY day
		ORDER BY day
	`
	rows, err := s.db.QueryContext(ctx, query, userID, from, to, collection)
	if err != nil {
		log.Error("failed to count due memory cards",
			slog.String("error", err.Error()),
			slog.String("user_id", userID))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	counts := []store.DayCount{}
	for rows.Next() {
		var dc store.DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan due count row: %w", err)
		}
		dc.Day = time.Date(dc.Day.Year(), dc.Day.Month(), dc.Day.Day(), 0, 0, 0, 0, time.UTC)
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due count rows: %w", err)
	}
	return counts, nil
}

// PostgresReviewLogStore implements the store.ReviewLogStore interface.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewLogStore creates a new PostgreSQL implementation of the ReviewLogStore interface.
func NewPostgresReviewLogStore(db store.DBTX, logger *slog.Logger) *PostgresReviewLogStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

// WithTx implements store.ReviewLogStore.WithTx
func (s *PostgresReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &PostgresReviewLogStore{db: tx, logger: s.logger}
}

// Create implements store.ReviewLogStore.Create
func (s *PostgresReviewLogStore) Create(ctx context.Context, entry *domain.ReviewLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO review_logs (id, user_id, item_id, quality, interval_before, interval_after,
			easiness_before, easiness_after, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.ItemID,
		entry.Quality,
		entry.IntervalBefore,
		entry.IntervalAfter,
		entry.EasinessBefore,
		entry.EasinessAfter,
		entry.ReviewedAt,
	)
	if err != nil {
		log.Error("failed to create review log",
			slog.String("error", err.Error()),
			slog.String("user_id", entry.UserID),
			slog.String("item_id", entry.ItemID))
		return MapError(err)
	}
	return nil
}

// ListByUser implements store.ReviewLogStore.ListByUser
func (s *PostgresReviewLogStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.ReviewLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, item_id, quality, interval_before, interval_after,
			easiness_before, easiness_after, reviewed_at
		FROM review_logs
		WHERE user_id = $1
		ORDER BY reviewed_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		log.Error("failed to list review logs", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	logs := []*domain.ReviewLog{}
	for rows.Next() {
		var e domain.ReviewLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.ItemID, &e.Quality, &e.IntervalBefore,
			&e.IntervalAfter, &e.EasinessBefore, &e.EasinessAfter, &e.ReviewedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review log row: %w", err)
		}
		logs = append(logs, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating review log rows: %w", err)
	}
	return logs, nil
}
