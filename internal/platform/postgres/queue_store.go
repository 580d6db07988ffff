package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/store"
)

// QueueLockKey is the pg_advisory_xact_lock key guarding the matchmaking queue.
const QueueLockKey int64 = 0x63717565 // "cque"

// PostgresQueueStore implements the store.QueueStore interface.
type PostgresQueueStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQueueStore creates a new PostgreSQL implementation of the QueueStore interface.
func NewPostgresQueueStore(db store.DBTX, logger *slog.Logger) *PostgresQueueStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresQueueStore{
		db:     db,
		logger: logger.With(slog.String("component", "queue_store")),
	}
}

var _ store.QueueStore = (*PostgresQueueStore)(nil)

// WithTx implements store.QueueStore.WithTx
func (s *PostgresQueueStore) WithTx(tx *sql.Tx) store.QueueStore {
	return &PostgresQueueStore{db: tx, logger: s.logger}
}

// Lock implements store.QueueStore.Lock
func (s *PostgresQueueStore) Lock(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, QueueLockKey); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to lock matchmaking queue",
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// Get implements store.QueueStore.Get
func (s *PostgresQueueStore) Get(ctx context.Context, playerID int64) (*domain.QueueEntry, error) {
	var e domain.QueueEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT player_id, rating, enqueued_at, search_radius FROM matchmaking_queue WHERE player_id = $1`,
		playerID,
	).Scan(&e.PlayerID, &e.Rating, &e.EnqueuedAt, &e.SearchRadius)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrQueueEntryNotFound
		}
		return nil, MapError(err)
	}
	return &e, nil
}

// Insert implements store.QueueStore.Insert
func (s *PostgresQueueStore) Insert(ctx context.Context, e *domain.QueueEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matchmaking_queue (player_id, rating, enqueued_at, search_radius) VALUES ($1, $2, $3, $4)`,
		e.PlayerID, e.Rating, e.EnqueuedAt, e.SearchRadius)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrQueueEntryExists
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert queue entry",
			slog.String("error", err.Error()),
			slog.Int64("player_id", e.PlayerID))
		return MapError(err)
	}
	return nil
}

// Delete implements store.QueueStore.Delete
func (s *PostgresQueueStore) Delete(ctx context.Context, playerID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM matchmaking_queue WHERE player_id = $1`, playerID)
	if err != nil {
		return MapError(err)
	}
	return requireRowsAffected(result, store.ErrQueueEntryNotFound)
}

// List implements store.QueueStore.List
func (s *PostgresQueueStore) List(ctx context.Context) ([]*domain.QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, rating, enqueued_at, search_radius FROM matchmaking_queue ORDER BY enqueued_at, player_id`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	entries := []*domain.QueueEntry{}
	for rows.Next() {
		var e domain.QueueEntry
		if err := rows.Scan(&e.PlayerID, &e.Rating, &e.EnqueuedAt, &e.SearchRadius); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry row: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue entry rows: %w", err)
	}
	return entries, nil
}

// UpdateRadius implements store.QueueStore.UpdateRadius
func (s *PostgresQueueStore) UpdateRadius(ctx context.Context, playerID int64, radius int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE matchmaking_queue SET search_radius = $2 WHERE player_id = $1`, playerID, radius)
	if err != nil {
		return MapError(err)
	}
	return requireRowsAffected(result, store.ErrQueueEntryNotFound)
}

// PostgresBotStore implements the store.BotStore interface.
type PostgresBotStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBotStore creates a new PostgreSQL implementation of the BotStore interface.
func NewPostgresBotStore(db store.DBTX, logger *slog.Logger) *PostgresBotStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresBotStore{
		db:     db,
		logger: logger.With(slog.String("component", "bot_store")),
	}
}

var _ store.BotStore = (*PostgresBotStore)(nil)

// ListActive implements store.BotStore.ListActive
func (s *PostgresBotStore) ListActive(ctx context.Context) ([]*domain.Bot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, rating, active FROM pvp_bots WHERE active ORDER BY rating, id`)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list bots",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	bots := []*domain.Bot{}
	for rows.Next() {
		var b domain.Bot
		if err := rows.Scan(&b.ID, &b.Name, &b.Rating, &b.Active); err != nil {
			return nil, fmt.Errorf("failed to scan bot row: %w", err)
		}
		bots = append(bots, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bot rows: %w", err)
	}
	return bots, nil
}

// Get implements store.BotStore.Get
func (s *PostgresBotStore) Get(ctx context.Context, id int64) (*domain.Bot, error) {
	var b domain.Bot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, rating, active FROM pvp_bots WHERE id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.Rating, &b.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrBotNotFound
		}
		return nil, MapError(err)
	}
	return &b, nil
}

// PostgresMatchLogStore implements the store.MatchLogStore interface.
type PostgresMatchLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMatchLogStore creates a new PostgreSQL implementation of the MatchLogStore interface.
func NewPostgresMatchLogStore(db store.DBTX, logger *slog.Logger) *PostgresMatchLogStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresMatchLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "match_log_store")),
	}
}

var _ store.MatchLogStore = (*PostgresMatchLogStore)(nil)

// WithTx implements store.MatchLogStore.WithTx
func (s *PostgresMatchLogStore) WithTx(tx *sql.Tx) store.MatchLogStore {
	return &PostgresMatchLogStore{db: tx, logger: s.logger}
}

// Create implements store.MatchLogStore.Create
func (s *PostgresMatchLogStore) Create(ctx context.Context, m *domain.Match) error {
	query := `
		INSERT INTO matchmaking_log (id, player_id, opponent_id, player_rating, opponent_rating,
			rating_diff, wait_seconds, quality, is_bot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.PlayerID, m.OpponentID, m.PlayerRating, m.OpponentRating,
		m.RatingDiff, m.WaitSeconds, m.Quality, m.IsBot, m.CreatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to log match",
			slog.String("error", err.Error()),
			slog.String("match_id", m.ID.String()))
		return MapError(err)
	}
	return nil
}
