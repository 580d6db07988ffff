package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/store"
)

const playerRatingColumns = `player_id, rating, wins, losses, streak, max_streak, updated_at`

// PostgresPlayerRatingStore implements the store.PlayerRatingStore interface.
type PostgresPlayerRatingStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPlayerRatingStore creates a new PostgreSQL implementation of the PlayerRatingStore interface.
func NewPostgresPlayerRatingStore(db store.DBTX, logger *slog.Logger) *PostgresPlayerRatingStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPlayerRatingStore{
		db:     db,
		logger: logger.With(slog.String("component", "player_rating_store")),
	}
}

var _ store.PlayerRatingStore = (*PostgresPlayerRatingStore)(nil)

// WithTx implements store.PlayerRatingStore.WithTx
func (s *PostgresPlayerRatingStore) WithTx(tx *sql.Tx) store.PlayerRatingStore {
	return &PostgresPlayerRatingStore{db: tx, logger: s.logger}
}

func scanPlayerRating(row rowScanner) (*domain.PlayerRating, error) {
	var p domain.PlayerRating
	if err := row.Scan(&p.PlayerID, &p.Rating, &p.Wins, &p.Losses, &p.Streak, &p.MaxStreak, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Get implements store.PlayerRatingStore.Get
func (s *PostgresPlayerRatingStore) Get(ctx context.Context, playerID int64) (*domain.PlayerRating, error) {
	return s.get(ctx, playerID, false)
}

// GetForUpdate implements store.PlayerRatingStore.GetForUpdate
func (s *PostgresPlayerRatingStore) GetForUpdate(ctx context.Context, playerID int64) (*domain.PlayerRating, error) {
	return s.get(ctx, playerID, true)
}

func (s *PostgresPlayerRatingStore) get(ctx context.Context, playerID int64, forUpdate bool) (*domain.PlayerRating, error) {
	query := `SELECT ` + playerRatingColumns + ` FROM player_ratings WHERE player_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanPlayerRating(s.db.QueryRowContext(ctx, query, playerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRatingNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get player rating",
			slog.String("error", err.Error()),
			slog.Int64("player_id", playerID))
		return nil, MapError(err)
	}
	return p, nil
}

// Upsert implements store.PlayerRatingStore.Upsert
func (s *PostgresPlayerRatingStore) Upsert(ctx context.Context, p *domain.PlayerRating) error {
	query := `
		INSERT INTO player_ratings (` + playerRatingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (player_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			streak = EXCLUDED.streak,
			max_streak = EXCLUDED.max_streak,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, p.PlayerID, p.Rating, p.Wins, p.Losses, p.Streak, p.MaxStreak, p.UpdatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to upsert player rating",
			slog.String("error", err.Error()),
			slog.Int64("player_id", p.PlayerID))
		return MapError(err)
	}
	return nil
}

// List implements store.PlayerRatingStore.List
func (s *PostgresPlayerRatingStore) List(ctx context.Context, offset, limit int) ([]*domain.PlayerRating, error) {
	query := `SELECT ` + playerRatingColumns + ` FROM player_ratings
		ORDER BY rating DESC, player_id ASC
		OFFSET $1 LIMIT $2`
	return s.list(ctx, query, offset, limit)
}

// ListAll implements store.PlayerRatingStore.ListAll
func (s *PostgresPlayerRatingStore) ListAll(ctx context.Context) ([]*domain.PlayerRating, error) {
	return s.list(ctx, `SELECT `+playerRatingColumns+` FROM player_ratings ORDER BY player_id`)
}

func (s *PostgresPlayerRatingStore) list(ctx context.Context, query string, args ...any) ([]*domain.PlayerRating, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list player ratings",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	ratings := []*domain.PlayerRating{}
	for rows.Next() {
		p, err := scanPlayerRating(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player rating row: %w", err)
		}
		ratings = append(ratings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rating rows: %w", err)
	}
	return ratings, nil
}

// Rank implements store.PlayerRatingStore.Rank
func (s *PostgresPlayerRatingStore) Rank(ctx context.Context, playerID int64) (int, error) {
	query := `
		SELECT COUNT(*) + 1
		FROM player_ratings o, player_ratings p
		WHERE p.player_id = $1
			AND (o.rating > p.rating OR (o.rating = p.rating AND o.player_id < p.player_id))
	`
	if _, err := s.Get(ctx, playerID); err != nil {
		return 0, err
	}
	var rank int
	if err := s.db.QueryRowContext(ctx, query, playerID).Scan(&rank); err != nil {
		return 0, MapError(err)
	}
	return rank, nil
}

// PostgresBattleResultStore implements the store.BattleResultStore interface.
type PostgresBattleResultStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBattleResultStore creates a new PostgreSQL implementation of the BattleResultStore interface.
func NewPostgresBattleResultStore(db store.DBTX, logger *slog.Logger) *PostgresBattleResultStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresBattleResultStore{
		db:     db,
		logger: logger.With(slog.String("component", "battle_result_store")),
	}
}

var _ store.BattleResultStore = (*PostgresBattleResultStore)(nil)

// WithTx implements store.BattleResultStore.WithTx
func (s *PostgresBattleResultStore) WithTx(tx *sql.Tx) store.BattleResultStore {
	return &PostgresBattleResultStore{db: tx, logger: s.logger}
}

// Create implements store.BattleResultStore.Create
func (s *PostgresBattleResultStore) Create(ctx context.Context, r *domain.BattleResult) error {
	query := `
		INSERT INTO battle_results (id, battle_id, player_id, opponent_id, won, rating_before, rating_after,
			opponent_rating_before, opponent_rating_after, is_bot, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.BattleID, r.PlayerID, r.OpponentID, r.Won, r.RatingBefore, r.RatingAfter,
		r.OpponentRatingBefore, r.OpponentRatingAfter, r.IsBot, r.PlayedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create battle result",
			slog.String("error", err.Error()),
			slog.String("battle_id", r.BattleID.String()),
			slog.Int64("player_id", r.PlayerID))
		return MapError(err)
	}
	return nil
}

// ListByPlayer implements store.BattleResultStore.ListByPlayer
func (s *PostgresBattleResultStore) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*domain.BattleResult, error) {
	query := `
		SELECT id, battle_id, player_id, opponent_id, won, rating_before, rating_after,
			opponent_rating_before, opponent_rating_after, is_bot, played_at
		FROM battle_results
		WHERE player_id = $1
		ORDER BY played_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	results := []*domain.BattleResult{}
	for rows.Next() {
		var r domain.BattleResult
		if err := rows.Scan(&r.ID, &r.BattleID, &r.PlayerID, &r.OpponentID, &r.Won, &r.RatingBefore,
			&r.RatingAfter, &r.OpponentRatingBefore, &r.OpponentRatingAfter, &r.IsBot, &r.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan battle result row: %w", err)
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating battle result rows: %w", err)
	}
	return results, nil
}

// ExistsForBattle implements store.BattleResultStore.ExistsForBattle
func (s *PostgresBattleResultStore) ExistsForBattle(ctx context.Context, battleID uuid.UUID, playerID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM battle_results WHERE battle_id = $1 AND player_id = $2)`,
		battleID, playerID,
	).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// PostgresRankHistoryStore implements the store.RankHistoryStore interface.
type PostgresRankHistoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRankHistoryStore creates a new PostgreSQL implementation of the RankHistoryStore interface.
func NewPostgresRankHistoryStore(db store.DBTX, logger *slog.Logger) *PostgresRankHistoryStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRankHistoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "rank_history_store")),
	}
}

var _ store.RankHistoryStore = (*PostgresRankHistoryStore)(nil)

// WithTx implements store.RankHistoryStore.WithTx
func (s *PostgresRankHistoryStore) WithTx(tx *sql.Tx) store.RankHistoryStore {
	return &PostgresRankHistoryStore{db: tx, logger: s.logger}
}

// Create implements store.RankHistoryStore.Create
func (s *PostgresRankHistoryStore) Create(ctx context.Context, c *domain.RankChange) error {
	query := `
		INSERT INTO rank_history (player_id, old_rating, new_rating, old_tier, new_tier, change_type, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.PlayerID, c.OldRating, c.NewRating, string(c.OldTier), string(c.NewTier), string(c.Type), c.At)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create rank change",
			slog.String("error", err.Error()),
			slog.Int64("player_id", c.PlayerID))
		return MapError(err)
	}
	return nil
}

// ListByPlayer implements store.RankHistoryStore.ListByPlayer
func (s *PostgresRankHistoryStore) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*domain.RankChange, error) {
	query := `
		SELECT player_id, old_rating, new_rating, old_tier, new_tier, change_type, changed_at
		FROM rank_history
		WHERE player_id = $1
		ORDER BY changed_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	changes := []*domain.RankChange{}
	for rows.Next() {
		var c domain.RankChange
		var oldTier, newTier, changeType string
		if err := rows.Scan(&c.PlayerID, &c.OldRating, &c.NewRating, &oldTier, &newTier, &changeType, &c.At); err != nil {
			return nil, fmt.Errorf("failed to scan rank change row: %w", err)
		}
		if c.OldTier, err = domain.ParseRankTier(oldTier); err != nil {
			return nil, err
		}
		if c.NewTier, err = domain.ParseRankTier(newTier); err != nil {
			return nil, err
		}
		if c.Type, err = domain.ParseRankChangeType(changeType); err != nil {
			return nil, err
		}
		changes = append(changes, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rank change rows: %w", err)
	}
	return changes, nil
}
