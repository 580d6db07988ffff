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

// PostgresSeasonStore implements the store.SeasonStore interface.
type PostgresSeasonStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSeasonStore creates a new PostgreSQL implementation of the SeasonStore interface.
func NewPostgresSeasonStore(db store.DBTX, logger *slog.Logger) *PostgresSeasonStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSeasonStore{
		db:     db,
		logger: logger.With(slog.String("component", "season_store")),
	}
}

var _ store.SeasonStore = (*PostgresSeasonStore)(nil)

// WithTx implements store.SeasonStore.WithTx
func (s *PostgresSeasonStore) WithTx(tx *sql.Tx) store.SeasonStore {
	return &PostgresSeasonStore{db: tx, logger: s.logger}
}

func (s *PostgresSeasonStore) queryOne(ctx context.Context, query string, args ...any) (*domain.Season, error) {
	var season domain.Season
	var status string
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&season.ID, &season.Name, &status, &season.StartedAt, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSeasonNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get season",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	if season.Status, err = domain.ParseSeasonStatus(status); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		season.EndedAt = &t
	}
	return &season, nil
}

// GetActive implements store.SeasonStore.GetActive
func (s *PostgresSeasonStore) GetActive(ctx context.Context) (*domain.Season, error) {
	return s.queryOne(ctx,
		`SELECT id, name, status, started_at, ended_at FROM seasons WHERE status = 'active' FOR UPDATE`)
}

// Get implements store.SeasonStore.Get
func (s *PostgresSeasonStore) Get(ctx context.Context, id string) (*domain.Season, error) {
	return s.queryOne(ctx, `SELECT id, name, status, started_at, ended_at FROM seasons WHERE id = $1`, id)
}

// GetForUpdate implements store.SeasonStore.GetForUpdate
func (s *PostgresSeasonStore) GetForUpdate(ctx context.Context, id string) (*domain.Season, error) {
	return s.queryOne(ctx,
		`SELECT id, name, status, started_at, ended_at FROM seasons WHERE id = $1 FOR UPDATE`, id)
}

// Create implements store.SeasonStore.Create
func (s *PostgresSeasonStore) Create(ctx context.Context, season *domain.Season) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seasons (id, name, status, started_at, ended_at) VALUES ($1, $2, $3, $4, $5)`,
		season.ID, season.Name, string(season.Status), season.StartedAt, season.EndedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrSeasonExists
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create season",
			slog.String("error", err.Error()),
			slog.String("season_id", season.ID))
		return MapError(err)
	}
	return nil
}

// MarkEnded implements store.SeasonStore.MarkEnded
func (s *PostgresSeasonStore) MarkEnded(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE seasons SET status = 'ended', ended_at = $2 WHERE id = $1 AND status = 'active'`, id, at)
	if err != nil {
		return MapError(err)
	}
	if err := requireRowsAffected(result, store.ErrUpdateFailed); err != nil {
		return fmt.Errorf("season %s is not active: %w", id, err)
	}
	return nil
}

// PostgresSeasonRecordStore implements the store.SeasonRecordStore interface.
type PostgresSeasonRecordStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSeasonRecordStore creates a new PostgreSQL implementation of the SeasonRecordStore interface.
func NewPostgresSeasonRecordStore(db store.DBTX, logger *slog.Logger) *PostgresSeasonRecordStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSeasonRecordStore{
		db:     db,
		logger: logger.With(slog.String("component", "season_record_store")),
	}
}

var _ store.SeasonRecordStore = (*PostgresSeasonRecordStore)(nil)

// WithTx implements store.SeasonRecordStore.WithTx
func (s *PostgresSeasonRecordStore) WithTx(tx *sql.Tx) store.SeasonRecordStore {
	return &PostgresSeasonRecordStore{db: tx, logger: s.logger}
}

// CreateBatch implements store.SeasonRecordStore.CreateBatch
func (s *PostgresSeasonRecordStore) CreateBatch(ctx context.Context, records []*domain.SeasonRecord) error {
	if len(records) == 0 {
		return nil
	}

	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO season_records (season_id, player_id, final_rating, final_tier, wins, losses, rewards_claimed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.SeasonID, r.PlayerID, r.FinalRating, string(r.FinalTier),
			r.Wins, r.Losses, r.RewardsClaimed); err != nil {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert season record",
				slog.String("error", err.Error()),
				slog.String("season_id", r.SeasonID),
				slog.Int64("player_id", r.PlayerID))
			return MapError(err)
		}
	}
	return nil
}

const seasonRecordColumns = `season_id, player_id, final_rating, final_tier, wins, losses, rewards_claimed`

func scanSeasonRecord(row rowScanner) (*domain.SeasonRecord, error) {
	var r domain.SeasonRecord
	var tier string
	if err := row.Scan(&r.SeasonID, &r.PlayerID, &r.FinalRating, &tier, &r.Wins, &r.Losses, &r.RewardsClaimed); err != nil {
		return nil, err
	}
	var err error
	if r.FinalTier, err = domain.ParseRankTier(tier); err != nil {
		return nil, err
	}
	return &r, nil
}

// Get implements store.SeasonRecordStore.Get
func (s *PostgresSeasonRecordStore) Get(ctx context.Context, seasonID string, playerID int64) (*domain.SeasonRecord, error) {
	r, err := scanSeasonRecord(s.db.QueryRowContext(ctx,
		`SELECT `+seasonRecordColumns+` FROM season_records WHERE season_id = $1 AND player_id = $2`,
		seasonID, playerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSeasonRecordNotFound
		}
		return nil, MapError(err)
	}
	return r, nil
}

// MarkClaimed implements store.SeasonRecordStore.MarkClaimed
func (s *PostgresSeasonRecordStore) MarkClaimed(ctx context.Context, seasonID string, playerID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE season_records SET rewards_claimed = TRUE
		WHERE season_id = $1 AND player_id = $2 AND rewards_claimed = FALSE
	`, seasonID, playerID)
	if err != nil {
		return false, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// ListBySeason implements store.SeasonRecordStore.ListBySeason
func (s *PostgresSeasonRecordStore) ListBySeason(ctx context.Context, seasonID string) ([]*domain.SeasonRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+seasonRecordColumns+` FROM season_records WHERE season_id = $1
		ORDER BY final_rating DESC, player_id ASC`, seasonID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	records := []*domain.SeasonRecord{}
	for rows.Next() {
		r, err := scanSeasonRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan season record row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating season record rows: %w", err)
	}
	return records, nil
}

// PostgresRewardStore implements the store.RewardStore interface.
type PostgresRewardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRewardStore creates a new PostgreSQL implementation of the RewardStore interface.
func NewPostgresRewardStore(db store.DBTX, logger *slog.Logger) *PostgresRewardStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRewardStore{
		db:     db,
		logger: logger.With(slog.String("component", "reward_store")),
	}
}

var _ store.RewardStore = (*PostgresRewardStore)(nil)

// ListBySeason implements store.RewardStore.ListBySeason
func (s *PostgresRewardStore) ListBySeason(ctx context.Context, seasonID string) ([]*domain.Reward, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT season_id, tier, coins, exp, title, special_item
		FROM season_rewards WHERE season_id = $1
	`, seasonID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	rewards := []*domain.Reward{}
	for rows.Next() {
		var r domain.Reward
		var tier string
		if err := rows.Scan(&r.SeasonID, &tier, &r.Coins, &r.Exp, &r.Title, &r.SpecialItem); err != nil {
			return nil, fmt.Errorf("failed to scan reward row: %w", err)
		}
		if r.Tier, err = domain.ParseRankTier(tier); err != nil {
			return nil, err
		}
		rewards = append(rewards, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reward rows: %w", err)
	}
	return rewards, nil
}

// Upsert implements store.RewardStore.Upsert
func (s *PostgresRewardStore) Upsert(ctx context.Context, r *domain.Reward) error {
	if !r.Tier.Valid() {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidTier)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO season_rewards (season_id, tier, coins, exp, title, special_item)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (season_id, tier) DO UPDATE SET
			coins = EXCLUDED.coins,
			exp = EXCLUDED.exp,
			title = EXCLUDED.title,
			special_item = EXCLUDED.special_item
	`, r.SeasonID, string(r.Tier), r.Coins, r.Exp, r.Title, r.SpecialItem)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to upsert reward",
			slog.String("error", err.Error()),
			slog.String("season_id", r.SeasonID))
		return MapError(err)
	}
	return nil
}
