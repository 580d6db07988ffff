package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultSessionTTL is used when the store is built with a non-positive TTL.
const DefaultSessionTTL = 30 * time.Minute

// SessionStore implements store.SessionStore with Redis string keys.
type SessionStore struct {
	client goredis.Cmdable
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

var _ store.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a SessionStore. Keys are namespaced with prefix.
func NewSessionStore(client goredis.Cmdable, prefix string, ttl time.Duration, logger *slog.Logger) *SessionStore {
	if client == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// NewClient opens a client and verifies the connection with PING.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *SessionStore) battleKey(id uuid.UUID) string {
	return s.prefix + ":battle:" + id.String()
}

func (s *SessionStore) pendingKey(playerID int64) string {
	return s.prefix + ":pending:" + strconv.FormatInt(playerID, 10)
}

// SaveBattle implements store.SessionStore.
func (s *SessionStore) SaveBattle(ctx context.Context, session *domain.BattleSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode battle session: %w", err)
	}
	if err := s.client.Set(ctx, s.battleKey(session.ID), payload, s.ttl).Err(); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save battle session",
			slog.String("battle_id", session.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to save battle session: %w", err)
	}
	return nil
}

// GetBattle implements store.SessionStore.
func (s *SessionStore) GetBattle(ctx context.Context, id uuid.UUID) (*domain.BattleSession, error) {
	payload, err := s.client.Get(ctx, s.battleKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, store.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load battle session: %w", err)
	}

	var session domain.BattleSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode battle session: %w", err)
	}
	return &session, nil
}

// DeleteBattle implements store.SessionStore.
func (s *SessionStore) DeleteBattle(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, s.battleKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete battle session: %w", err)
	}
	return nil
}

// PutPendingMatch implements store.SessionStore. A newer match replaces an
// undelivered one.
func (s *SessionStore) PutPendingMatch(ctx context.Context, playerID int64, match *domain.Match) error {
	payload, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("failed to encode pending match: %w", err)
	}
	if err := s.client.Set(ctx, s.pendingKey(playerID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save pending match: %w", err)
	}
	return nil
}

// TakePendingMatch implements store.SessionStore. GETDEL makes delivery happen once.
func (s *SessionStore) TakePendingMatch(ctx context.Context, playerID int64) (*domain.Match, error) {
	payload, err := s.client.GetDel(ctx, s.pendingKey(playerID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, store.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to take pending match: %w", err)
	}

	var match domain.Match
	if err := json.Unmarshal(payload, &match); err != nil {
		return nil, fmt.Errorf("failed to decode pending match: %w", err)
	}
	return &match, nil
}
