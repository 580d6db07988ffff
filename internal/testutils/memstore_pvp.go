package testutils

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/store"
)

// PlayerRatingStore is an in-memory store.PlayerRatingStore.
type PlayerRatingStore struct {
	mu      sync.Mutex
	ratings map[int64]*domain.PlayerRating
}

// NewPlayerRatingStore returns a PlayerRatingStore seeded with ratings.
func NewPlayerRatingStore(ratings ...*domain.PlayerRating) *PlayerRatingStore {
	s := &PlayerRatingStore{ratings: map[int64]*domain.PlayerRating{}}
	for _, r := range ratings {
		cp := *r
		s.ratings[r.PlayerID] = &cp
	}
	return s
}

var _ store.PlayerRatingStore = (*PlayerRatingStore)(nil)

// Get implements store.PlayerRatingStore.
func (s *PlayerRatingStore) Get(_ context.Context, playerID int64) (*domain.PlayerRating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ratings[playerID]
	if !ok {
		return nil, store.ErrRatingNotFound
	}
	cp := *r
	return &cp, nil
}

// GetForUpdate implements store.PlayerRatingStore.
func (s *PlayerRatingStore) GetForUpdate(ctx context.Context, playerID int64) (*domain.PlayerRating, error) {
	return s.Get(ctx, playerID)
}

// Upsert implements store.PlayerRatingStore.
func (s *PlayerRatingStore) Upsert(_ context.Context, r *domain.PlayerRating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.ratings[r.PlayerID] = &cp
	return nil
}

func (s *PlayerRatingStore) ranked() []*domain.PlayerRating {
	all := make([]*domain.PlayerRating, 0, len(s.ratings))
	for _, r := range s.ratings {
		cp := *r
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Rating != all[j].Rating {
			return all[i].Rating > all[j].Rating
		}
		return all[i].PlayerID < all[j].PlayerID
	})
	return all
}

// List implements store.PlayerRatingStore.
func (s *PlayerRatingStore) List(_ context.Context, offset, limit int) ([]*domain.PlayerRating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.ranked()
	if offset >= len(all) {
		return []*domain.PlayerRating{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ListAll implements store.PlayerRatingStore.
func (s *PlayerRatingStore) ListAll(_ context.Context) ([]*domain.PlayerRating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.ranked()
	sort.Slice(all, func(i, j int) bool { return all[i].PlayerID < all[j].PlayerID })
	return all, nil
}

// Rank implements store.PlayerRatingStore.
func (s *PlayerRatingStore) Rank(_ context.Context, playerID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.ranked() {
		if r.PlayerID == playerID {
			return i + 1, nil
		}
	}
	return 0, store.ErrRatingNotFound
}

// WithTx implements store.PlayerRatingStore.
func (s *PlayerRatingStore) WithTx(*sql.Tx) store.PlayerRatingStore { return s }

// BattleResultStore is an in-memory store.BattleResultStore.
type BattleResultStore struct {
	mu      sync.Mutex
	results []*domain.BattleResult
}

// NewBattleResultStore returns an empty BattleResultStore.
func NewBattleResultStore() *BattleResultStore {
	return &BattleResultStore{}
}

var _ store.BattleResultStore = (*BattleResultStore)(nil)

// Create implements store.BattleResultStore.
func (s *BattleResultStore) Create(_ context.Context, r *domain.BattleResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.results {
		if existing.BattleID == r.BattleID && existing.PlayerID == r.PlayerID {
			return store.ErrDuplicate
		}
	}
	cp := *r
	s.results = append(s.results, &cp)
	return nil
}

// ListByPlayer implements store.BattleResultStore.
func (s *BattleResultStore) ListByPlayer(_ context.Context, playerID int64, limit int) ([]*domain.BattleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.BattleResult{}
	for i := len(s.results) - 1; i >= 0; i-- {
		if s.results[i].PlayerID != playerID {
			continue
		}
		cp := *s.results[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ExistsForBattle implements store.BattleResultStore.
func (s *BattleResultStore) ExistsForBattle(_ context.Context, battleID uuid.UUID, playerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.results {
		if r.BattleID == battleID && r.PlayerID == playerID {
			return true, nil
		}
	}
	return false, nil
}

// WithTx implements store.BattleResultStore.
func (s *BattleResultStore) WithTx(*sql.Tx) store.BattleResultStore { return s }

// RankHistoryStore is an in-memory store.RankHistoryStore.
type RankHistoryStore struct {
	mu      sync.Mutex
	changes []*domain.RankChange
}

// NewRankHistoryStore returns an empty RankHistoryStore.
func NewRankHistoryStore() *RankHistoryStore {
	return &RankHistoryStore{}
}

var _ store.RankHistoryStore = (*RankHistoryStore)(nil)

// Create implements store.RankHistoryStore.
func (s *RankHistoryStore) Create(_ context.Context, c *domain.RankChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.changes = append(s.changes, &cp)
	return nil
}

// ListByPlayer implements store.RankHistoryStore.
func (s *RankHistoryStore) ListByPlayer(_ context.Context, playerID int64, limit int) ([]*domain.RankChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.RankChange{}
	for i := len(s.changes) - 1; i >= 0; i-- {
		if s.changes[i].PlayerID != playerID {
			continue
		}
		cp := *s.changes[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// WithTx implements store.RankHistoryStore.
func (s *RankHistoryStore) WithTx(*sql.Tx) store.RankHistoryStore { return s }

// QueueStore is an in-memory store.QueueStore. Lock is a no-op; callers are
// serialised by Transactor.
type QueueStore struct {
	mu      sync.Mutex
	entries map[int64]*domain.QueueEntry
}

// NewQueueStore returns an empty QueueStore.
func NewQueueStore() *QueueStore {
	return &QueueStore{entries: map[int64]*domain.QueueEntry{}}
}

var _ store.QueueStore = (*QueueStore)(nil)

// Lock implements store.QueueStore.
func (s *QueueStore) Lock(context.Context) error { return nil }

// Get implements store.QueueStore.
func (s *QueueStore) Get(_ context.Context, playerID int64) (*domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[playerID]
	if !ok {
		return nil, store.ErrQueueEntryNotFound
	}
	cp := *e
	return &cp, nil
}

// Insert implements store.QueueStore.
func (s *QueueStore) Insert(_ context.Context, e *domain.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.PlayerID]; ok {
		return store.ErrQueueEntryExists
	}
	cp := *e
	s.entries[e.PlayerID] = &cp
	return nil
}

// Delete implements store.QueueStore.
func (s *QueueStore) Delete(_ context.Context, playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[playerID]; !ok {
		return store.ErrQueueEntryNotFound
	}
	delete(s.entries, playerID)
	return nil
}

// List implements store.QueueStore.
func (s *QueueStore) List(_ context.Context) ([]*domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.QueueEntry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EnqueuedAt.Equal(out[j].EnqueuedAt) {
			return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out, nil
}

// Snapshot implements Snapshotter.
func (s *QueueStore) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make(map[int64]domain.QueueEntry, len(s.entries))
	for id, e := range s.entries {
		saved[id] = *e
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.entries = make(map[int64]*domain.QueueEntry, len(saved))
		for id, e := range saved {
			cp := e
			s.entries[id] = &cp
		}
	}
}

// UpdateRadius implements store.QueueStore.
func (s *QueueStore) UpdateRadius(_ context.Context, playerID int64, radius int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[playerID]
	if !ok {
		return store.ErrQueueEntryNotFound
	}
	e.SearchRadius = radius
	return nil
}

// WithTx implements store.QueueStore.
func (s *QueueStore) WithTx(*sql.Tx) store.QueueStore { return s }

// Len returns the number of waiting entries.
func (s *QueueStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// BotStore is an in-memory store.BotStore.
type BotStore struct {
	bots []*domain.Bot
}

// NewBotStore returns a BotStore holding bots.
func NewBotStore(bots ...*domain.Bot) *BotStore {
	return &BotStore{bots: bots}
}

var _ store.BotStore = (*BotStore)(nil)

// ListActive implements store.BotStore.
func (s *BotStore) ListActive(context.Context) ([]*domain.Bot, error) {
	out := []*domain.Bot{}
	for _, b := range s.bots {
		if b.Active {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating < out[j].Rating })
	return out, nil
}

// Get implements store.BotStore.
func (s *BotStore) Get(_ context.Context, id int64) (*domain.Bot, error) {
	for _, b := range s.bots {
		if b.ID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, store.ErrBotNotFound
}

// MatchLogStore is an in-memory store.MatchLogStore.
type MatchLogStore struct {
	mu      sync.Mutex
	matches []*domain.Match
}

// NewMatchLogStore returns an empty MatchLogStore.
func NewMatchLogStore() *MatchLogStore {
	return &MatchLogStore{}
}

var _ store.MatchLogStore = (*MatchLogStore)(nil)

// Create implements store.MatchLogStore.
func (s *MatchLogStore) Create(_ context.Context, m *domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.matches = append(s.matches, &cp)
	return nil
}

// Snapshot implements Snapshotter.
func (s *MatchLogStore) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.matches)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.matches = s.matches[:n]
	}
}

// WithTx implements store.MatchLogStore.
func (s *MatchLogStore) WithTx(*sql.Tx) store.MatchLogStore { return s }

// Matches returns a copy of every logged match in insertion order.
func (s *MatchLogStore) Matches() []domain.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Match, len(s.matches))
	for i, m := range s.matches {
		out[i] = *m
	}
	return out
}

// SeasonStore is an in-memory store.SeasonStore.
type SeasonStore struct {
	mu      sync.Mutex
	seasons map[string]*domain.Season
}

// NewSeasonStore returns an empty SeasonStore.
func NewSeasonStore() *SeasonStore {
	return &SeasonStore{seasons: map[string]*domain.Season{}}
}

var _ store.SeasonStore = (*SeasonStore)(nil)

func copySeason(s *domain.Season) *domain.Season {
	cp := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}

// GetActive implements store.SeasonStore.
func (s *SeasonStore) GetActive(context.Context) (*domain.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, season := range s.seasons {
		if season.Status == domain.SeasonActive {
			return copySeason(season), nil
		}
	}
	return nil, store.ErrSeasonNotFound
}

// Get implements store.SeasonStore.
func (s *SeasonStore) Get(_ context.Context, id string) (*domain.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	season, ok := s.seasons[id]
	if !ok {
		return nil, store.ErrSeasonNotFound
	}
	return copySeason(season), nil
}

// GetForUpdate implements store.SeasonStore.
func (s *SeasonStore) GetForUpdate(ctx context.Context, id string) (*domain.Season, error) {
	return s.Get(ctx, id)
}

// Create implements store.SeasonStore.
func (s *SeasonStore) Create(_ context.Context, season *domain.Season) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seasons[season.ID]; ok {
		return store.ErrSeasonExists
	}
	if season.Status == domain.SeasonActive {
		for _, other := range s.seasons {
			if other.Status == domain.SeasonActive {
				return store.ErrDuplicate
			}
		}
	}
	s.seasons[season.ID] = copySeason(season)
	return nil
}

// MarkEnded implements store.SeasonStore.
func (s *SeasonStore) MarkEnded(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	season, ok := s.seasons[id]
	if !ok || season.Status != domain.SeasonActive {
		return store.ErrUpdateFailed
	}
	season.Status = domain.SeasonEnded
	season.EndedAt = &at
	return nil
}

// WithTx implements store.SeasonStore.
func (s *SeasonStore) WithTx(*sql.Tx) store.SeasonStore { return s }

// SeasonRecordStore is an in-memory store.SeasonRecordStore.
type SeasonRecordStore struct {
	mu      sync.Mutex
	records map[string]*domain.SeasonRecord
}

// NewSeasonRecordStore returns an empty SeasonRecordStore.
func NewSeasonRecordStore() *SeasonRecordStore {
	return &SeasonRecordStore{records: map[string]*domain.SeasonRecord{}}
}

var _ store.SeasonRecordStore = (*SeasonRecordStore)(nil)

func recordKey(seasonID string, playerID int64) string {
	return seasonID + ":" + strconv.FormatInt(playerID, 10)
}

// CreateBatch implements store.SeasonRecordStore.
func (s *SeasonRecordStore) CreateBatch(_ context.Context, records []*domain.SeasonRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if _, ok := s.records[recordKey(r.SeasonID, r.PlayerID)]; ok {
			return store.ErrDuplicate
		}
	}
	for _, r := range records {
		cp := *r
		s.records[recordKey(r.SeasonID, r.PlayerID)] = &cp
	}
	return nil
}

// Get implements store.SeasonRecordStore.
func (s *SeasonRecordStore) Get(_ context.Context, seasonID string, playerID int64) (*domain.SeasonRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordKey(seasonID, playerID)]
	if !ok {
		return nil, store.ErrSeasonRecordNotFound
	}
	cp := *r
	return &cp, nil
}

// MarkClaimed implements store.SeasonRecordStore.
func (s *SeasonRecordStore) MarkClaimed(_ context.Context, seasonID string, playerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordKey(seasonID, playerID)]
	if !ok || r.RewardsClaimed {
		return false, nil
	}
	r.RewardsClaimed = true
	return true, nil
}

// ListBySeason implements store.SeasonRecordStore.
func (s *SeasonRecordStore) ListBySeason(_ context.Context, seasonID string) ([]*domain.SeasonRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.SeasonRecord{}
	for _, r := range s.records {
		if r.SeasonID == seasonID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FinalRating != out[j].FinalRating {
			return out[i].FinalRating > out[j].FinalRating
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out, nil
}

// WithTx implements store.SeasonRecordStore.
func (s *SeasonRecordStore) WithTx(*sql.Tx) store.SeasonRecordStore { return s }

// RewardStore is an in-memory store.RewardStore.
type RewardStore struct {
	mu      sync.Mutex
	rewards map[string]*domain.Reward
}

// NewRewardStore returns an empty RewardStore.
func NewRewardStore() *RewardStore {
	return &RewardStore{rewards: map[string]*domain.Reward{}}
}

var _ store.RewardStore = (*RewardStore)(nil)

// ListBySeason implements store.RewardStore.
func (s *RewardStore) ListBySeason(_ context.Context, seasonID string) ([]*domain.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.Reward{}
	for _, r := range s.rewards {
		if r.SeasonID == seasonID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier.Compare(out[j].Tier) < 0 })
	return out, nil
}

// Upsert implements store.RewardStore.
func (s *RewardStore) Upsert(_ context.Context, r *domain.Reward) error {
	if !r.Tier.Valid() {
		return store.ErrInvalidEntity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rewards[r.SeasonID+":"+string(r.Tier)] = &cp
	return nil
}

// SessionStore is an in-memory store.SessionStore without expiry.
type SessionStore struct {
	mu      sync.Mutex
	battles map[uuid.UUID]*domain.BattleSession
	pending map[int64]*domain.Match
}

// NewSessionStore returns an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		battles: map[uuid.UUID]*domain.BattleSession{},
		pending: map[int64]*domain.Match{},
	}
}

var _ store.SessionStore = (*SessionStore)(nil)

// SaveBattle implements store.SessionStore.
func (s *SessionStore) SaveBattle(_ context.Context, b *domain.BattleSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.battles[b.ID] = &cp
	return nil
}

// BattleCount returns the number of stored battle sessions.
func (s *SessionStore) BattleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.battles)
}

// GetBattle implements store.SessionStore.
func (s *SessionStore) GetBattle(_ context.Context, id uuid.UUID) (*domain.BattleSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.battles[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	cp := *b
	return &cp, nil
}

// DeleteBattle implements store.SessionStore.
func (s *SessionStore) DeleteBattle(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.battles, id)
	return nil
}

// PutPendingMatch implements store.SessionStore.
func (s *SessionStore) PutPendingMatch(_ context.Context, playerID int64, m *domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.pending[playerID] = &cp
	return nil
}

// TakePendingMatch implements store.SessionStore.
func (s *SessionStore) TakePendingMatch(_ context.Context, playerID int64) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.pending[playerID]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	delete(s.pending, playerID)
	return m, nil
}
