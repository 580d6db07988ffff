package testutils

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/store"
)

// MemoryCardStore is an in-memory store.MemoryCardStore.
type MemoryCardStore struct {
	mu    sync.Mutex
	cards map[string]*domain.MemoryCard
}

// NewMemoryCardStore returns an empty MemoryCardStore.
func NewMemoryCardStore() *MemoryCardStore {
	return &MemoryCardStore{cards: map[string]*domain.MemoryCard{}}
}

var _ store.MemoryCardStore = (*MemoryCardStore)(nil)

func cardKey(userID, itemID string) string {
	return userID + ":" + itemID
}

// Get implements store.MemoryCardStore.
func (s *MemoryCardStore) Get(_ context.Context, userID, itemID string) (*domain.MemoryCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[cardKey(userID, itemID)]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return c.Clone(), nil
}

// GetForUpdate implements store.MemoryCardStore.
func (s *MemoryCardStore) GetForUpdate(ctx context.Context, userID, itemID string) (*domain.MemoryCard, error) {
	return s.Get(ctx, userID, itemID)
}

// Upsert implements store.MemoryCardStore.
func (s *MemoryCardStore) Upsert(_ context.Context, card *domain.MemoryCard) error {
	if err := card.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.Key()] = card.Clone()
	return nil
}

// Delete implements store.MemoryCardStore.
func (s *MemoryCardStore) Delete(_ context.Context, userID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cardKey(userID, itemID)
	if _, ok := s.cards[key]; !ok {
		return store.ErrCardNotFound
	}
	delete(s.cards, key)
	return nil
}

// ListDue implements store.MemoryCardStore.
func (s *MemoryCardStore) ListDue(
	_ context.Context,
	userID, collection string,
	now time.Time,
	limit int,
) ([]*domain.MemoryCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := []*domain.MemoryCard{}
	for _, c := range s.cards {
		if c.UserID != userID || c.NextReview.After(now) {
			continue
		}
		if collection != "" && c.Collection != collection {
			continue
		}
		due = append(due, c.Clone())
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextReview.Equal(due[j].NextReview) {
			return due[i].NextReview.Before(due[j].NextReview)
		}
		return due[i].ItemID < due[j].ItemID
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// ListByUser implements store.MemoryCardStore.
func (s *MemoryCardStore) ListByUser(_ context.Context, userID, collection string) ([]*domain.MemoryCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := []*domain.MemoryCard{}
	for _, c := range s.cards {
		if c.UserID == userID && (collection == "" || c.Collection == collection) {
			cards = append(cards, c.Clone())
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ItemID < cards[j].ItemID })
	return cards, nil
}

// CountDueByDay implements store.MemoryCardStore.
func (s *MemoryCardStore) CountDueByDay(
	_ context.Context,
	userID, collection string,
	from, to time.Time,
) ([]store.DayCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDay := map[time.Time]int{}
	for _, c := range s.cards {
		if c.UserID != userID || c.NextReview.Before(from) || !c.NextReview.Before(to) {
			continue
		}
		if collection != "" && c.Collection != collection {
			continue
		}
		n := c.NextReview.UTC()
		byDay[time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)]++
	}

	counts := make([]store.DayCount, 0, len(byDay))
	for day, n := range byDay {
		counts = append(counts, store.DayCount{Day: day, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Day.Before(counts[j].Day) })
	return counts, nil
}

// WithTx implements store.MemoryCardStore.
func (s *MemoryCardStore) WithTx(*sql.Tx) store.MemoryCardStore { return s }

// ReviewLogStore is an in-memory store.ReviewLogStore.
type ReviewLogStore struct {
	mu   sync.Mutex
	logs []*domain.ReviewLog
}

// NewReviewLogStore returns an empty ReviewLogStore.
func NewReviewLogStore() *ReviewLogStore {
	return &ReviewLogStore{}
}

var _ store.ReviewLogStore = (*ReviewLogStore)(nil)

// Create implements store.ReviewLogStore.
func (s *ReviewLogStore) Create(_ context.Context, entry *domain.ReviewLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.logs = append(s.logs, &cp)
	return nil
}

// ListByUser implements store.ReviewLogStore.
func (s *ReviewLogStore) ListByUser(_ context.Context, userID string, limit int) ([]*domain.ReviewLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := []*domain.ReviewLog{}
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].UserID != userID {
			continue
		}
		cp := *s.logs[i]
		logs = append(logs, &cp)
		if limit > 0 && len(logs) == limit {
			break
		}
	}
	return logs, nil
}

// WithTx implements store.ReviewLogStore.
func (s *ReviewLogStore) WithTx(*sql.Tx) store.ReviewLogStore { return s }

// Len returns the number of stored entries.
func (s *ReviewLogStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}
