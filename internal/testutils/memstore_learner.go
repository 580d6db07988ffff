package testutils

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/store"
)

// QuestionStore is an in-memory store.QuestionStore. FindCandidates returns
// matches in id order instead of random order so tests are deterministic.
type QuestionStore struct {
	mu        sync.Mutex
	questions map[string]*domain.Question
	cards     *MemoryCardStore
}

// NewQuestionStore returns a QuestionStore holding the given questions. cards
// backs ListNotInDeck and may be nil.
func NewQuestionStore(cards *MemoryCardStore, questions ...*domain.Question) *QuestionStore {
	s := &QuestionStore{questions: map[string]*domain.Question{}, cards: cards}
	for _, q := range questions {
		cp := *q
		s.questions[q.ID] = &cp
	}
	return s
}

var _ store.QuestionStore = (*QuestionStore)(nil)

// Create implements store.QuestionStore.
func (s *QuestionStore) Create(_ context.Context, q *domain.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; ok {
		return store.ErrDuplicate
	}
	cp := *q
	s.questions[q.ID] = &cp
	return nil
}

// GetByID implements store.QuestionStore.
func (s *QuestionStore) GetByID(_ context.Context, id string) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, store.ErrQuestionNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *QuestionStore) sorted() []*domain.Question {
	all := make([]*domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		cp := *q
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// FindCandidates implements store.QuestionStore.
func (s *QuestionStore) FindCandidates(_ context.Context, cq store.CandidateQuery) ([]*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	excluded := make(map[string]bool, len(cq.ExcludeIDs))
	for _, id := range cq.ExcludeIDs {
		excluded[id] = true
	}

	out := []*domain.Question{}
	for _, q := range s.sorted() {
		if q.Certification != cq.Certification || excluded[q.ID] {
			continue
		}
		if q.Difficulty < cq.MinDifficulty || q.Difficulty > cq.MaxDifficulty {
			continue
		}
		out = append(out, q)
		if cq.Limit > 0 && len(out) == cq.Limit {
			break
		}
	}
	return out, nil
}

// ListNotInDeck implements store.QuestionStore.
func (s *QuestionStore) ListNotInDeck(ctx context.Context, certification, userID string, limit int) ([]*domain.Question, error) {
	s.mu.Lock()
	all := s.sorted()
	s.mu.Unlock()

	out := []*domain.Question{}
	for _, q := range all {
		if q.Certification != certification {
			continue
		}
		if s.cards != nil {
			if _, err := s.cards.Get(ctx, userID, q.ID); err == nil {
				continue
			}
		}
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// LearnerProfileStore is an in-memory store.LearnerProfileStore.
type LearnerProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.LearnerProfile
}

// NewLearnerProfileStore returns an empty LearnerProfileStore.
func NewLearnerProfileStore() *LearnerProfileStore {
	return &LearnerProfileStore{profiles: map[string]*domain.LearnerProfile{}}
}

var _ store.LearnerProfileStore = (*LearnerProfileStore)(nil)

// Get implements store.LearnerProfileStore.
func (s *LearnerProfileStore) Get(_ context.Context, userID, certification string) (*domain.LearnerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID+":"+certification]
	if !ok {
		return nil, store.ErrProfileNotFound
	}
	return p.Clone(), nil
}

// GetForUpdate implements store.LearnerProfileStore.
func (s *LearnerProfileStore) GetForUpdate(ctx context.Context, userID, certification string) (*domain.LearnerProfile, error) {
	return s.Get(ctx, userID, certification)
}

// Upsert implements store.LearnerProfileStore.
func (s *LearnerProfileStore) Upsert(_ context.Context, p *domain.LearnerProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID+":"+p.Certification] = p.Clone()
	return nil
}

// WithTx implements store.LearnerProfileStore.
func (s *LearnerProfileStore) WithTx(*sql.Tx) store.LearnerProfileStore { return s }

// LearningEventStore is an in-memory store.LearningEventStore.
type LearningEventStore struct {
	mu     sync.Mutex
	events []*domain.LearningEvent
}

// NewLearningEventStore returns an empty LearningEventStore.
func NewLearningEventStore() *LearningEventStore {
	return &LearningEventStore{}
}

var _ store.LearningEventStore = (*LearningEventStore)(nil)

// Create implements store.LearningEventStore.
func (s *LearningEventStore) Create(_ context.Context, e *domain.LearningEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.events = append(s.events, &cp)
	return nil
}

// ListRecent implements store.LearningEventStore.
func (s *LearningEventStore) ListRecent(_ context.Context, userID, certification string, limit int) ([]*domain.LearningEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.LearningEvent{}
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if e.UserID != userID || e.Certification != certification {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// WithTx implements store.LearningEventStore.
func (s *LearningEventStore) WithTx(*sql.Tx) store.LearningEventStore { return s }
