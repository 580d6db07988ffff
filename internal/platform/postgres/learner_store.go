package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/store"
)

// PostgresQuestionStore implements the store.QuestionStore interface.
type PostgresQuestionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQuestionStore creates a new PostgreSQL implementation of the QuestionStore interface.
func NewPostgresQuestionStore(db store.DBTX, logger *slog.Logger) *PostgresQuestionStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresQuestionStore{
		db:     db,
		logger: logger.With(slog.String("component", "question_store")),
	}
}

var _ store.QuestionStore = (*PostgresQuestionStore)(nil)

// Create implements store.QuestionStore.Create
func (s *PostgresQuestionStore) Create(ctx context.Context, q *domain.Question) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := q.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (id, certification, domain, difficulty, prompt) VALUES ($1, $2, $3, $4, $5)`,
		q.ID, q.Certification, q.Domain, q.Difficulty, q.Prompt)
	if err != nil {
		log.Error("failed to create question",
			slog.String("error", err.Error()),
			slog.String("question_id", q.ID))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.QuestionStore.GetByID
func (s *PostgresQuestionStore) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	var q domain.Question
	err := s.db.QueryRowContext(ctx,
		`SELECT id, certification, domain, difficulty, prompt FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.Certification, &q.Domain, &q.Difficulty, &q.Prompt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrQuestionNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get question",
			slog.String("error", err.Error()),
			slog.String("question_id", id))
		return nil, MapError(err)
	}
	return &q, nil
}

// FindCandidates implements store.QuestionStore.FindCandidates
func (s *PostgresQuestionStore) FindCandidates(ctx context.Context, cq store.CandidateQuery) ([]*domain.Question, error) {
	exclude, err := json.Marshal(nonNilStrings(cq.ExcludeIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to encode excluded ids: %w", err)
	}

	query := `
		SELECT id, certification, domain, difficulty, prompt
		FROM questions
		WHERE certification = $1
			AND difficulty BETWEEN $2 AND $3
			AND NOT (to_jsonb(id) <@ $4::jsonb)
		ORDER BY random()
		LIMIT $5
	`
	return s.list(ctx, query, cq.Certification, cq.MinDifficulty, cq.MaxDifficulty, string(exclude), cq.Limit)
}

// ListNotInDeck implements store.QuestionStore.ListNotInDeck
func (s *PostgresQuestionStore) ListNotInDeck(ctx context.Context, certification, userID string, limit int) ([]*domain.Question, error) {
	query := `
		SELECT q.id, q.certification, q.domain, q.difficulty, q.prompt
		FROM questions q
		WHERE q.certification = $1
			AND NOT EXISTS (
				SELECT 1 FROM memory_cards c WHERE c.user_id = $2 AND c.item_id = q.id
			)
		ORDER BY q.id
		LIMIT $3
	`
	return s.list(ctx, query, certification, userID, limit)
}

func (s *PostgresQuestionStore) list(ctx context.Context, query string, args ...any) ([]*domain.Question, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query questions", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	questions := []*domain.Question{}
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Certification, &q.Domain, &q.Difficulty, &q.Prompt); err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		questions = append(questions, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating question rows: %w", err)
	}
	return questions, nil
}

// PostgresLearnerProfileStore implements the store.LearnerProfileStore interface.
// Collection-valued fields are stored as JSONB.
type PostgresLearnerProfileStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLearnerProfileStore creates a new PostgreSQL implementation of the LearnerProfileStore interface.
func NewPostgresLearnerProfileStore(db store.DBTX, logger *slog.Logger) *PostgresLearnerProfileStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLearnerProfileStore{
		db:     db,
		logger: logger.With(slog.String("component", "learner_profile_store")),
	}
}

var _ store.LearnerProfileStore = (*PostgresLearnerProfileStore)(nil)

// WithTx implements store.LearnerProfileStore.WithTx
func (s *PostgresLearnerProfileStore) WithTx(tx *sql.Tx) store.LearnerProfileStore {
	return &PostgresLearnerProfileStore{db: tx, logger: s.logger}
}

// Get implements store.LearnerProfileStore.Get
func (s *PostgresLearnerProfileStore) Get(ctx context.Context, userID, certification string) (*domain.LearnerProfile, error) {
	return s.get(ctx, userID, certification, false)
}

// GetForUpdate implements store.LearnerProfileStore.GetForUpdate
func (s *PostgresLearnerProfileStore) GetForUpdate(ctx context.Context, userID, certification string) (*domain.LearnerProfile, error) {
	return s.get(ctx, userID, certification, true)
}

func (s *PostgresLearnerProfileStore) get(
	ctx context.Context,
	userID, certification string,
	forUpdate bool,
) (*domain.LearnerProfile, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT user_id, certification, ability, stability, momentum,
			domain_abilities, recent_outcomes, weak_domains, strong_domains, updated_at
		FROM learner_profiles
		WHERE user_id = $1 AND certification = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var p domain.LearnerProfile
	var domainAbilities, recent, weak, strong []byte
	err := s.db.QueryRowContext(ctx, query, userID, certification).Scan(
		&p.UserID,
		&p.Certification,
		&p.Ability,
		&p.Stability,
		&p.Momentum,
		&domainAbilities,
		&recent,
		&weak,
		&strong,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProfileNotFound
		}
		log.Error("failed to get learner profile",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("certification", certification))
		return nil, MapError(err)
	}

	for _, f := range []struct {
		raw  []byte
		dest any
	}{
		{domainAbilities, &p.DomainAbilities},
		{recent, &p.RecentOutcomes},
		{weak, &p.WeakDomains},
		{strong, &p.StrongDomains},
	} {
		if err := json.Unmarshal(f.raw, f.dest); err != nil {
			return nil, fmt.Errorf("failed to decode learner profile: %w", err)
		}
	}
	if p.DomainAbilities == nil {
		p.DomainAbilities = map[string]float64{}
	}
	return &p, nil
}

// Upsert implements store.LearnerProfileStore.Upsert
func (s *PostgresLearnerProfileStore) Upsert(ctx context.Context, p *domain.LearnerProfile) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := p.Validate(); err != nil {
		log.Warn("learner profile validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("user_id", p.UserID))
		return err
	}

	domainAbilities, err := json.Marshal(p.DomainAbilities)
	if err != nil {
		return fmt.Errorf("failed to encode domain abilities: %w", err)
	}
	recent, err := json.Marshal(p.RecentOutcomes)
	if err != nil {
		return fmt.Errorf("failed to encode recent outcomes: %w", err)
	}
	weak, err := json.Marshal(nonNilStrings(p.WeakDomains))
	if err != nil {
		return fmt.Errorf("failed to encode weak domains: %w", err)
	}
	strong, err := json.Marshal(nonNilStrings(p.StrongDomains))
	if err != nil {
		return fmt.Errorf("failed to encode strong domains: %w", err)
	}

	query := `
		INSERT INTO learner_profiles (user_id, certification, ability, stability, momentum,
			domain_abilities, recent_outcomes, weak_domains, strong_domains, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8::jsonb, $9::jsonb, $10)
		ON CONFLICT (user_id, certification) DO UPDATE SET
			ability = EXCLUDED.ability,
			stability = EXCLUDED.stability,
			momentum = EXCLUDED.momentum,
			domain_abilities = EXCLUDED.domain_abilities,
			recent_outcomes = EXCLUDED.recent_outcomes,
			weak_domains = EXCLUDED.weak_domains,
			strong_domains = EXCLUDED.strong_domains,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		p.UserID,
		p.Certification,
		p.Ability,
		p.Stability,
		p.Momentum,
		string(domainAbilities),
		string(recent),
		string(weak),
		string(strong),
		p.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to upsert learner profile",
			slog.String("error", err.Error()),
			slog.String("user_id", p.UserID),
			slog.String("certification", p.Certification))
		return MapError(err)
	}
	return nil
}

// PostgresLearningEventStore implements the store.LearningEventStore interface.
type PostgresLearningEventStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLearningEventStore creates a new PostgreSQL implementation of the LearningEventStore interface.
func NewPostgresLearningEventStore(db store.DBTX, logger *slog.Logger) *PostgresLearningEventStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLearningEventStore{
		db:     db,
		logger: logger.With(slog.String("component", "learning_event_store")),
	}
}

var _ store.LearningEventStore = (*PostgresLearningEventStore)(nil)

// WithTx implements store.LearningEventStore.WithTx
func (s *PostgresLearningEventStore) WithTx(tx *sql.Tx) store.LearningEventStore {
	return &PostgresLearningEventStore{db: tx, logger: s.logger}
}

// Create implements store.LearningEventStore.Create
func (s *PostgresLearningEventStore) Create(ctx context.Context, e *domain.LearningEvent) error {
	query := `
		INSERT INTO learning_events (user_id, certification, question_id, difficulty, domain,
			correct, response_time_ms, ability_before, ability_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.UserID, e.Certification, e.QuestionID, e.Difficulty, e.Domain,
		e.Correct, e.ResponseTimeMs, e.AbilityBefore, e.AbilityAfter, e.CreatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create learning event",
			slog.String("error", err.Error()),
			slog.String("user_id", e.UserID),
			slog.String("question_id", e.QuestionID))
		return MapError(err)
	}
	return nil
}

// ListRecent implements store.LearningEventStore.ListRecent
func (s *PostgresLearningEventStore) ListRecent(
	ctx context.Context,
	userID, certification string,
	limit int,
) ([]*domain.LearningEvent, error) {
	query := `
		SELECT user_id, certification, question_id, difficulty, domain, correct,
			response_time_ms, ability_before, ability_after, created_at
		FROM learning_events
		WHERE user_id = $1 AND certification = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, userID, certification, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	events := []*domain.LearningEvent{}
	for rows.Next() {
		var e domain.LearningEvent
		if err := rows.Scan(&e.UserID, &e.Certification, &e.QuestionID, &e.Difficulty, &e.Domain,
			&e.Correct, &e.ResponseTimeMs, &e.AbilityBefore, &e.AbilityAfter, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan learning event row: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating learning event rows: %w", err)
	}
	return events, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
