package domain

import (
	"fmt"
	"sort"
	"time"
)

// Default state of a learner who has not answered anything yet.
const (
	DefaultAbility       = 0.5
	DefaultStability     = 0.5
	DefaultMomentum      = 0.0
	DefaultDomainAbility = 0.5
)

// Strategy selects how the adaptive selector picks the next question.
type Strategy string

const (
	// StrategyBalanced follows the learner's ability, nudged by momentum.
	StrategyBalanced Strategy = "balanced"
	// StrategyChallenge aims one level above the learner's ability.
	StrategyChallenge Strategy = "challenge"
	// StrategyReview aims one level below and favours strong domains.
	StrategyReview Strategy = "review"
	// StrategyWeakFocus aims one level below and favours weak domains.
	StrategyWeakFocus Strategy = "weak_focus"
)

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyBalanced, StrategyChallenge, StrategyReview, StrategyWeakFocus:
		return true
	default:
		return false
	}
}

// ParseStrategy converts a string into a Strategy. An empty string
// selects the balanced strategy.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return StrategyBalanced, nil
	}
	strategy := Strategy(s)
	if !strategy.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
	}
	return strategy, nil
}

// LearnerProfile tracks a learner's estimated ability for one certification.
type LearnerProfile struct {
	UserID          string             `json:"user_id"`
	Certification   string             `json:"certification"`
	Ability         float64            `json:"ability"`
	Stability       float64            `json:"stability"`
	Momentum        float64            `json:"momentum"`
	DomainAbilities map[string]float64 `json:"domain_abilities"`
	RecentOutcomes  []bool             `json:"recent_outcomes"`
	WeakDomains     []string           `json:"weak_domains"`
	StrongDomains   []string           `json:"strong_domains"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// NewLearnerProfile returns a profile with default ability, stability and momentum.
func NewLearnerProfile(userID, certification string) *LearnerProfile {
	return &LearnerProfile{
		UserID:          userID,
		Certification:   certification,
		Ability:         DefaultAbility,
		Stability:       DefaultStability,
		Momentum:        DefaultMomentum,
		DomainAbilities: map[string]float64{},
		RecentOutcomes:  []bool{},
		WeakDomains:     []string{},
		StrongDomains:   []string{},
	}
}

// DomainAbility returns the learner's ability in the domain, or the default
// when the domain has not been seen yet.
func (p *LearnerProfile) DomainAbility(domain string) float64 {
	if v, ok := p.DomainAbilities[domain]; ok {
		return v
	}
	return DefaultDomainAbility
}

// IsWeak reports whether the domain is currently marked weak.
func (p *LearnerProfile) IsWeak(domain string) bool {
	return containsString(p.WeakDomains, domain)
}

// IsStrong reports whether the domain is currently marked strong.
func (p *LearnerProfile) IsStrong(domain string) bool {
	return containsString(p.StrongDomains, domain)
}

// RecentAccuracy returns the share of correct answers in the recent window.
func (p *LearnerProfile) RecentAccuracy() float64 {
	if len(p.RecentOutcomes) == 0 {
		return 0
	}
	correct := 0
	for _, ok := range p.RecentOutcomes {
		if ok {
			correct++
		}
	}
	return float64(correct) / float64(len(p.RecentOutcomes))
}

// Clone returns a deep copy of the profile.
func (p *LearnerProfile) Clone() *LearnerProfile {
	cp := *p
	cp.DomainAbilities = make(map[string]float64, len(p.DomainAbilities))
	for k, v := range p.DomainAbilities {
		cp.DomainAbilities[k] = v
	}
	cp.RecentOutcomes = append([]bool{}, p.RecentOutcomes...)
	cp.WeakDomains = append([]string{}, p.WeakDomains...)
	cp.StrongDomains = append([]string{}, p.StrongDomains...)
	return &cp
}

// Validate checks the bounds of every profile value.
func (p *LearnerProfile) Validate() error {
	if p.UserID == "" || p.Certification == "" {
		return fmt.Errorf("%w: profile requires user and certification", ErrInvalidID)
	}
	if !inUnit(p.Ability) || !inUnit(p.Stability) {
		return fmt.Errorf("%w: ability and stability must be within [0,1]", ErrValidation)
	}
	if p.Momentum < -1 || p.Momentum > 1 {
		return fmt.Errorf("%w: momentum must be within [-1,1]", ErrValidation)
	}
	for domain, v := range p.DomainAbilities {
		if !inUnit(v) {
			return fmt.Errorf("%w: domain %q ability out of range", ErrValidation, domain)
		}
	}
	return nil
}

// SortedDomains returns the profile's domain names in lexical order.
func (p *LearnerProfile) SortedDomains() []string {
	domains := make([]string, 0, len(p.DomainAbilities))
	for d := range p.DomainAbilities {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// LearningEvent records a single answer and the ability change it produced.
type LearningEvent struct {
	UserID         string    `json:"user_id"`
	Certification  string    `json:"certification"`
	QuestionID     string    `json:"question_id"`
	Difficulty     int       `json:"difficulty"`
	Domain         string    `json:"domain"`
	Correct        bool      `json:"correct"`
	ResponseTimeMs int       `json:"response_time_ms"`
	AbilityBefore  float64   `json:"ability_before"`
	AbilityAfter   float64   `json:"ability_after"`
	CreatedAt      time.Time `json:"created_at"`
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
