package adaptive

import (
	"fmt"
	"math"
	"strings"

	"github.com/phrazzld/certquest-api/internal/domain"
)

// TargetDifficulty returns the difficulty level, 1..5, the next question should have.
func TargetDifficulty(profile *domain.LearnerProfile, strategy domain.Strategy, params *Params) int {
	base := 1 + int(math.Floor(clamp(profile.Ability, 0, 1)*4))

	switch strategy {
	case domain.StrategyChallenge:
		return clampInt(base+1, domain.MinDifficulty, domain.MaxDifficulty)
	case domain.StrategyReview, domain.StrategyWeakFocus:
		return clampInt(base-1, domain.MinDifficulty, domain.MaxDifficulty)
	default:
		switch {
		case profile.Momentum > params.MomentumThreshold:
			base++
		case profile.Momentum < -params.MomentumThreshold:
			base--
		}
		return clampInt(base, domain.MinDifficulty, domain.MaxDifficulty)
	}
}

// DifficultyRange returns the inclusive difficulty band searched around target.
func DifficultyRange(target int, params *Params) (int, int) {
	lo := clampInt(target-params.DifficultySpread, domain.MinDifficulty, domain.MaxDifficulty)
	hi := clampInt(target+params.DifficultySpread, domain.MinDifficulty, domain.MaxDifficulty)
	return lo, hi
}

// PredictCorrect is the logistic probability that a learner of the given
// ability answers a question of the given difficulty correctly.
func PredictCorrect(ability float64, difficulty int) float64 {
	return 1 / (1 + math.Exp(-(ability*5 - float64(difficulty))))
}

// DomainWeight is the strategy-dependent multiplier for a question domain.
func DomainWeight(profile *domain.LearnerProfile, itemDomain string, strategy domain.Strategy) float64 {
	switch strategy {
	case domain.StrategyWeakFocus:
		if profile.IsWeak(itemDomain) {
			return 2.0
		}
		if profile.IsStrong(itemDomain) {
			return 0.5
		}
	case domain.StrategyReview:
		if profile.IsStrong(itemDomain) {
			return 1.5
		}
	}
	return 1.0
}

// ScoreCandidate rates how well a question fits the learner. Higher is better,
// and the result is never negative.
func ScoreCandidate(
	profile *domain.LearnerProfile,
	itemDifficulty int,
	itemDomain string,
	target int,
	strategy domain.Strategy,
) float64 {
	score := 1.0

	distance := math.Abs(float64(itemDifficulty - target))
	score *= 1 - distance*0.2

	score *= DomainWeight(profile, itemDomain, strategy)

	if strategy == domain.StrategyWeakFocus {
		score *= 1.5 - profile.DomainAbility(itemDomain)
	}

	return math.Max(0, score)
}

// RecordOutcome returns a new profile updated with the answer. The input is not modified.
func RecordOutcome(
	profile *domain.LearnerProfile,
	itemDifficulty int,
	itemDomain string,
	correct bool,
	params *Params,
) *domain.LearnerProfile {
	next := profile.Clone()

	next.RecentOutcomes = append(next.RecentOutcomes, correct)
	if over := len(next.RecentOutcomes) - params.WindowSize; over > 0 {
		next.RecentOutcomes = append([]bool{}, next.RecentOutcomes[over:]...)
	}

	observed := 0.0
	if correct {
		observed = 1.0
	}
	surprise := observed - PredictCorrect(profile.Ability, itemDifficulty)

	next.Ability = clamp(profile.Ability+surprise*params.UpdateRate, 0, 1)

	step := params.MomentumStep
	if !correct {
		step = -step
	}
	next.Momentum = clamp(profile.Momentum*params.MomentumDecay+step, -1, 1)

	if len(next.RecentOutcomes) >= params.StabilityMinSamples {
		window := next.RecentOutcomes
		if len(window) > params.StabilityWindow {
			window = window[len(window)-params.StabilityWindow:]
		}
		next.Stability = clamp(1-math.Min(variance(window)*4, 1), 0, 1)
	}

	if itemDomain != "" {
		old := profile.DomainAbility(itemDomain)
		next.DomainAbilities[itemDomain] = clamp(old+surprise*params.DomainUpdateRate, 0, 1)
	}

	next.WeakDomains, next.StrongDomains = classifyDomains(next, params)
	return next
}

// SelectionReason explains in plain words why a question was picked.
func SelectionReason(profile *domain.LearnerProfile, q *domain.Question, strategy domain.Strategy, params *Params) string {
	var reasons []string

	if strategy == domain.StrategyWeakFocus && profile.IsWeak(q.Domain) {
		reasons = append(reasons, fmt.Sprintf("strengthening weak domain %s", q.Domain))
	}

	switch strategy {
	case domain.StrategyChallenge:
		reasons = append(reasons, "challenge mode: raised difficulty")
	case domain.StrategyReview:
		reasons = append(reasons, "review mode: consolidating fundamentals")
	}

	switch {
	case profile.Momentum > params.MomentumThreshold:
		reasons = append(reasons, "answer streak: raising difficulty")
	case profile.Momentum < -params.MomentumThreshold:
		reasons = append(reasons, "recent misses: lowering difficulty")
	}

	if len(reasons) == 0 {
		return fmt.Sprintf("balanced selection (difficulty %d)", q.Difficulty)
	}
	return strings.Join(reasons, "; ")
}

func classifyDomains(p *domain.LearnerProfile, params *Params) ([]string, []string) {
	weak := []string{}
	strong := []string{}
	for _, d := range p.SortedDomains() {
		ability := p.DomainAbilities[d]
		switch {
		case ability < params.WeakThreshold:
			weak = append(weak, d)
		case ability > params.StrongThreshold:
			strong = append(strong, d)
		}
	}
	return weak, strong
}

func variance(outcomes []bool) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	var sum float64
	for _, ok := range outcomes {
		if ok {
			sum++
		}
	}
	mean := sum / float64(len(outcomes))

	var acc float64
	for _, ok := range outcomes {
		v := 0.0
		if ok {
			v = 1
		}
		acc += (v - mean) * (v - mean)
	}
	return acc / float64(len(outcomes))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
