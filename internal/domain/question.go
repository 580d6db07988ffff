package domain

import "fmt"

// Difficulty bounds for questions in the bank.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Question is a question-bank entry the adaptive selector can choose from.
type Question struct {
	ID            string `json:"id"`
	Certification string `json:"certification"`
	Domain        string `json:"domain"`
	Difficulty    int    `json:"difficulty"`
	Prompt        string `json:"prompt,omitempty"`
}

// Validate checks that the question can be stored in the bank.
func (q *Question) Validate() error {
	if q.ID == "" || q.Certification == "" {
		return fmt.Errorf("%w: question requires id and certification", ErrInvalidID)
	}
	if q.Difficulty < MinDifficulty || q.Difficulty > MaxDifficulty {
		return fmt.Errorf("%w: %d", ErrInvalidDifficulty, q.Difficulty)
	}
	return nil
}
