package trust

import (
	"context"
	"fmt"
)

// Service applies claim outcomes to user trust scores. It is invoked by the
// surrounding application when a claim request resolves, never by the
// engine itself.
type Service struct {
	repo ScoreStore
}

// NewService builds a Service using the provided repository.
func NewService(repo ScoreStore) *Service {
	return &Service{repo: repo}
}

// Adjust applies the outcome's delta to the user's score, clamped to
// [MinScore, MaxScore], and returns the new score.
func (s *Service) Adjust(ctx context.Context, email string, outcome Outcome) (int, error) {
	if email == "" {
		return 0, fmt.Errorf("trust: missing email")
	}
	delta, ok := Delta(outcome)
	if !ok {
		return 0, fmt.Errorf("trust: unknown outcome %q", outcome)
	}

	current, err := s.repo.GetScore(ctx, email)
	if err != nil {
		return 0, err
	}

	return s.repo.SetScore(ctx, email, Clamp(current+delta))
}
