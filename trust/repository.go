package trust

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound signals no user exists for the email.
var ErrUserNotFound = errors.New("trust: user not found")

// ScoreStore abstracts repository operations for the service.
type ScoreStore interface {
	GetScore(ctx context.Context, email string) (int, error)
	SetScore(ctx context.Context, email string, score int) (int, error)
}

// Repository adjusts trust scores on the users table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetScore fetches the current trust score for the user.
func (r *Repository) GetScore(ctx context.Context, email string) (int, error) {
	const query = `SELECT trust_score FROM users WHERE email = $1`

	var score int
	if err := r.pool.QueryRow(ctx, query, email).Scan(&score); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("trust: get score: %w", err)
	}
	return score, nil
}

// SetScore writes the adjusted trust score and returns the stored value.
func (r *Repository) SetScore(ctx context.Context, email string, score int) (int, error) {
	const query = `
		UPDATE users
		SET trust_score = $1,
		    updated_at = now()
		WHERE email = $2
		RETURNING trust_score
	`

	var stored int
	if err := r.pool.QueryRow(ctx, query, score, email).Scan(&stored); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("trust: set score: %w", err)
	}
	return stored, nil
}
