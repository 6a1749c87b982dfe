package dispute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists dispute aggregates as jsonb documents with a version
// column backing the optimistic-concurrency guard.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the dispute document inside the caller's transaction.
func (r *Repository) Create(ctx context.Context, tx pgx.Tx, d *Dispute) error {
	doc, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("dispute: marshal document: %w", err)
	}

	const insertSQL = `
		INSERT INTO disputes (id, request_id, resolution_status, version, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.Exec(ctx, insertSQL,
		d.ID, d.RequestID, d.ResolutionStatus, d.Version, doc, d.CreatedAt, d.UpdatedAt,
	); err != nil {
		return fmt.Errorf("dispute: insert: %w", err)
	}
	return nil
}

// Get loads a dispute document by id.
func (r *Repository) Get(ctx context.Context, id string) (*Dispute, error) {
	const selectSQL = `SELECT doc FROM disputes WHERE id = $1`

	var doc []byte
	if err := r.pool.QueryRow(ctx, selectSQL, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("dispute: get: %w", err)
	}

	var d Dispute
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("dispute: unmarshal document: %w", err)
	}
	return &d, nil
}

// GetByRequestID loads the dispute owned by a work request.
func (r *Repository) GetByRequestID(ctx context.Context, requestID string) (*Dispute, error) {
	const selectSQL = `SELECT doc FROM disputes WHERE request_id = $1`

	var doc []byte
	if err := r.pool.QueryRow(ctx, selectSQL, requestID).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("dispute: get by request: %w", err)
	}

	var d Dispute
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("dispute: unmarshal document: %w", err)
	}
	return &d, nil
}

// CompareAndSwap replaces the stored document only if the row still carries
// the version the caller loaded. Two concurrent votes by the same panel
// member resolve to exactly one winner; the loser gets ErrStaleDispute.
func (r *Repository) CompareAndSwap(ctx context.Context, tx pgx.Tx, expectedVersion int, d *Dispute) error {
	d.Version = expectedVersion + 1
	doc, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("dispute: marshal document: %w", err)
	}

	const updateSQL = `
		UPDATE disputes
		SET resolution_status = $1,
		    version = $2,
		    doc = $3,
		    updated_at = $4
		WHERE id = $5 AND version = $6
	`
	tag, err := tx.Exec(ctx, updateSQL,
		d.ResolutionStatus, d.Version, doc, d.UpdatedAt,
		d.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("dispute: compare-and-swap: %w", err)
	}
	if tag.RowsAffected() == 0 {
		d.Version = expectedVersion
		return ErrStaleDispute
	}
	return nil
}
