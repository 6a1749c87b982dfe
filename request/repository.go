package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists work requests as jsonb documents. The discriminator
// columns (kind, status, approval_step) exist for querying and for the
// optimistic-concurrency guard; the document itself is authoritative and
// round-trips every model field.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the request document inside the caller's transaction.
func (r *Repository) Create(ctx context.Context, tx pgx.Tx, w *WorkRequest) error {
	doc, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("request: marshal document: %w", err)
	}

	const insertSQL = `
		INSERT INTO work_requests (id, kind, status, priority, approval_step, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.Exec(ctx, insertSQL,
		w.ID, w.Kind, w.Status, w.Priority, w.ApprovalStep, doc, w.CreatedAt, w.UpdatedAt,
	); err != nil {
		return fmt.Errorf("request: insert: %w", err)
	}
	return nil
}

// Get loads a request document by id.
func (r *Repository) Get(ctx context.Context, id string) (*WorkRequest, error) {
	const selectSQL = `SELECT doc FROM work_requests WHERE id = $1`

	var doc []byte
	if err := r.pool.QueryRow(ctx, selectSQL, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("request: get: %w", err)
	}

	var w WorkRequest
	if err := json.Unmarshal(doc, &w); err != nil {
		return nil, fmt.Errorf("request: unmarshal document: %w", err)
	}
	return &w, nil
}

// CompareAndSwap replaces the stored document only if the row still carries
// the step and status the caller mutated from. Exactly one of two concurrent
// mutations for the same step can succeed; the loser gets ErrStaleRequest.
func (r *Repository) CompareAndSwap(ctx context.Context, tx pgx.Tx, expectedStep int, expectedStatus Status, w *WorkRequest) error {
	doc, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("request: marshal document: %w", err)
	}

	const updateSQL = `
		UPDATE work_requests
		SET status = $1,
		    approval_step = $2,
		    doc = $3,
		    updated_at = $4
		WHERE id = $5 AND approval_step = $6 AND status = $7
	`
	tag, err := tx.Exec(ctx, updateSQL,
		w.Status, w.ApprovalStep, doc, w.UpdatedAt,
		w.ID, expectedStep, expectedStatus,
	)
	if err != nil {
		return fmt.Errorf("request: compare-and-swap: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRequest
	}
	return nil
}

// ListOverdueCandidates returns non-terminal requests ordered by age so the
// escalation scheduler can evaluate SLA breaches.
func (r *Repository) ListOverdueCandidates(ctx context.Context, limit int) ([]*WorkRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	const query = `
		SELECT doc
		FROM work_requests
		WHERE status NOT IN ('REJECTED', 'COMPLETED', 'CANCELLED')
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("request: list overdue candidates: %w", err)
	}
	defer rows.Close()

	out := make([]*WorkRequest, 0, limit)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("request: scan document: %w", err)
		}
		var w WorkRequest
		if err := json.Unmarshal(doc, &w); err != nil {
			return nil, fmt.Errorf("request: unmarshal document: %w", err)
		}
		out = append(out, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("request: iterate documents: %w", err)
	}
	return out, nil
}
