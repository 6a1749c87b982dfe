package item

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested item does not exist.
var ErrNotFound = errors.New("item: not found")

// Repository provides read access to the item catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID fetches an item by its primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Item, error) {
	const query = `
		SELECT id, name, category, declared_value, holding_enterprise, found_location, created_at
		FROM items
		WHERE id = $1
	`

	var it Item
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&it.ID,
		&it.Name,
		&it.Category,
		&it.DeclaredValue,
		&it.HoldingEnterprise,
		&it.FoundLocation,
		&it.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("item: query by id: %w", err)
	}

	return it, nil
}

// List fetches up to limit items ordered by creation time, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	const query = `
		SELECT id, name, category, declared_value, holding_enterprise, found_location, created_at
		FROM items
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("item: list: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0, limit)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.DeclaredValue, &it.HoldingEnterprise, &it.FoundLocation, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("item: scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("item: iterate items: %w", err)
	}

	return items, nil
}
