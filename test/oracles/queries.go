package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns the invariant queries. Each must come back empty; any row is a
// counterexample.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_step_tracks_approvers",
			SQL: `SELECT id FROM work_requests
                  WHERE jsonb_array_length(doc->'approver_ids') <> approval_step`,
		},
		{
			Name: "O2_doc_column_sync",
			SQL: `SELECT id FROM work_requests
                  WHERE doc->>'status' <> status
                     OR (doc->>'approval_step')::int <> approval_step`,
		},
		{
			Name: "O3_step_within_chain",
			SQL: `SELECT id FROM work_requests
                  WHERE approval_step > jsonb_array_length(doc->'chain')`,
		},
		{
			Name: "O4_approved_means_exhausted",
			SQL: `SELECT id FROM work_requests
                  WHERE status = 'APPROVED'
                    AND approval_step <> jsonb_array_length(doc->'chain')`,
		},
		{
			Name: "O5_creation_event_exists",
			SQL: `SELECT w.id FROM work_requests w
                  WHERE NOT EXISTS (
                      SELECT 1 FROM request_events e
                      WHERE e.request_id = w.id AND e.type = 'REQUEST_CREATED')`,
		},
		{
			Name: "O6_outbox_progress",
			SQL: `SELECT id FROM outbox
                  WHERE status = 'pending' AND now() - created_at > interval '5 minutes'`,
		},
		{
			Name: "O7_dispute_doc_sync",
			SQL: `SELECT id FROM disputes
                  WHERE doc->>'resolution_status' <> resolution_status
                     OR (doc->>'version')::int <> version`,
		},
		{
			Name: "O8_settled_dispute_has_outcome",
			SQL: `SELECT id FROM disputes
                  WHERE resolution_status = 'RESOLVED'
                    AND (doc->>'decision' IS NULL OR doc->>'decision' = '')`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row
// text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
