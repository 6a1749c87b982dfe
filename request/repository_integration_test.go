package request

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestRequestLifecycle_Integration connects to a real PostgreSQL via
// DATABASE_URL and verifies the end-to-end repository + service behavior,
// including the compare-and-swap guard under a simulated concurrent approval.
func TestRequestLifecycle_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	if !tableExists(ctx, t, pool, "work_requests") || !tableExists(ctx, t, pool, "request_events") || !tableExists(ctx, t, pool, "outbox") {
		t.Skip("database schema missing; apply the files under migrations/ first")
	}

	svc := NewService(pool, NewRepository(pool), NewEventLog(), NewOutbox())

	requesterID := uuid.NewString()
	created, err := svc.Create(ctx, CreateParams{
		Kind:                KindItemClaim,
		RequesterID:         requesterID,
		RequesterName:       "Riley Requester",
		RequesterEnterprise: EnterpriseHigherEducation,
		Claim: &ClaimDetails{
			ItemID:            uuid.NewString(),
			ItemName:          "silver laptop",
			ItemValue:         650,
			Narrative:         "left on the inbound train",
			HoldingEnterprise: EnterprisePublicTransit,
		},
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		_, _ = pool.Exec(ctx2, `DELETE FROM request_events WHERE request_id = $1`, created.ID)
		_, _ = pool.Exec(ctx2, `DELETE FROM work_requests WHERE id = $1`, created.ID)
	})

	// Round-trip: the loaded document must carry the resolved chain.
	loaded, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if loaded.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", loaded.Status)
	}
	wantChain := []Role{RoleCampusCoordinator, RoleStationManager, RolePoliceEvidenceCustod}
	if len(loaded.Chain) != len(wantChain) {
		t.Fatalf("expected chain %v, got %v", wantChain, loaded.Chain)
	}
	for i := range wantChain {
		if loaded.Chain[i] != wantChain[i] {
			t.Fatalf("expected chain %v, got %v", wantChain, loaded.Chain)
		}
	}

	// First approval wins.
	coordinatorID := uuid.NewString()
	advanced, err := svc.Advance(ctx, AdvanceParams{
		RequestID:    created.ID,
		ApproverID:   coordinatorID,
		ApproverName: "Casey Coordinator",
		Role:         RoleCampusCoordinator,
	})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if advanced.ApprovalStep != 1 || advanced.Status != StatusInProgress {
		t.Fatalf("expected step 1 IN_PROGRESS, got step %d %s", advanced.ApprovalStep, advanced.Status)
	}

	// A second write against the already consumed step must lose the swap.
	repo := NewRepository(pool)
	stale := *loaded
	if err := stale.Advance(uuid.NewString(), "Late Larry", RoleCampusCoordinator, time.Now().UTC()); err != nil {
		t.Fatalf("advance stale copy: %v", err)
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback(ctx)
	if err := repo.CompareAndSwap(ctx, tx, 0, StatusPending, &stale); !errors.Is(err, ErrStaleRequest) {
		t.Fatalf("expected ErrStaleRequest for the losing writer, got %v", err)
	}
	_ = tx.Rollback(ctx)

	// Audit trail and outbox rows were written transactionally.
	var events int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM request_events WHERE request_id = $1`, created.ID).Scan(&events); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 2 {
		t.Fatalf("expected 2 audit events (created, approved), got %d", events)
	}
}

func tableExists(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()
	var exists bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, name).Scan(&exists); err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return exists
}
