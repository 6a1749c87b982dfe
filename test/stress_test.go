package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"claimflow/dispute"
	"claimflow/notify"
	"claimflow/request"
	"claimflow/test/actors"
	"claimflow/test/chaos"
	"claimflow/test/infra"
	"claimflow/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 45*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent approvers per role")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
	flChaos       = flag.Bool("chaos", false, "randomly terminate backend connections")
)

func TestApprovalConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	rand.Seed(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Skipf("no Docker and no local PostgreSQL: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	requestSvc := request.NewService(pool, request.NewRepository(pool), request.NewEventLog(), request.NewOutbox())
	disputeSvc := dispute.NewService(pool, dispute.NewRepository(pool), request.NewOutbox())
	dispatcher := notify.NewDispatcher(pool, notify.LogSender{})

	seedData := mustSeed(t, ctx, requestSvc, disputeSvc)

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	// approvers for every chain role battling over the same claim
	roles := []request.Role{
		request.RoleCampusCoordinator,
		request.RoleStationManager,
		request.RolePoliceEvidenceCustod,
	}
	for _, role := range roles {
		for i := 0; i < *flConcurrency; i++ {
			approverID := uuid.NewString()
			name := fmt.Sprintf("Approver %s %d", role, i)
			g.Go(func() error {
				return actors.Approver(ctx2, requestSvc, seedData.claimID, approverID, name, role, stop)
			})
		}
	}
	// completer racing the last approval
	g.Go(func() error {
		return actors.Completer(ctx2, requestSvc, seedData.claimID, uuid.NewString(), stop)
	})
	// background request creator
	g.Go(func() error { return actors.Creator(ctx2, requestSvc, stop) })
	// panel voters racing over the shared dispute
	for i, seat := range seedData.panelUserIDs {
		claimant := seedData.claimantIDs[i%len(seedData.claimantIDs)]
		g.Go(func() error {
			return actors.Voter(ctx2, disputeSvc, seedData.disputeID, seat, claimant, stop)
		})
	}
	// two competing outbox workers; SKIP LOCKED must prevent double delivery
	for i := 0; i < 2; i++ {
		g.Go(func() error { return actors.OutboxWorker(ctx2, dispatcher, stop) })
	}
	if *flChaos {
		go chaos.TerminateRandomBackend(ctx2, pool, stop)
	}

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}

	// exactly one winner per chain step
	final, err := requestSvc.Get(context.Background(), seedData.claimID)
	if err != nil {
		t.Fatalf("load final request: %v", err)
	}
	if final.ApprovalStep != len(final.ApproverIDs) {
		t.Fatalf("approval step %d does not track %d recorded approvers", final.ApprovalStep, len(final.ApproverIDs))
	}
	seen := make(map[string]bool, len(final.ApproverIDs))
	for _, id := range final.ApproverIDs {
		if seen[id] {
			t.Fatalf("approver %s recorded twice", id)
		}
		seen[id] = true
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	claimID      string
	disputeID    string
	claimantIDs  []string
	panelUserIDs []string
}

func mustSeed(t *testing.T, ctx context.Context, requestSvc *request.Service, disputeSvc *dispute.Service) seedIDs {
	t.Helper()
	var s seedIDs

	// high-value claim held by transit: three-role chain
	claim, err := requestSvc.Create(ctx, request.CreateParams{
		Kind:                request.KindItemClaim,
		RequesterID:         uuid.NewString(),
		RequesterName:       "Stress Requester",
		RequesterEnterprise: request.EnterpriseHigherEducation,
		Claim: &request.ClaimDetails{
			ItemID:            uuid.NewString(),
			ItemName:          "contested laptop",
			ItemValue:         900,
			Narrative:         "left on the inbound train",
			HoldingEnterprise: request.EnterprisePublicTransit,
		},
	})
	if err != nil {
		t.Fatalf("seed claim request: %v", err)
	}
	s.claimID = claim.ID

	// dispute gated by its own work request
	claimantA, claimantB := uuid.NewString(), uuid.NewString()
	disputeReq, err := requestSvc.Create(ctx, request.CreateParams{
		Kind:        request.KindDispute,
		Priority:    request.PriorityHigh,
		RequesterID: uuid.NewString(),
		Dispute: &request.DisputeRef{
			ItemID:      uuid.NewString(),
			ClaimantIDs: []string{claimantA, claimantB},
			PanelSize:   3,
			VotesNeeded: 3,
		},
	})
	if err != nil {
		t.Fatalf("seed dispute request: %v", err)
	}

	d, err := disputeSvc.Create(ctx, disputeReq.ID, disputeReq.Dispute.ItemID, 3)
	if err != nil {
		t.Fatalf("seed dispute: %v", err)
	}
	s.disputeID = d.ID

	for i, userID := range []string{claimantA, claimantB} {
		d, err = disputeSvc.AddClaimant(ctx, d.ID, dispute.Claimant{
			UserID:     userID,
			Name:       fmt.Sprintf("Claimant %d", i),
			Enterprise: request.EnterpriseHigherEducation,
		})
		if err != nil {
			t.Fatalf("seed claimant: %v", err)
		}
	}
	for i := range d.Claimants {
		s.claimantIDs = append(s.claimantIDs, d.Claimants[i].ID)
	}

	for i := 0; i < 3; i++ {
		seat := uuid.NewString()
		if _, err := disputeSvc.AddPanelMember(ctx, d.ID, dispute.PanelMember{
			UserID: seat,
			Name:   fmt.Sprintf("Panelist %d", i),
			Role:   request.RoleCampusCoordinator,
		}); err != nil {
			t.Fatalf("seed panel member: %v", err)
		}
		s.panelUserIDs = append(s.panelUserIDs, seat)
	}

	return s
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"work_requests", `SELECT id, kind, status, approval_step, updated_at FROM work_requests ORDER BY updated_at DESC LIMIT 50`},
		{"request_events", `SELECT id, request_id, type, created_at FROM request_events ORDER BY id DESC LIMIT 50`},
		{"disputes", `SELECT id, request_id, resolution_status, version FROM disputes ORDER BY updated_at DESC LIMIT 50`},
		{"outbox", `SELECT id, topic, status, attempts, created_at FROM outbox ORDER BY created_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
