package actors

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"claimflow/dispute"
	"claimflow/notify"
	"claimflow/request"
)

// Approver hammers the same request with approvals for one role. Under
// contention only one approver per chain step wins the compare-and-swap;
// everything else the engine reports is expected noise.
func Approver(ctx context.Context, svc *request.Service, requestID, approverID, name string, role request.Role, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := svc.Advance(ctx, request.AdvanceParams{
			RequestID:    requestID,
			ApproverID:   approverID,
			ApproverName: name,
			Role:         role,
		})
		if err != nil && !benignRequestErr(err) {
			return err
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Completer races to convert the request once the chain is exhausted.
func Completer(ctx context.Context, svc *request.Service, requestID, actorID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if _, err := svc.Complete(ctx, requestID, actorID); err != nil && !benignRequestErr(err) {
			return err
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// Creator submits fresh item claims continuously so the oracles always see a
// moving population of documents.
func Creator(ctx context.Context, svc *request.Service, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := svc.Create(ctx, request.CreateParams{
			Kind:                request.KindItemClaim,
			RequesterID:         uuid.NewString(),
			RequesterName:       "Stress Requester",
			RequesterEnterprise: request.EnterpriseHigherEducation,
			Claim: &request.ClaimDetails{
				ItemID:            uuid.NewString(),
				ItemValue:         float64(rand.Intn(1000)),
				Narrative:         "stress claim",
				HoldingEnterprise: request.EnterprisePublicTransit,
			},
		})
		if err != nil {
			return err
		}
		time.Sleep(time.Duration(40+rand.Intn(60)) * time.Millisecond)
	}
}

// Voter races panel votes on the shared dispute. Stale versions and the
// settled state are expected once the quorum is reached.
func Voter(ctx context.Context, svc *dispute.Service, disputeID, memberUserID, claimantID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := svc.RecordVote(ctx, disputeID, memberUserID, claimantID, "stress vote")
		if err != nil && !benignDisputeErr(err) {
			return err
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// OutboxWorker drains the transactional outbox the way the production
// dispatcher does, batch by batch.
func OutboxWorker(ctx context.Context, d *notify.Dispatcher, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if _, err := d.DispatchPending(ctx); err != nil {
			return err
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func benignRequestErr(err error) bool {
	return errors.Is(err, request.ErrStaleRequest) ||
		errors.Is(err, request.ErrWrongRole) ||
		errors.Is(err, request.ErrTerminalStatus) ||
		errors.Is(err, request.ErrNotApproved) ||
		errors.Is(err, request.ErrInvalidRequest)
}

func benignDisputeErr(err error) bool {
	return errors.Is(err, dispute.ErrStaleDispute) ||
		errors.Is(err, dispute.ErrSettled)
}
