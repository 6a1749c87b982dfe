package request

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the data access required by the service.
type Store interface {
	Create(ctx context.Context, tx pgx.Tx, w *WorkRequest) error
	Get(ctx context.Context, id string) (*WorkRequest, error)
	CompareAndSwap(ctx context.Context, tx pgx.Tx, expectedStep int, expectedStatus Status, w *WorkRequest) error
}

// EventWriter appends audit events inside the caller's transaction.
type EventWriter interface {
	Append(ctx context.Context, tx pgx.Tx, requestID, eventType, actorID string, payload map[string]any) error
}

// OutboxWriter enqueues notification messages inside the caller's transaction.
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error
}

// Service orchestrates the work-request lifecycle: every mutation loads the
// aggregate, applies a pure engine operation, and writes back through the
// compare-and-swap guard together with its audit event and outbox message.
type Service struct {
	pool        TxBeginner
	repo        Store
	events      EventWriter
	outbox      OutboxWriter
	idGenerator func() string
	now         func() time.Time
}

func NewService(pool TxBeginner, repo Store, events EventWriter, outbox OutboxWriter) *Service {
	return &Service{
		pool:        pool,
		repo:        repo,
		events:      events,
		outbox:      outbox,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateParams carries the caller-supplied fields for a new request. Exactly
// one payload pointer must be set, matching Kind.
type CreateParams struct {
	Kind                Kind
	Priority            Priority
	RequesterID         string
	RequesterName       string
	RequesterEnterprise EnterpriseType
	TargetEnterprise    EnterpriseType
	Note                string

	Claim    *ClaimDetails
	Transfer *TransferDetails
	Handoff  *HandoffDetails
	Evidence *EvidenceDetails
	Dispute  *DisputeRef
}

// Create validates the request, resolves its approval chain, and persists
// the document, audit event and outbox message in a single transaction.
func (s *Service) Create(ctx context.Context, params CreateParams) (*WorkRequest, error) {
	now := s.now()
	w := &WorkRequest{
		ID:                  s.idGenerator(),
		Kind:                params.Kind,
		Status:              StatusPending,
		Priority:            params.Priority,
		RequesterID:         params.RequesterID,
		RequesterName:       params.RequesterName,
		RequesterEnterprise: params.RequesterEnterprise,
		TargetEnterprise:    params.TargetEnterprise,
		ApproverIDs:         []string{},
		ApproverNames:       []string{},
		Notes:               []string{},
		CreatedAt:           now,
		UpdatedAt:           now,
		Claim:               params.Claim,
		Transfer:            params.Transfer,
		Handoff:             params.Handoff,
		Evidence:            params.Evidence,
		Dispute:             params.Dispute,
	}
	if w.Priority == "" {
		w.Priority = PriorityNormal
	}
	if w.Kind == KindMBTAAirportEmergency {
		w.Priority = PriorityUrgent
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}

	if w.Kind == KindCrossCampusTransfer {
		w.Transfer.DestinationRole = DestinationRole(w.Transfer.DestinationCampus)
	}
	if w.Kind == KindPoliceEvidence && w.Evidence.CaseNumber == "" {
		w.Evidence.CaseNumber = s.newCaseNumber(now)
	}

	w.Chain = ResolveChain(w)
	if params.Note != "" {
		w.AppendNote(params.Note, now)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("request: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.Create(ctx, tx, w); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"request_id": w.ID,
		"kind":       w.Kind,
		"priority":   w.Priority,
		"chain":      w.Chain,
	}
	if err := s.events.Append(ctx, tx, w.ID, "REQUEST_CREATED", w.RequesterID, payload); err != nil {
		return nil, fmt.Errorf("request: append creation event: %w", err)
	}
	if err := s.outbox.Enqueue(ctx, tx, "request.created", map[string]any{
		"request_id": w.ID,
		"kind":       w.Kind,
		"status":     w.Status,
	}); err != nil {
		return nil, fmt.Errorf("request: enqueue creation outbox: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("request: commit create: %w", err)
	}
	return w, nil
}

// Get loads one request.
func (s *Service) Get(ctx context.Context, id string) (*WorkRequest, error) {
	return s.repo.Get(ctx, id)
}

// AdvanceParams identifies the approver acting on the current chain step.
// Role is resolved by the caller through the identity collaborator before
// invoking the engine.
type AdvanceParams struct {
	RequestID    string
	ApproverID   string
	ApproverName string
	Role         Role
}

// Advance records one approval. When the stored step no longer matches the
// loaded one, the compare-and-swap loses and the caller receives
// ErrStaleRequest to reload and retry.
func (s *Service) Advance(ctx context.Context, params AdvanceParams) (*WorkRequest, error) {
	return s.mutate(ctx, params.RequestID, func(w *WorkRequest, now time.Time) (string, string, error) {
		if err := w.Advance(params.ApproverID, params.ApproverName, params.Role, now); err != nil {
			return "", "", err
		}
		if w.Status == StatusApproved {
			return "STEP_APPROVED", "request.approved", nil
		}
		return "STEP_APPROVED", "request.advanced", nil
	}, params.ApproverID)
}

// Reject terminates the request with a reason.
func (s *Service) Reject(ctx context.Context, requestID, actorID, reason string) (*WorkRequest, error) {
	return s.mutate(ctx, requestID, func(w *WorkRequest, now time.Time) (string, string, error) {
		if err := w.Reject(reason, now); err != nil {
			return "", "", err
		}
		return "REQUEST_REJECTED", "request.rejected", nil
	}, actorID)
}

// Complete converts an approved request to completed.
func (s *Service) Complete(ctx context.Context, requestID, actorID string) (*WorkRequest, error) {
	return s.mutate(ctx, requestID, func(w *WorkRequest, now time.Time) (string, string, error) {
		if err := w.Complete(now); err != nil {
			return "", "", err
		}
		return "REQUEST_COMPLETED", "request.completed", nil
	}, actorID)
}

// Cancel withdraws the request on behalf of its requester.
func (s *Service) Cancel(ctx context.Context, requestID, actorID string) (*WorkRequest, error) {
	return s.mutate(ctx, requestID, func(w *WorkRequest, now time.Time) (string, string, error) {
		if w.RequesterID != actorID {
			return "", "", fmt.Errorf("%w: only the requester may cancel", ErrWrongRole)
		}
		if err := w.Cancel(now); err != nil {
			return "", "", err
		}
		return "REQUEST_CANCELLED", "request.cancelled", nil
	}, actorID)
}

// AppendLocationUpdate extends the delivery trail of a handoff request.
func (s *Service) AppendLocationUpdate(ctx context.Context, requestID, actorID, update string) (*WorkRequest, error) {
	return s.mutate(ctx, requestID, func(w *WorkRequest, now time.Time) (string, string, error) {
		if err := w.AppendLocationUpdate(update, now); err != nil {
			return "", "", err
		}
		return "LOCATION_UPDATED", "request.location_updated", nil
	}, actorID)
}

// ConfirmDelivery completes an emergency handoff through its custom path.
func (s *Service) ConfirmDelivery(ctx context.Context, requestID, actorID, location string) (*WorkRequest, error) {
	return s.mutate(ctx, requestID, func(w *WorkRequest, now time.Time) (string, string, error) {
		if err := w.ConfirmDelivery(location, now); err != nil {
			return "", "", err
		}
		return "DELIVERY_CONFIRMED", "request.completed", nil
	}, actorID)
}

// mutate applies one engine operation under the compare-and-swap guard and
// records the matching audit event and outbox message.
func (s *Service) mutate(ctx context.Context, requestID string, op func(w *WorkRequest, now time.Time) (eventType, topic string, err error), actorID string) (*WorkRequest, error) {
	if requestID == "" {
		return nil, fmt.Errorf("%w: missing request id", ErrInvalidRequest)
	}

	w, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	prevStep := w.ApprovalStep
	prevStatus := w.Status

	eventType, topic, err := op(w, s.now())
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("request: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.CompareAndSwap(ctx, tx, prevStep, prevStatus, w); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"request_id":      w.ID,
		"previous_status": prevStatus,
		"status":          w.Status,
		"approval_step":   w.ApprovalStep,
	}
	if err := s.events.Append(ctx, tx, w.ID, eventType, actorID, payload); err != nil {
		return nil, fmt.Errorf("request: append event: %w", err)
	}
	if err := s.outbox.Enqueue(ctx, tx, topic, map[string]any{
		"request_id": w.ID,
		"status":     w.Status,
	}); err != nil {
		return nil, fmt.Errorf("request: enqueue outbox: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("request: commit mutation: %w", err)
	}
	return w, nil
}

func (s *Service) newCaseNumber(now time.Time) string {
	frag := strings.ToUpper(strings.ReplaceAll(s.idGenerator(), "-", ""))
	if len(frag) > 8 {
		frag = frag[:8]
	}
	return fmt.Sprintf("PD-%d-%s", now.Year(), frag)
}
