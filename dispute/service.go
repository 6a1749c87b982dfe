package dispute

import (
	"context"
	"fmt"
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
	Create(ctx context.Context, tx pgx.Tx, d *Dispute) error
	Get(ctx context.Context, id string) (*Dispute, error)
	GetByRequestID(ctx context.Context, requestID string) (*Dispute, error)
	CompareAndSwap(ctx context.Context, tx pgx.Tx, expectedVersion int, d *Dispute) error
}

// OutboxWriter enqueues notification messages inside the caller's transaction.
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error
}

// Service orchestrates dispute mutations: load the aggregate, apply one pure
// engine operation, write back under the version guard, and notify.
type Service struct {
	pool        TxBeginner
	repo        Store
	outbox      OutboxWriter
	idGenerator func() string
	now         func() time.Time
}

func NewService(pool TxBeginner, repo Store, outbox OutboxWriter) *Service {
	return &Service{
		pool:        pool,
		repo:        repo,
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

// Create opens a dispute record for a work request.
func (s *Service) Create(ctx context.Context, requestID, itemID string, votesRequired int) (*Dispute, error) {
	if requestID == "" {
		return nil, fmt.Errorf("dispute: missing request id")
	}

	d := New(s.idGenerator(), requestID, itemID, votesRequired, s.now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.Create(ctx, tx, d); err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, tx, "dispute.opened", map[string]any{
		"dispute_id": d.ID,
		"request_id": d.RequestID,
	}); err != nil {
		return nil, fmt.Errorf("dispute: enqueue opened outbox: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("dispute: commit create: %w", err)
	}
	return d, nil
}

// Get loads one dispute.
func (s *Service) Get(ctx context.Context, id string) (*Dispute, error) {
	return s.repo.Get(ctx, id)
}

// GetByRequestID loads the dispute owned by a work request.
func (s *Service) GetByRequestID(ctx context.Context, requestID string) (*Dispute, error) {
	return s.repo.GetByRequestID(ctx, requestID)
}

// AddClaimant registers a competing claim.
func (s *Service) AddClaimant(ctx context.Context, disputeID string, c Claimant) (*Dispute, error) {
	if c.ID == "" {
		c.ID = s.idGenerator()
	}
	return s.mutate(ctx, disputeID, func(d *Dispute, now time.Time) (string, error) {
		return "dispute.claimant_added", d.AddClaimant(c, now)
	})
}

// AddPanelMember seats a reviewer on the voting panel.
func (s *Service) AddPanelMember(ctx context.Context, disputeID string, m PanelMember) (*Dispute, error) {
	if m.ID == "" {
		m.ID = s.idGenerator()
	}
	return s.mutate(ctx, disputeID, func(d *Dispute, now time.Time) (string, error) {
		return "dispute.panel_member_added", d.AddPanelMember(m, now)
	})
}

// AddEvidence registers an artifact pending verification.
func (s *Service) AddEvidence(ctx context.Context, disputeID string, e EvidenceItem) (*Dispute, error) {
	if e.ID == "" {
		e.ID = s.idGenerator()
	}
	return s.mutate(ctx, disputeID, func(d *Dispute, now time.Time) (string, error) {
		return "dispute.evidence_added", d.AddEvidence(e, now)
	})
}

// VerifyEvidence records the verifier's verdict on one evidence item.
func (s *Service) VerifyEvidence(ctx context.Context, disputeID, evidenceID, verifierID string, outcome EvidenceOutcome) (*Dispute, error) {
	return s.mutate(ctx, disputeID, func(d *Dispute, now time.Time) (string, error) {
		return "dispute.evidence_verified", d.VerifyEvidence(evidenceID, verifierID, outcome, now)
	})
}

// RecordVote registers one panel member's vote. The topic reflects the state
// the vote produced: a quorum-reaching vote reports the resolution outcome.
func (s *Service) RecordVote(ctx context.Context, disputeID, memberUserID, claimantID, rationale string) (*Dispute, error) {
	return s.mutate(ctx, disputeID, func(d *Dispute, now time.Time) (string, error) {
		if err := d.RecordPanelVote(memberUserID, claimantID, rationale, now); err != nil {
			return "", err
		}
		switch d.ResolutionStatus {
		case StatusResolved:
			return "dispute.resolved", nil
		case StatusEscalated:
			return "dispute.escalated", nil
		}
		return "dispute.vote_recorded", nil
	})
}

// SetManualResolution settles an escalated dispute by human decision.
func (s *Service) SetManualResolution(ctx context.Context, disputeID, awardedClaimantID, rationale string) (*Dispute, error) {
	return s.mutate(ctx, disputeID, func(d *Dispute, now time.Time) (string, error) {
		return "dispute.resolved", d.SetManualResolution(awardedClaimantID, rationale, now)
	})
}

// EscalateToPolice flags the dispute for police involvement.
func (s *Service) EscalateToPolice(ctx context.Context, disputeID, reason string) (*Dispute, error) {
	return s.mutate(ctx, disputeID, func(d *Dispute, now time.Time) (string, error) {
		return "dispute.escalated", d.EscalateToPolice(reason, now)
	})
}

// RecordPoliceFindings settles an escalated dispute with the police outcome.
func (s *Service) RecordPoliceFindings(ctx context.Context, disputeID, awardedClaimantID, findings string) (*Dispute, error) {
	return s.mutate(ctx, disputeID, func(d *Dispute, now time.Time) (string, error) {
		return "dispute.resolved", d.RecordPoliceFindings(awardedClaimantID, findings, now)
	})
}

// mutate applies one engine operation under the version guard and enqueues
// the topic the operation reports for the state it produced.
func (s *Service) mutate(ctx context.Context, disputeID string, op func(d *Dispute, now time.Time) (topic string, err error)) (*Dispute, error) {
	if disputeID == "" {
		return nil, fmt.Errorf("dispute: missing dispute id")
	}

	d, err := s.repo.Get(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	expectedVersion := d.Version
	topic, err := op(d, s.now())
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.CompareAndSwap(ctx, tx, expectedVersion, d); err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, tx, topic, map[string]any{
		"dispute_id": d.ID,
		"request_id": d.RequestID,
		"status":     d.ResolutionStatus,
	}); err != nil {
		return nil, fmt.Errorf("dispute: enqueue outbox: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("dispute: commit mutation: %w", err)
	}
	return d, nil
}
