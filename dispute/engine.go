package dispute

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"claimflow/request"
)

var (
	// ErrSettled signals a mutation against a dispute that already reached a
	// final outcome.
	ErrSettled = errors.New("dispute: already resolved")
	// ErrUnknownMember signals a vote by a user holding no panel seat.
	ErrUnknownMember = errors.New("dispute: user is not a panel member")
	// ErrUnknownClaimant signals a vote for a claimant the dispute does not own.
	ErrUnknownClaimant = errors.New("dispute: unknown claimant")
	// ErrUnknownEvidence signals verification of an evidence item the dispute
	// does not own.
	ErrUnknownEvidence = errors.New("dispute: unknown evidence item")
	// ErrDuplicateClaimant signals the user already has a claim in the dispute.
	ErrDuplicateClaimant = errors.New("dispute: claimant already registered")
	// ErrDuplicateSeat signals the user already holds a panel seat.
	ErrDuplicateSeat = errors.New("dispute: panel member already seated")
	// ErrStaleDispute signals the optimistic concurrency check lost; the caller
	// must reload and retry.
	ErrStaleDispute = errors.New("dispute: stale dispute, reload and retry")
	// ErrNotFound signals no dispute exists for the identifier.
	ErrNotFound = errors.New("dispute: not found")
)

// New builds an empty dispute aggregate for the given work request.
func New(id, requestID, itemID string, votesRequired int, now time.Time) *Dispute {
	if votesRequired <= 0 {
		votesRequired = DefaultPanelVotesRequired
	}
	return &Dispute{
		ID:                  id,
		RequestID:           requestID,
		ItemID:              itemID,
		ResolutionStatus:    StatusPending,
		PanelVotesRequired:  votesRequired,
		InvolvedEnterprises: []request.EnterpriseType{},
		Claimants:           []Claimant{},
		Panel:               []PanelMember{},
		Evidence:            []EvidenceItem{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// AddClaimant registers a competing claim and extends the deduplicated set of
// involved enterprises.
func (d *Dispute) AddClaimant(c Claimant, now time.Time) error {
	if d.IsSettled() {
		return ErrSettled
	}
	if c.UserID == "" {
		return fmt.Errorf("dispute: claimant requires a user id")
	}
	for _, existing := range d.Claimants {
		if existing.UserID == c.UserID {
			return ErrDuplicateClaimant
		}
	}
	if c.Status == "" {
		c.Status = ClaimSubmitted
	}
	if c.EvidenceIDs == nil {
		c.EvidenceIDs = []string{}
	}
	c.AddedAt = now
	d.Claimants = append(d.Claimants, c)
	d.addEnterprise(c.Enterprise)
	d.UpdatedAt = now
	return nil
}

// AddPanelMember seats a reviewer on the voting panel.
func (d *Dispute) AddPanelMember(m PanelMember, now time.Time) error {
	if d.IsSettled() {
		return ErrSettled
	}
	if m.UserID == "" {
		return fmt.Errorf("dispute: panel member requires a user id")
	}
	if d.PanelMemberByUserID(m.UserID) != nil {
		return ErrDuplicateSeat
	}
	m.HasVoted = false
	m.VotedForClaimantID = ""
	m.VotedAt = nil
	d.Panel = append(d.Panel, m)
	d.addEnterprise(m.Enterprise)
	d.UpdatedAt = now
	return nil
}

// AddEvidence registers an artifact, pending verification, and links it to
// its target claimant when one is named.
func (d *Dispute) AddEvidence(e EvidenceItem, now time.Time) error {
	if d.IsSettled() {
		return ErrSettled
	}
	if e.SubmitterID == "" {
		return fmt.Errorf("dispute: evidence requires a submitter id")
	}
	if e.ClaimantID != "" && d.ClaimantByID(e.ClaimantID) == nil {
		return ErrUnknownClaimant
	}
	if e.Outcome == "" {
		e.Outcome = EvidencePendingReview
	}
	e.SubmittedAt = now
	d.Evidence = append(d.Evidence, e)
	if e.ClaimantID != "" {
		c := d.ClaimantByID(e.ClaimantID)
		c.EvidenceIDs = append(c.EvidenceIDs, e.ID)
	}
	d.UpdatedAt = now
	return nil
}

// VerifyEvidence records the verifier's verdict. Verification is independent
// of voting and never triggers resolution by itself.
func (d *Dispute) VerifyEvidence(evidenceID, verifierID string, outcome EvidenceOutcome, now time.Time) error {
	if outcome != EvidenceValid && outcome != EvidenceInvalid && outcome != EvidenceInconclusive {
		return fmt.Errorf("dispute: invalid evidence outcome %q", outcome)
	}
	for i := range d.Evidence {
		if d.Evidence[i].ID == evidenceID {
			d.Evidence[i].Outcome = outcome
			d.Evidence[i].VerifierID = verifierID
			d.Evidence[i].VerifiedAt = &now
			d.UpdatedAt = now
			return nil
		}
	}
	return ErrUnknownEvidence
}

// RecordPanelVote registers one member's vote for a claimant. A repeat vote
// by the same member replaces the earlier choice. Once the vote count
// reaches the quorum the dispute moves to UNDER_REVIEW and the resolution is
// determined immediately.
func (d *Dispute) RecordPanelVote(memberUserID, claimantID, rationale string, now time.Time) error {
	if d.ResolutionStatus == StatusResolved || d.ResolutionStatus == StatusEscalated {
		return ErrSettled
	}
	member := d.PanelMemberByUserID(memberUserID)
	if member == nil {
		return ErrUnknownMember
	}
	if d.ClaimantByID(claimantID) == nil {
		return ErrUnknownClaimant
	}

	member.HasVoted = true
	member.VotedForClaimantID = claimantID
	member.Rationale = rationale
	member.VotedAt = &now
	d.UpdatedAt = now

	if d.VoteCount() >= d.PanelVotesRequired {
		d.ResolutionStatus = StatusUnderReview
		d.determineResolution(now)
	}
	return nil
}

// determineResolution tallies one vote per voted member and awards the
// dispute to the claimant holding a strict majority of the required votes.
// A tie or a plurality short of a majority escalates to the police instead;
// no claimant is awarded automatically in that case.
func (d *Dispute) determineResolution(now time.Time) {
	tally := make(map[string]int, len(d.Claimants))
	for _, m := range d.Panel {
		if m.HasVoted {
			tally[m.VotedForClaimantID]++
		}
	}

	var (
		leader    string
		max       int
		contested bool
	)
	for claimantID, votes := range tally {
		switch {
		case votes > max:
			leader, max, contested = claimantID, votes, false
		case votes == max:
			contested = true
		}
	}

	if leader != "" && !contested && max > d.PanelVotesRequired/2 {
		d.ResolutionStatus = StatusResolved
		d.Decision = DecisionAwarded
		d.AwardedClaimantID = leader
		d.Rationale = fmt.Sprintf("awarded by panel vote %d of %d", max, d.VoteCount())
		d.ResolvedAt = &now
		for i := range d.Claimants {
			if d.Claimants[i].ID == leader {
				d.Claimants[i].Status = ClaimVerified
			} else {
				d.Claimants[i].Status = ClaimRejected
			}
		}
		d.UpdatedAt = now
		return
	}

	d.ResolutionStatus = StatusEscalated
	d.PoliceInvolved = true
	d.Rationale = "no clear panel majority; escalated for police review"
	d.UpdatedAt = now
}

// SetManualResolution lets a human adjudicator settle an escalated dispute.
func (d *Dispute) SetManualResolution(awardedClaimantID, rationale string, now time.Time) error {
	if d.IsSettled() {
		return ErrSettled
	}
	if d.ClaimantByID(awardedClaimantID) == nil {
		return ErrUnknownClaimant
	}
	d.ResolutionStatus = StatusResolved
	d.Decision = DecisionManual
	d.AwardedClaimantID = awardedClaimantID
	d.Rationale = rationale
	d.ResolvedAt = &now
	for i := range d.Claimants {
		if d.Claimants[i].ID == awardedClaimantID {
			d.Claimants[i].Status = ClaimVerified
		} else {
			d.Claimants[i].Status = ClaimRejected
		}
	}
	d.UpdatedAt = now
	return nil
}

// EscalateToPolice flags the dispute for police involvement without settling
// it.
func (d *Dispute) EscalateToPolice(reason string, now time.Time) error {
	if d.IsSettled() {
		return ErrSettled
	}
	d.ResolutionStatus = StatusEscalated
	d.PoliceInvolved = true
	if reason != "" {
		d.PoliceCaseNotes = appendNote(d.PoliceCaseNotes, reason)
	}
	d.UpdatedAt = now
	return nil
}

// RecordPoliceFindings settles an escalated dispute with the outcome supplied
// by law enforcement. An empty claimant id records the findings without
// awarding the item to anyone.
func (d *Dispute) RecordPoliceFindings(awardedClaimantID, findings string, now time.Time) error {
	if d.IsSettled() {
		return ErrSettled
	}
	if !d.PoliceInvolved {
		return fmt.Errorf("dispute: police findings require prior escalation")
	}
	if awardedClaimantID != "" {
		if d.ClaimantByID(awardedClaimantID) == nil {
			return ErrUnknownClaimant
		}
		d.AwardedClaimantID = awardedClaimantID
		for i := range d.Claimants {
			if d.Claimants[i].ID == awardedClaimantID {
				d.Claimants[i].Status = ClaimVerified
			} else {
				d.Claimants[i].Status = ClaimRejected
			}
		}
	}
	d.ResolutionStatus = StatusResolved
	d.Decision = DecisionPoliceFindings
	d.PoliceCaseNotes = appendNote(d.PoliceCaseNotes, findings)
	d.ResolvedAt = &now
	d.UpdatedAt = now
	return nil
}

func (d *Dispute) addEnterprise(e request.EnterpriseType) {
	if e == "" {
		return
	}
	for _, existing := range d.InvolvedEnterprises {
		if existing == e {
			return
		}
	}
	d.InvolvedEnterprises = append(d.InvolvedEnterprises, e)
}

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
