package request

import (
	"fmt"
	"time"
)

// Advance records one approval by the role owning the current chain step.
// Valid only while the request is PENDING or IN_PROGRESS and the acting role
// equals Chain[ApprovalStep]. Exhausting the chain moves the request to
// APPROVED; otherwise it becomes IN_PROGRESS.
//
// Advance is not re-entrant-safe against duplicate calls for the same step;
// the persistence layer's compare-and-swap on ApprovalStep makes exactly one
// concurrent caller win.
func (w *WorkRequest) Advance(approverID, approverName string, role Role, now time.Time) error {
	if w.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot advance from %s", ErrTerminalStatus, w.Status)
	}
	if w.Status != StatusPending && w.Status != StatusInProgress {
		return fmt.Errorf("%w: cannot advance from %s", ErrNotApproved, w.Status)
	}
	if approverID == "" {
		return fmt.Errorf("%w: missing approver id", ErrInvalidRequest)
	}
	if w.ApprovalStep >= len(w.Chain) {
		return fmt.Errorf("%w: approval chain already exhausted", ErrNotApproved)
	}
	if w.Chain[w.ApprovalStep] != role {
		return fmt.Errorf("%w: step %d requires %s, got %s", ErrWrongRole, w.ApprovalStep, w.Chain[w.ApprovalStep], role)
	}

	w.ApproverIDs = append(w.ApproverIDs, approverID)
	w.ApproverNames = append(w.ApproverNames, approverName)
	w.ApprovalStep++
	if w.ApprovalStep == len(w.Chain) {
		w.Status = StatusApproved
	} else {
		w.Status = StatusInProgress
	}
	w.UpdatedAt = now
	return nil
}

// Reject terminates the request from any non-terminal status and records the
// reason on the notes trail.
func (w *WorkRequest) Reject(reason string, now time.Time) error {
	if w.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot reject from %s", ErrTerminalStatus, w.Status)
	}
	w.Status = StatusRejected
	w.AppendNote("rejected: "+reason, now)
	w.UpdatedAt = now
	return nil
}

// Complete converts an APPROVED request to COMPLETED once the external
// fulfillment step (return, handoff, evidence intake) has happened.
func (w *WorkRequest) Complete(now time.Time) error {
	if w.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot complete from %s", ErrTerminalStatus, w.Status)
	}
	if w.Status != StatusApproved {
		return fmt.Errorf("%w: status is %s", ErrNotApproved, w.Status)
	}
	w.Status = StatusCompleted
	w.CompletedAt = &now
	w.UpdatedAt = now
	return nil
}

// Cancel is the requester-initiated withdrawal, valid from any non-terminal
// status.
func (w *WorkRequest) Cancel(now time.Time) error {
	if w.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot cancel from %s", ErrTerminalStatus, w.Status)
	}
	w.Status = StatusCancelled
	w.UpdatedAt = now
	return nil
}

// NextRequiredRole returns the role owning the current step, or false once
// no further approver action is possible.
func (w *WorkRequest) NextRequiredRole() (Role, bool) {
	if w.Status.IsTerminal() || w.ApprovalStep >= len(w.Chain) {
		return "", false
	}
	return w.Chain[w.ApprovalStep], true
}

// AppendLocationUpdate extends the delivery trail of a handoff request.
func (w *WorkRequest) AppendLocationUpdate(update string, now time.Time) error {
	if w.Handoff == nil {
		return fmt.Errorf("%w: not a handoff request", ErrInvalidRequest)
	}
	if w.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot update location from %s", ErrTerminalStatus, w.Status)
	}
	if update == "" {
		return fmt.Errorf("%w: empty location update", ErrInvalidRequest)
	}
	w.Handoff.LocationTrail = append(w.Handoff.LocationTrail, update)
	w.UpdatedAt = now
	return nil
}

// ConfirmDelivery is the custom completion path for emergency handoffs: the
// courier confirming delivery both marks the handoff delivered and completes
// the request.
func (w *WorkRequest) ConfirmDelivery(location string, now time.Time) error {
	if w.Kind != KindMBTAAirportEmergency {
		return fmt.Errorf("%w: delivery confirmation is only for emergency handoffs", ErrInvalidRequest)
	}
	if err := w.AppendLocationUpdate("delivered: "+location, now); err != nil {
		return err
	}
	w.Handoff.Delivered = true
	if w.Status == StatusApproved {
		return w.Complete(now)
	}
	w.UpdatedAt = now
	return nil
}
