package request

import (
	"math"
	"time"
)

// slaTargetHours maps priority to the maximum age, in hours, a request may
// reach before it is overdue.
var slaTargetHours = map[Priority]int{
	PriorityUrgent: 4,
	PriorityHigh:   24,
	PriorityNormal: 72,
	PriorityLow:    168,
}

// SLATargetHours returns the target window for the request's priority.
// Unknown priorities fall back to the NORMAL window.
func (w *WorkRequest) SLATargetHours() int {
	if h, ok := slaTargetHours[w.Priority]; ok {
		return h
	}
	return slaTargetHours[PriorityNormal]
}

// HoursUntilSLA returns the signed whole hours remaining before the SLA
// deadline, floored so any partial hour past the deadline already reads as
// negative. The clock performs no actions; escalation on breach belongs to
// the surrounding scheduler.
func (w *WorkRequest) HoursUntilSLA(now time.Time) int {
	deadline := w.CreatedAt.Add(time.Duration(w.SLATargetHours()) * time.Hour)
	return int(math.Floor(deadline.Sub(now).Hours()))
}

// IsOverdue reports whether the request has outlived its SLA target. A
// terminal request is never overdue.
func (w *WorkRequest) IsOverdue(now time.Time) bool {
	if w.Status.IsTerminal() {
		return false
	}
	return now.Sub(w.CreatedAt) > time.Duration(w.SLATargetHours())*time.Hour
}
