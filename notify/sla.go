package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"claimflow/request"
)

// OverdueLister is the slice of the request repository the watcher needs.
type OverdueLister interface {
	ListOverdueCandidates(ctx context.Context, limit int) ([]*request.WorkRequest, error)
}

// SLAWatcher observes pending requests and reports SLA breaches to the
// Sender. It never mutates request state: breach handling stays with the
// humans being notified.
type SLAWatcher struct {
	requests OverdueLister
	sender   Sender
	interval time.Duration
	now      func() time.Time
}

func NewSLAWatcher(requests OverdueLister, sender Sender) *SLAWatcher {
	return &SLAWatcher{
		requests: requests,
		sender:   sender,
		interval: time.Minute,
		now:      time.Now,
	}
}

func (w *SLAWatcher) WithClock(now func() time.Time) *SLAWatcher {
	w.now = now
	return w
}

// Run sweeps for breaches until the context is cancelled.
func (w *SLAWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				log.Printf("notify: sla sweep: %v", err)
			}
		}
	}
}

// Sweep reports every currently overdue request once per invocation.
func (w *SLAWatcher) Sweep(ctx context.Context) error {
	candidates, err := w.requests.ListOverdueCandidates(ctx, 0)
	if err != nil {
		return err
	}

	now := w.now()
	for _, req := range candidates {
		if !req.IsOverdue(now) {
			continue
		}
		payload, err := json.Marshal(map[string]any{
			"request_id":      req.ID,
			"kind":            req.Kind,
			"priority":        req.Priority,
			"hours_until_sla": req.HoursUntilSLA(now),
		})
		if err != nil {
			return fmt.Errorf("notify: marshal breach payload: %w", err)
		}
		msg := Message{
			Topic:     "request.sla_breached",
			Payload:   payload,
			CreatedAt: now,
		}
		if err := w.sender.Send(ctx, msg); err != nil {
			log.Printf("notify: sla breach %s: %v", req.ID, err)
		}
	}
	return nil
}
