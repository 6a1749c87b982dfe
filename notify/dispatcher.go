package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Message is one pending outbox row handed to the Sender.
type Message struct {
	ID        string
	Topic     string
	Payload   []byte
	Attempts  int
	CreatedAt time.Time
}

// Sender delivers one message to the outside world (mail, push, webhook).
// Delivery is fire-and-forget from the engine's perspective; the dispatcher
// only tracks whether the send succeeded.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher drains the transactional outbox written by the request and
// dispute services.
type Dispatcher struct {
	pool      *pgxpool.Pool
	sender    Sender
	batchSize int
	workers   int
	interval  time.Duration
}

func NewDispatcher(pool *pgxpool.Pool, sender Sender) *Dispatcher {
	return &Dispatcher{
		pool:      pool,
		sender:    sender,
		batchSize: 50,
		workers:   4,
		interval:  2 * time.Second,
	}
}

// Run polls the outbox until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := d.DispatchPending(ctx); err != nil {
				log.Printf("notify: dispatch batch: %v", err)
			} else if n > 0 {
				log.Printf("notify: dispatched %d messages", n)
			}
		}
	}
}

// DispatchPending claims one batch of pending messages and delivers them
// with a bounded worker group. Claimed rows are locked with SKIP LOCKED so
// concurrent dispatchers never double-send.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("notify: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const claimSQL = `
		SELECT id, topic, payload, attempts, created_at
		FROM outbox
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.Query(ctx, claimSQL, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("notify: claim batch: %w", err)
	}

	msgs := make([]Message, 0, d.batchSize)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.Attempts, &m.CreatedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("notify: scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("notify: iterate messages: %w", err)
	}
	if len(msgs) == 0 {
		return 0, tx.Commit(ctx)
	}

	results := make([]error, len(msgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i := range msgs {
		g.Go(func() error {
			results[i] = d.sender.Send(gctx, msgs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("notify: deliver batch: %w", err)
	}

	sent := 0
	for i, m := range msgs {
		if results[i] == nil {
			if _, err := tx.Exec(ctx, `UPDATE outbox SET status='sent', attempts=attempts+1 WHERE id=$1`, m.ID); err != nil {
				return 0, fmt.Errorf("notify: mark sent: %w", err)
			}
			sent++
			continue
		}
		log.Printf("notify: send %s (%s): %v", m.ID, m.Topic, results[i])
		if _, err := tx.Exec(ctx, `UPDATE outbox SET attempts=attempts+1 WHERE id=$1`, m.ID); err != nil {
			return 0, fmt.Errorf("notify: bump attempts: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("notify: commit batch: %w", err)
	}
	return sent, nil
}

// LogSender writes deliveries to the process log. It stands in for the real
// notification channel in development and tests.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	log.Printf("notify: %s %s", msg.Topic, msg.Payload)
	return nil
}
