package request

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// EventLog appends immutable audit events for a request within the caller's
// transaction.
type EventLog struct{}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) Append(ctx context.Context, tx pgx.Tx, requestID, eventType string, actorID string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("request: marshal event payload: %w", err)
	}

	var actor any
	if actorID != "" {
		actor = actorID
	}

	const insertSQL = `
		INSERT INTO request_events (request_id, type, payload, actor_id)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, insertSQL, requestID, eventType, body, actor); err != nil {
		return fmt.Errorf("request: insert event: %w", err)
	}
	return nil
}

// Outbox enqueues transactional messages for the notification dispatcher.
type Outbox struct{}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("request: marshal outbox payload: %w", err)
	}

	const insertSQL = `
		INSERT INTO outbox (topic, payload)
		VALUES ($1, $2)
	`
	if _, err := tx.Exec(ctx, insertSQL, topic, body); err != nil {
		return fmt.Errorf("request: insert outbox message: %w", err)
	}
	return nil
}
