// Package notify delivers ticket notifications to live subscribers over
// PostgreSQL LISTEN/NOTIFY, on top of the durable rows pkg/store already
// writes inside each mutation's transaction. A missed or dropped NOTIFY
// is never the system of record — GET /notifications always reflects
// the database, and the listener is a best-effort low-latency nudge for
// connected clients (e.g. a websocket or SSE handler in pkg/api).
package notify

import (
	"context"
	"database/sql"
	"encoding/json"
)

// maxNotifyPayloadBytes matches PostgreSQL's NOTIFY payload limit of
// 8000 bytes. Oversized events degrade to a minimal envelope that tells
// the subscriber to re-fetch rather than carrying the full content.
const maxNotifyPayloadBytes = 7999

func channelForUser(userID string) string {
	return "deskcore_notify_" + userID
}

// Event is the payload delivered to a subscriber when a notification is
// created for their user id.
type Event struct {
	NotificationID string `json:"notification_id"`
	TicketID       string `json:"ticket_id,omitempty"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Truncated      bool   `json:"truncated,omitempty"`
}

func encode(ev Event) ([]byte, error) {
	full, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	if len(full) <= maxNotifyPayloadBytes {
		return full, nil
	}
	return json.Marshal(Event{
		NotificationID: ev.NotificationID,
		TicketID:       ev.TicketID,
		Type:           ev.Type,
		Truncated:      true,
	})
}

// execer is satisfied by *sql.DB and *sql.Tx; Publish is called from
// inside store's mutation transactions so the NOTIFY only fires once
// the row is actually committed.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Publish issues a pg_notify on the recipient's channel. Call it inside
// the same transaction that inserted the Notification row so the push
// never fires for a write that later rolls back.
func Publish(ctx context.Context, tx execer, recipientUserID string, ev Event) error {
	payload, err := encode(ev)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, channelForUser(recipientUserID), string(payload))
	return err
}
