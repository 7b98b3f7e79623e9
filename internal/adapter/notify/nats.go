// internal/adapter/notify/nats.go

package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"feedcore/internal/domain/breaking"
)

// NATSNotifier publishes notifications on the event bus for downstream
// delivery workers (push/email/in-app transports live outside this core).
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier creates a notifier publishing to "<subject>.dispatch"
func NewNATSNotifier(conn *nats.Conn, subject string) *NATSNotifier {
	if subject == "" {
		subject = "notification"
	}
	return &NATSNotifier{conn: conn, subject: subject}
}

// Deliver publishes the notification for the delivery collaborator.
func (n *NATSNotifier) Deliver(ctx context.Context, notification breaking.Notification) error {
	payload, err := json.Marshal(map[string]interface{}{
		"id":         notification.ID,
		"user_id":    notification.UserID,
		"content_id": notification.ContentID,
		"title":      notification.Title,
		"message":    notification.Message,
		"channel":    notification.Channel,
		"priority":   notification.Priority,
		"topics":     notification.Topics,
		"sent_at":    notification.SentAt,
	})
	if err != nil {
		return fmt.Errorf("error marshaling notification: %w", err)
	}

	subject := fmt.Sprintf("%s.dispatch.%s", n.subject, notification.Channel)
	if err := n.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("error publishing notification: %w", err)
	}
	return nil
}

var _ breaking.Notifier = (*NATSNotifier)(nil)
