// Package notify publishes workflow events for downstream delivery systems.
// Delivery is a collaborator concern: publishing is best-effort and never
// fails the workflow that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Event describes one workflow occurrence worth telling others about.
type Event struct {
	Action       string                 `json:"action"`
	SubmissionID uint                   `json:"submission_id"`
	ActorID      uint                   `json:"actor_id"`
	OccurredAt   time.Time              `json:"occurred_at"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Notifier fans workflow events out to interested consumers.
type Notifier interface {
	Publish(ctx context.Context, event Event)
}

type natsNotifier struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

// NewNATS builds a notifier that publishes JSON events on NATS subjects
// derived from the event action, e.g. koreksi.feedback.recorded.
func NewNATS(conn *nats.Conn, subjectBase string, logger zerolog.Logger) Notifier {
	base := strings.Trim(subjectBase, ".")
	if base == "" {
		base = "koreksi"
	}

	return &natsNotifier{
		conn:        conn,
		subjectBase: base,
		logger:      logger.With().Str("component", "notifier").Logger(),
	}
}

func (n *natsNotifier) Publish(_ context.Context, event Event) {
	if n.conn == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn().Err(err).Str("action", event.Action).Msg("failed to encode event")
		return
	}

	subject := n.subjectBase + "." + strings.ReplaceAll(event.Action, "/", ".")
	if err := n.conn.Publish(subject, payload); err != nil {
		n.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}

type noopNotifier struct{}

// NewNoop builds a notifier that drops every event. Used when no NATS URL
// is configured and in tests.
func NewNoop() Notifier {
	return noopNotifier{}
}

func (noopNotifier) Publish(context.Context, Event) {}
