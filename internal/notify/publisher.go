// Package notify publishes advisory "refresh" signals over NATS so open
// clients can re-fetch a submission after an approval action.
//
// Subject convention: reports.refresh.<category>
//
// All publish operations are non-fatal. Errors are logged but never
// propagated to the caller, so a notification failure never fails the
// approval or resubmission that triggered it.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// RefreshPublisher publishes refresh events for submissions.
type RefreshPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// RefreshEvent is the JSON payload published on every signal.
type RefreshEvent struct {
	SubmissionID string `json:"submission_id"`
	Category     string `json:"category"`
	Action       string `json:"action"`
}

// Connect dials NATS. An empty URL returns a disabled publisher so local
// runs work without a broker.
func Connect(url string, log zerolog.Logger) (*RefreshPublisher, error) {
	if url == "" {
		log.Info().Msg("notify: NATS URL empty, refresh signaling disabled")
		return &RefreshPublisher{log: log}, nil
	}

	conn, err := nats.Connect(url,
		nats.Name("be-process-reports"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &RefreshPublisher{conn: conn, log: log}, nil
}

// Close drains the connection.
func (p *RefreshPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}

// PublishRefresh emits a refresh signal for a submission. Best-effort.
func (p *RefreshPublisher) PublishRefresh(category, submissionID, action string) {
	if p.conn == nil {
		return
	}

	data, err := json.Marshal(&RefreshEvent{
		SubmissionID: submissionID,
		Category:     category,
		Action:       action,
	})
	if err != nil {
		p.log.Warn().Err(err).Str("submission_id", submissionID).Msg("notify: failed to marshal refresh event")
		return
	}

	subject := fmt.Sprintf("reports.refresh.%s", category)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("submission_id", submissionID).
			Msg("notify: failed to publish refresh event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("submission_id", submissionID).
		Str("action", action).
		Msg("notify: refresh event published")
}
