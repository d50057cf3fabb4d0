// Package relay publishes progress events over NATS so external observers
// can follow task execution without polling.
package relay

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/openclaw/autopilot/internal/logging"
	"github.com/openclaw/autopilot/internal/plan"
)

// Relay publishes one JSON message per progress event on the subject
// <prefix>.task.<taskID>.progress. Publish failures are logged and
// dropped; event egress never blocks scheduling.
type Relay struct {
	conn   *nats.Conn
	prefix string
	logger *logging.Logger
}

// Connect dials the NATS server.
func Connect(url, subjectPrefix string, logger *logging.Logger) (*Relay, error) {
	conn, err := nats.Connect(url, nats.Name("autopilot-relay"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	if subjectPrefix == "" {
		subjectPrefix = "autopilot"
	}
	return &Relay{
		conn:   conn,
		prefix: subjectPrefix,
		logger: logger.WithComponent("relay"),
	}, nil
}

// Close drains and closes the connection.
func (r *Relay) Close() {
	if err := r.conn.Drain(); err != nil {
		r.conn.Close()
	}
}

// RecordTask is a no-op; the relay only carries transitions.
func (r *Relay) RecordTask(_ plan.Task, _ int) {}

// RecordEvent publishes one transition.
func (r *Relay) RecordEvent(ev plan.ProgressEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		r.logger.Warn("event marshal failed", map[string]interface{}{
			"task":  ev.TaskID,
			"error": err.Error(),
		})
		return
	}
	subject := fmt.Sprintf("%s.task.%s.progress", r.prefix, ev.TaskID)
	if err := r.conn.Publish(subject, payload); err != nil {
		r.logger.Warn("event publish failed", map[string]interface{}{
			"task":    ev.TaskID,
			"subject": subject,
			"error":   err.Error(),
		})
	}
}
