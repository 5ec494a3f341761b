// internal/events/publisher.go

// Package events publishes trigger and alert lifecycle events onto the
// NATS event bus, mirroring the way the trend detector announces its own
// detections.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	domaintrigger "essg/internal/domain/trigger"
)

// Topics used by the publisher. Subscribers (dashboards, downstream
// alerting) key off these directly.
const (
	TopicTriggerFired = "earthquake.trigger.fired"
	TopicAlertSent    = "earthquake.alert.sent"
)

// triggerEvent is the wire shape published on TopicTriggerFired.
type triggerEvent struct {
	Time      time.Time `json:"time"`
	STA       int       `json:"sta"`
	LTA       int       `json:"lta"`
	Ratio     float64   `json:"ratio"`
	Threshold float64   `json:"threshold"`
}

// alertEvent is the wire shape published on TopicAlertSent.
type alertEvent struct {
	Time     time.Time `json:"time"`
	Location string    `json:"location"`
	Path     string    `json:"path"`
}

// Publisher announces trigger and alert events to an optional NATS
// connection. A nil *Publisher (no event bus configured) is a valid,
// inert no-op, so callers never need to branch on whether NATS was
// configured.
type Publisher struct {
	conn *nats.Conn
}

// New wraps an established NATS connection. Passing a nil conn is fine;
// it produces a Publisher whose methods no-op.
func New(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// TriggerFired announces that the STA/LTA detector fired.
func (p *Publisher) TriggerFired(t domaintrigger.Trigger) error {
	if p == nil || p.conn == nil {
		return nil
	}

	data, err := json.Marshal(triggerEvent{
		Time:      t.Time,
		STA:       t.STA,
		LTA:       t.LTA,
		Ratio:     t.Ratio,
		Threshold: t.Threshold,
	})
	if err != nil {
		return fmt.Errorf("events: marshal trigger: %w", err)
	}

	return p.conn.Publish(TopicTriggerFired, data)
}

// AlertSent announces that an alert file was assembled and dispatched for
// the given detection time, consensus location, and file path.
func (p *Publisher) AlertSent(detectedAt time.Time, location, path string) error {
	if p == nil || p.conn == nil {
		return nil
	}

	data, err := json.Marshal(alertEvent{
		Time:     detectedAt,
		Location: location,
		Path:     path,
	})
	if err != nil {
		return fmt.Errorf("events: marshal alert: %w", err)
	}

	return p.conn.Publish(TopicAlertSent, data)
}
