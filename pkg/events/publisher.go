package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/richxcame/agroverify/pkg/config"
	"github.com/richxcame/agroverify/pkg/logger"
	"go.uber.org/zap"
)

const (
	// SubjectEvaluationCompleted is published when a pipeline run reaches COMPLETED
	SubjectEvaluationCompleted = "verification.evaluation.completed"
	// SubjectEvaluationFailed is published when a pipeline run reaches FAILED
	SubjectEvaluationFailed = "verification.evaluation.failed"
)

// EvaluationEvent is the payload for evaluation lifecycle events
type EvaluationEvent struct {
	ApplicationID string    `json:"application_id"`
	Status        string    `json:"status"`
	FraudScore    *int      `json:"fraud_score,omitempty"`
	RiskLevel     string    `json:"risk_level,omitempty"`
	Error         string    `json:"error,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher publishes evaluation lifecycle events
type Publisher interface {
	PublishEvaluationCompleted(event EvaluationEvent) error
	PublishEvaluationFailed(event EvaluationEvent) error
}

// NATSPublisher publishes events to NATS
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to NATS and returns a publisher
func NewNATSPublisher(cfg *config.NATSConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// Conn exposes the underlying connection for health checks
func (p *NATSPublisher) Conn() *nats.Conn {
	return p.conn
}

// PublishEvaluationCompleted publishes a completion event
func (p *NATSPublisher) PublishEvaluationCompleted(event EvaluationEvent) error {
	return p.publish(SubjectEvaluationCompleted, event)
}

// PublishEvaluationFailed publishes a failure event
func (p *NATSPublisher) PublishEvaluationFailed(event EvaluationEvent) error {
	return p.publish(SubjectEvaluationFailed, event)
}

func (p *NATSPublisher) publish(subject string, event EvaluationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			logger.Warn("failed to drain nats connection", zap.Error(err))
		}
	}
}

// NoopPublisher drops all events. Used when NATS is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishEvaluationCompleted(EvaluationEvent) error { return nil }
func (NoopPublisher) PublishEvaluationFailed(EvaluationEvent) error    { return nil }
