// Package kafka publishes fire-and-forget audit events for export and
// import operations, per spec §11's audit trail requirement. Publish
// failures are logged and swallowed — an audit sink outage must never
// fail a migration request.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ramsey-B/refproxy/internal/obs"
)

// Config holds Kafka configuration
type Config struct {
	Brokers    []string
	EventTopic string
	ErrorTopic string
}

// ParseConfig parses a comma-separated broker string
func ParseConfig(brokers string, eventTopic string, errorTopic string) Config {
	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	return Config{
		Brokers:    brokerList,
		EventTopic: eventTopic,
		ErrorTopic: errorTopic,
	}
}

// Producer publishes audit events to Kafka
type Producer struct {
	writer      *kafka.Writer
	errorWriter *kafka.Writer
	logger      ectologger.Logger
	topic       string
	errorTopic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg Config, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.EventTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		// Allow Kafka to auto-create the topic in dev environments when it doesn't exist yet.
		// Without this, a first publish may fail with "Unknown Topic Or Partition".
		AllowAutoTopicCreation: true,
	}

	var errorWriter *kafka.Writer
	if cfg.ErrorTopic != "" {
		errorWriter = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.ErrorTopic,
			Balancer:               &kafka.LeastBytes{},
			BatchSize:              100,
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			Async:                  false,
			AllowAutoTopicCreation: true,
		}
	}

	return &Producer{
		writer:      writer,
		errorWriter: errorWriter,
		logger:      logger,
		topic:       cfg.EventTopic,
		errorTopic:  cfg.ErrorTopic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	var firstErr error
	if err := p.writer.Close(); err != nil {
		firstErr = err
	}
	if p.errorWriter != nil {
		if err := p.errorWriter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// EventType identifies the kind of migration audit event.
type EventType string

const (
	EventExportCompleted EventType = "export.completed"
	EventExportFailed    EventType = "export.failed"
	EventImportCompleted EventType = "import.completed"
	EventImportFailed    EventType = "import.failed"
)

// AuditEvent is a fire-and-forget record of one export or import operation.
type AuditEvent struct {
	Type          EventType `json:"type"`
	RequestID     string    `json:"request_id,omitempty"`
	TargetURL     string    `json:"target_url,omitempty"`
	Format        string    `json:"format,omitempty"`
	RecordCount   int       `json:"record_count,omitempty"`
	SuccessCount  int       `json:"success_count,omitempty"`
	FailureCount  int       `json:"failure_count,omitempty"`
	CycleDetected bool      `json:"cycle_detected,omitempty"`
	Error         string    `json:"error,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	Timestamp     time.Time `json:"timestamp"`

	TraceID string `json:"trace_id,omitempty"`
}

// Publish publishes an audit event. Errors are logged by the caller via
// the returned error; callers that treat audit publishing as best-effort
// should log and discard rather than fail the request.
func (p *Producer) Publish(ctx context.Context, evt *AuditEvent) error {
	ctx, span := obs.StartSpan(ctx, "Kafka.Publish")
	defer span.End()

	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.TraceID = obs.GetTraceID(ctx)

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("event_type", string(evt.Type)),
	)

	data, err := json.Marshal(evt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal event")
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	headers := []kafka.Header{
		{Key: "type", Value: []byte(evt.Type)},
	}
	if traceparent := obs.GetTraceParent(ctx); traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}

	key := evt.RequestID
	if key == "" {
		key = string(evt.Type)
	}

	writer := p.writer
	if (evt.Type == EventExportFailed || evt.Type == EventImportFailed) && p.errorWriter != nil {
		writer = p.errorWriter
	}

	if err := writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: headers,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish event")
		p.logger.WithContext(ctx).WithError(err).Errorf("failed to publish audit event %s", evt.Type)
		return err
	}

	span.SetStatus(codes.Ok, "event published")
	p.logger.WithContext(ctx).Debugf("published audit event %s request=%s trace=%s", evt.Type, evt.RequestID, evt.TraceID)
	return nil
}
