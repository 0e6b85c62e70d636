package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/termsearch/internal/domain"
	pkgkafka "github.com/utafrali/termsearch/pkg/kafka"
	"github.com/utafrali/termsearch/pkg/logger"
)

// DefaultReportTopic is where reconciliation reports go unless configured otherwise.
const DefaultReportTopic = "termsearch.index.reconciled"

// EventTypeIndexReconciled is the envelope event type of a reconciliation report.
const EventTypeIndexReconciled = "index.reconciled"

const (
	aggregateTypeIndex = "index"
	sourceTermsearch   = "termsearch"
)

// Producer publishes index lifecycle events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	topic  string
	logger *slog.Logger
}

// NewProducer creates an event producer writing reconciliation reports to topic.
func NewProducer(kafka *pkgkafka.Producer, topic string, logger *slog.Logger) *Producer {
	if topic == "" {
		topic = DefaultReportTopic
	}
	return &Producer{
		kafka:  kafka,
		topic:  topic,
		logger: logger,
	}
}

// PublishIndexReconciled publishes the outcome of a reconciliation pass, keyed by index name.
func (p *Producer) PublishIndexReconciled(ctx context.Context, report *domain.ReconcileReport) error {
	event, err := pkgkafka.NewEvent(EventTypeIndexReconciled, pkgkafka.Aggregate{Type: aggregateTypeIndex, ID: report.Index}, sourceTermsearch, report)
	if err != nil {
		return fmt.Errorf("create %s event: %w", EventTypeIndexReconciled, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if report.Strict {
		event.WithMetadata("mode", "strict")
	}

	if err := p.kafka.Publish(ctx, p.topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", EventTypeIndexReconciled, err)
	}

	p.logger.DebugContext(ctx, "published index.reconciled event",
		slog.String("index", report.Index),
		slog.String("event_id", event.EventID),
		slog.Int("upserted", report.Upserted),
	)

	return nil
}
