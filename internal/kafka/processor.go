package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/propertymesh/listing-governance/internal/config"
	"github.com/propertymesh/listing-governance/internal/governance"
)

// ingestionActor is the principal ingested events are evaluated as. It
// carries the SYSTEM role, so ownership checks pass for pipeline writes.
var ingestionActor = &governance.User{
	ID:    "ingestion-pipeline",
	Roles: []string{"SYSTEM"},
}

// Processor consumes ingested listing events from kafka, runs them
// through governance, and publishes the decision for downstream
// consumers (search indexers, the listing service) to act on.
type Processor struct {
	reader  *kafka.Reader
	writer  *kafka.Writer
	service *governance.Service
	logger  *zap.Logger
}

// NewProcessor creates a processor from kafka config.
func NewProcessor(cfg config.KafkaConfig, service *governance.Service, logger *zap.Logger) *Processor {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topics.ListingIngested,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // explicit commits only
	})

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topics.GovernanceDecisions,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}

	return &Processor{
		reader:  reader,
		writer:  writer,
		service: service,
		logger:  logger,
	}
}

// decisionRecord is the message published for every processed event.
type decisionRecord struct {
	EventID         string                    `json:"event_id"`
	EventType       governance.EventType      `json:"event_type"`
	Outcome         governance.Outcome        `json:"outcome"`
	Results         []*governance.RuleResult  `json:"results"`
	ActionsExecuted []string                  `json:"actions_executed"`
	ProcessedAt     time.Time                 `json:"processed_at"`
}

// Run consumes until the context is canceled. Malformed messages are
// logged and committed past; governance failures leave the message
// uncommitted for redelivery.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("Kafka processor started",
		zap.String("topic", p.reader.Config().Topic),
		zap.String("group_id", p.reader.Config().GroupID),
	)

	for {
		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if err := p.process(ctx, msg); err != nil {
			p.logger.Error("Failed to process ingested event, leaving uncommitted",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}

		if err := p.reader.CommitMessages(ctx, msg); err != nil {
			p.logger.Error("Failed to commit message", zap.Error(err))
		}
	}
}

func (p *Processor) process(ctx context.Context, msg kafka.Message) error {
	var event governance.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// A malformed message will never parse on redelivery; log, skip,
		// and commit past it.
		p.logger.Warn("Dropping malformed ingestion message",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return nil
	}
	if event.Type == "" {
		event.Type = governance.EventDataIngested
	}

	decision, err := p.service.ProcessEvent(ctx, &event, ingestionActor)
	if err != nil {
		return err
	}

	return p.publish(ctx, &event, decision)
}

func (p *Processor) publish(ctx context.Context, event *governance.Event, decision *governance.Decision) error {
	record := decisionRecord{
		EventID:         event.ID,
		EventType:       event.Type,
		Outcome:         decision.Outcome(),
		Results:         decision.Results,
		ActionsExecuted: decision.ActionsExecuted,
		ProcessedAt:     time.Now(),
	}

	value, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ID),
		Value: value,
	})
}

// Close releases the kafka reader and writer.
func (p *Processor) Close() error {
	rerr := p.reader.Close()
	werr := p.writer.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}
