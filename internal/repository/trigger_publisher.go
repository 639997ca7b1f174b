package repository

import (
	"context"
	"strconv"

	"EconDash/internal/domain/models"
	drepo "EconDash/internal/domain/repository"
	pkgkafka "EconDash/pkg/kafka"
	xlogger "EconDash/pkg/logger"
)

// KafkaTriggerPublisher implements TriggerPublisher for Kafka. Triggers are
// keyed by alert id so repeats of one rule stay ordered.
type KafkaTriggerPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaTriggerPublisher creates Kafka publisher.
func NewKafkaTriggerPublisher(producer *pkgkafka.Producer, topic string) drepo.TriggerPublisher {
	return &KafkaTriggerPublisher{producer: producer, topic: topic}
}

func (p *KafkaTriggerPublisher) PublishTriggers(ctx context.Context, triggers []models.AlertTrigger) error {
	if len(triggers) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(triggers))
	for i, t := range triggers {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(strconv.FormatInt(t.AlertID, 10)),
			Value: t,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTriggerPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// LogTriggerPublisher writes triggers to the log. Used when Kafka is off.
type LogTriggerPublisher struct {
	logger *xlogger.Logger
}

// NewLogTriggerPublisher creates a log-only publisher.
func NewLogTriggerPublisher(logger *xlogger.Logger) drepo.TriggerPublisher {
	return &LogTriggerPublisher{logger: logger}
}

func (p *LogTriggerPublisher) PublishTriggers(_ context.Context, triggers []models.AlertTrigger) error {
	for _, t := range triggers {
		p.logger.Info("alert triggered",
			xlogger.Int64("alert_id", t.AlertID),
			xlogger.String("indicator", t.IndicatorCode),
			xlogger.String("condition", t.Condition),
			xlogger.Any("threshold", t.Threshold),
			xlogger.Any("current_value", t.CurrentValue),
		)
	}
	return nil
}

func (p *LogTriggerPublisher) Close() error { return nil }
