package repository

import (
	"context"
	"fmt"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
)

// Publisher is the subset of pkg/kafka.Producer used for fan-out.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaSignalPublisher writes admitted signals as JSON, keyed by asset-pool.
type KafkaSignalPublisher struct {
	p     Publisher
	topic string
}

func NewKafkaSignalPublisher(p Publisher, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{p: p, topic: topic}
}

func (k *KafkaSignalPublisher) PublishSignal(ctx context.Context, rec *models.SignalRecord) error {
	if err := k.p.Publish(ctx, k.topic, []byte(rec.Pool), rec); err != nil {
		return fmt.Errorf("publish signal %s: %w", rec.ID, err)
	}
	return nil
}

func (k *KafkaSignalPublisher) Close() error { return k.p.Close() }

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)
