package eventdef

import (
	"context"
	"fmt"
)

// JSONProducer writes a JSON encoded message under a key.
// *kafka.Producer satisfies it.
type JSONProducer interface {
	ProduceJSON(ctx context.Context, key string, value any) error
}

// KafkaPublisher publishes changes keyed by definition ID, keeping the
// changes of one definition in order.
type KafkaPublisher struct {
	producer JSONProducer
}

// NewKafkaPublisher creates a KafkaPublisher.
func NewKafkaPublisher(producer JSONProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, changed DefinitionChanged) error {
	if err := p.producer.ProduceJSON(ctx, changed.DefinitionID, changed); err != nil {
		return fmt.Errorf("failed to publish %s change for %s: %w", changed.Action, changed.DefinitionID, err)
	}
	return nil
}
