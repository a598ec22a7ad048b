package repository

import (
	"context"
	"encoding/json"

	"recruit_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
)

// EventPublisher definition chat domain event sink
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ChatEvent) error
}

// KafkaWriter the part of *kafka.Writer the publisher needs
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type kafkaEventPublisher struct {
	writer KafkaWriter
}

// NewKafkaEventPublisher create an EventPublisher, events are keyed by conversation
func NewKafkaEventPublisher(writer KafkaWriter) EventPublisher {
	return &kafkaEventPublisher{writer: writer}
}

func (p *kafkaEventPublisher) Publish(ctx context.Context, event domain.ChatEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ConversationID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
}

type nopEventPublisher struct{}

// NewNopEventPublisher drop every event
func NewNopEventPublisher() EventPublisher { return nopEventPublisher{} }

func (nopEventPublisher) Publish(context.Context, domain.ChatEvent) error { return nil }
