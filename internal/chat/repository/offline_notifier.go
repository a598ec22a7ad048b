package repository

import (
	"context"
	"encoding/json"

	"recruit_chat_service/internal/chat/domain"

	"github.com/streadway/amqp"
)

// OfflineNotificationQueue queue consumed by the push/email notifier
const OfflineNotificationQueue = "chat.offline_notifications"

// OfflineNotifier definition notification of a receiver holding no connection
type OfflineNotifier interface {
	NotifyOffline(ctx context.Context, n domain.OfflineNotification) error
}

// AMQPPublisher the part of *amqp.Channel the notifier needs
type AMQPPublisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type rabbitOfflineNotifier struct {
	channel AMQPPublisher
	queue   string
}

// NewRabbitOfflineNotifier create an OfflineNotifier publishing to queue
func NewRabbitOfflineNotifier(channel AMQPPublisher, queue string) OfflineNotifier {
	if queue == "" {
		queue = OfflineNotificationQueue
	}
	return &rabbitOfflineNotifier{channel: channel, queue: queue}
}

func (n *rabbitOfflineNotifier) NotifyOffline(_ context.Context, note domain.OfflineNotification) error {
	data, err := json.Marshal(note)
	if err != nil {
		return err
	}
	return n.channel.Publish(
		"",      // 預設 exchange
		n.queue, // queue 名稱
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         data,
		},
	)
}

type nopOfflineNotifier struct{}

// NewNopOfflineNotifier drop every notification
func NewNopOfflineNotifier() OfflineNotifier { return nopOfflineNotifier{} }

func (nopOfflineNotifier) NotifyOffline(context.Context, domain.OfflineNotification) error {
	return nil
}
