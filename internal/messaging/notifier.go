package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Notifier публикует события готовности маршрута в RabbitMQ.
type Notifier struct {
	ch        *amqp091.Channel
	queueName string
	logger    *zap.Logger
}

// NewNotifier открывает канал и объявляет durable очередь уведомлений.
func NewNotifier(conn *amqp091.Connection, queueName string, logger *zap.Logger) (*Notifier, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue '%s': %w", queueName, err)
	}

	n := &Notifier{
		ch:        ch,
		queueName: queueName,
		logger:    logger.Named("Notifier").With(zap.String("queue", queueName)),
	}
	n.logger.Info("Notification queue declared")
	return n, nil
}

// PublishItineraryReady отправляет persistent JSON сообщение через exchange по умолчанию.
func (n *Notifier) PublishItineraryReady(ctx context.Context, event ItineraryReadyEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal itinerary ready event: %w", err)
	}

	err = n.ch.PublishWithContext(ctx,
		"",          // exchange по умолчанию
		n.queueName, // routing key = имя очереди
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		n.logger.Error("Failed to publish itinerary ready event",
			zap.String("itinerary_id", event.ItineraryID), zap.Error(err))
		return fmt.Errorf("failed to publish itinerary ready event: %w", err)
	}

	n.logger.Debug("Itinerary ready event published", zap.String("itinerary_id", event.ItineraryID))
	return nil
}

// Close закрывает канал издателя.
func (n *Notifier) Close() error {
	if n.ch == nil {
		return nil
	}
	if err := n.ch.Close(); err != nil {
		return fmt.Errorf("failed to close notifier channel: %w", err)
	}
	return nil
}
