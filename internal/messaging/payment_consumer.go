package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"itinerary-server/internal/model"
	"itinerary-server/pkg/taskmanager"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	markPaidTimeout = 10 * time.Second
	unlockTimeout   = 5 * time.Minute // unlock может догенерировать весь день
	publishTimeout  = 5 * time.Second

	defaultRequeueDelay     = time.Second
	defaultUnlockAttempts   = 3
	defaultUnlockRetryDelay = 2 * time.Second
)

// isTransient - сбои, после которых сообщение стоит повторить, а документ не портить
func isTransient(err error) bool {
	return errors.Is(err, model.ErrVersionConflict) ||
		errors.Is(err, model.ErrPersistence) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, taskmanager.ErrShuttingDown)
}

// PaymentService - операции жизненного цикла, нужные обработчику оплаты
type PaymentService interface {
	MarkPaid(ctx context.Context, id string) (*model.Itinerary, error)
	Unlock(ctx context.Context, id string) (*model.Itinerary, error)
	Fail(ctx context.Context, id string, cause error) error
}

// TaskSubmitter запускает фоновые задачи
type TaskSubmitter interface {
	Submit(ctx context.Context, name string, fn taskmanager.TaskFunc) (uuid.UUID, error)
}

// ReadyPublisher сообщает о готовности полного плана
type ReadyPublisher interface {
	PublishItineraryReady(ctx context.Context, event ItineraryReadyEvent) error
}

// ConsumerConfig описывает топологию очереди платежей
type ConsumerConfig struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

// PaymentConsumer слушает события оплаты и открывает полный план в фоне.
type PaymentConsumer struct {
	conn        *amqp091.Connection
	ch          *amqp091.Channel
	cfg         ConsumerConfig
	service     PaymentService
	tasks       TaskSubmitter
	publisher   ReadyPublisher
	logger      *zap.Logger
	consumerTag string
	done        chan error

	requeueDelay     time.Duration
	unlockAttempts   int
	unlockRetryDelay time.Duration
}

// NewPaymentConsumer создает консьюмера и объявляет exchange, очередь и привязку.
func NewPaymentConsumer(
	conn *amqp091.Connection,
	cfg ConsumerConfig,
	service PaymentService,
	tasks TaskSubmitter,
	publisher ReadyPublisher,
	logger *zap.Logger,
) (*PaymentConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}
	if service == nil || tasks == nil {
		return nil, fmt.Errorf("payment service and task submitter are required")
	}

	consumerTag := fmt.Sprintf("payment_consumer_%d", time.Now().UnixNano())
	c := &PaymentConsumer{
		conn:        conn,
		cfg:         cfg,
		service:     service,
		tasks:       tasks,
		publisher:   publisher,
		logger:      logger.Named("PaymentConsumer").With(zap.String("consumerTag", consumerTag), zap.String("queue", cfg.Queue)),
		consumerTag: consumerTag,
		done:        make(chan error, 1),

		requeueDelay:     defaultRequeueDelay,
		unlockAttempts:   defaultUnlockAttempts,
		unlockRetryDelay: defaultUnlockRetryDelay,
	}

	if err := c.setupChannelAndQueue(); err != nil {
		return nil, fmt.Errorf("failed to setup channel and queue: %w", err)
	}
	c.logger.Info("PaymentConsumer initialized")
	return c, nil
}

func (c *PaymentConsumer) setupChannelAndQueue() error {
	var err error
	c.ch, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err = c.ch.ExchangeDeclare(
		c.cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to declare exchange '%s': %w", c.cfg.Exchange, err)
	}

	if _, err = c.ch.QueueDeclare(
		c.cfg.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to declare queue '%s': %w", c.cfg.Queue, err)
	}

	if err = c.ch.QueueBind(c.cfg.Queue, c.cfg.RoutingKey, c.cfg.Exchange, false, nil); err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to bind queue '%s': %w", c.cfg.Queue, err)
	}

	// Обрабатываем по одному сообщению: тяжелая работа все равно уходит в taskmanager
	if err = c.ch.Qos(1, 0, false); err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	return nil
}

// Start регистрирует консьюмера и блокируется до остановки, закрытия канала или отмены ctx.
func (c *PaymentConsumer) Start(ctx context.Context) error {
	deliveries, err := c.ch.Consume(
		c.cfg.Queue,
		c.consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	go func() {
		for d := range deliveries {
			c.handleDelivery(ctx, d)
		}
		c.logger.Info("Deliveries channel closed")
		c.signal(nil)
	}()

	notifyClose := c.ch.NotifyClose(make(chan *amqp091.Error, 1))
	c.logger.Info("Consumer started, waiting for payment events")

	select {
	case err := <-c.done:
		return err
	case amqpErr := <-notifyClose:
		if amqpErr != nil {
			c.logger.Error("RabbitMQ channel closed unexpectedly", zap.Error(amqpErr))
			return amqpErr
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (c *PaymentConsumer) signal(err error) {
	select {
	case c.done <- err:
	default:
	}
}

// handleDelivery подтверждает или отклоняет сообщение по результату обработки.
func (c *PaymentConsumer) handleDelivery(ctx context.Context, d amqp091.Delivery) {
	log := c.logger.With(zap.Uint64("deliveryTag", d.DeliveryTag))

	if err := c.process(ctx, d.Body, log); err != nil {
		if isTransient(err) {
			log.Warn("Payment event will be redelivered (Nack, requeue)", zap.Error(err))
			if nackErr := d.Nack(false, true); nackErr != nil {
				log.Error("Failed to Nack message", zap.Error(nackErr))
			}
			// не крутим сообщение в горячем цикле, пока хранилище недоступно
			sleepCtx(ctx, c.requeueDelay)
			return
		}
		log.Warn("Payment event rejected (Nack, no requeue)", zap.Error(err))
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error("Failed to Nack message", zap.Error(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("Failed to Ack message", zap.Error(ackErr))
	}
}

func (c *PaymentConsumer) process(ctx context.Context, body []byte, log *zap.Logger) error {
	var event PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("malformed payment event: %w", err)
	}
	if event.ItineraryID == "" {
		return fmt.Errorf("malformed payment event: empty itineraryId")
	}
	log = log.With(zap.String("itinerary_id", event.ItineraryID))

	if event.Status != PaymentStatusSucceeded {
		log.Info("Ignoring payment event", zap.String("status", event.Status))
		return nil
	}

	markCtx, cancel := context.WithTimeout(ctx, markPaidTimeout)
	_, err := c.service.MarkPaid(markCtx, event.ItineraryID)
	cancel()
	if err != nil {
		if !isTransient(err) {
			c.fail(ctx, event.ItineraryID, err, log)
		}
		return fmt.Errorf("mark paid: %w", err)
	}

	// оплата уже записана: при повторной доставке MarkPaid вернет документ как есть
	taskID, err := c.tasks.Submit(ctx, "unlock:"+event.ItineraryID, c.unlockTask(event.ItineraryID))
	if err != nil {
		if !isTransient(err) {
			c.fail(ctx, event.ItineraryID, err, log)
		}
		return fmt.Errorf("submit unlock task: %w", err)
	}
	log.Info("Unlock task submitted", zap.String("task_id", taskID.String()))
	return nil
}

func (c *PaymentConsumer) unlockTask(id string) taskmanager.TaskFunc {
	return func(ctx context.Context) error {
		log := c.logger.With(zap.String("itinerary_id", id))

		it, err := c.unlockWithRetry(ctx, id, log)
		if err != nil {
			// документ помнит оплату, следующий Unlock выведет его из error
			c.fail(ctx, id, err, log)
			return fmt.Errorf("unlock %s: %w", id, err)
		}

		if c.publisher == nil {
			return nil
		}
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := c.publisher.PublishItineraryReady(pubCtx, ItineraryReadyEvent{
			ItineraryID: it.ID,
			Visibility:  it.Visibility,
		}); err != nil {
			// план уже открыт, уведомление не критично
			log.Warn("Failed to publish itinerary ready event", zap.Error(err))
		}
		return nil
	}
}

// unlockWithRetry повторяет Unlock при временных сбоях
func (c *PaymentConsumer) unlockWithRetry(ctx context.Context, id string, log *zap.Logger) (*model.Itinerary, error) {
	attempts := max(c.unlockAttempts, 1)
	for attempt := 1; ; attempt++ {
		unlockCtx, cancel := context.WithTimeout(ctx, unlockTimeout)
		it, err := c.service.Unlock(unlockCtx, id)
		cancel()
		if err == nil {
			return it, nil
		}
		if attempt >= attempts || !isTransient(err) || ctx.Err() != nil {
			return nil, err
		}
		log.Warn("Unlock failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		if !sleepCtx(ctx, time.Duration(attempt)*c.unlockRetryDelay) {
			return nil, ctx.Err()
		}
	}
}

// sleepCtx ждет d или отмены ctx. false - контекст отменен.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *PaymentConsumer) fail(ctx context.Context, id string, cause error, log *zap.Logger) {
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markPaidTimeout)
	defer cancel()
	if err := c.service.Fail(failCtx, id, cause); err != nil {
		log.Error("Failed to move itinerary to error", zap.Error(err), zap.NamedError("cause", cause))
	}
}

// Stop отменяет подписку и закрывает канал.
func (c *PaymentConsumer) Stop() error {
	if c.ch == nil {
		return nil
	}
	c.logger.Info("Stopping PaymentConsumer...")

	if err := c.ch.Cancel(c.consumerTag, false); err != nil {
		c.logger.Error("Failed to cancel consumer", zap.Error(err))
	}
	if err := c.ch.Close(); err != nil {
		c.logger.Error("Failed to close RabbitMQ channel", zap.Error(err))
	}
	c.signal(nil)
	c.logger.Info("PaymentConsumer stopped")
	return nil
}
