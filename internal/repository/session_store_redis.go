package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"itinerary-server/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	itineraryKeyPrefix = "itinerary:"
	DefaultSessionTTL  = 30 * 24 * time.Hour
)

// RedisSessionStore хранит документы маршрутов в Redis с истечением от последней записи.
// Обновления идут через WATCH/MULTI со сверкой поля version.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisSessionStore создает хранилище. ttl <= 0 означает 30 дней.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisSessionStore"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// getter - общее у *redis.Client и *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func itineraryKey(id string) string {
	return itineraryKeyPrefix + id
}

// Save создает документ (пустой ID) или обновляет существующий, если сохраненная версия
// совпадает с it.Version. При успехе it получает ID и новую версию.
func (s *RedisSessionStore) Save(ctx context.Context, it *model.Itinerary) (string, error) {
	if it.ID == "" {
		return s.create(ctx, it)
	}

	key := itineraryKey(it.ID)
	next := *it
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		if stored.Version != it.Version {
			return fmt.Errorf("%w: %s has version %d, write based on %d", model.ErrVersionConflict, it.ID, stored.Version, it.Version)
		}
		next.Version = stored.Version + 1
		next.UpdatedAt = s.now()
		return s.write(ctx, tx, key, &next)
	}, key)
	if err != nil {
		return "", s.wrap(err, "save", it.ID)
	}

	it.Version = next.Version
	it.UpdatedAt = next.UpdatedAt
	s.logger.Debug("Itinerary updated", zap.String("itinerary_id", it.ID), zap.Int64("version", it.Version))
	return it.ID, nil
}

func (s *RedisSessionStore) create(ctx context.Context, it *model.Itinerary) (string, error) {
	doc := *it
	doc.ID = uuid.NewString()
	doc.Version = 1
	doc.UpdatedAt = s.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}

	data, err := json.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("%w: encode itinerary: %w", model.ErrPersistence, err)
	}
	ok, err := s.client.SetNX(ctx, itineraryKey(doc.ID), data, s.ttl).Result()
	if err != nil {
		return "", s.wrap(err, "create", doc.ID)
	}
	if !ok {
		return "", fmt.Errorf("%w: itinerary %s already exists", model.ErrVersionConflict, doc.ID)
	}

	it.ID, it.Version, it.CreatedAt, it.UpdatedAt = doc.ID, doc.Version, doc.CreatedAt, doc.UpdatedAt
	s.logger.Info("Itinerary created", zap.String("itinerary_id", it.ID), zap.Duration("ttl", s.ttl))
	return it.ID, nil
}

// Load читает документ. Неизвестный или истекший id - ErrNotFound.
func (s *RedisSessionStore) Load(ctx context.Context, id string) (*model.Itinerary, error) {
	it, err := s.read(ctx, s.client, itineraryKey(id))
	if err != nil {
		return nil, s.wrap(err, "load", id)
	}
	return it, nil
}

// SetVisibility атомарно меняет видимость и продлевает срок хранения.
func (s *RedisSessionStore) SetVisibility(ctx context.Context, id string, visibility model.Visibility) (*model.Itinerary, error) {
	key := itineraryKey(id)
	var updated *model.Itinerary
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		it, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		it.Visibility = visibility
		it.Version++
		it.UpdatedAt = s.now()
		if err := s.write(ctx, tx, key, it); err != nil {
			return err
		}
		updated = it
		return nil
	}, key)
	if err != nil {
		return nil, s.wrap(err, "set visibility", id)
	}

	s.logger.Info("Itinerary visibility changed", zap.String("itinerary_id", id), zap.String("visibility", string(visibility)))
	return updated, nil
}

func (s *RedisSessionStore) read(ctx context.Context, c getter, key string) (*model.Itinerary, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, key)
		}
		return nil, err
	}
	var it model.Itinerary
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", model.ErrPersistence, key, err)
	}
	return &it, nil
}

// write выполняет SET внутри MULTI; если ключ изменился после WATCH, вернется redis.TxFailedErr.
func (s *RedisSessionStore) write(ctx context.Context, tx *redis.Tx, key string, it *model.Itinerary) error {
	data, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("%w: encode itinerary: %w", model.ErrPersistence, err)
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, s.ttl)
		return nil
	})
	return err
}

// wrap приводит ошибки Redis к таксономии домена
func (s *RedisSessionStore) wrap(err error, op, id string) error {
	switch {
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrVersionConflict),
		errors.Is(err, model.ErrPersistence):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: %s modified concurrently", model.ErrVersionConflict, id)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	s.logger.Error("Redis operation failed", zap.String("op", op), zap.String("itinerary_id", id), zap.Error(err))
	return fmt.Errorf("%w: %s %s: %w", model.ErrPersistence, op, id, err)
}
