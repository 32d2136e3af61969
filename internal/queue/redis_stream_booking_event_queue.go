package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-booking-engine/internal/model"
	"event-booking-engine/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	StreamKey          = "bookings:events"
	ConsumerGroupName  = "availability-workers"
	ConsumerNamePrefix = "worker"

	eventField = "event"
)

// RedisStreamConfig 可注入的逾時與重試設定；零值欄位使用預設
type RedisStreamConfig struct {
	StreamKey          string
	GroupName          string
	ClaimMinIdleTime   time.Duration // PEL 中超過此時間才被 XAUTOCLAIM 領取
	MaxRetryCount      int           // 超過此次數視為毒藥消息並丟棄
	ReadGroupBlockTime time.Duration
}

func defaultRedisStreamConfig() RedisStreamConfig {
	return RedisStreamConfig{
		StreamKey:          StreamKey,
		GroupName:          ConsumerGroupName,
		ClaimMinIdleTime:   5 * time.Second,
		MaxRetryCount:      defaultMaxRetryCount,
		ReadGroupBlockTime: 2 * time.Second,
	}
}

type RedisStreamBookingEventQueue struct {
	client       *redis.Client
	consumerName string
	cfg          RedisStreamConfig
	log          *zap.Logger
}

// NewRedisStreamBookingEventQueue 建立 Redis Stream 版 queue；config 可為 nil
func NewRedisStreamBookingEventQueue(ctx context.Context, client *redis.Client, consumerID string, config *RedisStreamConfig) (BookingEventQueue, error) {
	if consumerID == "" {
		consumerID = uuid.NewString()
	}
	cfg := defaultRedisStreamConfig()
	if config != nil {
		if config.StreamKey != "" {
			cfg.StreamKey = config.StreamKey
		}
		if config.GroupName != "" {
			cfg.GroupName = config.GroupName
		}
		if config.ClaimMinIdleTime > 0 {
			cfg.ClaimMinIdleTime = config.ClaimMinIdleTime
		}
		if config.MaxRetryCount > 0 {
			cfg.MaxRetryCount = config.MaxRetryCount
		}
		if config.ReadGroupBlockTime > 0 {
			cfg.ReadGroupBlockTime = config.ReadGroupBlockTime
		}
	}

	q := &RedisStreamBookingEventQueue{
		client:       client,
		consumerName: fmt.Sprintf("%s:%s", ConsumerNamePrefix, consumerID),
		cfg:          cfg,
		log:          logger.WithComponent("mq"),
	}
	if err := q.ensureConsumerGroup(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}
	return q, nil
}

func (q *RedisStreamBookingEventQueue) ensureConsumerGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.cfg.StreamKey, q.cfg.GroupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (q *RedisStreamBookingEventQueue) PublishBookingEvent(ctx context.Context, evt model.BookingEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.StreamKey,
		ID:     "*",
		Values: map[string]interface{}{eventField: string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

func (q *RedisStreamBookingEventQueue) SubscribeBookingEvents(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		claimDone := make(chan struct{})
		go func() {
			defer close(claimDone)
			q.runAutoClaim(ctx, out)
		}()
		q.runReadLoop(ctx, out)
		<-claimDone
	}()
	return out, nil
}

// runReadLoop 只讀 ">"（新訊息）；Pending 的訊息由 XAUTOCLAIM 超時後領回重試
func (q *RedisStreamBookingEventQueue) runReadLoop(ctx context.Context, out chan<- Delivery) {
	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.cfg.GroupName,
			Consumer: q.consumerName,
			Streams:  []string{q.cfg.StreamKey, ">"},
			Count:    10,
			Block:    q.cfg.ReadGroupBlockTime,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.log.Error("XReadGroup failed", zap.Error(err))
			sleepCtx(ctx, time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if !q.deliver(ctx, out, msg) {
					return
				}
			}
		}
	}
}

// runAutoClaim 定時用 XAUTOCLAIM 領取超時未處理的消息
func (q *RedisStreamBookingEventQueue) runAutoClaim(ctx context.Context, out chan<- Delivery) {
	ticker := time.NewTicker(q.cfg.ClaimMinIdleTime)
	defer ticker.Stop()
	startID := "0-0"

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		claimed, nextID, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   q.cfg.StreamKey,
			Group:    q.cfg.GroupName,
			Consumer: q.consumerName,
			MinIdle:  q.cfg.ClaimMinIdleTime,
			Count:    10,
			Start:    startID,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return
			}
			q.log.Error("XAutoClaim failed", zap.Error(err))
			continue
		}
		startID = "0-0"
		if nextID != "" {
			startID = nextID
		}

		for _, msg := range claimed {
			if q.isPoison(ctx, msg.ID) {
				continue
			}
			if !q.deliver(ctx, out, msg) {
				return
			}
		}
	}
}

// isPoison 重試次數超過上限的消息直接 ack 丟棄
func (q *RedisStreamBookingEventQueue) isPoison(ctx context.Context, messageID string) bool {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.cfg.StreamKey,
		Group:  q.cfg.GroupName,
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		q.log.Warn("XPendingExt failed", zap.String("message_id", messageID), zap.Error(err))
		return false
	}
	if len(pending) == 0 {
		return false
	}

	retries := int(pending[0].RetryCount)
	if retries < q.cfg.MaxRetryCount {
		return false
	}
	q.log.Warn("discard poison message",
		zap.String("message_id", messageID),
		zap.Int("retries", retries),
		zap.Int("max_retries", q.cfg.MaxRetryCount),
	)
	q.ack(ctx, messageID)
	return true
}

// deliver 組裝 Delivery 並投遞，ctx 結束時回傳 false
func (q *RedisStreamBookingEventQueue) deliver(ctx context.Context, out chan<- Delivery, msg redis.XMessage) bool {
	d, err := q.newDelivery(ctx, msg)
	if err != nil {
		q.log.Warn("invalid message, discarding", zap.String("message_id", msg.ID), zap.Error(err))
		q.ack(ctx, msg.ID)
		return true
	}
	select {
	case out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

func (q *RedisStreamBookingEventQueue) newDelivery(ctx context.Context, msg redis.XMessage) (Delivery, error) {
	raw, ok := msg.Values[eventField].(string)
	if !ok {
		return Delivery{}, fmt.Errorf("missing %s field", eventField)
	}
	var evt model.BookingEvent
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		return Delivery{}, fmt.Errorf("unmarshal booking event: %w", err)
	}

	msgID := msg.ID
	return Delivery{
		Data: evt,
		Ack:  func() { q.ack(ctx, msgID) },
		Nack: func(requeue bool) {
			if requeue {
				// 消息留在 PEL，等 ClaimMinIdleTime 後由 XAUTOCLAIM 領取，形成延遲重試
				q.log.Info("message nack(requeue), will retry",
					zap.String("message_id", msgID),
					zap.Duration("claim_min_idle", q.cfg.ClaimMinIdleTime),
				)
				return
			}
			q.ack(ctx, msgID)
		},
	}, nil
}

func (q *RedisStreamBookingEventQueue) ack(ctx context.Context, messageID string) {
	if err := q.client.XAck(context.WithoutCancel(ctx), q.cfg.StreamKey, q.cfg.GroupName, messageID).Err(); err != nil {
		q.log.Error("XAck failed", zap.String("message_id", messageID), zap.Error(err))
	}
}

// Close 不關閉 redis client，client 由呼叫端管理
func (q *RedisStreamBookingEventQueue) Close() error {
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
