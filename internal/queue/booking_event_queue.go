package queue

import (
	"context"
	"sync"

	"event-booking-engine/internal/model"
	"event-booking-engine/pkg/logger"

	"go.uber.org/zap"
)

const defaultMaxRetryCount = 5

type Delivery struct {
	Data model.BookingEvent
	Ack  func()
	Nack func(requeue bool)
}

type BookingEventQueue interface {
	// 發送訂單生命週期事件到隊列
	PublishBookingEvent(ctx context.Context, evt model.BookingEvent) error
	// 訂閱事件隊列，ctx 結束時 channel 關閉
	SubscribeBookingEvents(ctx context.Context) (<-chan Delivery, error)
	Close() error
}

type envelope struct {
	evt     model.BookingEvent
	retries int
}

// MemoryBookingEventQueue 使用 Go channel 來模擬 MQ 隊列
type MemoryBookingEventQueue struct {
	ch         chan envelope
	maxRetries int

	closeOnce sync.Once
	done      chan struct{}
}

func NewMemoryBookingEventQueue(bufferSize int) BookingEventQueue {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &MemoryBookingEventQueue{
		ch:         make(chan envelope, bufferSize),
		maxRetries: defaultMaxRetryCount,
		done:       make(chan struct{}),
	}
}

func (q *MemoryBookingEventQueue) PublishBookingEvent(ctx context.Context, evt model.BookingEvent) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.ch <- envelope{evt: evt}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrQueueClosed
	}
}

func (q *MemoryBookingEventQueue) SubscribeBookingEvents(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.done:
				return
			case env := <-q.ch:
				// 將原始事件包裝成 Delivery 格式給 Worker
				d := Delivery{
					Data: env.evt,
					Ack:  func() { /* 記憶體版不用做特別動作 */ },
					Nack: func(requeue bool) { q.requeue(env, requeue) },
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// requeue 重回隊列，超過重試次數或隊列已滿時丟棄
func (q *MemoryBookingEventQueue) requeue(env envelope, requeue bool) {
	if !requeue {
		return
	}
	env.retries++
	log := logger.WithComponent("mq")
	if env.retries >= q.maxRetries {
		log.Warn("discard poison message",
			zap.String("booking_id", env.evt.BookingID),
			zap.Int("retries", env.retries),
		)
		return
	}
	select {
	case q.ch <- env:
	default:
		log.Warn("queue full, dropping requeued message", zap.String("booking_id", env.evt.BookingID))
	}
}

func (q *MemoryBookingEventQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}
