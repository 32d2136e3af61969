package worker

import (
	"context"

	"event-booking-engine/internal/queue"
	"event-booking-engine/internal/service"
	"event-booking-engine/pkg/logger"

	"go.uber.org/zap"
)

type AvailabilityWorker interface {
	// 訂閱訂單事件隊列，回傳的 channel 在消費結束後關閉
	Start(ctx context.Context) (<-chan struct{}, error)
}

type AvailabilityWorkerImpl struct {
	service service.EventService
	queue   queue.BookingEventQueue
	log     *zap.Logger
}

func NewAvailabilityWorker(service service.EventService, queue queue.BookingEventQueue) AvailabilityWorker {
	return &AvailabilityWorkerImpl{
		service: service,
		queue:   queue,
		log:     logger.WithComponent("worker"),
	}
}

func (w *AvailabilityWorkerImpl) Start(ctx context.Context) (<-chan struct{}, error) {
	msgs, err := w.queue.SubscribeBookingEvents(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			// 事件只帶 event id，實際數量一律從票種計數器重新讀
			err := w.service.SyncAvailability(ctx, msg.Data.EventID)
			if err != nil {
				w.log.Warn("sync availability failed, requeue",
					zap.String("booking_id", msg.Data.BookingID),
					zap.String("event_id", msg.Data.EventID),
					zap.String("type", string(msg.Data.Type)),
					zap.Error(err),
				)
				msg.Nack(true)
				continue
			}
			msg.Ack()
		}
		w.log.Info("availability worker stopped")
	}()
	return done, nil
}
