package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"event-booking-engine/internal/model"
	"event-booking-engine/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const headerRetryCount = "x-retry-count"

type KafkaConfig struct {
	Brokers       []string
	Topic         string
	GroupID       string
	MaxRetryCount int
}

// KafkaBookingEventQueue 以 event id 為 key，同一活動的事件落在同一 partition
type KafkaBookingEventQueue struct {
	writer *kafka.Writer
	cfg    KafkaConfig
	log    *zap.Logger

	mu     sync.Mutex
	reader *kafka.Reader
	closed bool
}

func NewKafkaBookingEventQueue(cfg KafkaConfig) (BookingEventQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if cfg.MaxRetryCount <= 0 {
		cfg.MaxRetryCount = defaultMaxRetryCount
	}

	log := logger.WithComponent("mq")
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		MaxAttempts:            3,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Logger:                 kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger:            kafka.LoggerFunc(log.Sugar().Errorf),
	}

	return &KafkaBookingEventQueue{
		writer: writer,
		cfg:    cfg,
		log:    log,
	}, nil
}

func (q *KafkaBookingEventQueue) PublishBookingEvent(ctx context.Context, evt model.BookingEvent) error {
	msg, err := encodeKafkaMessage(evt, 0)
	if err != nil {
		return err
	}
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (q *KafkaBookingEventQueue) SubscribeBookingEvents(ctx context.Context) (<-chan Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}
	if q.reader == nil {
		q.reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     q.cfg.Brokers,
			Topic:       q.cfg.Topic,
			GroupID:     q.cfg.GroupID,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     500 * time.Millisecond,
			StartOffset: kafka.FirstOffset,
			Logger:      kafka.LoggerFunc(func(string, ...any) {}),
			ErrorLogger: kafka.LoggerFunc(q.log.Sugar().Errorf),
		})
	}
	reader := q.reader

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			kmsg, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				q.log.Error("kafka fetch failed", zap.Error(err))
				sleepCtx(ctx, time.Second)
				continue
			}

			evt, retries, err := decodeKafkaMessage(kmsg)
			if err != nil {
				q.log.Warn("invalid message, discarding", zap.Int64("offset", kmsg.Offset), zap.Error(err))
				q.commit(ctx, reader, kmsg)
				continue
			}

			d := Delivery{
				Data: evt,
				Ack:  func() { q.commit(ctx, reader, kmsg) },
				Nack: func(requeue bool) {
					if requeue {
						q.republish(ctx, evt, retries+1)
					}
					q.commit(ctx, reader, kmsg)
				},
			}
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// republish 把消息重新寫回 topic 尾端，超過重試次數則丟棄
func (q *KafkaBookingEventQueue) republish(ctx context.Context, evt model.BookingEvent, retries int) {
	if retries >= q.cfg.MaxRetryCount {
		q.log.Warn("discard poison message",
			zap.String("booking_id", evt.BookingID),
			zap.Int("retries", retries),
			zap.Int("max_retries", q.cfg.MaxRetryCount),
		)
		return
	}
	msg, err := encodeKafkaMessage(evt, retries)
	if err == nil {
		err = q.writer.WriteMessages(context.WithoutCancel(ctx), msg)
	}
	if err != nil {
		q.log.Error("requeue failed", zap.String("booking_id", evt.BookingID), zap.Error(err))
	}
}

func (q *KafkaBookingEventQueue) commit(ctx context.Context, reader *kafka.Reader, msg kafka.Message) {
	if err := reader.CommitMessages(context.WithoutCancel(ctx), msg); err != nil {
		q.log.Error("kafka commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
	}
}

func (q *KafkaBookingEventQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true

	err := q.writer.Close()
	if q.reader != nil {
		if rerr := q.reader.Close(); err == nil {
			err = rerr
		}
	}
	return err
}

func encodeKafkaMessage(evt model.BookingEvent, retries int) (kafka.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal booking event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(evt.EventID),
		Value: payload,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
			{Key: headerRetryCount, Value: []byte(strconv.Itoa(retries))},
		},
	}, nil
}

func decodeKafkaMessage(msg kafka.Message) (model.BookingEvent, int, error) {
	var evt model.BookingEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return model.BookingEvent{}, 0, fmt.Errorf("unmarshal booking event: %w", err)
	}
	retries := 0
	for _, h := range msg.Headers {
		if h.Key != headerRetryCount {
			continue
		}
		n, err := strconv.Atoi(string(h.Value))
		if err != nil {
			return model.BookingEvent{}, 0, fmt.Errorf("invalid %s header: %w", headerRetryCount, err)
		}
		retries = n
	}
	return evt, retries, nil
}
