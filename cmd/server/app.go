package main

import (
	"context"
	"fmt"
	"net/http"

	"event-booking-engine/config"
	"event-booking-engine/internal/cache"
	"event-booking-engine/internal/clock"
	"event-booking-engine/internal/database"
	"event-booking-engine/internal/handler"
	"event-booking-engine/internal/payment"
	"event-booking-engine/internal/queue"
	"event-booking-engine/internal/repository"
	"event-booking-engine/internal/service"
	"event-booking-engine/internal/worker"
	"event-booking-engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app 組裝好的服務與需要在關閉時釋放的資源
type app struct {
	router *gin.Engine
	worker worker.AvailabilityWorker

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp 依 booking.* 設定選擇 persistence / queue / cache 後端
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	log := logger.WithComponent("server")

	var (
		pool *pgxpool.Pool
		rdb  *redis.Client
		err  error
	)
	if cfg.Booking.Persistence == config.BackendPostgres {
		pool, err = database.InitDatabase(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := database.ApplyMigrations(ctx, pool); err != nil {
			a.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	if cfg.Booking.Queue == config.BackendRedis || cfg.Booking.Cache == config.BackendRedis {
		rdb, err = database.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	}

	var (
		bookingRepo repository.BookingRepository
		userRepo    repository.UserRepository
	)
	switch cfg.Booking.Persistence {
	case config.BackendPostgres:
		bookingRepo = repository.NewPostgresBookingRepository(pool)
		userRepo = repository.NewPostgresUserRepository(pool)
		// 活動與票種計數器只在記憶體，重啟後不會從 postgres 還原
		log.Warn("events and ticket counters are kept in memory only; stored bookings will not match inventory after a restart")
	default:
		bookingRepo = repository.NewMemoryBookingRepository()
		userRepo = repository.NewMemoryUserRepository()
	}
	eventRepo := repository.NewEventRepository()

	var availability cache.AvailabilityCache
	switch cfg.Booking.Cache {
	case config.BackendRedis:
		availability = cache.NewRedisAvailabilityCache(rdb)
	default:
		availability = cache.NewMemoryAvailabilityCache()
	}

	var events queue.BookingEventQueue
	switch cfg.Booking.Queue {
	case config.BackendRedis:
		events, err = queue.NewRedisStreamBookingEventQueue(ctx, rdb, "", nil)
	case config.BackendKafka:
		events, err = queue.NewKafkaBookingEventQueue(queue.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		})
	default:
		events = queue.NewMemoryBookingEventQueue(cfg.Booking.QueueBuffer)
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init booking event queue: %w", err)
	}
	a.closers = append(a.closers, func() { _ = events.Close() })

	clk := clock.NewSystem()
	gateway := payment.NewSimulatedGateway(cfg.Payment.SuccessRate)
	policy := service.NewCancellationPolicy(cfg.Booking.CancellationCutoff)

	eventService := service.NewEventService(eventRepo, availability, clk)
	userService := service.NewUserService(userRepo, clk)
	bookingService := service.NewBookingService(bookingRepo, eventRepo, userRepo, gateway, policy, events, clk)

	a.worker = worker.NewAvailabilityWorker(eventService, events)
	a.router = newRouter(cfg, bookingService, eventService, userService)

	log.Info("backends selected",
		zap.String("persistence", cfg.Booking.Persistence),
		zap.String("queue", cfg.Booking.Queue),
		zap.String("cache", cfg.Booking.Cache),
	)
	return a, nil
}

func newRouter(cfg *config.Config, bookings service.BookingService, events service.EventService, users service.UserService) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	handler.NewUserHandler(users).RegisterRoutes(router)
	handler.NewEventHandler(events).RegisterRoutes(router)
	handler.NewBookingHandler(bookings).RegisterRoutes(router)
	return router
}
