package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// BookingConfig 訂票流程與後端選擇
type BookingConfig struct {
	CancellationCutoff time.Duration `mapstructure:"cancellation_cutoff"`
	// memory | postgres
	Persistence string `mapstructure:"persistence"`
	// memory | redis | kafka
	Queue       string `mapstructure:"queue"`
	QueueBuffer int    `mapstructure:"queue_buffer"`
	// memory | redis
	Cache string `mapstructure:"cache"`
}

type PaymentConfig struct {
	SuccessRate float64 `mapstructure:"success_rate"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendKafka    = "kafka"
)

var AppConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "booking-events")
	v.SetDefault("kafka.group_id", "availability-worker")

	v.SetDefault("booking.cancellation_cutoff", 24*time.Hour)
	v.SetDefault("booking.persistence", BackendMemory)
	v.SetDefault("booking.queue", BackendMemory)
	v.SetDefault("booking.queue_buffer", 1024)
	v.SetDefault("booking.cache", BackendMemory)

	v.SetDefault("payment.success_rate", 0.9)

	v.SetDefault("log.level", "info")
}

// LoadConfig 讀取設定：預設值 < YAML 檔 < BOOKING_ 開頭的環境變數
// path 為空時在 ./config 找 config.yaml，找不到就只用預設值與環境變數
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	AppConfig = &cfg
	return AppConfig, nil
}

func (c *Config) validate() error {
	switch c.Booking.Persistence {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("unsupported booking.persistence %q", c.Booking.Persistence)
	}
	switch c.Booking.Queue {
	case BackendMemory, BackendRedis, BackendKafka:
	default:
		return fmt.Errorf("unsupported booking.queue %q", c.Booking.Queue)
	}
	switch c.Booking.Cache {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unsupported booking.cache %q", c.Booking.Cache)
	}
	if c.Booking.CancellationCutoff < 0 {
		return fmt.Errorf("booking.cancellation_cutoff must not be negative")
	}
	if c.Payment.SuccessRate < 0 || c.Payment.SuccessRate > 1 {
		return fmt.Errorf("payment.success_rate must be within [0, 1], got %v", c.Payment.SuccessRate)
	}
	return nil
}

func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "0", Mode: "test", ShutdownTimeout: time.Second},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5433", // 測試 DB 用 5433 port
			User:     "postgres",
			Password: "postgres",
			DBName:   "test_db",
			SSLMode:  "disable",
			MaxConns: 4,
			MinConns: 1,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6380", // 測試 Redis 用 6380 port
			DB:   1,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9093"},
			Topic:   "booking-events-test",
			GroupID: "availability-worker-test",
		},
		Booking: BookingConfig{
			CancellationCutoff: 24 * time.Hour,
			Persistence:        BackendMemory,
			Queue:              BackendMemory,
			QueueBuffer:        64,
			Cache:              BackendMemory,
		},
		Payment: PaymentConfig{SuccessRate: 1},
		Log:     LogConfig{Level: "debug"},
	}
}
