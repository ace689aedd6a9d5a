package config

import (
	"fmt"
	"slices"

	"github.com/kelseyhightower/envconfig"
)

const (
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"

	TransportLocal     = "local"
	TransportGoChannel = "gochannel"
	TransportRedis     = "redis"
	TransportKafka     = "kafka"
)

// Sem nenhuma variável definida, o programa usa arquivos de texto no diretório
// atual e eventos em processo.
type Config struct {
	Storage StorageConfig
	Events  EventsConfig
	Redis   RedisConfig
	Log     LogConfig
	HTTP    HTTPConfig
}

type StorageConfig struct {
	Backend     string `envconfig:"STORAGE_BACKEND" default:"file"`
	BusFile     string `envconfig:"BUS_FILE" default:"buses.txt"`
	BookingFile string `envconfig:"BOOKING_FILE" default:"bookings.txt"`
	KeyPrefix   string `envconfig:"REDIS_KEY_PREFIX" default:"busticket"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:"host=localhost user=busticket password=busticket dbname=busticket port=5432 sslmode=disable TimeZone=UTC"`
}

type EventsConfig struct {
	Transport     string   `envconfig:"EVENTS_TRANSPORT" default:"local"`
	KafkaBrokers  []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	ConsumerGroup string   `envconfig:"EVENTS_CONSUMER_GROUP" default:"busticket-audit"`
	Consumer      string   `envconfig:"EVENTS_CONSUMER" default:"audit-1"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type LogConfig struct {
	Level       string   `envconfig:"LOG_LEVEL" default:"info"`
	OutputPaths []string `envconfig:"LOG_OUTPUT" default:"stderr"`
}

type HTTPConfig struct {
	Addr string `envconfig:"HTTP_ADDR"`
}

func (c Config) Validate() error {
	if !slices.Contains([]string{StorageFile, StorageRedis, StoragePostgres}, c.Storage.Backend) {
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if !slices.Contains([]string{TransportLocal, TransportGoChannel, TransportRedis, TransportKafka}, c.Events.Transport) {
		return fmt.Errorf("unknown events transport %q", c.Events.Transport)
	}
	if c.Events.Transport == TransportKafka && len(c.Events.KafkaBrokers) == 0 {
		return fmt.Errorf("kafka transport requires at least one broker")
	}
	return nil
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend:     StorageFile,
			BusFile:     "buses.txt",
			BookingFile: "bookings.txt",
			KeyPrefix:   "busticket-test",
		},
		Events: EventsConfig{
			Transport:     TransportLocal,
			ConsumerGroup: "busticket-audit-test",
			Consumer:      "audit-test",
		},
		Redis: RedisConfig{
			Addr: "localhost:16379", // Redis de teste
		},
		Log: LogConfig{
			Level:       "error",
			OutputPaths: []string{"stderr"},
		},
	}
}
