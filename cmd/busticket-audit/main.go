package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/mateusmacedo/go-busticket/internal/busticket"
	"github.com/mateusmacedo/go-busticket/internal/busticket/application"
	"github.com/mateusmacedo/go-busticket/internal/config"
	pkgApp "github.com/mateusmacedo/go-busticket/pkg/application"
	redisAdapter "github.com/mateusmacedo/go-busticket/pkg/infrastructure/redis/adapter"
	zapAdapter "github.com/mateusmacedo/go-busticket/pkg/infrastructure/zaplogger/adapter"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	flagSet := pflag.NewFlagSet("busticket-audit", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.Events.Transport, "transport", cfg.Events.Transport, "activity events transport: redis or kafka")
	flagSet.StringSliceVar(&cfg.Events.KafkaBrokers, "kafka-brokers", cfg.Events.KafkaBrokers, "kafka brokers")
	flagSet.StringVar(&cfg.Redis.Addr, "redis-addr", cfg.Redis.Addr, "redis address")
	flagSet.StringVar(&cfg.Events.ConsumerGroup, "group", cfg.Events.ConsumerGroup, "consumer group")
	flagSet.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if busticket.InProcess(cfg.Events.Transport) {
		return fmt.Errorf("transport %q is in-process; the audit consumer needs redis or kafka", cfg.Events.Transport)
	}

	appLogger, err := zapAdapter.NewZapAppLogger(zapAdapter.Options{
		AppName:     "busticket-audit",
		Level:       cfg.Log.Level,
		OutputPaths: cfg.Log.OutputPaths,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient redis.UniversalClient
	if cfg.Events.Transport == config.TransportRedis {
		redisClient = redisAdapter.NewRedisClient(redisAdapter.ClientOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisAdapter.Close(redisClient)
		if err := redisAdapter.Ping(ctx, redisClient); err != nil {
			return fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
	}

	eventBus, err := busticket.NewActivityEventBus(cfg.Events, redisClient, true, appLogger)
	if err != nil {
		return err
	}
	application.RegisterActivityHandler(eventBus, application.NewActivityAuditHandler(appLogger))

	pkgApp.LogInfo(ctx, appLogger, "audit consumer started", map[string]interface{}{
		"transport": cfg.Events.Transport,
		"group":     cfg.Events.ConsumerGroup,
	})

	<-ctx.Done()
	pkgApp.LogInfo(context.Background(), appLogger, "Sinal capturado, encerrando consumidor", nil)

	// publisher e subscriber do redisstream compartilham o cliente e o fecham ao encerrar
	if err := eventBus.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
