package busticket

import (
	"context"
	"fmt"
	"io"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/mateusmacedo/go-busticket/internal/busticket/application"
	"github.com/mateusmacedo/go-busticket/internal/busticket/domain"
	"github.com/mateusmacedo/go-busticket/internal/busticket/infrastructure"
	"github.com/mateusmacedo/go-busticket/internal/config"
	pkgApp "github.com/mateusmacedo/go-busticket/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busticket/pkg/domain"
	redisAdapter "github.com/mateusmacedo/go-busticket/pkg/infrastructure/redis/adapter"
)

type BusTicketSlice struct {
	service     *application.TicketService
	metrics     *infrastructure.OperationMetrics
	httpHandler *infrastructure.BusTicketHTTPHandler
	idGenerator pkgDomain.IDGenerator[string]
	logger      pkgApp.AppLogger

	closers []func() error
}

// NewBusTicketSlice monta o serviço de passagens com o armazenamento e o
// transporte de eventos definidos em cfg. Close libera as conexões abertas.
func NewBusTicketSlice(
	ctx context.Context,
	cfg config.Config,
	idGenerator pkgDomain.IDGenerator[string],
	logger pkgApp.AppLogger,
) (*BusTicketSlice, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &BusTicketSlice{
		metrics:     infrastructure.NewOperationMetrics(),
		idGenerator: idGenerator,
		logger:      logger,
	}

	var redisClient redis.UniversalClient
	if cfg.Storage.Backend == config.StorageRedis || cfg.Events.Transport == config.TransportRedis {
		redisClient = redisAdapter.NewRedisClient(redisAdapter.ClientOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, func() error { return redisAdapter.Close(redisClient) })
		if err := redisAdapter.Ping(ctx, redisClient); err != nil {
			return nil, multierr.Append(fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err), s.Close())
		}
	}

	snapshots, err := newSnapshotStore(cfg.Storage, redisClient, logger)
	if err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	if closer, ok := snapshots.(io.Closer); ok {
		s.closers = append(s.closers, closer.Close)
	}

	eventBus, err := NewActivityEventBus(cfg.Events, redisClient, InProcess(cfg.Events.Transport), logger)
	if err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	// o barramento fecha antes do cliente redis que ele usa
	s.closers = append([]func() error{eventBus.Close}, s.closers...)

	if InProcess(cfg.Events.Transport) {
		application.RegisterActivityHandler(eventBus, application.NewActivityAuditHandler(logger))
	}

	s.service = application.NewTicketService(
		infrastructure.NewInMemoryRecordStore(),
		snapshots,
		eventBus,
		s.metrics,
		logger,
	)
	s.httpHandler = infrastructure.NewBusTicketHTTPHandler(s.service, idGenerator, s.metrics.Handler(), logger)

	pkgApp.LogInfo(ctx, logger, "bus ticket slice ready", map[string]interface{}{
		"storage":   cfg.Storage.Backend,
		"transport": cfg.Events.Transport,
	})
	return s, nil
}

func newSnapshotStore(cfg config.StorageConfig, redisClient redis.UniversalClient, logger pkgApp.AppLogger) (domain.SnapshotStore, error) {
	switch cfg.Backend {
	case config.StorageFile:
		return infrastructure.NewFileSnapshotStore(cfg.BusFile, cfg.BookingFile, logger), nil
	case config.StorageRedis:
		return infrastructure.NewRedisSnapshotStore(redisClient, cfg.KeyPrefix, logger), nil
	case config.StoragePostgres:
		store, err := infrastructure.NewGormSnapshotStore(cfg.PostgresDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("postgres snapshot store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func (s *BusTicketSlice) Service() *application.TicketService {
	return s.service
}

func (s *BusTicketSlice) RegisterRoutes(router chi.Router) {
	s.httpHandler.RegisterRoutes(router)
}

func (s *BusTicketSlice) NewConsole(in io.Reader, out io.Writer) *infrastructure.Console {
	return infrastructure.NewConsole(s.service, s.idGenerator, s.logger, in, out)
}

func (s *BusTicketSlice) Close() error {
	var err error
	for _, closeFn := range s.closers {
		err = multierr.Append(err, closeFn())
	}
	s.closers = nil
	return err
}
