package busticket

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/mateusmacedo/go-busticket/internal/busticket/application"
	"github.com/mateusmacedo/go-busticket/internal/config"
	pkgApp "github.com/mateusmacedo/go-busticket/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busticket/pkg/domain"
	pkgInfra "github.com/mateusmacedo/go-busticket/pkg/infrastructure"
	channelsAdapter "github.com/mateusmacedo/go-busticket/pkg/infrastructure/channels/adapter"
	kafkaAdapter "github.com/mateusmacedo/go-busticket/pkg/infrastructure/kafka/adapter"
	redisAdapter "github.com/mateusmacedo/go-busticket/pkg/infrastructure/redis/adapter"
	watermillAdapter "github.com/mateusmacedo/go-busticket/pkg/infrastructure/watermill/adapter"
)

// InProcess indica se os manipuladores registrados no barramento rodam no mesmo processo que publica.
func InProcess(transport string) bool {
	return transport == config.TransportLocal || transport == config.TransportGoChannel
}

// NewActivityEventBus monta o barramento de eventos do transporte configurado.
// Com subscribe=false os transportes externos só publicam; o consumo fica a cargo do busticket-audit.
// redisClient só é usado pelo transporte redis.
func NewActivityEventBus(
	cfg config.EventsConfig,
	redisClient redis.UniversalClient,
	subscribe bool,
	logger pkgApp.AppLogger,
) (application.ActivityEventBus, error) {
	wmLogger := watermillAdapter.NewWatermillLoggerAdapter(logger)

	var (
		publisher  message.Publisher
		subscriber message.Subscriber
	)

	switch cfg.Transport {
	case config.TransportLocal:
		return pkgInfra.NewSimpleEventBus[pkgDomain.Event[application.ActivityData], application.ActivityData](logger), nil

	case config.TransportGoChannel:
		pubSub := channelsAdapter.NewGoChannelPubSub(wmLogger)
		publisher, subscriber = pubSub, pubSub

	case config.TransportRedis:
		pub, err := redisAdapter.NewRedisStreamPublisher(redisClient, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("redis stream publisher: %w", err)
		}
		publisher = pub
		if subscribe {
			sub, err := redisAdapter.NewRedisStreamSubscriber(redisClient, cfg.ConsumerGroup, cfg.Consumer, wmLogger)
			if err != nil {
				_ = pub.Close()
				return nil, fmt.Errorf("redis stream subscriber: %w", err)
			}
			subscriber = sub
		}

	case config.TransportKafka:
		pub, err := kafkaAdapter.NewKafkaPublisher(cfg.KafkaBrokers, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		publisher = pub
		if subscribe {
			sub, err := kafkaAdapter.NewKafkaSubscriber(cfg.KafkaBrokers, cfg.ConsumerGroup, wmLogger)
			if err != nil {
				_ = pub.Close()
				return nil, fmt.Errorf("kafka subscriber: %w", err)
			}
			subscriber = sub
		}

	default:
		return nil, fmt.Errorf("unknown events transport %q", cfg.Transport)
	}

	return watermillAdapter.NewWatermillEventBus[pkgDomain.Event[application.ActivityData], application.ActivityData](publisher, subscriber, logger), nil
}
