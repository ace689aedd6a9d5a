package adapter

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/multierr"

	"github.com/mateusmacedo/go-busticket/pkg/application"
	"github.com/mateusmacedo/go-busticket/pkg/domain"
)

// WatermillEventBus publica eventos como mensagens JSON no tópico com o nome do
// evento. Os manipuladores registrados consomem o mesmo tópico através do
// subscriber, portanto funcionam com qualquer transporte do watermill
// (gochannel, redisstream, kafka).
type WatermillEventBus[E domain.Event[D], D any] struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     application.AppLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatermillEventBus aceita subscriber nil quando o processo só publica.
func NewWatermillEventBus[E domain.Event[D], D any](publisher message.Publisher, subscriber message.Subscriber, logger application.AppLogger) *WatermillEventBus[E, D] {
	ctx, cancel := context.WithCancel(context.Background())
	return &WatermillEventBus[E, D]{
		publisher:  publisher,
		subscriber: subscriber,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (bus *WatermillEventBus[E, D]) RegisterHandler(eventName string, handler application.EventHandler[E, D]) {
	if bus.subscriber == nil {
		application.LogError(bus.ctx, bus.logger, "event bus has no subscriber", nil, map[string]interface{}{
			"event_name": eventName,
		})
		return
	}

	// A assinatura é feita antes de retornar para que nenhuma publicação posterior se perca.
	messages, err := bus.subscriber.Subscribe(bus.ctx, eventName)
	if err != nil {
		application.LogError(bus.ctx, bus.logger, "error subscribing to event", err, map[string]interface{}{
			"event_name": eventName,
		})
		return
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		for msg := range messages {
			bus.handleMessage(eventName, handler, msg)
		}
	}()
}

func (bus *WatermillEventBus[E, D]) handleMessage(eventName string, handler application.EventHandler[E, D], msg *message.Message) {
	ctx := bus.ctx
	if requestID := msg.Metadata.Get(requestIDMetadataKey); requestID != "" {
		ctx = application.WithRequestID(ctx, requestID)
	}

	payload, err := application.UnmarshalPayload[D](msg.Payload)
	if err != nil {
		application.LogError(ctx, bus.logger, "error unmarshalling event payload", err, map[string]interface{}{
			"event_name": eventName,
		})
		msg.Nack()
		return
	}

	typedEvent, ok := domain.NewEvent(eventName, payload).(E)
	if !ok {
		application.LogError(ctx, bus.logger, "error asserting event type", nil, map[string]interface{}{
			"event_name": eventName,
		})
		msg.Nack()
		return
	}

	if err := handler.Handle(ctx, typedEvent); err != nil {
		application.LogError(ctx, bus.logger, "error handling event", err, map[string]interface{}{
			"event_name": eventName,
		})
		msg.Nack()
		return
	}

	msg.Ack()
}

func (bus *WatermillEventBus[E, D]) Publish(ctx context.Context, event E) error {
	eventName := event.EventName()

	payload, err := application.MarshalPayload(event.Payload())
	if err != nil {
		application.LogError(ctx, bus.logger, "error marshalling event payload", err, map[string]interface{}{
			"event_name": eventName,
		})
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if requestID, ok := application.RequestIDFromContext(ctx); ok {
		msg.Metadata.Set(requestIDMetadataKey, requestID)
	}

	if err := bus.publisher.Publish(eventName, msg); err != nil {
		application.LogError(ctx, bus.logger, "error publishing event", err, map[string]interface{}{
			"event_name": eventName,
		})
		return err
	}

	application.LogDebug(ctx, bus.logger, "event published", map[string]interface{}{
		"event_name": eventName,
		"message_id": msg.UUID,
	})
	return nil
}

// Close encerra as assinaturas e fecha publisher e subscriber.
func (bus *WatermillEventBus[E, D]) Close() error {
	bus.cancel()

	err := bus.publisher.Close()
	// gochannel serve como publisher e subscriber ao mesmo tempo.
	if bus.subscriber != nil && any(bus.subscriber) != any(bus.publisher) {
		err = multierr.Append(err, bus.subscriber.Close())
	}
	bus.wg.Wait()
	return err
}

const requestIDMetadataKey = "request_id"
