package infrastructure_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mateusmacedo/go-busticket/pkg/domain"
	"github.com/mateusmacedo/go-busticket/pkg/infrastructure"
	"github.com/mateusmacedo/go-busticket/pkg/infrastructure/zaplogger/adapter"
)

type handlerFunc func(ctx context.Context, event domain.Event[int]) error

func (f handlerFunc) Handle(ctx context.Context, event domain.Event[int]) error {
	return f(ctx, event)
}

func TestSimpleEventBus_DeliversInRegistrationOrder(t *testing.T) {
	bus := infrastructure.NewSimpleEventBus[domain.Event[int], int](adapter.NewZapAppLoggerFrom(zaptest.NewLogger(t)))

	var calls []string
	bus.RegisterHandler("Counted", handlerFunc(func(_ context.Context, e domain.Event[int]) error {
		calls = append(calls, "first")
		assert.Equal(t, 3, e.Payload())
		return nil
	}))
	bus.RegisterHandler("Counted", handlerFunc(func(context.Context, domain.Event[int]) error {
		calls = append(calls, "second")
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), domain.NewEvent("Counted", 3)))
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.NoError(t, bus.Close())
}

func TestSimpleEventBus_WithoutHandlersIsNoop(t *testing.T) {
	bus := infrastructure.NewSimpleEventBus[domain.Event[int], int](adapter.NewZapAppLoggerFrom(zaptest.NewLogger(t)))

	assert.NoError(t, bus.Publish(context.Background(), domain.NewEvent("Nobody", 1)))
}

func TestSimpleEventBus_AggregatesHandlerErrors(t *testing.T) {
	bus := infrastructure.NewSimpleEventBus[domain.Event[int], int](adapter.NewZapAppLoggerFrom(zaptest.NewLogger(t)))
	errFirst := errors.New("first")
	errSecond := errors.New("second")

	bus.RegisterHandler("Failing", handlerFunc(func(context.Context, domain.Event[int]) error { return errFirst }))
	bus.RegisterHandler("Failing", handlerFunc(func(context.Context, domain.Event[int]) error { return errSecond }))

	err := bus.Publish(context.Background(), domain.NewEvent("Failing", 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, errFirst)
	assert.ErrorIs(t, err, errSecond)
}

func TestSimpleEventBus_StopsOnCanceledContext(t *testing.T) {
	bus := infrastructure.NewSimpleEventBus[domain.Event[int], int](adapter.NewZapAppLoggerFrom(zaptest.NewLogger(t)))
	called := false
	bus.RegisterHandler("Canceled", handlerFunc(func(context.Context, domain.Event[int]) error {
		called = true
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bus.Publish(ctx, domain.NewEvent("Canceled", 0))
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestGenerateUUID_IsUnique(t *testing.T) {
	first := infrastructure.GenerateUUID()
	second := infrastructure.GenerateUUID()

	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)
}
