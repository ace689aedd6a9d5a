package application

import (
	"context"

	pkgApp "github.com/mateusmacedo/go-busticket/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busticket/pkg/domain"
)

type activityAuditHandler struct {
	logger pkgApp.AppLogger
}

func (h *activityAuditHandler) Handle(ctx context.Context, event pkgDomain.Event[ActivityData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return ctx.Err()
	}

	pkgApp.LogInfo(ctx, h.logger, "activity recorded", map[string]interface{}{
		"event":    event.EventName(),
		"activity": event.Payload(),
	})
	return nil
}

// NewActivityAuditHandler registra cada evento de atividade no log de auditoria.
func NewActivityAuditHandler(logger pkgApp.AppLogger) pkgApp.EventHandler[pkgDomain.Event[ActivityData], ActivityData] {
	return &activityAuditHandler{
		logger: logger,
	}
}

// RegisterActivityHandler assina o manipulador em todos os eventos de atividade.
func RegisterActivityHandler(bus ActivityEventBus, handler pkgApp.EventHandler[pkgDomain.Event[ActivityData], ActivityData]) {
	for _, name := range ActivityEventNames {
		bus.RegisterHandler(name, handler)
	}
}
