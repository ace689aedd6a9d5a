package infrastructure_test

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/mateusmacedo/go-busticket/pkg/application"
	"github.com/mateusmacedo/go-busticket/pkg/infrastructure/zaplogger/adapter"
)

func newTestLogger(t *testing.T) application.AppLogger {
	t.Helper()
	return adapter.NewZapAppLoggerFrom(zaptest.NewLogger(t))
}
