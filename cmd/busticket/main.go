package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/pflag"

	"github.com/mateusmacedo/go-busticket/internal/busticket"
	"github.com/mateusmacedo/go-busticket/internal/config"
	pkgApp "github.com/mateusmacedo/go-busticket/pkg/application"
	pkgInfra "github.com/mateusmacedo/go-busticket/pkg/infrastructure"
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

	flagSet := pflag.NewFlagSet("busticket", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.HTTP.Addr, "serve", cfg.HTTP.Addr, "serve the HTTP API on this address instead of the console menu (e.g. :8080)")
	flagSet.StringVar(&cfg.Storage.Backend, "storage", cfg.Storage.Backend, "persistence backend: file, redis or postgres")
	flagSet.StringVar(&cfg.Storage.BusFile, "bus-file", cfg.Storage.BusFile, "bus records file for the file backend")
	flagSet.StringVar(&cfg.Storage.BookingFile, "booking-file", cfg.Storage.BookingFile, "booking records file for the file backend")
	flagSet.StringVar(&cfg.Events.Transport, "transport", cfg.Events.Transport, "activity events transport: local, gochannel, redis or kafka")
	flagSet.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintln(os.Stdout, "Usage: busticket [flags]")
		flagSet.PrintDefaults()
		return nil
	}

	// No menu, os logs dividem o terminal com o usuário; só avisos aparecem por padrão.
	_, levelFromEnv := os.LookupEnv("LOG_LEVEL")
	if cfg.HTTP.Addr == "" && !levelFromEnv && !flagSet.Changed("log-level") {
		cfg.Log.Level = "warn"
	}

	appLogger, err := zapAdapter.NewZapAppLogger(zapAdapter.Options{
		AppName:     "busticket",
		Level:       cfg.Log.Level,
		OutputPaths: cfg.Log.OutputPaths,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slice, err := busticket.NewBusTicketSlice(ctx, cfg, pkgInfra.GenerateUUID, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := slice.Close(); err != nil {
			pkgApp.LogError(context.Background(), appLogger, "Erro ao encerrar recursos", err, nil)
		}
	}()

	if cfg.HTTP.Addr == "" {
		return runConsole(ctx, slice)
	}
	return serve(ctx, cfg.HTTP.Addr, slice, appLogger)
}

// runConsole retorna ao receber um sinal mesmo com o menu bloqueado na leitura da entrada.
func runConsole(ctx context.Context, slice *busticket.BusTicketSlice) error {
	done := make(chan error, 1)
	go func() {
		done <- slice.NewConsole(os.Stdin, os.Stdout).Run(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		fmt.Fprintln(os.Stdout)
		return nil
	}
}

func serve(ctx context.Context, addr string, slice *busticket.BusTicketSlice, appLogger pkgApp.AppLogger) error {
	router := chi.NewRouter()
	slice.RegisterRoutes(router)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info(ctx, "Server starting on:"+addr, nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	appLogger.Info(context.Background(), "Encerrando servidor...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	appLogger.Info(context.Background(), "Servidor encerrado", nil)
	return nil
}
