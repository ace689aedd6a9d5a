package infrastructure

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/mateusmacedo/go-busticket/internal/busticket/domain"
	"github.com/mateusmacedo/go-busticket/pkg/application"
)

var _ domain.SnapshotStore = (*RedisSnapshotStore)(nil)

// RedisSnapshotStore guarda as mesmas linhas do formato em arquivo em duas listas Redis.
type RedisSnapshotStore struct {
	client     redis.UniversalClient
	busKey     string
	bookingKey string
	logger     application.AppLogger
}

func NewRedisSnapshotStore(client redis.UniversalClient, keyPrefix string, logger application.AppLogger) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		client:     client,
		busKey:     keyPrefix + ":buses",
		bookingKey: keyPrefix + ":bookings",
		logger:     logger,
	}
}

// Save substitui as duas listas em uma única transação MULTI/EXEC.
func (r *RedisSnapshotStore) Save(ctx context.Context, snapshot domain.Snapshot) error {
	busLines := make([]interface{}, 0, len(snapshot.Buses))
	for _, bus := range snapshot.Buses {
		busLines = append(busLines, FormatBusLine(bus))
	}
	bookingLines := make([]interface{}, 0, len(snapshot.Bookings))
	for _, booking := range snapshot.Bookings {
		bookingLines = append(bookingLines, FormatBookingLine(booking))
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.busKey, r.bookingKey)
		if len(busLines) > 0 {
			pipe.RPush(ctx, r.busKey, busLines...)
		}
		if len(bookingLines) > 0 {
			pipe.RPush(ctx, r.bookingKey, bookingLines...)
		}
		return nil
	})
	if err != nil {
		application.LogError(ctx, r.logger, "failed to save snapshot", err, map[string]interface{}{
			"bus_key":     r.busKey,
			"booking_key": r.bookingKey,
		})
		return domain.Wrapf(domain.ErrFileAccess, "redis %s: %v", r.busKey, err)
	}

	application.LogInfo(ctx, r.logger, "snapshot saved", map[string]interface{}{
		"bus_key":  r.busKey,
		"buses":    len(snapshot.Buses),
		"bookings": len(snapshot.Bookings),
	})
	return nil
}

func (r *RedisSnapshotStore) Load(ctx context.Context) (domain.Snapshot, error) {
	var busCmd, bookingCmd *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		busCmd = pipe.LRange(ctx, r.busKey, 0, -1)
		bookingCmd = pipe.LRange(ctx, r.bookingKey, 0, -1)
		return nil
	})
	if err != nil {
		application.LogError(ctx, r.logger, "failed to load snapshot", err, map[string]interface{}{
			"bus_key":     r.busKey,
			"booking_key": r.bookingKey,
		})
		return domain.Snapshot{}, domain.Wrapf(domain.ErrFileAccess, "redis %s: %v", r.busKey, err)
	}

	var snapshot domain.Snapshot
	var busErr, bookingErr error
	snapshot.Buses, busErr = decodeLines(r.busKey, busCmd.Val(), ParseBusLine)
	snapshot.Bookings, bookingErr = decodeLines(r.bookingKey, bookingCmd.Val(), ParseBookingLine)
	if err := multierr.Combine(busErr, bookingErr); err != nil {
		application.LogError(ctx, r.logger, "snapshot loaded with malformed records", err, nil)
		return snapshot, err
	}

	application.LogInfo(ctx, r.logger, "snapshot loaded", map[string]interface{}{
		"bus_key":  r.busKey,
		"buses":    len(snapshot.Buses),
		"bookings": len(snapshot.Bookings),
	})
	return snapshot, nil
}
