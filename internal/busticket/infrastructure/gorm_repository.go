package infrastructure

import (
	"context"

	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mateusmacedo/go-busticket/internal/busticket/domain"
	"github.com/mateusmacedo/go-busticket/pkg/application"
)

var _ domain.SnapshotStore = (*GormSnapshotStore)(nil)

// busRow e bookingRow guardam a posição na listagem, já que o banco não preserva ordem de inserção.
type busRow struct {
	ID             int    `gorm:"primaryKey;autoIncrement:false"`
	Position       int    `gorm:"index;not null"`
	DriverName     string `gorm:"not null"`
	Destination    string `gorm:"not null"`
	AvailableSeats int    `gorm:"not null"`
}

func (busRow) TableName() string { return "buses" }

type bookingRow struct {
	ID            int    `gorm:"primaryKey;autoIncrement:false"`
	Position      int    `gorm:"index;not null"`
	BusID         int    `gorm:"index;not null"`
	PassengerName string `gorm:"not null"`
}

func (bookingRow) TableName() string { return "bookings" }

type GormSnapshotStore struct {
	db     *gorm.DB
	logger application.AppLogger
}

func NewGormSnapshotStore(dsn string, logger application.AppLogger) (*GormSnapshotStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, domain.Wrapf(domain.ErrFileAccess, "postgres: %v", err)
	}
	return NewGormSnapshotStoreFromDB(db, logger)
}

// NewGormSnapshotStoreFromDB migra o esquema em uma conexão já aberta.
func NewGormSnapshotStoreFromDB(db *gorm.DB, logger application.AppLogger) (*GormSnapshotStore, error) {
	if err := db.AutoMigrate(&busRow{}, &bookingRow{}); err != nil {
		return nil, domain.Wrapf(domain.ErrFileAccess, "migrate: %v", err)
	}

	return &GormSnapshotStore{
		db:     db,
		logger: logger,
	}, nil
}

func (r *GormSnapshotStore) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *GormSnapshotStore) Save(ctx context.Context, snapshot domain.Snapshot) error {
	busRows, bookingRows := toRows(snapshot)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&bookingRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&busRow{}).Error; err != nil {
			return err
		}
		if len(busRows) > 0 {
			if err := tx.Create(&busRows).Error; err != nil {
				return err
			}
		}
		if len(bookingRows) > 0 {
			if err := tx.Create(&bookingRows).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		application.LogError(ctx, r.logger, "failed to save snapshot", err, map[string]interface{}{
			"buses":    len(busRows),
			"bookings": len(bookingRows),
		})
		return domain.Wrapf(domain.ErrFileAccess, "postgres: %v", err)
	}

	application.LogInfo(ctx, r.logger, "snapshot saved", map[string]interface{}{
		"buses":    len(busRows),
		"bookings": len(bookingRows),
	})
	return nil
}

func (r *GormSnapshotStore) Load(ctx context.Context) (domain.Snapshot, error) {
	var busRows []busRow
	var bookingRows []bookingRow

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("position").Find(&busRows).Error; err != nil {
			return err
		}
		return tx.Order("position").Find(&bookingRows).Error
	})
	if err != nil {
		application.LogError(ctx, r.logger, "failed to load snapshot", err, nil)
		return domain.Snapshot{}, domain.Wrapf(domain.ErrFileAccess, "postgres: %v", err)
	}

	snapshot, err := fromRows(busRows, bookingRows)
	if err != nil {
		application.LogError(ctx, r.logger, "snapshot loaded with malformed records", err, nil)
		return snapshot, err
	}

	application.LogInfo(ctx, r.logger, "snapshot loaded", map[string]interface{}{
		"buses":    len(snapshot.Buses),
		"bookings": len(snapshot.Bookings),
	})
	return snapshot, nil
}

func toRows(snapshot domain.Snapshot) ([]busRow, []bookingRow) {
	busRows := make([]busRow, 0, len(snapshot.Buses))
	for i, bus := range snapshot.Buses {
		busRows = append(busRows, busRow{
			ID:             bus.ID,
			Position:       i,
			DriverName:     bus.DriverName,
			Destination:    bus.Destination,
			AvailableSeats: bus.AvailableSeats,
		})
	}

	bookingRows := make([]bookingRow, 0, len(snapshot.Bookings))
	for i, booking := range snapshot.Bookings {
		bookingRows = append(bookingRows, bookingRow{
			ID:            booking.ID,
			Position:      i,
			BusID:         booking.BusID,
			PassengerName: booking.PassengerName,
		})
	}
	return busRows, bookingRows
}

// fromRows aplica a mesma regra do arquivo: assentos negativos interrompem a leitura dos ônibus.
func fromRows(busRows []busRow, bookingRows []bookingRow) (domain.Snapshot, error) {
	snapshot := domain.Snapshot{
		Buses:    make([]domain.Bus, 0, len(busRows)),
		Bookings: make([]domain.Booking, 0, len(bookingRows)),
	}

	var err error
	for _, row := range busRows {
		if row.AvailableSeats < 0 {
			err = domain.Wrapf(domain.ErrParse, "buses row %d: available seats must not be negative", row.ID)
			break
		}
		snapshot.Buses = append(snapshot.Buses, domain.Bus{
			ID:             row.ID,
			DriverName:     row.DriverName,
			Destination:    row.Destination,
			AvailableSeats: row.AvailableSeats,
		})
	}

	for _, row := range bookingRows {
		if row.ID < 1 {
			err = multierr.Append(err, domain.Wrapf(domain.ErrParse, "bookings row at position %d: booking id must be positive, got %d", row.Position, row.ID))
			break
		}
		snapshot.Bookings = append(snapshot.Bookings, domain.Booking{
			ID:            row.ID,
			BusID:         row.BusID,
			PassengerName: row.PassengerName,
		})
	}
	return snapshot, err
}
