package domain

import (
	"context"
	"iter"
)

// RecordStore guarda os ônibus e reservas em memória.
// Buses e Bookings percorrem os registros do mais recente para o mais antigo.
type RecordStore interface {
	InsertBus(bus Bus) error
	FindBus(id int) (Bus, bool)
	UpdateBus(bus Bus) error
	DeleteBus(id int) (Bus, bool)
	Buses() iter.Seq[Bus]
	BusCount() int

	InsertBooking(booking Booking) error
	FindBooking(id int) (Booking, bool)
	DeleteBooking(id int) (Booking, bool)
	Bookings() iter.Seq[Booking]
	BookingCount() int

	Reset()
}

// Snapshot é o conteúdo completo do RecordStore, na ordem de listagem.
type Snapshot struct {
	Buses    []Bus
	Bookings []Booking
}

// SnapshotStore persiste e recupera snapshots completos.
//
// Load retorna os registros na ordem em que foram gravados. Quando um registro
// malformado é encontrado, Load retorna o que foi lido até ali junto com um erro
// que satisfaz errors.Is(err, ErrParse). Se o armazenamento não puder ser aberto,
// o erro satisfaz errors.Is(err, ErrFileAccess) e o snapshot deve ser ignorado.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}
