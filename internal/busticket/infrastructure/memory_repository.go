package infrastructure

import (
	"iter"
	"slices"
	"sync"

	"github.com/mateusmacedo/go-busticket/internal/busticket/domain"
)

var _ domain.RecordStore = (*InMemoryRecordStore)(nil)

// orderedIndex mantém os registros em ordem de inserção, com um índice por id.
// A listagem percorre a fatia de trás para frente, reproduzindo a inserção na cabeça.
type orderedIndex[T any] struct {
	order []int
	items map[int]T
}

func newOrderedIndex[T any]() orderedIndex[T] {
	return orderedIndex[T]{items: make(map[int]T)}
}

func (o *orderedIndex[T]) insert(id int, item T) bool {
	if _, exists := o.items[id]; exists {
		return false
	}
	o.order = append(o.order, id)
	o.items[id] = item
	return true
}

func (o *orderedIndex[T]) remove(id int) (T, bool) {
	item, exists := o.items[id]
	if !exists {
		return item, false
	}
	delete(o.items, id)
	if i := slices.Index(o.order, id); i >= 0 {
		o.order = slices.Delete(o.order, i, i+1)
	}
	return item, true
}

func (o *orderedIndex[T]) all() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := len(o.order) - 1; i >= 0; i-- {
			if !yield(o.items[o.order[i]]) {
				return
			}
		}
	}
}

func (o *orderedIndex[T]) reset() {
	o.order = nil
	clear(o.items)
}

// InMemoryRecordStore é a implementação em memória do RecordStore.
// Os registros são copiados na entrada e na saída, sem aliasing externo.
type InMemoryRecordStore struct {
	mu       sync.RWMutex
	buses    orderedIndex[domain.Bus]
	bookings orderedIndex[domain.Booking]
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		buses:    newOrderedIndex[domain.Bus](),
		bookings: newOrderedIndex[domain.Booking](),
	}
}

func (s *InMemoryRecordStore) InsertBus(bus domain.Bus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.buses.insert(bus.ID, bus) {
		return domain.Wrapf(domain.ErrDuplicateBusID, "bus %d", bus.ID)
	}
	return nil
}

func (s *InMemoryRecordStore) FindBus(id int) (domain.Bus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bus, ok := s.buses.items[id]
	return bus, ok
}

// UpdateBus substitui os campos de um ônibus existente sem alterar sua posição na listagem.
func (s *InMemoryRecordStore) UpdateBus(bus domain.Bus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.buses.items[bus.ID]; !exists {
		return domain.Wrapf(domain.ErrBusNotFound, "bus %d", bus.ID)
	}
	s.buses.items[bus.ID] = bus
	return nil
}

func (s *InMemoryRecordStore) DeleteBus(id int) (domain.Bus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buses.remove(id)
}

// Buses mantém o lock de leitura durante a iteração; não altere o store dentro do laço.
func (s *InMemoryRecordStore) Buses() iter.Seq[domain.Bus] {
	return func(yield func(domain.Bus) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		s.buses.all()(yield)
	}
}

func (s *InMemoryRecordStore) BusCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buses.order)
}

func (s *InMemoryRecordStore) InsertBooking(booking domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.bookings.insert(booking.ID, booking) {
		return domain.Wrapf(domain.ErrDuplicateBookingID, "booking %d", booking.ID)
	}
	return nil
}

func (s *InMemoryRecordStore) FindBooking(id int) (domain.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings.items[id]
	return booking, ok
}

func (s *InMemoryRecordStore) DeleteBooking(id int) (domain.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bookings.remove(id)
}

func (s *InMemoryRecordStore) Bookings() iter.Seq[domain.Booking] {
	return func(yield func(domain.Booking) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		s.bookings.all()(yield)
	}
}

func (s *InMemoryRecordStore) BookingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings.order)
}

func (s *InMemoryRecordStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buses.reset()
	s.bookings.reset()
}
