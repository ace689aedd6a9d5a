package application

import (
	"context"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"

	"github.com/mateusmacedo/go-busticket/internal/busticket/domain"
	pkgApp "github.com/mateusmacedo/go-busticket/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busticket/pkg/domain"
)

const (
	OperationAddBus        = "add_bus"
	OperationBookTicket    = "book_ticket"
	OperationDeleteBus     = "delete_bus"
	OperationCancelBooking = "cancel_booking"
	OperationUndo          = "undo"
	OperationSave          = "save"
	OperationLoad          = "load"
)

type ActivityEventBus = pkgApp.EventBus[pkgDomain.Event[ActivityData], ActivityData]

// OperationRecorder recebe o resultado de cada operação do TicketService.
type OperationRecorder interface {
	RecordOperation(operation string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, error) {}

type AddBusData struct {
	ID             int    `json:"id"`
	DriverName     string `json:"driverName"`
	Destination    string `json:"destination"`
	AvailableSeats int    `json:"availableSeats"`
}

type BookTicketData struct {
	BusID         int    `json:"busId"`
	PassengerName string `json:"passengerName"`
}

// TicketService coordena o RecordStore e o UndoLog. Um único mutex protege os
// dois e o contador de reservas, de modo que o desfazer sempre observa um
// estado consistente. Eventos e métricas são emitidos depois de liberar o lock.
type TicketService struct {
	mu            sync.Mutex
	store         domain.RecordStore
	undoLog       *domain.UndoLog
	nextBookingID int

	snapshots domain.SnapshotStore
	eventBus  ActivityEventBus
	recorder  OperationRecorder
	logger    pkgApp.AppLogger
}

// NewTicketService aceita recorder nil quando métricas não são necessárias.
func NewTicketService(
	store domain.RecordStore,
	snapshots domain.SnapshotStore,
	eventBus ActivityEventBus,
	recorder OperationRecorder,
	logger pkgApp.AppLogger,
) *TicketService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &TicketService{
		store:         store,
		undoLog:       domain.NewUndoLog(),
		nextBookingID: 1,
		snapshots:     snapshots,
		eventBus:      eventBus,
		recorder:      recorder,
		logger:        logger,
	}
}

// AddBus insere um ônibus com o id informado pelo chamador.
func (s *TicketService) AddBus(ctx context.Context, data AddBusData) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	bus := domain.Bus{
		ID:             data.ID,
		DriverName:     data.DriverName,
		Destination:    data.Destination,
		AvailableSeats: data.AvailableSeats,
	}
	err := s.addBus(bus)
	s.finish(ctx, OperationAddBus, err, NewActivityEvent(EventBusAdded, ActivityData{BusID: bus.ID}))
	if err != nil {
		return 0, err
	}
	return bus.ID, nil
}

func (s *TicketService) addBus(bus domain.Bus) error {
	if err := bus.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.InsertBus(bus); err != nil {
		return err
	}
	s.undoLog.Push(domain.AddedBus{BusID: bus.ID})
	return nil
}

// BookTicket reserva um assento e devolve o id da nova reserva.
func (s *TicketService) BookTicket(ctx context.Context, data BookTicketData) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	booking, err := s.bookTicket(data)
	s.finish(ctx, OperationBookTicket, err, NewActivityEvent(EventTicketBooked, ActivityData{
		BusID:         booking.BusID,
		BookingID:     booking.ID,
		PassengerName: booking.PassengerName,
	}))
	if err != nil {
		return 0, err
	}
	return booking.ID, nil
}

func (s *TicketService) bookTicket(data BookTicketData) (domain.Booking, error) {
	if err := domain.ValidatePassengerName(data.PassengerName); err != nil {
		return domain.Booking{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bus, ok := s.store.FindBus(data.BusID)
	if !ok {
		return domain.Booking{}, domain.Wrapf(domain.ErrBusNotFound, "bus %d", data.BusID)
	}
	if !bus.HasSeats() {
		return domain.Booking{}, domain.Wrapf(domain.ErrNoSeatsAvailable, "bus %d", data.BusID)
	}

	booking := domain.Booking{
		ID:            s.nextBookingID,
		BusID:         bus.ID,
		PassengerName: data.PassengerName,
	}
	if err := s.store.InsertBooking(booking); err != nil {
		return domain.Booking{}, err
	}

	bus.AvailableSeats--
	if err := s.store.UpdateBus(bus); err != nil {
		s.store.DeleteBooking(booking.ID)
		return domain.Booking{}, err
	}

	s.nextBookingID++
	s.undoLog.Push(domain.BookedTicket{BusID: bus.ID, BookingID: booking.ID})
	return booking, nil
}

// DeleteBus remove o ônibus se existir. Um id ausente não é erro; o retorno indica se houve remoção.
func (s *TicketService) DeleteBus(ctx context.Context, busID int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	_, removed := s.deleteBus(busID, true)
	s.mu.Unlock()

	var event pkgDomain.Event[ActivityData]
	if removed {
		event = NewActivityEvent(EventBusDeleted, ActivityData{BusID: busID})
	}
	s.finish(ctx, OperationDeleteBus, nil, event)
	return removed, nil
}

// deleteBus exige o lock. Também é a inversa de AddedBus, chamada com recordUndo=false.
func (s *TicketService) deleteBus(busID int, recordUndo bool) (domain.Bus, bool) {
	bus, removed := s.store.DeleteBus(busID)
	if removed && recordUndo {
		s.undoLog.Push(domain.DeletedBus{Bus: bus})
	}
	return bus, removed
}

// CancelBooking remove a reserva se existir. O assento não é devolvido ao ônibus.
func (s *TicketService) CancelBooking(ctx context.Context, bookingID int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	booking, removed := s.cancelBooking(bookingID, true)
	s.mu.Unlock()

	var event pkgDomain.Event[ActivityData]
	if removed {
		event = NewActivityEvent(EventBookingCanceled, ActivityData{BusID: booking.BusID, BookingID: booking.ID})
	}
	s.finish(ctx, OperationCancelBooking, nil, event)
	return removed, nil
}

// cancelBooking exige o lock. Também é a inversa de BookedTicket, chamada com recordUndo=false.
func (s *TicketService) cancelBooking(bookingID int, recordUndo bool) (domain.Booking, bool) {
	booking, removed := s.store.DeleteBooking(bookingID)
	if removed && recordUndo {
		s.undoLog.Push(domain.CanceledBooking{Booking: booking})
	}
	return booking, removed
}

// UndoLast desfaz exatamente uma ação, a mais recente, sem registrar uma nova.
func (s *TicketService) UndoLast(ctx context.Context) (domain.Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	action, err := s.undoLast()
	var event pkgDomain.Event[ActivityData]
	if action != nil {
		event = NewActivityEvent(EventActionUndone, undoneActivity(action))
	}
	s.finish(ctx, OperationUndo, err, event)
	return action, err
}

func (s *TicketService) undoLast() (domain.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.undoLog.Pop()
	if !ok {
		return nil, domain.ErrNothingToUndo
	}
	return action, s.applyInverse(action)
}

func (s *TicketService) applyInverse(action domain.Action) error {
	switch a := action.(type) {
	case domain.AddedBus:
		s.deleteBus(a.BusID, false)
	case domain.BookedTicket:
		s.cancelBooking(a.BookingID, false)
	case domain.DeletedBus:
		if err := s.store.InsertBus(a.Bus); err != nil {
			return errors.Wrapf(err, "undo %s", a)
		}
	case domain.CanceledBooking:
		if err := s.store.InsertBooking(a.Booking); err != nil {
			return errors.Wrapf(err, "undo %s", a)
		}
	default:
		return errors.Newf("undo: unknown action kind %q", action.Kind())
	}
	return nil
}

func undoneActivity(action domain.Action) ActivityData {
	data := ActivityData{UndoneAction: string(action.Kind())}
	switch a := action.(type) {
	case domain.AddedBus:
		data.BusID = a.BusID
	case domain.BookedTicket:
		data.BusID = a.BusID
		data.BookingID = a.BookingID
	case domain.DeletedBus:
		data.BusID = a.Bus.ID
	case domain.CanceledBooking:
		data.BusID = a.Booking.BusID
		data.BookingID = a.Booking.ID
	}
	return data
}

func (s *TicketService) ListBuses(ctx context.Context) ([]domain.Bus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(s.store.Buses()), nil
}

func (s *TicketService) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(s.store.Bookings()), nil
}

func (s *TicketService) FindBus(ctx context.Context, busID int) (domain.Bus, error) {
	if err := ctx.Err(); err != nil {
		return domain.Bus{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bus, ok := s.store.FindBus(busID)
	if !ok {
		return domain.Bus{}, domain.Wrapf(domain.ErrBusNotFound, "bus %d", busID)
	}
	return bus, nil
}

func (s *TicketService) FindBooking(ctx context.Context, bookingID int) (domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return domain.Booking{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.store.FindBooking(bookingID)
	if !ok {
		return domain.Booking{}, domain.Wrapf(domain.ErrBookingNotFound, "booking %d", bookingID)
	}
	return booking, nil
}

// PendingUndo informa quantas ações podem ser desfeitas.
func (s *TicketService) PendingUndo() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undoLog.Len()
}

// Save grava o estado completo. O snapshot é copiado sob o lock e gravado fora dele.
func (s *TicketService) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := domain.Snapshot{
		Buses:    slices.Collect(s.store.Buses()),
		Bookings: slices.Collect(s.store.Bookings()),
	}
	s.mu.Unlock()

	err := s.snapshots.Save(ctx, snapshot)
	s.finish(ctx, OperationSave, err, NewActivityEvent(EventDataSaved, ActivityData{
		Buses:    len(snapshot.Buses),
		Bookings: len(snapshot.Bookings),
	}))
	return err
}

// Load substitui todo o estado pelo conteúdo persistido e descarta o histórico de desfazer.
//
// Se o armazenamento não puder ser aberto, nada muda. Registros malformados
// interrompem apenas a coleção em que aparecem; o que foi lido antes permanece.
func (s *TicketService) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot, err := s.snapshots.Load(ctx)
	if err != nil && !errors.Is(err, domain.ErrParse) {
		s.finish(ctx, OperationLoad, err, nil)
		return err
	}

	err = multierr.Append(err, s.replace(snapshot))
	s.finish(ctx, OperationLoad, err, NewActivityEvent(EventDataLoaded, ActivityData{
		Buses:    len(snapshot.Buses),
		Bookings: len(snapshot.Bookings),
	}))
	return err
}

func (s *TicketService) replace(snapshot domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Reset()
	s.undoLog.Reset()

	var busErr, bookingErr error
	for _, bus := range snapshot.Buses {
		if err := s.store.InsertBus(bus); err != nil {
			busErr = domain.Wrapf(domain.ErrParse, "load bus %d: %v", bus.ID, err)
			break
		}
	}

	for _, booking := range snapshot.Bookings {
		if err := s.store.InsertBooking(booking); err != nil {
			bookingErr = domain.Wrapf(domain.ErrParse, "load booking %d: %v", booking.ID, err)
			break
		}
		// ids de reserva nunca são reutilizados, nem depois de carregar
		if booking.ID >= s.nextBookingID {
			s.nextBookingID = booking.ID + 1
		}
	}

	return multierr.Combine(busErr, bookingErr)
}

// finish registra a métrica e o log da operação e, em caso de sucesso, publica o evento.
// Falhas de publicação são apenas registradas; a operação já foi aplicada.
func (s *TicketService) finish(ctx context.Context, operation string, err error, event pkgDomain.Event[ActivityData]) {
	s.recorder.RecordOperation(operation, err)

	if err != nil {
		pkgApp.LogError(ctx, s.logger, "operation failed", err, map[string]interface{}{
			"operation": operation,
		})
		return
	}

	fields := map[string]interface{}{"operation": operation}
	if event != nil {
		fields["activity"] = event.Payload()
	}
	pkgApp.LogInfo(ctx, s.logger, "operation completed", fields)

	if event == nil || s.eventBus == nil {
		return
	}
	if pubErr := s.eventBus.Publish(ctx, event); pubErr != nil {
		pkgApp.LogError(ctx, s.logger, "failed to publish activity event", pubErr, map[string]interface{}{
			"event": event.EventName(),
		})
	}
}
