package application_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mateusmacedo/go-busticket/internal/busticket/application"
	"github.com/mateusmacedo/go-busticket/internal/busticket/domain"
	"github.com/mateusmacedo/go-busticket/internal/busticket/infrastructure"
	pkgApp "github.com/mateusmacedo/go-busticket/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busticket/pkg/domain"
	pkgInfra "github.com/mateusmacedo/go-busticket/pkg/infrastructure"
	"github.com/mateusmacedo/go-busticket/pkg/infrastructure/zaplogger/adapter"
)

type stubSnapshotStore struct {
	saved    domain.Snapshot
	snapshot domain.Snapshot
	err      error
}

func (s *stubSnapshotStore) Save(_ context.Context, snapshot domain.Snapshot) error {
	s.saved = snapshot
	return s.err
}

func (s *stubSnapshotStore) Load(context.Context) (domain.Snapshot, error) {
	return s.snapshot, s.err
}

type recordingHandler struct {
	mu     sync.Mutex
	events []pkgDomain.Event[application.ActivityData]
}

func (h *recordingHandler) Handle(_ context.Context, event pkgDomain.Event[application.ActivityData]) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.events))
	for _, event := range h.events {
		names = append(names, event.EventName())
	}
	return names
}

type countingRecorder struct {
	calls map[string]int
	fails map[string]int
}

func (r *countingRecorder) RecordOperation(operation string, err error) {
	if err != nil {
		r.fails[operation]++
		return
	}
	r.calls[operation]++
}

type fixture struct {
	service   *application.TicketService
	store     domain.RecordStore
	snapshots *stubSnapshotStore
	handler   *recordingHandler
	recorder  *countingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := adapter.NewZapAppLoggerFrom(zaptest.NewLogger(t))
	return newFixtureWith(t, logger, &stubSnapshotStore{})
}

func newFixtureWith(t *testing.T, logger pkgApp.AppLogger, snapshots domain.SnapshotStore) *fixture {
	t.Helper()
	store := infrastructure.NewInMemoryRecordStore()
	handler := &recordingHandler{}
	bus := pkgInfra.NewSimpleEventBus[pkgDomain.Event[application.ActivityData], application.ActivityData](logger)
	application.RegisterActivityHandler(bus, handler)
	recorder := &countingRecorder{calls: map[string]int{}, fails: map[string]int{}}

	f := &fixture{
		service:  application.NewTicketService(store, snapshots, bus, recorder, logger),
		store:    store,
		handler:  handler,
		recorder: recorder,
	}
	if stub, ok := snapshots.(*stubSnapshotStore); ok {
		f.snapshots = stub
	}
	return f
}

func addBus(t *testing.T, s *application.TicketService, id, seats int) {
	t.Helper()
	_, err := s.AddBus(context.Background(), application.AddBusData{
		ID:             id,
		DriverName:     "driver",
		Destination:    "dest",
		AvailableSeats: seats,
	})
	require.NoError(t, err)
}

func TestTicketService_AddBusThenFind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.service.AddBus(ctx, application.AddBusData{ID: 7, DriverName: "Ana", Destination: "Natal", AvailableSeats: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	bus, err := f.service.FindBus(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.Bus{ID: 7, DriverName: "Ana", Destination: "Natal", AvailableSeats: 3}, bus)
	assert.Equal(t, 1, f.service.PendingUndo())
	assert.Equal(t, []string{application.EventBusAdded}, f.handler.names())
}

func TestTicketService_AddBusRejectsDuplicateAndNegativeSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addBus(t, f.service, 1, 2)

	_, err := f.service.AddBus(ctx, application.AddBusData{ID: 1, DriverName: "other"})
	require.ErrorIs(t, err, domain.ErrDuplicateBusID)

	_, err = f.service.AddBus(ctx, application.AddBusData{ID: 2, AvailableSeats: -1})
	require.ErrorIs(t, err, domain.ErrInvalidBus)

	assert.Equal(t, 1, f.service.PendingUndo())
	assert.Equal(t, 2, f.recorder.fails[application.OperationAddBus])
	assert.Equal(t, []string{application.EventBusAdded}, f.handler.names())
}

func TestTicketService_BookingDecrementsSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addBus(t, f.service, 1, 5)

	for want := 1; want <= 3; want++ {
		id, err := f.service.BookTicket(ctx, application.BookTicketData{BusID: 1, PassengerName: "P"})
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	bus, err := f.service.FindBus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, bus.AvailableSeats)
}

func TestTicketService_BookTicketFailures(t *testing.T) {
	cases := []struct {
		name    string
		seats   int
		busID   int
		wantErr error
	}{
		{name: "no seats", seats: 0, busID: 1, wantErr: domain.ErrNoSeatsAvailable},
		{name: "unknown bus", seats: 4, busID: 99, wantErr: domain.ErrBusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			addBus(t, f.service, 1, tc.seats)

			_, err := f.service.BookTicket(context.Background(), application.BookTicketData{BusID: tc.busID, PassengerName: "Bob"})
			require.ErrorIs(t, err, tc.wantErr)

			assert.Zero(t, f.store.BookingCount())
			assert.Equal(t, 1, f.service.PendingUndo())
		})
	}
}

func TestTicketService_FailedBookingDoesNotConsumeID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addBus(t, f.service, 1, 1)

	_, err := f.service.BookTicket(ctx, application.BookTicketData{BusID: 2, PassengerName: "X"})
	require.Error(t, err)

	id, err := f.service.BookTicket(ctx, application.BookTicketData{BusID: 1, PassengerName: "Y"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}

func TestTicketService_RejectsLineBreaksInTextFields(t *testing.T) {
	ctx := context.Background()

	t.Run("bus fields", func(t *testing.T) {
		f := newFixture(t)
		for _, data := range []application.AddBusData{
			{ID: 1, DriverName: "Ana\n2,Eve,Y,40", Destination: "X", AvailableSeats: 3},
			{ID: 1, DriverName: "Ana", Destination: "X\r\n", AvailableSeats: 3},
		} {
			_, err := f.service.AddBus(ctx, data)
			require.ErrorIs(t, err, domain.ErrInvalidBus)
		}

		assert.Zero(t, f.store.BusCount())
		assert.Zero(t, f.service.PendingUndo())
		assert.Empty(t, f.handler.names())
	})

	t.Run("passenger name", func(t *testing.T) {
		f := newFixture(t)
		addBus(t, f.service, 1, 2)

		_, err := f.service.BookTicket(ctx, application.BookTicketData{BusID: 1, PassengerName: "Eve\n99,1,Mallory"})
		require.ErrorIs(t, err, domain.ErrInvalidBooking)

		assert.Zero(t, f.store.BookingCount())
		assert.Equal(t, 1, f.service.PendingUndo())
		bus, err := f.service.FindBus(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, bus.AvailableSeats)

		id, err := f.service.BookTicket(ctx, application.BookTicketData{BusID: 1, PassengerName: "Eve"})
		require.NoError(t, err)
		assert.Equal(t, 1, id)
	})
}

func TestTicketService_SavedBookingsReloadAsTheSameRecords(t *testing.T) {
	dir := t.TempDir()
	logger := adapter.NewZapAppLoggerFrom(zaptest.NewLogger(t))
	files := infrastructure.NewFileSnapshotStore(
		filepath.Join(dir, "buses.txt"),
		filepath.Join(dir, "bookings.txt"),
		logger,
	)
	ctx := context.Background()

	first := newFixtureWith(t, logger, files)
	addBus(t, first.service, 1, 3)
	_, err := first.service.BookTicket(ctx, application.BookTicketData{BusID: 1, PassengerName: "Eve\n99,1,Mallory"})
	require.ErrorIs(t, err, domain.ErrInvalidBooking)
	_, err = first.service.BookTicket(ctx, application.BookTicketData{BusID: 1, PassengerName: "Silva, Maria"})
	require.NoError(t, err)
	require.NoError(t, first.service.Save(ctx))

	fresh := newFixtureWith(t, logger, files)
	require.NoError(t, fresh.service.Load(ctx))

	bookings, err := fresh.service.ListBookings(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]domain.Booking{{ID: 1, BusID: 1, PassengerName: "Silva, Maria"}}, bookings); diff != "" {
		t.Errorf("bookings mismatch (-want +got):\n%s", diff)
	}

	id, err := fresh.service.BookTicket(ctx, application.BookTicketData{BusID: 1, PassengerName: "P2"})
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestTicketService_UndoOfAddRemovesBus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addBus(t, f.service, 7, 10)

	action, err := f.service.UndoLast(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AddedBus{BusID: 7}, action)

	_, err = f.service.FindBus(ctx, 7)
	require.ErrorIs(t, err, domain.ErrBusNotFound)
	assert.Zero(t, f.service.PendingUndo())
}

func TestTicketService_UndoOfBookingKeepsSeatsDecremented(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addBus(t, f.service, 1, 1)

	id, err := f.service.BookTicket(ctx, application.BookTicketData{BusID: 1, PassengerName: "Alice"})
	require.NoError(t, err)
	require.Equal(t, 1, id)

	_, err = f.service.UndoLast(ctx)
	require.NoError(t, err)

	_, err = f.service.FindBooking(ctx, 1)
	require.ErrorIs(t, err, domain.ErrBookingNotFound)

	bus, err := f.service.FindBus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, bus.AvailableSeats)

	// o id desfeito não é reutilizado
	addBus(t, f.service, 2, 1)
	id, err = f.service.BookTicket(ctx, application.BookTicketData{BusID: 2, PassengerName: "Carol"})
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestTicketService_UndoOnEmptyLog(t *testing.T) {
	f := newFixture(t)

	action, err := f.service.UndoLast(context.Background())
	require.ErrorIs(t, err, domain.ErrNothingToUndo)
	assert.Nil(t, action)
	assert.Equal(t, 1, f.recorder.fails[application.OperationUndo])
	assert.Empty(t, f.handler.names())
}

func TestTicketService_UndoProcessesOneActionPerCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addBus(t, f.service, 1, 3)
	addBus(t, f.service, 2, 3)

	_, err := f.service.UndoLast(ctx)
	require.NoError(t, err)

	buses, err := f.service.ListBuses(ctx)
	require.NoError(t, err)
	require.Len(t, buses, 1)
	assert.Equal(t, 1, buses[0].ID)
}

func TestTicketService_DeleteBusAndUndo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addBus(t, f.service, 1, 3)
	addBus(t, f.service, 2, 4)

	removed, err := f.service.DeleteBus(ctx, 1)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 3, f.service.PendingUndo())

	removed, err = f.service.DeleteBus(ctx, 42)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 3, f.service.PendingUndo())

	action, err := f.service.UndoLast(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionDeletedBus, action.Kind())

	bus, err := f.service.FindBus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, bus.AvailableSeats)
}

func TestTicketService_CancelBookingAndUndo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addBus(t, f.service, 1, 2)
	_, err := f.service.BookTicket(ctx, application.BookTicketData{BusID: 1, PassengerName: "Dora"})
	require.NoError(t, err)

	removed, err := f.service.CancelBooking(ctx, 1)
	require.NoError(t, err)
	require.True(t, removed)

	bus, err := f.service.FindBus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, bus.AvailableSeats, "cancel does not restore the seat")

	_, err = f.service.UndoLast(ctx)
	require.NoError(t, err)

	booking, err := f.service.FindBooking(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Booking{ID: 1, BusID: 1, PassengerName: "Dora"}, booking)

	bus, err = f.service.FindBus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, bus.AvailableSeats)
}

func TestTicketService_SaveLoadRoundTripThroughFiles(t *testing.T) {
	dir := t.TempDir()
	logger := adapter.NewZapAppLoggerFrom(zaptest.NewLogger(t))
	files := infrastructure.NewFileSnapshotStore(
		filepath.Join(dir, "buses.txt"),
		filepath.Join(dir, "bookings.txt"),
		logger,
	)
	ctx := context.Background()

	first := newFixtureWith(t, logger, files)
	_, err := first.service.AddBus(ctx, application.AddBusData{ID: 1, DriverName: "D1", Destination: "X", AvailableSeats: 6})
	require.NoError(t, err)
	_, err = first.service.BookTicket(ctx, application.BookTicketData{BusID: 1, PassengerName: "P1"})
	require.NoError(t, err)
	require.NoError(t, first.service.Save(ctx))

	fresh := newFixtureWith(t, logger, files)
	require.NoError(t, fresh.service.Load(ctx))

	bus, err := fresh.service.FindBus(ctx, 1)
	require.NoError(t, err)
	if diff := cmp.Diff(domain.Bus{ID: 1, DriverName: "D1", Destination: "X", AvailableSeats: 5}, bus); diff != "" {
		t.Errorf("bus mismatch (-want +got):\n%s", diff)
	}

	booking, err := fresh.service.FindBooking(ctx, 1)
	require.NoError(t, err)
	if diff := cmp.Diff(domain.Booking{ID: 1, BusID: 1, PassengerName: "P1"}, booking); diff != "" {
		t.Errorf("booking mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{application.EventDataLoaded}, fresh.handler.names())
}

func TestTicketService_LoadReplacesStateAndResetsUndo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addBus(t, f.service, 9, 1)

	f.snapshots.snapshot = domain.Snapshot{
		Buses:    []domain.Bus{{ID: 1, AvailableSeats: 2}, {ID: 2, AvailableSeats: 3}},
		Bookings: []domain.Booking{{ID: 4, BusID: 1, PassengerName: "Eve"}},
	}
	require.NoError(t, f.service.Load(ctx))

	buses, err := f.service.ListBuses(ctx)
	require.NoError(t, err)
	require.Len(t, buses, 2)
	assert.Equal(t, 2, buses[0].ID, "last loaded lists first")
	assert.Zero(t, f.service.PendingUndo())

	_, err = f.service.UndoLast(ctx)
	require.ErrorIs(t, err, domain.ErrNothingToUndo)

	id, err := f.service.BookTicket(ctx, application.BookTicketData{BusID: 2, PassengerName: "Finn"})
	require.NoError(t, err)
	assert.Equal(t, 5, id, "counter advances past loaded booking ids")
}

func TestTicketService_LoadAccessErrorLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addBus(t, f.service, 3, 1)
	f.snapshots.err = domain.Wrapf(domain.ErrFileAccess, "buses.txt")

	err := f.service.Load(ctx)
	require.ErrorIs(t, err, domain.ErrFileAccess)

	_, err = f.service.FindBus(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, f.service.PendingUndo())
}

func TestTicketService_LoadKeepsPartialDataOnParseError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.snapshots.snapshot = domain.Snapshot{
		Buses:    []domain.Bus{{ID: 1, AvailableSeats: 2}},
		Bookings: []domain.Booking{{ID: 1, BusID: 1}, {ID: 1, BusID: 1}, {ID: 2, BusID: 1}},
	}
	f.snapshots.err = domain.Wrapf(domain.ErrParse, "buses.txt:2")

	err := f.service.Load(ctx)
	require.ErrorIs(t, err, domain.ErrParse)

	assert.Equal(t, 1, f.store.BusCount())
	assert.Equal(t, 1, f.store.BookingCount(), "duplicate booking stops that collection")
}

func TestTicketService_SaveWritesListingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addBus(t, f.service, 1, 1)
	addBus(t, f.service, 2, 1)

	require.NoError(t, f.service.Save(ctx))
	require.Len(t, f.snapshots.saved.Buses, 2)
	assert.Equal(t, 2, f.snapshots.saved.Buses[0].ID)
	assert.Equal(t, 2, f.service.PendingUndo(), "save is not undoable")
}

func TestTicketService_SaveFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.snapshots.err = errors.Wrap(domain.ErrFileAccess, "disk full")

	err := f.service.Save(context.Background())
	require.ErrorIs(t, err, domain.ErrFileAccess)
	assert.Equal(t, 1, f.recorder.fails[application.OperationSave])
	assert.Empty(t, f.handler.names())
}

func TestTicketService_CanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.AddBus(ctx, application.AddBusData{ID: 1})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.store.BusCount())
}

func TestTicketService_PublishesActivityPerMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addBus(t, f.service, 1, 2)
	_, err := f.service.BookTicket(ctx, application.BookTicketData{BusID: 1, PassengerName: "Gil"})
	require.NoError(t, err)
	_, err = f.service.CancelBooking(ctx, 1)
	require.NoError(t, err)
	_, err = f.service.DeleteBus(ctx, 1)
	require.NoError(t, err)
	_, err = f.service.UndoLast(ctx)
	require.NoError(t, err)

	want := []string{
		application.EventBusAdded,
		application.EventTicketBooked,
		application.EventBookingCanceled,
		application.EventBusDeleted,
		application.EventActionUndone,
	}
	assert.Equal(t, want, f.handler.names())
	assert.Equal(t, 1, f.recorder.calls[application.OperationUndo])
}
