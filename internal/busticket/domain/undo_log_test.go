package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/go-busticket/internal/busticket/domain"
)

func TestUndoLog_PopsInReverseOrder(t *testing.T) {
	log := domain.NewUndoLog()
	log.Push(domain.AddedBus{BusID: 1})
	log.Push(domain.BookedTicket{BusID: 1, BookingID: 1})
	log.Push(domain.DeletedBus{Bus: domain.Bus{ID: 1}})
	require.Equal(t, 3, log.Len())

	top, ok := log.Peek()
	require.True(t, ok)
	assert.Equal(t, domain.ActionDeletedBus, top.Kind())

	want := []domain.ActionKind{domain.ActionDeletedBus, domain.ActionBookedTicket, domain.ActionAddedBus}
	for _, kind := range want {
		action, ok := log.Pop()
		require.True(t, ok)
		assert.Equal(t, kind, action.Kind())
	}

	_, ok = log.Pop()
	assert.False(t, ok)
	assert.Zero(t, log.Len())
}

func TestUndoLog_Reset(t *testing.T) {
	log := domain.NewUndoLog()
	log.Push(domain.AddedBus{BusID: 3})
	log.Reset()

	_, ok := log.Peek()
	assert.False(t, ok)
	assert.Zero(t, log.Len())

	log.Push(domain.CanceledBooking{Booking: domain.Booking{ID: 9}})
	action, ok := log.Pop()
	require.True(t, ok)
	assert.Equal(t, "cancel booking 9", action.String())
}

func TestBus_Validate(t *testing.T) {
	require.NoError(t, domain.Bus{ID: 1, AvailableSeats: 0}.Validate())

	err := domain.Bus{ID: 2, AvailableSeats: -1}.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidBus)
	assert.Contains(t, err.Error(), "bus 2")

	for _, bus := range []domain.Bus{
		{ID: 3, DriverName: "D\n4,X,Y,9", Destination: "X"},
		{ID: 3, DriverName: "D", Destination: "X\r"},
	} {
		require.ErrorIs(t, bus.Validate(), domain.ErrInvalidBus, "%+v", bus)
	}
}

func TestValidatePassengerName(t *testing.T) {
	require.NoError(t, domain.ValidatePassengerName("Silva, Maria"))
	require.ErrorIs(t, domain.ValidatePassengerName("Eve\n99,1,Mallory"), domain.ErrInvalidBooking)
	require.ErrorIs(t, domain.ValidatePassengerName("Eve\r"), domain.ErrInvalidBooking)
}
