package domain

import "fmt"

type ActionKind string

const (
	ActionAddedBus        ActionKind = "ADD_BUS"
	ActionBookedTicket    ActionKind = "BOOK_TICKET"
	ActionDeletedBus      ActionKind = "DELETE_BUS"
	ActionCanceledBooking ActionKind = "CANCEL_BOOKING"
)

// Action é o registro de uma operação mutável guardado no UndoLog.
// Cada variante carrega apenas o necessário para aplicar a operação inversa.
type Action interface {
	Kind() ActionKind
	fmt.Stringer
	isAction()
}

type AddedBus struct {
	BusID int
}

func (AddedBus) Kind() ActionKind { return ActionAddedBus }
func (a AddedBus) String() string { return fmt.Sprintf("add bus %d", a.BusID) }
func (AddedBus) isAction()        {}

type BookedTicket struct {
	BusID     int
	BookingID int
}

func (BookedTicket) Kind() ActionKind { return ActionBookedTicket }
func (a BookedTicket) String() string {
	return fmt.Sprintf("book ticket %d on bus %d", a.BookingID, a.BusID)
}
func (BookedTicket) isAction() {}

// DeletedBus guarda o registro removido para que o desfazer possa restaurá-lo.
type DeletedBus struct {
	Bus Bus
}

func (DeletedBus) Kind() ActionKind { return ActionDeletedBus }
func (a DeletedBus) String() string { return fmt.Sprintf("delete bus %d", a.Bus.ID) }
func (DeletedBus) isAction()        {}

type CanceledBooking struct {
	Booking Booking
}

func (CanceledBooking) Kind() ActionKind { return ActionCanceledBooking }
func (a CanceledBooking) String() string {
	return fmt.Sprintf("cancel booking %d", a.Booking.ID)
}
func (CanceledBooking) isAction() {}
