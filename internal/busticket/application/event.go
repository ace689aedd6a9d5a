package application

import (
	"time"

	"github.com/mateusmacedo/go-busticket/pkg/domain"
)

const (
	EventBusAdded        = "BusAdded"
	EventTicketBooked    = "TicketBooked"
	EventBusDeleted      = "BusDeleted"
	EventBookingCanceled = "BookingCanceled"
	EventActionUndone    = "ActionUndone"
	EventDataSaved       = "DataSaved"
	EventDataLoaded      = "DataLoaded"
)

// ActivityEventNames lista todos os eventos publicados pelo TicketService.
var ActivityEventNames = []string{
	EventBusAdded,
	EventTicketBooked,
	EventBusDeleted,
	EventBookingCanceled,
	EventActionUndone,
	EventDataSaved,
	EventDataLoaded,
}

// ActivityData é o payload comum dos eventos de atividade.
type ActivityData struct {
	BusID         int       `json:"busId,omitempty"`
	BookingID     int       `json:"bookingId,omitempty"`
	PassengerName string    `json:"passengerName,omitempty"`
	UndoneAction  string    `json:"undoneAction,omitempty"`
	Buses         int       `json:"buses,omitempty"`
	Bookings      int       `json:"bookings,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type activityEvent struct {
	name string
	data ActivityData
}

func (e activityEvent) EventName() string {
	return e.name
}

func (e activityEvent) Payload() ActivityData {
	return e.data
}

// NewActivityEvent cria um evento de atividade com o horário atual em UTC.
func NewActivityEvent(name string, data ActivityData) domain.Event[ActivityData] {
	if data.OccurredAt.IsZero() {
		data.OccurredAt = time.Now().UTC()
	}
	return activityEvent{name: name, data: data}
}
