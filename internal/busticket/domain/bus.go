package domain

import "strings"

type Bus struct {
	ID             int    `json:"id"`
	DriverName     string `json:"driverName"`
	Destination    string `json:"destination"`
	AvailableSeats int    `json:"availableSeats"`
}

// Validate rejeita ônibus com contagem de assentos negativa ou com quebra de
// linha nos campos de texto.
func (b Bus) Validate() error {
	if b.AvailableSeats < 0 {
		return Wrapf(ErrInvalidBus, "bus %d has negative seat count %d", b.ID, b.AvailableSeats)
	}
	if hasLineBreak(b.DriverName) {
		return Wrapf(ErrInvalidBus, "bus %d driver name contains a line break", b.ID)
	}
	if hasLineBreak(b.Destination) {
		return Wrapf(ErrInvalidBus, "bus %d destination contains a line break", b.ID)
	}
	return nil
}

func (b Bus) HasSeats() bool {
	return b.AvailableSeats > 0
}

type Booking struct {
	ID            int    `json:"id"`
	BusID         int    `json:"busId"`
	PassengerName string `json:"passengerName"`
}

// ValidatePassengerName recusa nomes que quebrariam o registro em mais de uma linha.
func ValidatePassengerName(name string) error {
	if hasLineBreak(name) {
		return Wrapf(ErrInvalidBooking, "passenger name %q contains a line break", name)
	}
	return nil
}

func hasLineBreak(value string) bool {
	return strings.ContainsAny(value, "\r\n")
}
