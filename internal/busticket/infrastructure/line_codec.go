package infrastructure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mateusmacedo/go-busticket/internal/busticket/domain"
)

// Formato de linha compartilhado pelos armazenamentos em arquivo e Redis:
//
//	ônibus:  busId,driverName,destination,availableSeats
//	reserva: bookingId,busId,passengerName
//
// Não há escape de vírgulas. O nome do passageiro é o restante da linha.
// Campos de texto com quebra de linha são recusados antes de chegar aqui.

func FormatBusLine(bus domain.Bus) string {
	return fmt.Sprintf("%d,%s,%s,%d", bus.ID, bus.DriverName, bus.Destination, bus.AvailableSeats)
}

func ParseBusLine(line string) (domain.Bus, error) {
	fields := strings.SplitN(line, ",", 4)
	if len(fields) != 4 {
		return domain.Bus{}, domain.Wrapf(domain.ErrParse, "bus record needs 4 fields, got %d", len(fields))
	}

	id, err := parseInt("bus id", fields[0])
	if err != nil {
		return domain.Bus{}, err
	}
	seats, err := parseInt("available seats", fields[3])
	if err != nil {
		return domain.Bus{}, err
	}
	if seats < 0 {
		return domain.Bus{}, domain.Wrapf(domain.ErrParse, "available seats must not be negative, got %d", seats)
	}

	return domain.Bus{
		ID:             id,
		DriverName:     fields[1],
		Destination:    fields[2],
		AvailableSeats: seats,
	}, nil
}

func FormatBookingLine(booking domain.Booking) string {
	return fmt.Sprintf("%d,%d,%s", booking.ID, booking.BusID, booking.PassengerName)
}

func ParseBookingLine(line string) (domain.Booking, error) {
	fields := strings.SplitN(line, ",", 3)
	if len(fields) != 3 {
		return domain.Booking{}, domain.Wrapf(domain.ErrParse, "booking record needs 3 fields, got %d", len(fields))
	}

	id, err := parseInt("booking id", fields[0])
	if err != nil {
		return domain.Booking{}, err
	}
	if id < 1 {
		return domain.Booking{}, domain.Wrapf(domain.ErrParse, "booking id must be positive, got %d", id)
	}
	busID, err := parseInt("bus id", fields[1])
	if err != nil {
		return domain.Booking{}, err
	}

	return domain.Booking{ID: id, BusID: busID, PassengerName: fields[2]}, nil
}

func parseInt(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, domain.Wrapf(domain.ErrParse, "%s %q is not an integer", field, value)
	}
	return n, nil
}

// decodeLines converte linhas até o primeiro registro malformado. Linhas em
// branco são ignoradas. Em caso de erro, devolve os registros já lidos.
func decodeLines[T any](source string, lines []string, parse func(string) (T, error)) ([]T, error) {
	records := make([]T, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		record, err := parse(line)
		if err != nil {
			return records, domain.Wrapf(err, "%s:%d", source, i+1)
		}
		records = append(records, record)
	}
	return records, nil
}
