package domain

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrBusNotFound        = errors.New("bus not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrNoSeatsAvailable   = errors.New("no seats available on this bus")
	ErrNothingToUndo      = errors.New("no actions to undo")
	ErrDuplicateBusID     = errors.New("bus id already exists")
	ErrDuplicateBookingID = errors.New("booking id already exists")
	ErrInvalidBus         = errors.New("invalid bus")
	ErrInvalidBooking     = errors.New("invalid booking")

	// ErrFileAccess indica que o armazenamento persistente não pôde ser aberto.
	ErrFileAccess = errors.New("persistence storage could not be opened")
	// ErrParse indica um registro persistido fora do formato esperado.
	ErrParse = errors.New("malformed persisted record")
)

// Wrapf anexa contexto a um erro sentinela preservando errors.Is.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
