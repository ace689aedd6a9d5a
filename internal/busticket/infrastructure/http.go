package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/go-busticket/internal/busticket/application"
	"github.com/mateusmacedo/go-busticket/internal/busticket/domain"
	pkgApp "github.com/mateusmacedo/go-busticket/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busticket/pkg/domain"
)

const requestTimeout = 10 * time.Second

type BusTicketHTTPHandler struct {
	service     *application.TicketService
	idGenerator pkgDomain.IDGenerator[string]
	metrics     http.Handler
	logger      pkgApp.AppLogger
}

// NewBusTicketHTTPHandler aceita metrics nil; nesse caso /metrics não é registrado.
func NewBusTicketHTTPHandler(
	service *application.TicketService,
	idGenerator pkgDomain.IDGenerator[string],
	metrics http.Handler,
	logger pkgApp.AppLogger,
) *BusTicketHTTPHandler {
	return &BusTicketHTTPHandler{
		service:     service,
		idGenerator: idGenerator,
		metrics:     metrics,
		logger:      logger,
	}
}

func (h *BusTicketHTTPHandler) RegisterRoutes(router chi.Router) {
	router.Group(func(r chi.Router) {
		r.Use(h.requestID)

		r.Post("/buses", h.HandleAddBus)
		r.Get("/buses", h.HandleListBuses)
		r.Get("/buses/{busID}", h.HandleFindBus)
		r.Delete("/buses/{busID}", h.HandleDeleteBus)

		r.Post("/bookings", h.HandleBookTicket)
		r.Get("/bookings", h.HandleListBookings)
		r.Get("/bookings/{bookingID}", h.HandleFindBooking)
		r.Delete("/bookings/{bookingID}", h.HandleCancelBooking)

		r.Post("/undo", h.HandleUndo)
		r.Post("/snapshot/save", h.HandleSave)
		r.Post("/snapshot/load", h.HandleLoad)
	})

	if h.metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.metrics)
	}
}

func (h *BusTicketHTTPHandler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = h.idGenerator()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx, cancel := context.WithTimeout(pkgApp.WithRequestID(r.Context(), requestID), requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *BusTicketHTTPHandler) HandleAddBus(w http.ResponseWriter, r *http.Request) {
	var data application.AddBusData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		handleError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	id, err := h.service.AddBus(r.Context(), data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	bus, err := h.service.FindBus(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, map[string]interface{}{"message": "Bus added", "data": bus})
}

func (h *BusTicketHTTPHandler) HandleListBuses(w http.ResponseWriter, r *http.Request) {
	buses, err := h.service.ListBuses(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, buses)
}

func (h *BusTicketHTTPHandler) HandleFindBus(w http.ResponseWriter, r *http.Request) {
	busID, ok := pathID(w, r, "busID")
	if !ok {
		return
	}

	bus, err := h.service.FindBus(r.Context(), busID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, bus)
}

func (h *BusTicketHTTPHandler) HandleDeleteBus(w http.ResponseWriter, r *http.Request) {
	busID, ok := pathID(w, r, "busID")
	if !ok {
		return
	}

	removed, err := h.service.DeleteBus(r.Context(), busID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !removed {
		handleError(w, domain.ErrBusNotFound.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BusTicketHTTPHandler) HandleBookTicket(w http.ResponseWriter, r *http.Request) {
	var data application.BookTicketData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		handleError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	id, err := h.service.BookTicket(r.Context(), data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	booking, err := h.service.FindBooking(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, map[string]interface{}{"message": "Ticket booked", "data": booking})
}

func (h *BusTicketHTTPHandler) HandleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListBookings(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, bookings)
}

func (h *BusTicketHTTPHandler) HandleFindBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}

	booking, err := h.service.FindBooking(r.Context(), bookingID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, booking)
}

func (h *BusTicketHTTPHandler) HandleCancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}

	removed, err := h.service.CancelBooking(r.Context(), bookingID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !removed {
		handleError(w, domain.ErrBookingNotFound.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BusTicketHTTPHandler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	action, err := h.service.UndoLast(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"message": "Action undone",
		"kind":    action.Kind(),
		"action":  action.String(),
	})
}

func (h *BusTicketHTTPHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Save(r.Context()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]interface{}{"message": "Data saved"})
}

func (h *BusTicketHTTPHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Load(r.Context()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]interface{}{"message": "Data loaded"})
}

func (h *BusTicketHTTPHandler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		pkgApp.LogError(r.Context(), h.logger, "failed to encode response", err, nil)
	}
}

func (h *BusTicketHTTPHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		pkgApp.LogError(r.Context(), h.logger, "unexpected service error", err, map[string]interface{}{
			"path": r.URL.Path,
		})
	}
	handleError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBusNotFound), errors.Is(err, domain.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateBusID),
		errors.Is(err, domain.ErrDuplicateBookingID),
		errors.Is(err, domain.ErrNothingToUndo):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidBus), errors.Is(err, domain.ErrInvalidBooking):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoSeatsAvailable), errors.Is(err, domain.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrFileAccess):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil {
		handleError(w, "Invalid "+param, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func handleError(w http.ResponseWriter, message string, statusCode int) {
	http.Error(w, message, statusCode)
}
