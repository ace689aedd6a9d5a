package infrastructure

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"

	"github.com/mateusmacedo/go-busticket/internal/busticket/application"
	"github.com/mateusmacedo/go-busticket/internal/busticket/domain"
	pkgApp "github.com/mateusmacedo/go-busticket/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busticket/pkg/domain"
)

const (
	choiceAddBus        = 1
	choiceViewBuses     = 2
	choiceBookTicket    = 3
	choiceViewBookings  = 4
	choiceSave          = 5
	choiceLoad          = 6
	choiceUndo          = 7
	choiceExit          = 8
	choiceDeleteBus     = 9
	choiceCancelBooking = 10
)

var menuEntries = []string{
	"Add Bus",
	"View Buses",
	"Book Ticket",
	"View Bookings",
	"Save Data",
	"Load Data",
	"Undo Last Action",
	"Exit",
	"Delete Bus",
	"Cancel Booking",
}

type consoleStyles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	prompt  lipgloss.Style
}

// Console é o menu numerado em modo texto sobre o TicketService.
type Console struct {
	service     *application.TicketService
	idGenerator pkgDomain.IDGenerator[string]
	logger      pkgApp.AppLogger
	in          *bufio.Scanner
	out         io.Writer
	styles      consoleStyles
}

func NewConsole(
	service *application.TicketService,
	idGenerator pkgDomain.IDGenerator[string],
	logger pkgApp.AppLogger,
	in io.Reader,
	out io.Writer,
) *Console {
	renderer := lipgloss.NewRenderer(out)
	return &Console{
		service:     service,
		idGenerator: idGenerator,
		logger:      logger,
		in:          bufio.NewScanner(in),
		out:         out,
		styles: consoleStyles{
			title:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
			heading: renderer.NewStyle().Bold(true),
			success: renderer.NewStyle().Foreground(lipgloss.Color("10")),
			failure: renderer.NewStyle().Foreground(lipgloss.Color("9")),
			prompt:  renderer.NewStyle().Faint(true),
		},
	}
}

// Run executa o laço do menu até a opção de saída, o fim da entrada ou o cancelamento do contexto.
// Erros das operações são exibidos e o laço continua.
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		c.printMenu()
		line, err := c.readLine("Enter choice: ")
		if err != nil {
			return c.endOfInput(err)
		}

		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || choice < 1 || choice > len(menuEntries) {
			c.fail("Invalid choice. Try again.")
			continue
		}
		if choice == choiceExit {
			c.println("Exiting system. Goodbye!")
			return nil
		}

		opCtx := pkgApp.WithRequestID(ctx, c.idGenerator())
		if err := c.dispatch(opCtx, choice); err != nil {
			return c.endOfInput(err)
		}
	}
}

func (c *Console) dispatch(ctx context.Context, choice int) error {
	switch choice {
	case choiceAddBus:
		return c.addBus(ctx)
	case choiceViewBuses:
		c.viewBuses(ctx)
	case choiceBookTicket:
		return c.bookTicket(ctx)
	case choiceViewBookings:
		c.viewBookings(ctx)
	case choiceSave:
		c.report(c.service.Save(ctx), "Data saved successfully.")
	case choiceLoad:
		c.report(c.service.Load(ctx), "Data loaded successfully.")
	case choiceUndo:
		action, err := c.service.UndoLast(ctx)
		if err == nil {
			c.succeed(fmt.Sprintf("Last action undone (%s).", action))
			return nil
		}
		c.report(err, "")
	case choiceDeleteBus:
		return c.deleteBus(ctx)
	case choiceCancelBooking:
		return c.cancelBooking(ctx)
	}
	return nil
}

func (c *Console) addBus(ctx context.Context) error {
	id, err := c.readInt("Enter Bus ID: ")
	if err != nil {
		return err
	}
	driver, err := c.readLine("Enter Driver's Name: ")
	if err != nil {
		return err
	}
	destination, err := c.readLine("Enter Destination: ")
	if err != nil {
		return err
	}
	seats, err := c.readInt("Enter Number of Seats: ")
	if err != nil {
		return err
	}

	_, err = c.service.AddBus(ctx, application.AddBusData{
		ID:             id,
		DriverName:     driver,
		Destination:    destination,
		AvailableSeats: seats,
	})
	c.report(err, "Bus added successfully!")
	return nil
}

func (c *Console) viewBuses(ctx context.Context) {
	buses, err := c.service.ListBuses(ctx)
	if err != nil {
		c.report(err, "")
		return
	}
	if len(buses) == 0 {
		c.println("No buses available.")
		return
	}

	c.println(c.styles.heading.Render("--- Available Buses ---"))
	for _, bus := range buses {
		c.println(fmt.Sprintf("Bus ID: %d, Driver: %s, Destination: %s, Seats Available: %d",
			bus.ID, bus.DriverName, bus.Destination, bus.AvailableSeats))
	}
}

func (c *Console) bookTicket(ctx context.Context) error {
	busID, err := c.readInt("Enter Bus ID for Booking: ")
	if err != nil {
		return err
	}

	// o ônibus é verificado antes de pedir o nome do passageiro
	bus, err := c.service.FindBus(ctx, busID)
	if err != nil {
		c.report(err, "")
		return nil
	}
	if !bus.HasSeats() {
		c.report(domain.ErrNoSeatsAvailable, "")
		return nil
	}

	name, err := c.readLine("Enter Passenger Name: ")
	if err != nil {
		return err
	}

	bookingID, err := c.service.BookTicket(ctx, application.BookTicketData{BusID: busID, PassengerName: name})
	c.report(err, fmt.Sprintf("Ticket booked successfully! Booking ID: %d", bookingID))
	return nil
}

func (c *Console) viewBookings(ctx context.Context) {
	bookings, err := c.service.ListBookings(ctx)
	if err != nil {
		c.report(err, "")
		return
	}
	if len(bookings) == 0 {
		c.println("No bookings available.")
		return
	}

	c.println(c.styles.heading.Render("--- All Bookings ---"))
	for _, booking := range bookings {
		c.println(fmt.Sprintf("Booking ID: %d, Bus ID: %d, Passenger: %s",
			booking.ID, booking.BusID, booking.PassengerName))
	}
}

func (c *Console) deleteBus(ctx context.Context) error {
	busID, err := c.readInt("Enter Bus ID to delete: ")
	if err != nil {
		return err
	}

	removed, err := c.service.DeleteBus(ctx, busID)
	if err == nil && !removed {
		c.println("Bus not found, nothing deleted.")
		return nil
	}
	c.report(err, "Bus deleted.")
	return nil
}

func (c *Console) cancelBooking(ctx context.Context) error {
	bookingID, err := c.readInt("Enter Booking ID to cancel: ")
	if err != nil {
		return err
	}

	removed, err := c.service.CancelBooking(ctx, bookingID)
	if err == nil && !removed {
		c.println("Booking not found, nothing canceled.")
		return nil
	}
	c.report(err, "Booking canceled.")
	return nil
}

func (c *Console) printMenu() {
	c.println("")
	c.println(c.styles.title.Render("--- Bus Ticket Management System ---"))
	for i, entry := range menuEntries {
		c.println(fmt.Sprintf("%d. %s", i+1, entry))
	}
}

func (c *Console) readLine(prompt string) (string, error) {
	fmt.Fprint(c.out, c.styles.prompt.Render(prompt))
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(c.in.Text(), "\r"), nil
}

// readInt repete a pergunta até receber um inteiro válido.
func (c *Console) readInt(prompt string) (int, error) {
	for {
		line, err := c.readLine(prompt)
		if err != nil {
			return 0, err
		}
		value, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil {
			return value, nil
		}
		c.fail("Please enter a whole number.")
	}
}

func (c *Console) endOfInput(err error) error {
	if err == io.EOF {
		c.println("")
		return nil
	}
	pkgApp.LogError(context.Background(), c.logger, "failed to read console input", err, nil)
	return err
}

func (c *Console) report(err error, success string) {
	if err != nil {
		c.fail(statusMessage(err))
		return
	}
	c.succeed(success)
}

func (c *Console) succeed(msg string) {
	c.println(c.styles.success.Render(msg))
}

func (c *Console) fail(msg string) {
	c.println(c.styles.failure.Render(msg))
}

func (c *Console) println(line string) {
	fmt.Fprintln(c.out, line)
}

func statusMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrBusNotFound):
		return "Bus not found."
	case errors.Is(err, domain.ErrNoSeatsAvailable):
		return "No seats available on this bus."
	case errors.Is(err, domain.ErrNothingToUndo):
		return "No actions to undo."
	case errors.Is(err, domain.ErrFileAccess):
		return "Error accessing data files: " + err.Error()
	case errors.Is(err, domain.ErrParse):
		return "Data files contain malformed records, partial data loaded: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
