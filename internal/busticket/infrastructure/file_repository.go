package infrastructure

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/mateusmacedo/go-busticket/internal/busticket/domain"
	"github.com/mateusmacedo/go-busticket/pkg/application"
)

var _ domain.SnapshotStore = (*FileSnapshotStore)(nil)

// FileSnapshotStore grava ônibus e reservas em dois arquivos de texto, um registro por linha.
type FileSnapshotStore struct {
	busPath     string
	bookingPath string
	logger      application.AppLogger
}

func NewFileSnapshotStore(busPath, bookingPath string, logger application.AppLogger) *FileSnapshotStore {
	return &FileSnapshotStore{
		busPath:     busPath,
		bookingPath: bookingPath,
		logger:      logger,
	}
}

// Save grava cada arquivo num temporário no mesmo diretório e só troca os
// arquivos de destino depois que as duas escritas terminam.
func (s *FileSnapshotStore) Save(ctx context.Context, snapshot domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	busLines := make([]string, 0, len(snapshot.Buses))
	for _, bus := range snapshot.Buses {
		busLines = append(busLines, FormatBusLine(bus))
	}
	bookingLines := make([]string, 0, len(snapshot.Bookings))
	for _, booking := range snapshot.Bookings {
		bookingLines = append(bookingLines, FormatBookingLine(booking))
	}

	busTemp, err := writeTemp(s.busPath, busLines)
	if err != nil {
		return s.accessError(ctx, "failed to write bus file", s.busPath, err)
	}
	bookingTemp, err := writeTemp(s.bookingPath, bookingLines)
	if err != nil {
		_ = os.Remove(busTemp)
		return s.accessError(ctx, "failed to write booking file", s.bookingPath, err)
	}

	if err := os.Rename(busTemp, s.busPath); err != nil {
		_ = multierr.Combine(os.Remove(busTemp), os.Remove(bookingTemp))
		return s.accessError(ctx, "failed to replace bus file", s.busPath, err)
	}
	if err := os.Rename(bookingTemp, s.bookingPath); err != nil {
		_ = os.Remove(bookingTemp)
		return s.accessError(ctx, "failed to replace booking file", s.bookingPath, err)
	}

	application.LogInfo(ctx, s.logger, "snapshot saved", map[string]interface{}{
		"bus_file":     s.busPath,
		"booking_file": s.bookingPath,
		"buses":        len(snapshot.Buses),
		"bookings":     len(snapshot.Bookings),
	})
	return nil
}

// Load só lê depois de abrir os dois arquivos; um registro malformado interrompe
// apenas o arquivo em que aparece.
func (s *FileSnapshotStore) Load(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	busFile, err := os.Open(s.busPath)
	if err != nil {
		return domain.Snapshot{}, s.accessError(ctx, "failed to open bus file", s.busPath, err)
	}
	defer busFile.Close()

	bookingFile, err := os.Open(s.bookingPath)
	if err != nil {
		return domain.Snapshot{}, s.accessError(ctx, "failed to open booking file", s.bookingPath, err)
	}
	defer bookingFile.Close()

	busLines, err := readLines(busFile)
	if err != nil {
		return domain.Snapshot{}, s.accessError(ctx, "failed to read bus file", s.busPath, err)
	}
	bookingLines, err := readLines(bookingFile)
	if err != nil {
		return domain.Snapshot{}, s.accessError(ctx, "failed to read booking file", s.bookingPath, err)
	}

	var snapshot domain.Snapshot
	var busErr, bookingErr error
	snapshot.Buses, busErr = decodeLines(s.busPath, busLines, ParseBusLine)
	snapshot.Bookings, bookingErr = decodeLines(s.bookingPath, bookingLines, ParseBookingLine)

	if err := multierr.Combine(busErr, bookingErr); err != nil {
		application.LogError(ctx, s.logger, "snapshot loaded with malformed records", err, map[string]interface{}{
			"buses":    len(snapshot.Buses),
			"bookings": len(snapshot.Bookings),
		})
		return snapshot, err
	}

	application.LogInfo(ctx, s.logger, "snapshot loaded", map[string]interface{}{
		"bus_file":     s.busPath,
		"booking_file": s.bookingPath,
		"buses":        len(snapshot.Buses),
		"bookings":     len(snapshot.Bookings),
	})
	return snapshot, nil
}

func (s *FileSnapshotStore) accessError(ctx context.Context, message, path string, err error) error {
	application.LogError(ctx, s.logger, message, err, map[string]interface{}{"path": path})
	return domain.Wrapf(domain.ErrFileAccess, "%s: %v", path, err)
}

// writeTemp devolve o caminho de um temporário, ao lado de path, já gravado e
// sincronizado. O temporário é removido se algo falhar.
func writeTemp(path string, lines []string) (string, error) {
	file, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	err = multierr.Combine(file.Chmod(0o644), writeLines(file, lines), file.Sync())
	err = multierr.Append(err, file.Close())
	if err != nil {
		_ = os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

func writeLines(w io.Writer, lines []string) error {
	buf := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := buf.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return buf.Flush()
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
