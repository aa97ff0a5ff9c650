package files

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultMaxSize caps license file reads.
const DefaultMaxSize int64 = 1 << 20

// ErrTooLarge is returned when a file exceeds Manager.MaxSize.
var ErrTooLarge = errors.New("file exceeds maximum license size")

// Manager provides license file operations
type Manager struct {
	MaxSize int64
	logger  *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		MaxSize: DefaultMaxSize,
		logger:  logger.With(slog.String("component", "files")),
	}
}

// FileExists checks if a regular file exists at the given path
func (m *Manager) FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ReadLicense reads the entire content of a license file
func (m *Manager) ReadLicense(path string) ([]byte, error) {
	m.logger.Debug("reading license file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read license file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, m.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read license file: %w", err)
	}
	if int64(len(data)) > m.MaxSize {
		return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, m.MaxSize)
	}
	return data, nil
}

// WriteLicense atomically replaces path with data and returns the size of
// the written file.
func (m *Manager) WriteLicense(path string, data []byte) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write license file: %w", err)
	}
	// Sync to ensure write is complete
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to sync license file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close license file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return 0, fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("failed to replace license file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	m.logger.Info("license file written",
		slog.String("path", path),
		slog.Int64("size_bytes", info.Size()))
	return info.Size(), nil
}
