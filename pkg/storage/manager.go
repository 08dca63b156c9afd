package storage

import (
	"fmt"
	"io"
	"os"
)

// Manager writes downloaded photos into the output folder. Distinct
// destination paths are safe for unsynchronized concurrent use; nothing here
// ever touches the same path from two workers because paths are derived from
// unique attachment IDs.
type Manager struct {
	outputDir string
}

// NewManager creates a storage manager, ensuring the output directory exists
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{outputDir: outputDir}, nil
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// Exists reports whether a file is already present at the destination path.
// Path existence is the idempotence key: an existing file is never rewritten.
func (m *Manager) Exists(dest string) bool {
	_, err := os.Stat(dest)
	return err == nil
}

// Save streams the reader straight into the destination file. On any write
// failure the partial file is removed so the existence check stays a reliable
// idempotence key for the next run.
func (m *Manager) Save(r io.Reader, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, copyErr := io.Copy(out, r)
	closeErr := out.Close()

	if copyErr != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to save photo data: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	return nil
}
