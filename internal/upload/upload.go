// Package upload stages uploaded bytes in a temporary file for the duration
// of one request.
package upload

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// File is a staged upload. Callers must Release it.
type File struct {
	Path string
	Data []byte

	logger *zap.Logger
}

// Stage writes data to a uniquely named file in dir, keeping the extension
// of the client's filename.
func Stage(dir, filename string, data []byte, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = os.TempDir()
	}

	id := uuid.New()
	path := filepath.Join(dir, hex.EncodeToString(id[:])+filepath.Ext(filepath.Base(filename)))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	return &File{Path: path, Data: data, logger: logger}, nil
}

// Release removes the staged file. Failures are logged, never returned, and
// calling it twice is harmless.
func (f *File) Release() {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("failed to remove staged upload", zap.String("path", f.Path), zap.Error(err))
	}
}
