// Package validation checks the files a run reads and the directory it writes
// before any work starts, so a bad path fails fast with a typed error.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "agrirank/internal/errors"
)

// PathValidator validates source files and output directories.
type PathValidator struct {
	logger *slog.Logger
}

// NewPathValidator creates a validator. A nil logger uses slog.Default.
func NewPathValidator(logger *slog.Logger) *PathValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PathValidator{logger: logger.With(slog.String("component", "path_validator"))}
}

// ValidateFile checks that path is a readable regular file.
func (v *PathValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("Source file does not exist", slog.String("file", path))
		return apperrors.NewStorageError(fmt.Sprintf("file %s does not exist", path), err)
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		return apperrors.NewStorageError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("Source file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("Source file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateWorkbook checks that path is an existing .xlsx file and not an
// Excel lock file. A wrong extension is a configuration mistake.
func (v *PathValidator) ValidateWorkbook(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		return apperrors.NewConfigError(fmt.Sprintf("source %s is not an .xlsx workbook", path), nil).
			WithContext("field", "source.path")
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return apperrors.NewConfigError(fmt.Sprintf("source %s is an Excel lock file", path), nil).
			WithContext("field", "source.path")
	}
	return v.ValidateFile(path)
}

// ValidateOutputDirectory creates dir if needed and checks it is writable.
func (v *PathValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	probe, err := os.CreateTemp(dir, ".agrirank-write-*")
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}
