package dataprocessing

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"agrirank/internal/config"
	apperrors "agrirank/internal/errors"
	"agrirank/pkg/contracts/domain"
)

// Dataset is one load of the source table.
type Dataset struct {
	Observations []domain.RawObservation
	// Fingerprint is the hex BLAKE2b-256 digest of the source content.
	Fingerprint string
	Origin      string
	LoadedAt    time.Time
}

// Source loads raw observations from an external table.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
	Describe() string
}

// NewSource builds the loader selected by cfg.Kind.
func NewSource(ctx context.Context, cfg config.SourceConfig, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Kind {
	case "", "workbook":
		return NewWorkbookSource(cfg.Path, cfg.Sheet, logger), nil
	case "sheets":
		return NewSheetsSource(ctx, cfg, logger)
	case "sqlite":
		return NewSQLiteSource(cfg.DSN, cfg.Table, logger)
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown source kind %q", cfg.Kind), nil).
			WithContext("field", "source.kind")
	}
}

// Fingerprint returns the hex BLAKE2b-256 digest of data.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newDataset(observations []domain.RawObservation, content []byte, origin string) *Dataset {
	return &Dataset{
		Observations: observations,
		Fingerprint:  Fingerprint(content),
		Origin:       origin,
		LoadedAt:     time.Now().UTC(),
	}
}
