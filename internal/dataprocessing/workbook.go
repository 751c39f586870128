package dataprocessing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"

	apperrors "agrirank/internal/errors"
)

// WorkbookSource reads the rate table from an .xlsx file.
type WorkbookSource struct {
	path   string
	sheet  string
	logger *slog.Logger
}

// NewWorkbookSource reads path. An empty sheet selects the first sheet.
func NewWorkbookSource(path, sheet string, logger *slog.Logger) *WorkbookSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookSource{
		path:   path,
		sheet:  sheet,
		logger: logger.With(slog.String("component", "workbook_source")),
	}
}

// Describe returns the workbook path.
func (s *WorkbookSource) Describe() string {
	return "workbook:" + s.path
}

// Load reads every row of the configured sheet.
func (s *WorkbookSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read workbook", err).WithContext("path", s.path)
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open workbook", err).WithContext("path", s.path)
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, apperrors.NewStorageError(fmt.Sprintf("sheet %q not found", sheet), err).
			WithContext("path", s.path).
			WithContext("sheets", f.GetSheetList())
	}

	// Raw values keep date cells as serial numbers instead of locale-formatted text.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read rows", err).WithContext("sheet", sheet)
	}

	observations, err := ParseRows(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Info("workbook loaded",
		slog.String("path", s.path),
		slog.String("sheet", sheet),
		slog.Int("observations", len(observations)))

	return newDataset(observations, content, s.Describe()), nil
}
