package dataprocessing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"agrirank/internal/config"
	apperrors "agrirank/internal/errors"
)

// SheetsSource reads the rate table from a Google Sheet.
type SheetsSource struct {
	service       *sheets.Service
	spreadsheetID string
	readRange     string
	logger        *slog.Logger
}

// NewSheetsSource connects to the Sheets API. Credentials come from
// cfg.CredentialsFile; without one the client is unauthenticated, which
// only works against public sheets or a local endpoint.
func NewSheetsSource(ctx context.Context, cfg config.SourceConfig, logger *slog.Logger, opts ...option.ClientOption) (*SheetsSource, error) {
	if cfg.SpreadsheetID == "" {
		return nil, apperrors.NewConfigError("source.spreadsheet_id is required for sheets sources", nil).
			WithContext("field", "source.spreadsheet_id")
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientOpts := []option.ClientOption{}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else {
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	}
	clientOpts = append(clientOpts, opts...)

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create sheets service", err)
	}

	readRange := cfg.Range
	if readRange == "" {
		readRange = "A:F"
	}
	if cfg.Sheet != "" {
		readRange = cfg.Sheet + "!" + readRange
	}

	return &SheetsSource{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     readRange,
		logger:        logger.With(slog.String("component", "sheets_source")),
	}, nil
}

// Describe names the spreadsheet and range.
func (s *SheetsSource) Describe() string {
	return fmt.Sprintf("sheets:%s/%s", s.spreadsheetID, s.readRange)
}

// Load fetches the configured range.
func (s *SheetsSource) Load(ctx context.Context) (*Dataset, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read spreadsheet", err).
			WithContext("spreadsheet_id", s.spreadsheetID).
			WithContext("range", s.readRange)
	}

	rows := make([][]string, len(resp.Values))
	for i, values := range resp.Values {
		row := make([]string, len(values))
		for j, v := range values {
			row[j] = cellText(v)
		}
		rows[i] = row
	}

	observations, err := ParseRows(rows)
	if err != nil {
		return nil, err
	}

	content, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode sheet values: %w", err)
	}

	s.logger.Info("spreadsheet loaded",
		slog.String("spreadsheet_id", s.spreadsheetID),
		slog.String("range", s.readRange),
		slog.Int("observations", len(observations)))

	return newDataset(observations, content, s.Describe()), nil
}

// cellText renders a typed cell value the way it would read in the sheet.
func cellText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.UTC().Format("2006-01-02")
	default:
		return fmt.Sprint(val)
	}
}
