package dataprocessing

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	apperrors "agrirank/internal/errors"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource reads the rate table from a SQLite database.
type SQLiteSource struct {
	dsn    string
	table  string
	logger *slog.Logger
}

// NewSQLiteSource reads table from the database at dsn.
func NewSQLiteSource(dsn, table string, logger *slog.Logger) (*SQLiteSource, error) {
	if dsn == "" {
		return nil, apperrors.NewConfigError("source.dsn is required for sqlite sources", nil).
			WithContext("field", "source.dsn")
	}
	if table == "" {
		table = "rates"
	}
	if !identifierRe.MatchString(table) {
		return nil, apperrors.NewConfigError(fmt.Sprintf("invalid table name %q", table), nil).
			WithContext("field", "source.table")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteSource{
		dsn:    dsn,
		table:  table,
		logger: logger.With(slog.String("component", "sqlite_source")),
	}, nil
}

// Describe names the database and table.
func (s *SQLiteSource) Describe() string {
	return fmt.Sprintf("sqlite:%s/%s", s.dsn, s.table)
}

// Load selects the rate columns from the table.
func (s *SQLiteSource) Load(ctx context.Context) (*Dataset, error) {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open database", err).WithContext("dsn", s.dsn)
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(RequiredColumns, ", "), s.table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query rates", err).WithContext("table", s.table)
	}
	defer rows.Close()

	table := [][]string{append([]string(nil), RequiredColumns...)}
	values := make([]any, len(RequiredColumns))
	ptrs := make([]any, len(RequiredColumns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperrors.NewStorageError("failed to scan rate row", err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cellText(v)
		}
		table = append(table, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to iterate rates", err)
	}

	observations, err := ParseRows(table)
	if err != nil {
		return nil, err
	}

	content, err := json.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("encode rate rows: %w", err)
	}

	s.logger.Info("sqlite table loaded",
		slog.String("table", s.table),
		slog.Int("observations", len(observations)))

	return newDataset(observations, content, s.Describe()), nil
}
