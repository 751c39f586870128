package dataprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "agrirank/internal/errors"
	"agrirank/pkg/contracts/domain"
)

// Column names of the market rate table. Every loader reads the same layout.
const (
	ColumnDate     = "rate_date"
	ColumnCode     = "code_number"
	ColumnName     = "product_name"
	ColumnQuantity = "product_quantity"
	ColumnMaxRate  = "product_max_rate"
	ColumnMinRate  = "product_min_rate"
)

// RequiredColumns lists the columns a source table must carry, in load order.
var RequiredColumns = []string{
	ColumnDate,
	ColumnCode,
	ColumnName,
	ColumnQuantity,
	ColumnMaxRate,
	ColumnMinRate,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
}

// columnMap records the index of every required column in a header row.
type columnMap map[string]int

// mapHeader locates the required columns. Matching ignores case and
// surrounding whitespace.
func mapHeader(header []string) (columnMap, error) {
	cols := make(columnMap, len(RequiredColumns))
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewStorageError(
			fmt.Sprintf("source table is missing columns: %s", strings.Join(missing, ", ")), nil).
			WithContext("missing", missing)
	}
	return cols, nil
}

func (m columnMap) cell(row []string, column string) string {
	idx := m[column]
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// observation converts one data row. It never fails: text that does not
// parse is carried as-is for the cleaner to judge.
func (m columnMap) observation(row []string, rowNum int) domain.RawObservation {
	code, hasCode := parseCode(m.cell(row, ColumnCode))
	return domain.RawObservation{
		Date:          parseDate(m.cell(row, ColumnDate)),
		CommodityCode: code,
		HasCode:       hasCode,
		CommodityName: m.cell(row, ColumnName),
		QuantityText:  m.cell(row, ColumnQuantity),
		MaxRateText:   m.cell(row, ColumnMaxRate),
		MinRateText:   m.cell(row, ColumnMinRate),
		Row:           rowNum,
	}
}

// ParseRows turns a table whose first non-empty row is the header into raw
// observations. Blank rows are skipped; row numbers are 1-based table rows.
func ParseRows(rows [][]string) ([]domain.RawObservation, error) {
	headerIdx := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, apperrors.NewStorageError("source table is empty", nil)
	}

	cols, err := mapHeader(rows[headerIdx])
	if err != nil {
		return nil, err
	}

	observations := make([]domain.RawObservation, 0, len(rows)-headerIdx-1)
	for i := headerIdx + 1; i < len(rows); i++ {
		if isBlankRow(rows[i]) {
			continue
		}
		observations = append(observations, cols.observation(rows[i], i+1))
	}
	return observations, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseDate accepts Excel serial numbers and the text layouts seen in
// exported rate tables. Unrecognized input yields the zero time.
func parseDate(text string) time.Time {
	if text == "" {
		return time.Time{}
	}
	if serial, err := strconv.ParseFloat(text, 64); err == nil {
		if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return time.Time{}
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}
		}
		return truncateDay(t)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return truncateDay(t)
		}
	}
	return time.Time{}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseCode reads an integer classification code. Spreadsheet exports
// sometimes store it as "1001.0", which is accepted.
func parseCode(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(text); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
