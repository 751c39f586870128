package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	apperrors "agrirank/internal/errors"
	"agrirank/internal/report"
)

const (
	fmtMoney  = "#,##0.00"
	fmtWhole  = "#,##0"
	fmtScore  = "0.0000"
	fontWhite = "FFFFFF"
	fontDark  = "1B3A4B"

	headerFill      = "2F4F4F"
	monthFill       = "1B3A4B"
	pivotHeaderFill = "2F5496"
	pivotLabelFill  = "D6E4F0"
	borderColor     = "B0B0B0"
)

// rankFills colours ranks 1 through 10, from dark green down to tomato.
var rankFills = []string{
	"006400", "228B22", "32CD32", "66CDAA", "7EC8E3",
	"87CEEB", "ADD8E6", "FFD700", "FFA07A", "FF6347",
}

// RankFill returns the fill colour of rank, or "" past rank 10.
func RankFill(rank int) string {
	if rank < 1 || rank > len(rankFills) {
		return ""
	}
	return rankFills[rank-1]
}

// cellStyle is the subset of excelize styling the workbooks use.
type cellStyle struct {
	Fill      string
	FontColor string
	FontSize  float64
	Bold      bool
	NumFmt    string
	Align     string
	Wrap      bool
	Border    bool
}

// styleCache interns styles so each distinct look is registered once.
type styleCache struct {
	f   *excelize.File
	ids map[cellStyle]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, ids: make(map[cellStyle]int)}
}

func (c *styleCache) id(s cellStyle) (int, error) {
	if id, ok := c.ids[s]; ok {
		return id, nil
	}
	style := &excelize.Style{
		Font: &excelize.Font{Family: "Calibri", Size: s.FontSize, Bold: s.Bold, Color: s.FontColor},
		Alignment: &excelize.Alignment{
			Horizontal: s.Align,
			Vertical:   "center",
			WrapText:   s.Wrap,
		},
	}
	if s.Fill != "" {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{s.Fill}}
	}
	if s.NumFmt != "" {
		numFmt := s.NumFmt
		style.CustomNumFmt = &numFmt
	}
	if s.Border {
		for _, side := range []string{"left", "right", "top", "bottom"} {
			style.Border = append(style.Border, excelize.Border{Type: side, Color: borderColor, Style: 1})
		}
	}
	id, err := c.f.NewStyle(style)
	if err != nil {
		return 0, err
	}
	c.ids[s] = id
	return id, nil
}

// sheetWriter writes cells of one sheet and remembers the first error.
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	styles *styleCache
	err    error
}

func (w *sheetWriter) cell(col, row int, value interface{}, style cellStyle) {
	if w.err != nil {
		return
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	if value != nil {
		if w.err = w.f.SetCellValue(w.sheet, name, value); w.err != nil {
			return
		}
	}
	id, err := w.styles.id(style)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellStyle(w.sheet, name, name, id)
}

func (w *sheetWriter) widths(widths []float64) {
	for i, width := range widths {
		if w.err != nil {
			return
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			w.err = err
			return
		}
		w.err = w.f.SetColWidth(w.sheet, col, col, width)
	}
}

func (w *sheetWriter) height(row int, height float64) {
	if w.err == nil {
		w.err = w.f.SetRowHeight(w.sheet, row, height)
	}
}

func (w *sheetWriter) header(row int, headers []string) {
	for i, h := range headers {
		w.cell(i+1, row, h, cellStyle{
			Fill: headerFill, FontColor: fontWhite, FontSize: 10, Bold: true,
			Align: "center", Wrap: true, Border: true,
		})
	}
}

func (w *sheetWriter) freezeHeader() {
	if w.err == nil {
		w.err = w.f.SetPanes(w.sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
}

// WorkbookWriter renders reports as styled xlsx workbooks.
type WorkbookWriter struct {
	dir    string
	logger *slog.Logger
}

// NewWorkbookWriter creates a writer resolving relative paths against dir.
func NewWorkbookWriter(dir string, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{dir: dir, logger: logger.With(slog.String("component", "workbook_writer"))}
}

// TopSheetName is the name of the per-month ranking sheet.
func TopSheetName(topN int) string {
	return fmt.Sprintf("Top %d Per Month", topN)
}

// Sheet names of the ranking workbook besides the top-N sheet.
const (
	SheetFullScores     = "Full Scores"
	SheetScoreBreakdown = "Score Breakdown"
	SheetFullReport     = "Full Report"
)

// RankingWorkbook builds the three-sheet ranking workbook. The caller
// closes the returned file.
func (w *WorkbookWriter) RankingWorkbook(r *report.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	styles := newStyleCache(f)

	top := TopSheetName(r.Metadata.TopN)
	if err := f.SetSheetName("Sheet1", top); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetFullScores, SheetScoreBreakdown} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	for _, write := range []func() error{
		func() error { return writeTopSheet(&sheetWriter{f: f, sheet: top, styles: styles}, r) },
		func() error { return writeFullScores(&sheetWriter{f: f, sheet: SheetFullScores, styles: styles}, r) },
		func() error { return writeBreakdown(&sheetWriter{f: f, sheet: SheetScoreBreakdown, styles: styles}, r) },
	} {
		if err := write(); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeTopSheet(w *sheetWriter, r *report.Report) error {
	headers := []string{"Rank", "Commodity", "Avg Price (Rs)", "Total Volume", "Trading Days", "Per-Acre Prod"}
	widths := []float64{6, 22, 14, 15, 13, 14}
	for _, m := range r.Metrics {
		headers = append(headers, normHeader(m))
		widths = append(widths, 13)
	}
	headers = append(headers, "Score")
	widths = append(widths, 13)

	w.widths(widths)
	w.header(1, headers)
	w.height(1, 22)

	row := 2
	for _, month := range r.Months {
		banner := fmt.Sprintf("  %s  -  Top %d Commodities", month.Label, r.Metadata.TopN)
		for col := 1; col <= len(headers); col++ {
			var value interface{}
			if col == 1 {
				value = banner
			}
			w.cell(col, row, value, cellStyle{
				Fill: monthFill, FontColor: fontWhite, FontSize: 11, Bold: true, Align: "left", Border: true,
			})
		}
		w.height(row, 20)
		row++

		for _, rr := range month.Rows {
			fill := RankFill(rr.Rank)
			font := fontWhite
			if fill == "" {
				font = "000000"
			}
			base := cellStyle{Fill: fill, FontColor: font, FontSize: 10, Bold: rr.Rank <= 3, Align: "center", Border: true}

			values := []interface{}{rr.Rank, rr.Commodity, rr.MeanPrice, rr.TotalVolume, rr.TradingDays, optionalValue(rr.Productivity)}
			formats := []string{"", "", fmtMoney, fmtWhole, "", fmtMoney}
			for _, m := range r.Metrics {
				values = append(values, normalizedValue(rr, m))
				formats = append(formats, fmtScore)
			}
			values = append(values, rr.Score)
			formats = append(formats, fmtScore)

			for i, v := range values {
				s := base
				s.NumFmt = formats[i]
				if i == 1 {
					s.Align = "left"
				}
				w.cell(i+1, row, v, s)
			}
			w.height(row, 18)
			row++
		}
		row++
	}
	w.freezeHeader()
	return w.err
}

func writeFullScores(w *sheetWriter, r *report.Report) error {
	headers := []string{"Month", "Code", "Commodity", "Source Name", "Avg Price (Rs)", "Total Volume", "Trading Days", "Per-Acre Prod"}
	widths := []float64{12, 8, 22, 22, 14, 14, 13, 14}
	for _, m := range r.Metrics {
		headers = append(headers, normHeader(m))
		widths = append(widths, 13)
	}
	headers = append(headers, "Score", "Rank")
	widths = append(widths, 13, 7)

	w.widths(widths)
	w.header(1, headers)

	for i, rr := range r.Scores {
		row := i + 2
		values := []interface{}{rr.Month, codeValue(rr.Code), rr.Commodity, rr.SourceName, rr.MeanPrice, rr.TotalVolume, rr.TradingDays, optionalValue(rr.Productivity)}
		formats := []string{"", "", "", "", fmtMoney, fmtWhole, fmtWhole, fmtMoney}
		for _, m := range r.Metrics {
			values = append(values, normalizedValue(rr, m))
			formats = append(formats, fmtScore)
		}
		var rank interface{}
		if rr.Rank > 0 {
			rank = rr.Rank
		}
		values = append(values, rr.Score, rank)
		formats = append(formats, fmtScore, "")

		for c, v := range values {
			align := "center"
			if c == 2 || c == 3 {
				align = "left"
			}
			w.cell(c+1, row, v, cellStyle{FontSize: 10, NumFmt: formats[c], Align: align, Border: true})
		}
	}
	w.freezeHeader()
	return w.err
}

// writeBreakdown writes one commodity by month pivot per normalized metric
// and one for the score, separated by two blank rows.
func writeBreakdown(w *sheetWriter, r *report.Report) error {
	type pivot struct {
		title  string
		metric string
	}
	var pivots []pivot
	for _, m := range r.Metrics {
		pivots = append(pivots, pivot{title: normHeader(m), metric: m})
	}
	pivots = append(pivots, pivot{title: "Score"})

	var months []string
	seen := make(map[string]bool)
	lookup := make(map[[2]string]report.Row, len(r.Scores))
	for _, rr := range r.Scores {
		if !seen[rr.Month] {
			seen[rr.Month] = true
			months = append(months, rr.Month)
		}
		lookup[[2]string{rr.Commodity, rr.Month}] = rr
	}
	commodities := report.Commodities(r.Scores)

	widths := []float64{22}
	for range months {
		widths = append(widths, 13)
	}
	w.widths(widths)

	pivotHeader := cellStyle{Fill: pivotHeaderFill, FontColor: fontWhite, FontSize: 9, Bold: true, Align: "center", Border: true}
	row := 1
	for _, p := range pivots {
		w.cell(1, row, p.title, cellStyle{FontColor: fontDark, FontSize: 12, Bold: true, Align: "left"})
		row++

		w.cell(1, row, "Commodity", pivotHeader)
		for i, month := range months {
			w.cell(i+2, row, month, pivotHeader)
		}
		row++

		for _, name := range commodities {
			w.cell(1, row, name, cellStyle{Fill: pivotLabelFill, FontColor: fontDark, FontSize: 9, Bold: true, Align: "left", Border: true})
			for i, month := range months {
				var value interface{}
				if rr, ok := lookup[[2]string{name, month}]; ok {
					if p.metric == "" {
						value = rr.Score
					} else {
						value = normalizedValue(rr, p.metric)
					}
				}
				w.cell(i+2, row, value, cellStyle{FontSize: 9, NumFmt: fmtScore, Align: "center", Border: true})
			}
			row++
		}
		row += 2
	}
	return w.err
}

// CriteriaSheetName is the name of the top-N sheet of one criterion.
func CriteriaSheetName(topN int, criteria string) string {
	return fmt.Sprintf("Top%d by %s", topN, criteria)
}

// PivotSheetName is the name of the month by rank pivot of one criterion.
func PivotSheetName(criteria string) string {
	return criteria + " Pivot"
}

// CriteriaWorkbook builds the criteria workbook: the full table, one sheet
// per criterion and one month by rank pivot per criterion.
func (w *WorkbookWriter) CriteriaWorkbook(r *report.CriteriaReport) (*excelize.File, error) {
	f := excelize.NewFile()
	styles := newStyleCache(f)

	if err := f.SetSheetName("Sheet1", SheetFullReport); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeCriteriaTable(&sheetWriter{f: f, sheet: SheetFullReport, styles: styles}, criteriaHeaders, r.Rows, true); err != nil {
		f.Close()
		return nil, err
	}

	for _, criteria := range r.Criteria {
		name := CriteriaSheetName(r.Metadata.TopN, criteria)
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
		headers := []string{"Month", "Rank", "Source Name", "Canonical Name", "Avg Price", "Total Quantity", "Productivity"}
		if err := writeCriteriaTable(&sheetWriter{f: f, sheet: name, styles: styles}, headers, r.RowsFor(criteria), false); err != nil {
			f.Close()
			return nil, err
		}
	}

	for _, criteria := range r.Criteria {
		name := PivotSheetName(criteria)
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
		if err := writeRankPivot(&sheetWriter{f: f, sheet: name, styles: styles}, r, criteria); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeCriteriaTable(w *sheetWriter, headers []string, rows []report.CriteriaRow, withCriteria bool) error {
	widths := []float64{12, 7, 22, 22, 14, 15, 14}
	if withCriteria {
		widths = []float64{12, 14, 7, 22, 22, 14, 15, 14}
	}
	w.widths(widths)
	w.header(1, headers)

	for i, cr := range rows {
		values := []interface{}{cr.Month}
		formats := []string{""}
		if withCriteria {
			values = append(values, cr.Criteria)
			formats = append(formats, "")
		}
		values = append(values, cr.Rank, cr.SourceName, cr.Commodity, cr.AvgPrice, cr.TotalQuantity, optionalValue(cr.Productivity))
		formats = append(formats, "", "", "", fmtMoney, fmtMoney, fmtMoney)

		for c, v := range values {
			w.cell(c+1, i+2, v, cellStyle{FontSize: 10, NumFmt: formats[c], Align: "left", Border: true})
		}
	}
	w.freezeHeader()
	return w.err
}

func writeRankPivot(w *sheetWriter, r *report.CriteriaReport, criteria string) error {
	topN := r.Metadata.TopN
	headers := []string{"Month"}
	widths := []float64{12}
	for rank := 1; rank <= topN; rank++ {
		headers = append(headers, fmt.Sprintf("Rank %d", rank))
		widths = append(widths, 18)
	}
	w.widths(widths)
	w.header(1, headers)

	row := 1
	current := ""
	for _, cr := range r.RowsFor(criteria) {
		if cr.Month != current {
			current = cr.Month
			row++
			w.cell(1, row, cr.Month, cellStyle{Fill: pivotLabelFill, FontColor: fontDark, FontSize: 10, Bold: true, Align: "left", Border: true})
		}
		if cr.Rank >= 1 && cr.Rank <= topN {
			w.cell(cr.Rank+1, row, cr.Commodity, cellStyle{FontSize: 10, Align: "left", Border: true})
		}
	}
	return w.err
}

// WriteRanking saves the ranking workbook and returns its path.
func (w *WorkbookWriter) WriteRanking(filePath string, r *report.Report) (string, error) {
	f, err := w.RankingWorkbook(r)
	if err != nil {
		return "", apperrors.NewStorageError("build ranking workbook", err)
	}
	return w.save(f, filePath)
}

// WriteCriteria saves the criteria workbook and returns its path.
func (w *WorkbookWriter) WriteCriteria(filePath string, r *report.CriteriaReport) (string, error) {
	f, err := w.CriteriaWorkbook(r)
	if err != nil {
		return "", apperrors.NewStorageError("build criteria workbook", err)
	}
	return w.save(f, filePath)
}

// WriteRankingTo streams the ranking workbook to out.
func (w *WorkbookWriter) WriteRankingTo(out io.Writer, r *report.Report) error {
	f, err := w.RankingWorkbook(r)
	if err != nil {
		return apperrors.NewStorageError("build ranking workbook", err)
	}
	defer f.Close()
	if err := f.Write(out); err != nil {
		return apperrors.NewStorageError("write ranking workbook", err)
	}
	return nil
}

// WriteCriteriaTo streams the criteria workbook to out.
func (w *WorkbookWriter) WriteCriteriaTo(out io.Writer, r *report.CriteriaReport) error {
	f, err := w.CriteriaWorkbook(r)
	if err != nil {
		return apperrors.NewStorageError("build criteria workbook", err)
	}
	defer f.Close()
	if err := f.Write(out); err != nil {
		return apperrors.NewStorageError("write criteria workbook", err)
	}
	return nil
}

func (w *WorkbookWriter) save(f *excelize.File, filePath string) (string, error) {
	defer f.Close()

	fullPath := filePath
	if !filepath.IsAbs(fullPath) && w.dir != "" {
		fullPath = filepath.Join(w.dir, fullPath)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", apperrors.NewStorageError("create output directory", err).WithContext("path", fullPath)
	}
	if err := f.SaveAs(fullPath); err != nil {
		return "", apperrors.NewStorageError("save workbook", err).WithContext("path", fullPath)
	}
	w.logger.Info("workbook written",
		slog.String("path", fullPath),
		slog.Any("sheets", f.GetSheetList()))
	return fullPath, nil
}

func optionalValue(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func normalizedValue(row report.Row, metric string) interface{} {
	if v, ok := row.Normalized[metric]; ok {
		return v
	}
	return nil
}

func codeValue(code int) interface{} {
	if code == 0 {
		return nil
	}
	return code
}
