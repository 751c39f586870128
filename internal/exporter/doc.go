// Package exporter writes ranking reports to files.
//
// CSVWriter produces UTF-8 CSV with an optional BOM so spreadsheet tools
// detect the encoding. WorkbookWriter renders the styled xlsx workbooks:
// the three-sheet ranking workbook and the criteria workbook.
//
// Example usage:
//
//	csvWriter := exporter.NewCSVWriter("out", logger)
//	path, err := csvWriter.WriteRanking("rankings.csv", rpt)
//
//	books := exporter.NewWorkbookWriter("out", logger)
//	path, err = books.WriteRanking("profitable_commodities.xlsx", rpt)
package exporter
