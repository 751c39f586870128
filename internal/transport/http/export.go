package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apperrors "agrirank/internal/errors"
)

// Export formats served under .../export/{format}.
const (
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatMarkdown = "md"
)

var exportContentTypes = map[string]string{
	FormatCSV:      "text/csv; charset=utf-8",
	FormatXLSX:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatMarkdown: "text/markdown; charset=utf-8",
}

func checkFormat(format string) error {
	if _, ok := exportContentTypes[format]; ok {
		return nil
	}
	return apperrors.NewValidationErrors([]apperrors.ValidationError{{
		Field:   "format",
		Message: fmt.Sprintf("format must be one of: %s, %s, %s", FormatCSV, FormatXLSX, FormatMarkdown),
	}})
}

// writeDownload sends body as an attachment. The body is fully built before
// anything is written so a failed export still gets a problem response.
func writeDownload(w http.ResponseWriter, filename, format string, body *bytes.Buffer) {
	w.Header().Set("Content-Type", exportContentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(body.Bytes())
}

// exportName swaps the extension of base for format.
func exportName(base, format string) string {
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + "." + format
}
