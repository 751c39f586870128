// Package report turns engine outcomes into the ranked, rounded tables that
// every output surface shares: workbooks, CSV, Markdown and the HTTP API.
package report
