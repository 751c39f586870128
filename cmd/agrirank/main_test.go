package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"agrirank/internal/config"
	apperrors "agrirank/internal/errors"
	"agrirank/internal/exporter"
)

func writeInput(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"rate_date", "code_number", "product_name", "product_quantity", "product_max_rate", "product_min_rate"},
		{"2024-03-05", 2001, "Onion", 50, 1200, 1000},
		{"2024-03-06", 2001, "Onion", 70, 1300, 1100},
		{"2024-03-05", 2002, "Garlic", 40, 3100, 2900},
		{"2024-04-02", 2001, "Onion", 90, 1100, 900},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), config.DefaultSourceWorkbook)
	require.NoError(t, f.SaveAs(path))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReportCommand(t *testing.T) {
	input := writeInput(t)
	outDir := t.TempDir()

	out, err := execute(t, "report", "--input", input, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "# Commodity Ranking Report")
	assert.Contains(t, out, "### March 2024")

	assert.FileExists(t, filepath.Join(outDir, config.DefaultRankingWorkbook))
	assert.FileExists(t, filepath.Join(outDir, config.DefaultRankingCSV))

	wb, err := excelize.OpenFile(filepath.Join(outDir, config.DefaultRankingWorkbook))
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), exporter.TopSheetName(config.DefaultTopN))
}

func TestReportCommandQuiet(t *testing.T) {
	out, err := execute(t, "report", "-q", "--input", writeInput(t), "--out", t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCriteriaCommand(t *testing.T) {
	outDir := t.TempDir()
	out, err := execute(t, "criteria", "--input", writeInput(t), "--out", outDir)
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = os.Stat(filepath.Join(outDir, config.DefaultCriteriaWorkbook))
	assert.NoError(t, err)
}

func TestConfigErrorsExitWithTwo(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("analysis:\n  top_n: 0\n"), 0o644))

	_, err := execute(t, "report", "--config", cfgPath, "--input", writeInput(t), "--out", t.TempDir())
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))
	assert.Equal(t, exitConfigError, exitCode(err))
}

func TestMissingInputExitsWithOne(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.xlsx")
	_, err := execute(t, "report", "--input", missing, "--out", t.TempDir())
	require.Error(t, err)
	assert.False(t, apperrors.IsConfigError(err))
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFailure, exitCode(errors.New("boom")))
	assert.Equal(t, exitConfigError, exitCode(apperrors.NewConfigError("bad", nil)))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, config.AppName+" "+config.AppVersion+"\n", out)
}
