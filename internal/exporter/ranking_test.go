package exporter

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankingRecords(t *testing.T) {
	r := compositeReport(t, 2)

	assert.Equal(t, []string{
		"Month", "Rank", "Commodity", "Source Name", "Code",
		"Avg Price", "Total Volume", "Trading Days", "Activity Rate",
		"Productivity", "Revenue Per Acre", "Norm Price", "Norm Volume", "Score",
	}, RankingHeaders(r))

	records := RankingRecords(r)
	require.Len(t, records, 3, "only ranked rows are exported")
	assert.Equal(t, []string{
		"2024-03", "1", "Garlic", "लसूण", "2002",
		"3000.00", "40.00", "1", "40.00",
		"40.00", "120000.00", "1.0000", "0.0000", "0.5000",
	}, records[0])
	assert.Equal(t, "", records[1][9], "Potato has no productivity")
	assert.Equal(t, "", records[1][10])
	assert.Equal(t, "2024-04", records[2][0])
}

func TestWriteRanking(t *testing.T) {
	writer, dir := setupTestEnv(t)

	path, err := writer.WriteRanking("rankings.csv", compositeReport(t, 2))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rankings.csv"), path)

	lines := readLines(t, path)
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Month,Rank,Commodity")
}

func TestWriteRankingTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRankingTo(&buf, compositeReport(t, 10)))
	require.True(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[3:])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestCriteriaRecords(t *testing.T) {
	r := criteriaReport(t, 2)
	records := CriteriaRecords(r)
	require.Len(t, records, 6)
	assert.Equal(t, []string{"2024-03", "Price", "1", "लसूण", "Garlic", "3000.00", "40.00", "40.00"}, records[0])

	writer, _ := setupTestEnv(t)
	path, err := writer.WriteCriteria("criteria.csv", r)
	require.NoError(t, err)
	lines := readLines(t, path)
	assert.Equal(t, "Month,Criteria,Rank,Source Name,Canonical Name,Avg Price,Total Quantity,Productivity", lines[0])
}
