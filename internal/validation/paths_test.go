package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "agrirank/internal/errors"
)

func TestPathValidator_ValidateWorkbook(t *testing.T) {
	dir := t.TempDir()
	workbook := filepath.Join(dir, "product_all.xlsx")
	require.NoError(t, os.WriteFile(workbook, []byte("PK"), 0644))
	lock := filepath.Join(dir, "~$product_all.xlsx")
	require.NoError(t, os.WriteFile(lock, []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.xlsx"), 0755))

	tests := []struct {
		name       string
		path       string
		wantErr    bool
		wantConfig bool
		contains   string
	}{
		{name: "valid workbook", path: workbook},
		{name: "csv extension", path: filepath.Join(dir, "rates.csv"), wantErr: true, wantConfig: true, contains: "not an .xlsx"},
		{name: "lock file", path: lock, wantErr: true, wantConfig: true, contains: "lock file"},
		{name: "missing", path: filepath.Join(dir, "absent.xlsx"), wantErr: true, contains: "does not exist"},
		{name: "directory", path: filepath.Join(dir, "folder.xlsx"), wantErr: true, contains: "is a directory"},
	}

	v := NewPathValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateWorkbook(tt.path)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, tt.wantConfig, apperrors.IsConfigError(err))
		})
	}
}

func TestPathValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewPathValidator(nil)

	nested := filepath.Join(t.TempDir(), "reports", "2024")
	require.NoError(t, v.ValidateOutputDirectory(nested))
	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(nested)
	require.NoError(t, err)
	assert.Empty(t, entries, "the write probe is removed")

	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	err = v.ValidateOutputDirectory(filepath.Join(file, "sub"))
	require.Error(t, err)
	errType, ok := apperrors.TypeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrTypeStorage, errType)
}
