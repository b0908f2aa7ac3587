package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplaceExt(t *testing.T) {
	tests := []struct {
		name string
		path string
		ext  string
		want string
	}{
		{"shp to shx", "roads.shp", "shx", "roads.shx"},
		{"nested", "/data/v1.2/roads.shp", "idx", "/data/v1.2/roads.idx"},
		{"no extension", "/data/roads", "dbf", "/data/roads.dbf"},
		{"dot dir only", "/data/v1.2/roads", "mbr", "/data/v1.2/roads.mbr"},
		{"long extension", "roads.shape", "dbf", "roads.dbf"},
		{"hidden file", ".roads", "shp", ".roads.shp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ReplaceExt(tt.path, tt.ext))
		})
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	shp := filepath.Join(dir, "roads.shp")

	require.Equal(t, filepath.Join(dir, "roads.dbf"), Resolve(shp, "dbf"))

	upper := filepath.Join(dir, "roads.DBF")
	require.NoError(t, os.WriteFile(upper, []byte{0}, 0o600))
	require.True(t, Exists(upper))
	require.False(t, Exists(dir))

	got := Resolve(shp, "dbf")
	// Case-insensitive file systems find the upper-case file under the lower-case name.
	require.True(t, got == upper || got == filepath.Join(dir, "roads.dbf"))
}
