package tile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want Tile
		ok   bool
	}{
		{"tile_0_0.tif", Tile{Row: 0, Col: 0, Name: "tile_0_0.tif"}, true},
		{"tile_10_1.tif", Tile{Row: 10, Col: 1, Name: "tile_10_1.tif"}, true},
		{"tile_01_01.tif", Tile{Row: 1, Col: 1, Name: "tile_01_01.tif"}, true},
		{"tile_003_12.tif", Tile{Row: 3, Col: 12, Name: "tile_003_12.tif"}, true},
		{"notes.txt", Tile{}, false},
		{"tile_1_1.json", Tile{}, false},
		{"tile_1_1.tiff", Tile{}, false},
		{"tile_1_1.TIF", Tile{}, false},
		{"Tile_1_1.tif", Tile{}, false},
		{"tile_1.tif", Tile{}, false},
		{"tile_1_1_1.tif", Tile{}, false},
		{"tile_-1_1.tif", Tile{}, false},
		{"tile_a_b.tif", Tile{}, false},
		{"xtile_1_1.tif", Tile{}, false},
		{"tile_1_1.tif.bak", Tile{}, false},
		{"", Tile{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.name)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSidecar(t *testing.T) {
	got, ok := ParseSidecar("tile_2_3.json")
	require.True(t, ok)
	assert.Equal(t, Tile{Row: 2, Col: 3, Name: "tile_2_3.tif"}, got)

	// Padding normalizes away: the derived tile name is the canonical one.
	got, ok = ParseSidecar("tile_01_01.json")
	require.True(t, ok)
	assert.Equal(t, "tile_1_1.tif", got.Name)

	_, ok = ParseSidecar("tile_1_1.tif")
	assert.False(t, ok)
	_, ok = ParseSidecar("metadata.json")
	assert.False(t, ok)
}

func TestSidecarName(t *testing.T) {
	tl, ok := Parse("tile_01_01.tif")
	require.True(t, ok)
	assert.Equal(t, "tile_1_1.json", tl.SidecarName(),
		"sidecar lookup uses parsed indices, not the padded spelling")

	tl, ok = Parse("tile_10_2.tif")
	require.True(t, ok)
	assert.Equal(t, "tile_10_2.json", tl.SidecarName())
}

func TestListOrdersNumerically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"tile_10_1.tif",
		"tile_0_2.tif",
		"tile_1_0.tif",
		"tile_0_0.tif",
		"tile_2_10.tif",
		"tile_2_9.tif",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	tiles, err := List(dir)
	require.NoError(t, err)

	want := []Tile{
		{Row: 0, Col: 0, Name: "tile_0_0.tif"},
		{Row: 0, Col: 2, Name: "tile_0_2.tif"},
		{Row: 1, Col: 0, Name: "tile_1_0.tif"},
		{Row: 2, Col: 9, Name: "tile_2_9.tif"},
		{Row: 2, Col: 10, Name: "tile_2_10.tif"},
		{Row: 10, Col: 1, Name: "tile_10_1.tif"},
	}
	if diff := cmp.Diff(want, tiles); diff != "" {
		t.Errorf("List() order mismatch (-want +got):\n%s", diff)
	}
}

func TestListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"tile_1_1.tif",
		"tile_01_01.json",
		"notes.txt",
		"preview.png",
		"tile_2_2.tif.tmp",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	tiles, err := List(dir)
	require.NoError(t, err)
	require.Len(t, tiles, 1)
	assert.Equal(t, "tile_1_1.tif", tiles[0].Name)
}

func TestListEmptyDir(t *testing.T) {
	tiles, err := List(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, tiles)
}

func TestListMissingDir(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
