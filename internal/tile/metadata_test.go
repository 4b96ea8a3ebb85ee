package tile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSidecar(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadMetadata(t *testing.T) {
	dir := t.TempDir()

	t.Run("full bounds", func(t *testing.T) {
		path := writeSidecar(t, dir, "tile_0_0.json",
			`{"bounds": {"min_lon": 10.5, "min_lat": 20.1, "max_lon": 10.6, "max_lat": 20.2}}`)
		md, err := ReadMetadata(path)
		require.NoError(t, err)
		assert.Equal(t, "[10.5, 20.1, 10.6, 20.2]", md.Bounds.Display())
	})

	t.Run("extra fields ignored", func(t *testing.T) {
		path := writeSidecar(t, dir, "tile_0_1.json",
			`{"bounds": {"min_lon": 1, "min_lat": 2, "max_lon": 3, "max_lat": 4}, "crs": "EPSG:4326"}`)
		md, err := ReadMetadata(path)
		require.NoError(t, err)
		assert.Equal(t, "[1, 2, 3, 4]", md.Bounds.Display())
	})

	t.Run("missing values render as N/A", func(t *testing.T) {
		path := writeSidecar(t, dir, "tile_0_2.json", `{"bounds": {"min_lon": 10.5}}`)
		md, err := ReadMetadata(path)
		require.NoError(t, err)
		assert.Equal(t, "[10.5, N/A, N/A, N/A]", md.Bounds.Display())
	})

	t.Run("no bounds key", func(t *testing.T) {
		path := writeSidecar(t, dir, "tile_0_3.json", `{"source": "generator"}`)
		md, err := ReadMetadata(path)
		require.NoError(t, err)
		assert.Equal(t, "[N/A, N/A, N/A, N/A]", md.Bounds.Display())
	})

	t.Run("null bounds", func(t *testing.T) {
		// An explicit null reads the same as an absent key.
		path := writeSidecar(t, dir, "tile_0_5.json", `{"bounds": null}`)
		md, err := ReadMetadata(path)
		require.NoError(t, err)
		assert.Equal(t, "[N/A, N/A, N/A, N/A]", md.Bounds.Display())
	})

	t.Run("null values render as N/A", func(t *testing.T) {
		path := writeSidecar(t, dir, "tile_0_6.json",
			`{"bounds": {"min_lon": null, "min_lat": 2, "max_lon": 3, "max_lat": 4}}`)
		md, err := ReadMetadata(path)
		require.NoError(t, err)
		assert.Equal(t, "[N/A, 2, 3, 4]", md.Bounds.Display())
	})

	t.Run("malformed JSON", func(t *testing.T) {
		path := writeSidecar(t, dir, "tile_0_4.json", `{"bounds": `)
		_, err := ReadMetadata(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadMetadata(filepath.Join(dir, "tile_9_9.json"))
		require.Error(t, err)
	})
}

func TestBoundsRect(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	b := Bounds{MinLon: f(10.5), MinLat: f(20.1), MaxLon: f(10.6), MaxLat: f(20.2)}
	r, ok := b.Rect()
	require.True(t, ok)
	assert.Equal(t, 10.5, r.Min.X())
	assert.Equal(t, 20.1, r.Min.Y())
	assert.Equal(t, 10.6, r.Max.X())
	assert.Equal(t, 20.2, r.Max.Y())

	_, ok = Bounds{MinLon: f(10.5)}.Rect()
	assert.False(t, ok)
	_, ok = Bounds{}.Rect()
	assert.False(t, ok)
}

func TestBoundsDisplayFormatting(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	// Whole numbers keep no trailing decimals; long fractions are not rounded.
	b := Bounds{MinLon: f(20), MinLat: f(-35.25), MaxLon: f(103.672915), MaxLat: f(0)}
	assert.Equal(t, "[20, -35.25, 103.672915, 0]", b.Display())
}
