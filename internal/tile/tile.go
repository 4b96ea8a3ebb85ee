// Package tile models the staged raster tiles the feed delivers: the
// row/column naming convention, the deterministic delivery order, and the
// geospatial sidecar metadata that travels alongside each tile.
package tile

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
)

// Tile filenames follow the generator's convention exactly; the whole name
// must match, case-sensitively. Anything else in the staging directory is
// not a tile and is ignored.
var (
	namePattern    = regexp.MustCompile(`^tile_(\d+)_(\d+)\.tif$`)
	sidecarPattern = regexp.MustCompile(`^tile_(\d+)_(\d+)\.json$`)
)

// Tile is one staged raster tile, identified by its grid position. Name
// keeps the original filename spelling (including any zero-padding) because
// the copy must preserve it verbatim.
type Tile struct {
	Row  int
	Col  int
	Name string
}

// Parse extracts a tile reference from a directory entry name. ok is false
// for names that do not follow the convention; arbitrary files may coexist
// in a staging directory and are simply skipped.
func Parse(name string) (Tile, bool) {
	return parseWith(namePattern, name)
}

// ParseSidecar recognizes sidecar metadata names. The returned Tile carries
// the derived (unpadded) tile filename, which is what the mirror re-pairs
// when a sidecar arrives after its tile.
func ParseSidecar(name string) (Tile, bool) {
	t, ok := parseWith(sidecarPattern, name)
	if !ok {
		return Tile{}, false
	}
	t.Name = fmt.Sprintf("tile_%d_%d.tif", t.Row, t.Col)
	return t, true
}

func parseWith(re *regexp.Regexp, name string) (Tile, bool) {
	m := re.FindStringSubmatch(name)
	if m == nil {
		return Tile{}, false
	}
	row, err := strconv.Atoi(m[1])
	if err != nil {
		return Tile{}, false
	}
	col, err := strconv.Atoi(m[2])
	if err != nil {
		return Tile{}, false
	}
	return Tile{Row: row, Col: col, Name: name}, true
}

// SidecarName returns the metadata filename derived from the parsed indices.
// Zero-padding present in the tile filename is normalized away here, so a
// sidecar stored as tile_01_01.json is never found for tile_01_01.tif.
func (t Tile) SidecarName() string {
	return fmt.Sprintf("tile_%d_%d.json", t.Row, t.Col)
}

// Less orders tiles ascending by row, then by column. Ordering between two
// entries with equal row and column is unspecified.
func (t Tile) Less(o Tile) bool {
	if t.Row != o.Row {
		return t.Row < o.Row
	}
	return t.Col < o.Col
}

// List enumerates the tiles staged directly in dir (non-recursive), in
// delivery order. The result is exactly the subset of entries whose names
// match the tile convention.
func List(dir string) ([]Tile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list staging directory: %w", err)
	}

	var tiles []Tile
	for _, e := range entries {
		if t, ok := Parse(e.Name()); ok {
			tiles = append(tiles, t)
		}
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Less(tiles[j]) })
	return tiles, nil
}
