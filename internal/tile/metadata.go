package tile

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Metadata is the sidecar record the tile generator writes next to each
// tile. Only the bounding box is consumed; other fields are ignored.
type Metadata struct {
	Bounds Bounds `json:"bounds"`
}

// Bounds is a geographic bounding box in lon/lat degrees. Fields are
// pointers because the generator omits values it could not compute; an
// absent value renders as the N/A placeholder.
type Bounds struct {
	MinLon *float64 `json:"min_lon"`
	MinLat *float64 `json:"min_lat"`
	MaxLon *float64 `json:"max_lon"`
	MaxLat *float64 `json:"max_lat"`
}

// ReadMetadata decodes the sidecar file at path. A sidecar that exists but
// cannot be read or parsed is an error; the feed treats it like any other
// unreadable input and aborts.
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse sidecar %s: %w", path, err)
	}
	return &md, nil
}

// Display renders the box in the progress format
// [min_lon, min_lat, max_lon, max_lat], substituting N/A for absent values.
func (b Bounds) Display() string {
	parts := []string{
		formatCoord(b.MinLon),
		formatCoord(b.MinLat),
		formatCoord(b.MaxLon),
		formatCoord(b.MaxLat),
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatCoord(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// Rect converts a fully populated box to an orb.Bound. ok is false when any
// side is missing; partial boxes cannot contribute to a coverage extent.
func (b Bounds) Rect() (orb.Bound, bool) {
	if b.MinLon == nil || b.MinLat == nil || b.MaxLon == nil || b.MaxLat == nil {
		return orb.Bound{}, false
	}
	return orb.Bound{
		Min: orb.Point{*b.MinLon, *b.MinLat},
		Max: orb.Point{*b.MaxLon, *b.MaxLat},
	}, true
}
