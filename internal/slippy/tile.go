package slippy

import (
	"fmt"
	"math"
)

const (
	MinZoom = 0
	MaxZoom = 22 // Provider ceiling for XYZ raster tile servers

	// MaxLat is the Web Mercator projection limit. Latitudes beyond it
	// have no tile representation and are clamped before conversion.
	MaxLat = 85.05112878
	MinLat = -MaxLat

	MinLon = -180.0
	MaxLon = 180.0
)

// Tile addresses one tile in the slippy-map pyramid. At zoom z the pyramid
// holds a 2^z x 2^z grid; X grows eastward, Y grows southward from the
// north-west corner.
type Tile struct {
	Z int
	X int
	Y int
}

// NewTile creates a tile, validating coordinates against the pyramid size.
func NewTile(z, x, y int) (Tile, error) {
	if z < MinZoom || z > MaxZoom {
		return Tile{}, fmt.Errorf("zoom %d out of range [%d, %d]", z, MinZoom, MaxZoom)
	}
	size := 1 << z
	if x < 0 || x >= size {
		return Tile{}, fmt.Errorf("x %d out of range [0, %d) for zoom %d", x, size, z)
	}
	if y < 0 || y >= size {
		return Tile{}, fmt.Errorf("y %d out of range [0, %d) for zoom %d", y, size, z)
	}
	return Tile{Z: z, X: x, Y: y}, nil
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// LatLonToTile converts WGS84 coordinates to the tile containing them.
// Latitude is clamped to the Web Mercator range; longitude wraps into
// [-180, 180). At zoom 0 every coordinate maps to (0, 0).
func LatLonToTile(lat, lon float64, zoom int) Tile {
	lat = ClampLat(lat)
	lon = wrapLon(lon)

	n := float64(int(1) << zoom)
	size := 1 << zoom

	latRad := lat * math.Pi / 180.0
	x := int((lon + 180.0) / 360.0 * n)
	y := int((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n)

	// X wraps across the antimeridian, Y clamps at the poles.
	x = ((x % size) + size) % size
	if y < 0 {
		y = 0
	}
	if y >= size {
		y = size - 1
	}

	return Tile{Z: zoom, X: x, Y: y}
}

// TileToLatLon returns the WGS84 coordinates of the tile's north-west corner.
func TileToLatLon(t Tile) (lat, lon float64) {
	n := float64(int(1) << t.Z)
	lon = float64(t.X)/n*360.0 - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1.0 - 2.0*float64(t.Y)/n)))
	lat = latRad * 180.0 / math.Pi
	return lat, lon
}

// ClampLat limits a latitude to the valid Web Mercator range.
func ClampLat(lat float64) float64 {
	if lat > MaxLat {
		return MaxLat
	}
	if lat < MinLat {
		return MinLat
	}
	return lat
}

func wrapLon(lon float64) float64 {
	for lon >= 180.0 {
		lon -= 360.0
	}
	for lon < -180.0 {
		lon += 360.0
	}
	return lon
}
