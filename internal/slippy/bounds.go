package slippy

import "fmt"

// BoundingBox represents a geographic bounding box in decimal degrees.
type BoundingBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Validate checks the bounding box. Boxes with West > East would cross the
// antimeridian, which the enumerated-rectangle scheme does not support, so
// they are rejected rather than silently mishandled.
func (b BoundingBox) Validate() error {
	if b.South < -90 || b.North > 90 {
		return fmt.Errorf("latitude out of range [-90, 90]: south=%f, north=%f", b.South, b.North)
	}
	if b.West < MinLon || b.East > MaxLon {
		return fmt.Errorf("longitude out of range [-180, 180]: west=%f, east=%f", b.West, b.East)
	}
	if b.South > b.North {
		return fmt.Errorf("south (%f) must not exceed north (%f)", b.South, b.North)
	}
	if b.West > b.East {
		return fmt.Errorf("west (%f) exceeds east (%f): antimeridian-crossing boxes are not supported", b.West, b.East)
	}
	return nil
}

// globalEpsilon is the float tolerance used to recognize a whole-world box.
const globalEpsilon = 1e-6

// IsGlobal reports whether the box covers the entire world. Latitudes are
// clamped first so that a -90/90 request still counts as global.
func (b BoundingBox) IsGlobal() bool {
	south := ClampLat(b.South)
	north := ClampLat(b.North)

	globalLon := abs(b.West-MinLon) < globalEpsilon && abs(b.East-MaxLon) < globalEpsilon
	globalLat := abs(south-MinLat) < globalEpsilon && abs(north-MaxLat) < globalEpsilon
	return globalLon && globalLat
}

// ZoomRange is an inclusive range of zoom levels.
type ZoomRange struct {
	Min int
	Max int
}

// Validate checks the zoom range against the pyramid limits.
func (z ZoomRange) Validate() error {
	if z.Min < MinZoom {
		return fmt.Errorf("min zoom %d is below %d", z.Min, MinZoom)
	}
	if z.Max > MaxZoom {
		return fmt.Errorf("max zoom %d exceeds %d", z.Max, MaxZoom)
	}
	if z.Min > z.Max {
		return fmt.Errorf("min zoom %d exceeds max zoom %d", z.Min, z.Max)
	}
	return nil
}

// Levels returns every zoom level in the range, ascending.
func (z ZoomRange) Levels() []int {
	levels := make([]int, 0, z.Max-z.Min+1)
	for l := z.Min; l <= z.Max; l++ {
		levels = append(levels, l)
	}
	return levels
}

// TileRange is an inclusive rectangle of tile coordinates at one zoom level.
type TileRange struct {
	Zoom int
	MinX int
	MaxX int
	MinY int
	MaxY int
}

// Count returns the number of tiles in the range.
func (r TileRange) Count() int {
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

// Validate checks the range against the pyramid size at its zoom level.
func (r TileRange) Validate() error {
	size := 1 << r.Zoom
	if r.MinX < 0 || r.MaxX >= size || r.MinY < 0 || r.MaxY >= size {
		return fmt.Errorf("tile range X=[%d, %d] Y=[%d, %d] out of [0, %d) at zoom %d",
			r.MinX, r.MaxX, r.MinY, r.MaxY, size, r.Zoom)
	}
	if r.MinX > r.MaxX || r.MinY > r.MaxY {
		return fmt.Errorf("tile range X=[%d, %d] Y=[%d, %d] has min above max",
			r.MinX, r.MaxX, r.MinY, r.MaxY)
	}
	return nil
}

// RangeForBounds computes the tile rectangle covering a bounding box at the
// given zoom. A whole-world box forces the complete pyramid row/column range
// so that clamping artifacts near the poles never drop edge tiles.
func RangeForBounds(bbox BoundingBox, zoom int) TileRange {
	size := 1 << zoom

	if bbox.IsGlobal() {
		return TileRange{Zoom: zoom, MinX: 0, MaxX: size - 1, MinY: 0, MaxY: size - 1}
	}

	// Top-left corner is (north, west), bottom-right is (south, east).
	tl := LatLonToTile(bbox.North, bbox.West, zoom)
	br := LatLonToTile(bbox.South, bbox.East, zoom)

	return TileRange{
		Zoom: zoom,
		MinX: min(tl.X, br.X),
		MaxX: max(tl.X, br.X),
		MinY: min(tl.Y, br.Y),
		MaxY: max(tl.Y, br.Y),
	}
}

// Tiles enumerates every tile in the range in row-major order (Y ascending,
// then X ascending). The order is deterministic so output and tests are
// reproducible.
func (r TileRange) Tiles() []Tile {
	tiles := make([]Tile, 0, r.Count())
	for y := r.MinY; y <= r.MaxY; y++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			tiles = append(tiles, Tile{Z: r.Zoom, X: x, Y: y})
		}
	}
	return tiles
}

// TilesInBounds enumerates all tiles covering a bounding box at one zoom.
func TilesInBounds(bbox BoundingBox, zoom int) []Tile {
	return RangeForBounds(bbox, zoom).Tiles()
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
