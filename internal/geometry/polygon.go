// Package geometry normalizes detector quadrilaterals into the
// axis-aligned bounding box plus rotation angle used across all backends.
package geometry

import (
	"math"

	"github.com/aptakhin/xtra/internal/model"
)

// Point is a single polygon corner.
type Point struct {
	X float64
	Y float64
}

// quadCorners is the number of corners every detector quadrilateral has.
const quadCorners = 4

// FromPoints converts a four-corner polygon into the enclosing
// axis-aligned bounding box and the rotation of its first edge in
// degrees. The enclosing box is deliberately not a minimum-area rotated
// rectangle: it sacrifices tightness for uniformity across backends and
// for direct composability with unit conversion.
//
// Degenerate input (fewer than four corners) yields a zero box and zero
// rotation rather than an error, so malformed detector output never
// aborts extraction of an otherwise-good page.
func FromPoints(points []Point) (model.BBox, float64) {
	if len(points) < quadCorners {
		return model.BBox{}, 0.0
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := points[0].X, points[0].Y
	for _, p := range points[1:quadCorners] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	bbox := model.BBox{X0: minX, Y0: minY, X1: maxX, Y1: maxY}

	// Rotation from the corner0->corner1 edge, the detector's top edge.
	// This is a single-edge approximation: it reports the tilt of one
	// edge, not a shear decomposition of the full quadrilateral.
	dx := points[1].X - points[0].X
	dy := points[1].Y - points[0].Y
	if dx == 0 && dy == 0 {
		return bbox, 0.0
	}
	return bbox, math.Atan2(dy, dx) * 180 / math.Pi
}

// FromFlat converts a flat coordinate list [x0,y0,x1,y1,x2,y2,x3,y3],
// the form some cloud services emit directly, producing exactly the
// same result as FromPoints on the equivalent corner list. Fewer than
// eight values is degenerate and yields the zero-box fallback.
func FromFlat(coords []float64) (model.BBox, float64) {
	if len(coords) < 2*quadCorners {
		return model.BBox{}, 0.0
	}
	points := make([]Point, quadCorners)
	for i := 0; i < quadCorners; i++ {
		points[i] = Point{X: coords[2*i], Y: coords[2*i+1]}
	}
	return FromPoints(points)
}
