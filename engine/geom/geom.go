// Package geom holds the pure proximity and patrol math used by the room
// components. Nothing here touches state.
package geom

import (
	"math"

	"github.com/nathoo/cosmicisles/types"
)

// Distance returns the euclidean distance between a and b.
func Distance(a, b types.Vec) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Within reports whether b lies within radius r of a (inclusive).
func Within(a, b types.Vec, r float64) bool {
	return Distance(a, b) <= r
}

// Bounds is an axis-aligned rectangle.
type Bounds struct {
	Min types.Vec `yaml:"min"`
	Max types.Vec `yaml:"max"`
}

// Contains reports whether v lies inside b, edges included.
func (b Bounds) Contains(v types.Vec) bool {
	return v.X >= b.Min.X && v.X <= b.Max.X && v.Y >= b.Min.Y && v.Y <= b.Max.Y
}

// Clamp returns v moved inside b.
func Clamp(v types.Vec, b Bounds) types.Vec {
	return types.Vec{
		X: math.Max(b.Min.X, math.Min(b.Max.X, v.X)),
		Y: math.Max(b.Min.Y, math.Min(b.Max.Y, v.Y)),
	}
}

// PathLength returns the perimeter of a closed path.
func PathLength(path []types.Vec) float64 {
	if len(path) < 2 {
		return 0
	}
	total := 0.0
	for i := range path {
		total += Distance(path[i], path[(i+1)%len(path)])
	}
	return total
}

// PointAlong returns the point at distance d along a closed path, wrapping
// past the end back to the first point.
func PointAlong(path []types.Vec, d float64) types.Vec {
	switch len(path) {
	case 0:
		return types.Vec{}
	case 1:
		return path[0]
	}
	total := PathLength(path)
	if total == 0 {
		return path[0]
	}
	d = math.Mod(d, total)
	if d < 0 {
		d += total
	}
	for i := range path {
		a, b := path[i], path[(i+1)%len(path)]
		seg := Distance(a, b)
		if d <= seg {
			if seg == 0 {
				return a
			}
			t := d / seg
			return types.Vec{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
		}
		d -= seg
	}
	return path[0]
}
