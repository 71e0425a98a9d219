// Package town provides the plot grid the city is laid out on: positions,
// locality distance, and the smooth spatial gradient used when seeding
// initial prices. Geometry exists only to serve locality queries; there is
// no rendering here.
package town

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Grid is a rectangular arrangement of unit plots. Plot indices are
// row-major; each plot holds at most one property.
type Grid struct {
	Width  int
	Height int
}

// NewGrid creates a grid of Width × Height plots.
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height}
}

// Plots returns the total number of plots.
func (g *Grid) Plots() int {
	return g.Width * g.Height
}

// Point returns the position of plot i as a point on the unit grid.
func (g *Grid) Point(i int) orb.Point {
	return orb.Point{float64(i % g.Width), float64(i / g.Width)}
}

// Center returns the grid's central point.
func (g *Grid) Center() orb.Point {
	return orb.Point{float64(g.Width) / 2, float64(g.Height) / 2}
}

// Distance returns the planar distance between two positions, in plot units.
func Distance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// Within reports whether b lies within radius plots of a.
func Within(a, b orb.Point, radius float64) bool {
	return planar.Distance(a, b) <= radius
}

// RingPoints returns positions roughly on a ring of the given radius around
// the center, one per step of the circle. Used to place realtors so their
// territories tile the city.
func (g *Grid) RingPoints(radius float64, count int) []orb.Point {
	pts := make([]orb.Point, 0, count)
	c := g.Center()
	for i := 0; i < count; i++ {
		theta := 2 * math.Pi * float64(i) / float64(count)
		pts = append(pts, orb.Point{
			c[0] + radius*math.Cos(theta),
			c[1] + radius*math.Sin(theta),
		})
	}
	return pts
}

// Gradient is a smooth noise field over the grid, used to give seeded prices
// neighborhood structure so early comparables are spatially coherent.
type Gradient struct {
	noise opensimplex.Noise
	scale float64
}

// NewGradient creates a gradient from a seed. Scale controls feature size in
// plot units; larger values give broader neighborhoods.
func NewGradient(seed int64, scale float64) *Gradient {
	if scale <= 0 {
		scale = 16
	}
	return &Gradient{noise: opensimplex.New(seed), scale: scale}
}

// At returns the gradient value at p, normalized to [0, 1].
func (f *Gradient) At(p orb.Point) float64 {
	v := f.noise.Eval2(p[0]/f.scale, p[1]/f.scale)
	return (v + 1) / 2
}
