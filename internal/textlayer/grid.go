package textlayer

import (
	"sort"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// Grid is a coordinate-indexed view over a page's fragments, bucketed by
// vertical position.
type Grid struct {
	frags []entity.Fragment
	cell  float64
	index map[int][]int
}

// NewGrid indexes the fragments of p using cells of the given height.
func NewGrid(p entity.Page, cell float64) *Grid {
	if cell <= 0 {
		cell = 6
	}
	g := &Grid{frags: p.Fragments, cell: cell, index: make(map[int][]int)}
	for i, f := range p.Fragments {
		k := int(f.CenterY() / cell)
		g.index[k] = append(g.index[k], i)
	}
	return g
}

// Band returns fragments whose vertical center lies in [yMin, yMax],
// ordered left to right.
func (g *Grid) Band(yMin, yMax float64) []entity.Fragment {
	var out []entity.Fragment
	for k := int(yMin/g.cell) - 1; k <= int(yMax/g.cell)+1; k++ {
		for _, i := range g.index[k] {
			c := g.frags[i].CenterY()
			if c >= yMin && c <= yMax {
				out = append(out, g.frags[i])
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// RightOf returns fragments on the same band as f that start to its right.
func (g *Grid) RightOf(f entity.Fragment, tolerance float64) []entity.Fragment {
	var out []entity.Fragment
	for _, c := range g.Band(f.CenterY()-tolerance, f.CenterY()+tolerance) {
		if c.X >= f.Right() {
			out = append(out, c)
		}
	}
	return out
}

// MedianHeight returns the median fragment height, or 0 when empty.
func (g *Grid) MedianHeight() float64 {
	if len(g.frags) == 0 {
		return 0
	}
	hs := make([]float64, len(g.frags))
	for i, f := range g.frags {
		hs[i] = f.H
	}
	sort.Float64s(hs)
	return hs[len(hs)/2]
}
