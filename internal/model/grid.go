package model

import "fmt"

// Cell is a grid coordinate. It is only meaningful where the body is occupied.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Grid is a rectangular W×H array stored row by row.
type Grid[T any] struct {
	w, h   int
	values []T
}

func NewGrid[T any](w, h int) Grid[T] {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Grid[T]{w: w, h: h, values: make([]T, w*h)}
}

// NewGridFunc builds a grid by calling fn for every coordinate.
func NewGridFunc[T any](w, h int, fn func(x, y int) T) Grid[T] {
	g := NewGrid[T](w, h)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			g.values[y*g.w+x] = fn(x, y)
		}
	}
	return g
}

func (g Grid[T]) W() int { return g.w }
func (g Grid[T]) H() int { return g.h }

func (g Grid[T]) InBounds(x, y int) bool {
	return x >= 0 && x < g.w && y >= 0 && y < g.h
}

// Get returns the zero value for out-of-bounds coordinates.
func (g Grid[T]) Get(x, y int) T {
	var zero T
	if !g.InBounds(x, y) {
		return zero
	}
	return g.values[y*g.w+x]
}

func (g Grid[T]) Set(x, y int, v T) {
	if !g.InBounds(x, y) {
		return
	}
	g.values[y*g.w+x] = v
}

// Clone copies the backing slice. Element values are copied shallowly.
func (g Grid[T]) Clone() Grid[T] {
	return Grid[T]{w: g.w, h: g.h, values: append([]T(nil), g.values...)}
}

// SameShape reports whether other has identical width and height.
func SameShape[T, U any](a Grid[T], b Grid[U]) bool {
	return a.w == b.w && a.h == b.h
}
