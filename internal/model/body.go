package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownShape = fmt.Errorf("%w: unknown body shape", ErrConfiguration)
	ErrEmptyBody    = fmt.Errorf("%w: body has no occupied cells", ErrConfiguration)
)

// Body is a finalised occupancy grid. The scan order (y outer, x inner) and the
// dense index of every occupied cell are computed once here and never rescanned.
type Body struct {
	occupied Grid[bool]
	index    Grid[int]
	cells    []Cell
}

func NewBody(occupied Grid[bool]) (Body, error) {
	b := Body{
		occupied: occupied.Clone(),
		index:    NewGrid[int](occupied.W(), occupied.H()),
	}
	for y := 0; y < occupied.H(); y++ {
		for x := 0; x < occupied.W(); x++ {
			if !occupied.Get(x, y) {
				b.index.Set(x, y, -1)
				continue
			}
			b.index.Set(x, y, len(b.cells))
			b.cells = append(b.cells, Cell{X: x, Y: y})
		}
	}
	if len(b.cells) == 0 {
		return Body{}, ErrEmptyBody
	}
	return b, nil
}

func MustBody(occupied Grid[bool]) Body {
	b, err := NewBody(occupied)
	if err != nil {
		panic(err)
	}
	return b
}

func (b Body) W() int     { return b.occupied.W() }
func (b Body) H() int     { return b.occupied.H() }
func (b Body) Count() int { return len(b.cells) }

// Cells returns occupied cells in scan order.
func (b Body) Cells() []Cell {
	return append([]Cell(nil), b.cells...)
}

func (b Body) Occupied(x, y int) bool {
	return b.occupied.Get(x, y)
}

// Index returns the scan-order index of an occupied cell.
func (b Body) Index(c Cell) (int, bool) {
	if !b.Occupied(c.X, c.Y) {
		return -1, false
	}
	return b.index.Get(c.X, c.Y), true
}

// Mask returns a copy of the occupancy grid.
func (b Body) Mask() Grid[bool] {
	return b.occupied.Clone()
}

// String renders rows from y=0 upwards separated by '|'.
func (b Body) String() string {
	var sb strings.Builder
	for y := 0; y < b.H(); y++ {
		if y > 0 {
			sb.WriteByte('|')
		}
		for x := 0; x < b.W(); x++ {
			if b.Occupied(x, y) {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}

// ParseShape builds a body from a named shape such as "biped-4x3" or from an
// explicit row string such as "111|101" (first row is y=0).
func ParseShape(spec string) (Body, error) {
	if strings.ContainsAny(spec, "01") && !strings.Contains(spec, "x") {
		return ParseShapeGrid(spec)
	}
	name, dims, ok := strings.Cut(spec, "-")
	if !ok {
		return Body{}, fmt.Errorf("%w: %s", ErrUnknownShape, spec)
	}
	w, h, err := parseDims(dims)
	if err != nil {
		return Body{}, fmt.Errorf("%w: %s: %v", ErrUnknownShape, spec, err)
	}

	var fn func(x, y int) bool
	switch name {
	case "box", "worm":
		fn = func(int, int) bool { return true }
	case "biped":
		fn = func(x, y int) bool { return !(y < h/2 && x >= w/4 && x < w*3/4) }
	case "tripod":
		fn = func(x, y int) bool { return !(y < h/2 && x != 0 && x != w-1 && x != w/2) }
	case "comb":
		fn = func(x, y int) bool { return !(y < h/2 && x%2 != 0) }
	default:
		return Body{}, fmt.Errorf("%w: %s", ErrUnknownShape, spec)
	}
	return NewBody(NewGridFunc(w, h, fn))
}

func ParseShapeGrid(spec string) (Body, error) {
	rows := strings.Split(spec, "|")
	w := len(rows[0])
	for _, row := range rows {
		if len(row) != w {
			return Body{}, fmt.Errorf("%w: ragged rows in %q", ErrUnknownShape, spec)
		}
	}
	occupied := NewGrid[bool](w, len(rows))
	for y, row := range rows {
		for x, ch := range row {
			switch ch {
			case '1':
				occupied.Set(x, y, true)
			case '0':
			default:
				return Body{}, fmt.Errorf("%w: unexpected %q in %q", ErrUnknownShape, ch, spec)
			}
		}
	}
	return NewBody(occupied)
}

func parseDims(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, errors.New("expected WxH")
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, err
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, err
	}
	if w <= 0 || h <= 0 {
		return 0, 0, errors.New("dimensions must be > 0")
	}
	return w, h, nil
}
