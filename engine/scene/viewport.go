package scene

// Viewport is a rectangular cell of the render target, origin at the top left.
type Viewport struct {
	X, Y, W, H int
}

// Aspect returns W / H, or 1 for a degenerate cell.
func (v Viewport) Aspect() float32 {
	if v.H <= 0 {
		return 1
	}
	return float32(v.W) / float32(v.H)
}

// FlipY converts the cell to a bottom-left origin for a target of the given height.
//
// Parameters:
//   - height: the render target height
//
// Returns:
//   - Viewport: the flipped cell
func (v Viewport) FlipY(height int) Viewport {
	v.Y = height - v.Y - v.H
	return v
}

// Grid splits a w × h target into cols × rows equal cells in row-major order, each inset by
// margin on every side. Cell sizes are floored; leftover pixels on the right and bottom stay
// unused.
//
// Parameters:
//   - w, h: the target size
//   - cols, rows: the grid dimensions
//   - margin: the inset per side
//
// Returns:
//   - []Viewport: cols·rows cells, nil for a non-positive grid
func Grid(w, h, cols, rows, margin int) []Viewport {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	cw, ch := w/cols, h/rows
	cells := make([]Viewport, 0, cols*rows)
	for y := range rows {
		for x := range cols {
			cells = append(cells, Viewport{
				X: x*cw + margin,
				Y: y*ch + margin,
				W: cw - 2*margin,
				H: ch - 2*margin,
			})
		}
	}
	return cells
}
