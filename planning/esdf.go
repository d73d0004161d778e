package planning

import "math"

// SignedDistanceField mirrors an occupancy grid's footprint with a dense
// per-cell signed Euclidean distance to the nearest occupied cell: positive
// outside obstacles, negative inside (spec.md §3).
type SignedDistanceField struct {
	Config      GridConfig
	D           []float64
	MaxDistance float64
}

// NewSignedDistanceField allocates a zero field for the given config.
func NewSignedDistanceField(cfg GridConfig, maxDistance float64) *SignedDistanceField {
	return &SignedDistanceField{
		Config:      cfg,
		D:           make([]float64, cfg.WidthCells*cfg.HeightCells),
		MaxDistance: maxDistance,
	}
}

// At returns the signed distance at cell, clamped to +/- MaxDistance, and
// whether the query was in-bounds. Out-of-bounds queries report -MaxDistance
// (treated as maximally occupied), matching the occupancy grid's
// out-of-range-is-occupied convention.
func (f *SignedDistanceField) At(cell Cell) (float64, bool) {
	idx, ok := f.Config.Index(cell)
	if !ok {
		return -f.MaxDistance, false
	}
	return f.D[idx], true
}

// AtWorld resolves a world-frame point to a cell and returns its distance.
func (f *SignedDistanceField) AtWorld(x, y float64) float64 {
	d, _ := f.At(f.Config.WorldToCell(x, y))
	return d
}

// BuildSignedDistanceField computes the ESDF for an occupancy grid using a
// two-pass squared-Euclidean-distance transform (Felzenszwalt & Huttenlocher
// style 1D transforms applied along rows then columns), as prescribed by
// spec.md §9 in place of a naive per-cell nearest-obstacle search. occThresh
// is the cost at or above which a cell counts as occupied.
func BuildSignedDistanceField(grid *OccupancyGrid, occThresh uint8, maxDistance float64) *SignedDistanceField {
	cfg := grid.Config
	w, h := cfg.WidthCells, cfg.HeightCells

	occupied := make([]bool, w*h)
	for i, c := range grid.Data {
		occupied[i] = c >= occThresh
	}

	// Distance (in cells) from free cells to nearest occupied cell, and the
	// symmetric field for occupied cells to nearest free cell. Squaring and
	// un-squaring happens inside edt.
	outsideSq := edt(occupied, w, h, false)
	insideSq := edt(occupied, w, h, true)

	field := NewSignedDistanceField(cfg, maxDistance)
	for i := 0; i < w*h; i++ {
		var d float64
		if occupied[i] {
			d = -math.Sqrt(insideSq[i]) * cfg.ResolutionM
		} else {
			d = math.Sqrt(outsideSq[i]) * cfg.ResolutionM
		}
		if d > maxDistance {
			d = maxDistance
		}
		if d < -maxDistance {
			d = -maxDistance
		}
		field.D[i] = d
	}
	return field
}

// edt computes, for every cell, the squared cell-unit distance to the
// nearest cell whose `occupied` value differs appropriately: when invert is
// false, distance to the nearest occupied==true cell (used for free-space
// distance); when invert is true, distance to the nearest occupied==false
// cell (used for inside-obstacle distance). Two-pass 1D transforms: rows
// then columns, classic EDT decomposition.
func edt(occupied []bool, w, h int, invert bool) []float64 {
	const inf = 1e20
	target := func(i int) bool {
		if invert {
			return !occupied[i]
		}
		return occupied[i]
	}

	sq := make([]float64, w*h)
	for i := range sq {
		if target(i) {
			sq[i] = 0
		} else {
			sq[i] = inf
		}
	}

	// Pass 1: 1D transform along each row.
	row := make([]float64, w)
	for y := 0; y < h; y++ {
		copy(row, sq[y*w:y*w+w])
		out := edt1D(row)
		copy(sq[y*w:y*w+w], out)
	}

	// Pass 2: 1D transform along each column.
	col := make([]float64, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = sq[y*w+x]
		}
		out := edt1D(col)
		for y := 0; y < h; y++ {
			sq[y*w+x] = out[y]
		}
	}
	return sq
}

// edt1D is the classic lower-envelope-of-parabolas 1D squared distance
// transform.
func edt1D(f []float64) []float64 {
	n := len(f)
	d := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)
	const inf = 1e20

	k := 0
	v[0] = 0
	z[0] = -inf
	z[1] = inf
	for q := 1; q < n; q++ {
		s := intersect(f, v[k], q)
		for s <= z[k] {
			k--
			s = intersect(f, v[k], q)
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = inf
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dx := float64(q - v[k])
		d[q] = dx*dx + f[v[k]]
	}
	return d
}

func intersect(f []float64, q, r int) float64 {
	fq, fr := f[q], f[r]
	qf, rf := float64(q), float64(r)
	return ((fr + rf*rf) - (fq + qf*qf)) / (2*rf - 2*qf)
}
