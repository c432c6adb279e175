package dotosu

import (
	"math"
	"sort"
	"sync"
)

// === approximation constants, per ruleset ===
const (
	CATMULL_DETAIL = 50

	// arcs flatter than this are treated as lines
	ARC_COLLINEAR_EPSILON = 1e-7
	LENGTH_EPSILON        = 1e-9
)

type Vec struct{ X, Y float64 }

func (a Vec) Add(b Vec) Vec          { return Vec{a.X + b.X, a.Y + b.Y} }
func (a Vec) Sub(b Vec) Vec          { return Vec{a.X - b.X, a.Y - b.Y} }
func (a Vec) Scale(f float64) Vec    { return Vec{a.X * f, a.Y * f} }
func (a Vec) Dot(b Vec) float64      { return a.X*b.X + a.Y*b.Y }
func (a Vec) LengthSquared() float64 { return a.Dot(a) }
func (a Vec) Length() float64        { return math.Hypot(a.X, a.Y) }

func (a Vec) Normalize() Vec {
	l := a.Length()
	if l == 0 {
		return Vec{}
	}
	return Vec{a.X / l, a.Y / l}
}

func toVec(p Vec2) Vec { return Vec{float64(p.X), float64(p.Y)} }

// ---------- path types ----------

type SliderPathType uint8

const (
	PathBezier SliderPathType = iota
	PathLinear
	PathPerfect
	PathCatmull
)

func (t SliderPathType) Letter() string {
	switch t {
	case PathLinear:
		return "L"
	case PathPerfect:
		return "P"
	case PathCatmull:
		return "C"
	default:
		return "B"
	}
}

func (t SliderPathType) String() string {
	switch t {
	case PathLinear:
		return "linear"
	case PathPerfect:
		return "perfect"
	case PathCatmull:
		return "catmull"
	default:
		return "bezier"
	}
}

// parsePathType reads the first letter; anything unknown is Bezier.
func parsePathType(tok string) SliderPathType {
	if tok == "" {
		return PathBezier
	}
	switch tok[0] {
	case 'L':
		return PathLinear
	case 'P':
		return PathPerfect
	case 'C':
		return PathCatmull
	}
	return PathBezier
}

// Tolerance holds the approximation limits of one ruleset.
type Tolerance struct {
	Bezier        float64
	Arc           float64
	CatmullDetail int
}

// ToleranceFor returns the limits for mode. Taiko and mania only need slider
// lengths, so they approximate coarser.
func ToleranceFor(mode GameMode) Tolerance {
	switch mode {
	case ModeTaiko, ModeMania:
		return Tolerance{Bezier: 1.0, Arc: 0.4, CatmullDetail: CATMULL_DETAIL}
	default:
		return Tolerance{Bezier: 0.25, Arc: 0.1, CatmullDetail: CATMULL_DETAIL}
	}
}

// ---------- SliderPath ----------

// PathSegment is one typed run of control points. Consecutive segments share
// a point: the last point of one is the first of the next.
type PathSegment struct {
	Type   SliderPathType
	Points []Vec2 // absolute
}

// SliderPath is the raw curve of a slider. The polyline is computed on first
// use and cached.
type SliderPath struct {
	Segments       []PathSegment // the first point of the first segment is the slider head
	ExpectedLength float64
	Mode           GameMode

	once  sync.Once
	curve *Curve
}

// NewSliderPath builds a path of a single segment.
func NewSliderPath(t SliderPathType, points []Vec2, expected float64, mode GameMode) *SliderPath {
	return NewSegmentedSliderPath([]PathSegment{{Type: t, Points: points}}, expected, mode)
}

func NewSegmentedSliderPath(segments []PathSegment, expected float64, mode GameMode) *SliderPath {
	return &SliderPath{Segments: segments, ExpectedLength: expected, Mode: mode}
}

// Type is the type of the first segment.
func (p *SliderPath) Type() SliderPathType {
	if len(p.Segments) == 0 {
		return PathBezier
	}
	return p.Segments[0].Type
}

// ControlPoints lists every control point once, shared boundaries included.
func (p *SliderPath) ControlPoints() []Vec2 {
	var out []Vec2
	for i, seg := range p.Segments {
		pts := seg.Points
		if i > 0 && len(pts) > 0 {
			pts = pts[1:]
		}
		out = append(out, pts...)
	}
	return out
}

func (p *SliderPath) Curve() *Curve {
	p.once.Do(func() {
		p.curve = computeCurve(p.Segments, p.ExpectedLength, p.Mode)
	})
	return p.curve
}

func (p *SliderPath) Distance() float64 { return p.Curve().Distance() }

// ---------- Curve ----------

// Curve is an approximated polyline with the cumulative length at each vertex.
type Curve struct {
	Path    []Vec
	Lengths []float64
}

// ComputeCurve approximates the control points of a single segment and
// reconciles the result with expected. expected <= 0 keeps the natural length.
func ComputeCurve(t SliderPathType, points []Vec2, expected float64, mode GameMode) *Curve {
	return computeCurve([]PathSegment{{Type: t, Points: points}}, expected, mode)
}

func computeCurve(segments []PathSegment, expected float64, mode GameMode) *Curve {
	tol := ToleranceFor(mode)

	var path []Vec
	for i, seg := range segments {
		vs := make([]Vec, len(seg.Points))
		for j, p := range seg.Points {
			vs[j] = toVec(p)
		}
		for _, part := range splitRun(seg.Type, vs, i == len(segments)-1) {
			path = append(path, approximatePath(part.kind, part.pts, tol)...)
		}
	}

	path = dedup(path)
	lengths := cumulativeLengths(path)
	if expected > 0 {
		path, lengths = reconcileLength(path, lengths, expected)
	}
	return &Curve{Path: path, Lengths: lengths}
}

func (c *Curve) Distance() float64 {
	if len(c.Lengths) == 0 {
		return 0
	}
	return c.Lengths[len(c.Lengths)-1]
}

// DistanceAt maps progress in [0,1] to a distance along the curve.
func (c *Curve) DistanceAt(progress float64) float64 {
	return clampFloat(progress, 0, 1) * c.Distance()
}

// PositionAt interpolates the point at distance d along the curve.
func (c *Curve) PositionAt(d float64) Vec {
	if len(c.Path) == 0 {
		return Vec{}
	}
	i := sort.SearchFloat64s(c.Lengths, d)
	if i == 0 {
		return c.Path[0]
	}
	if i >= len(c.Path) {
		return c.Path[len(c.Path)-1]
	}
	p0, p1 := c.Path[i-1], c.Path[i]
	d0, d1 := c.Lengths[i-1], c.Lengths[i]
	if math.Abs(d1-d0) <= LENGTH_EPSILON {
		return p0
	}
	w := (d - d0) / (d1 - d0)
	return p0.Add(p1.Sub(p0).Scale(w))
}

func (c *Curve) PositionAtProgress(progress float64) Vec {
	return c.PositionAt(c.DistanceAt(progress))
}

// ---------- approximation ----------

func approximatePath(t SliderPathType, pts []Vec, tol Tolerance) []Vec {
	if len(pts) == 0 {
		return nil
	}
	switch t {
	case PathLinear:
		return append([]Vec(nil), pts...)

	case PathCatmull:
		return approximateCatmull(pts, tol.CatmullDetail)

	case PathPerfect:
		if len(pts) == 3 {
			if arc, ok := approximateCircularArc(pts[0], pts[1], pts[2], tol.Arc); ok {
				return arc
			}
		}
		// degenerate arcs take the bezier route over the same points
		fallthrough

	default:
		return approximateBezier(pts, tol.Bezier)
	}
}

type curvePart struct {
	kind SliderPathType
	pts  []Vec
}

// splitRun cuts one segment at every repeated control point; the repeat
// starts the next part, of the same type. A Perfect segment needs exactly
// three points, otherwise it is a Bezier. A repeat on the final pair is not
// a boundary, nor is any repeat past the second point of a Catmull segment.
// Every segment but the last ends on the next one's first point, which does
// not count as its final pair.
func splitRun(t SliderPathType, pts []Vec, final bool) []curvePart {
	if t == PathPerfect && len(pts) != 3 {
		t = PathBezier
	}
	last := len(pts) - 1
	if !final {
		last--
	}

	var parts []curvePart
	start := 0
	for i := 1; i < last; i++ {
		if pts[i] != pts[i-1] || (t == PathCatmull && i > 1) {
			continue
		}
		parts = append(parts, curvePart{t, pts[start:i]})
		start = i
	}
	return append(parts, curvePart{t, pts[start:]})
}

// --- Bezier (stack-based subdivision) ---

func approximateBezier(cp []Vec, tol float64) []Vec {
	n := len(cp)
	if n < 2 {
		return append([]Vec(nil), cp...)
	}
	var out []Vec
	mid := make([]Vec, n)
	stack := [][]Vec{append([]Vec(nil), cp...)}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if bezierFlatEnough(cur, tol) {
			out = bezierApproximate(out, cur, mid)
			continue
		}
		l, r := make([]Vec, n), make([]Vec, n)
		bezierSubdivide(cur, l, r, mid)
		// right first so the left half is flattened first
		stack = append(stack, r, l)
	}
	return append(out, cp[n-1])
}

func bezierFlatEnough(cp []Vec, tol float64) bool {
	limit := tol * tol * 4
	for i := 1; i < len(cp)-1; i++ {
		if cp[i-1].Sub(cp[i].Scale(2)).Add(cp[i+1]).LengthSquared() > limit {
			return false
		}
	}
	return true
}

// bezierSubdivide splits cp at t=0.5 via de Casteljau into l and r.
func bezierSubdivide(cp, l, r, mid []Vec) {
	n := len(cp)
	copy(mid, cp)
	for i := n - 1; i >= 1; i-- {
		l[n-i-1] = mid[0]
		r[i] = mid[i]
		for j := 0; j < i; j++ {
			mid[j] = mid[j].Add(mid[j+1]).Scale(0.5)
		}
	}
	l[n-1] = mid[0]
	r[0] = mid[0]
}

// bezierApproximate emits a piecewise-linear approximation of a flat curve
// with as many points as it has control points, minus the end point.
func bezierApproximate(out, cp, mid []Vec) []Vec {
	n := len(cp)
	l, r := make([]Vec, n), make([]Vec, n)
	bezierSubdivide(cp, l, r, mid)

	chain := append(l, r[1:]...)
	out = append(out, cp[0])
	for i := 1; i < n-1; i++ {
		k := 2 * i
		out = append(out, chain[k-1].Add(chain[k].Scale(2)).Add(chain[k+1]).Scale(0.25))
	}
	return out
}

// --- Catmull-Rom ---

func approximateCatmull(pts []Vec, detail int) []Vec {
	n := len(pts)
	if n == 1 {
		return []Vec{pts[0]}
	}
	at := func(i int, fallback func() Vec) Vec {
		if i < n {
			return pts[i]
		}
		return fallback()
	}

	out := make([]Vec, 0, (n-1)*detail*2)
	for i := 0; i < n-1; i++ {
		v1 := pts[max(i-1, 0)]
		v2 := pts[i]
		v3 := pts[i+1]
		v4 := at(i+2, func() Vec { return v3.Scale(2).Sub(v2) })
		out = catmullSubpath(out, v1, v2, v3, v4, detail)
	}
	return out
}

func catmullSubpath(out []Vec, v1, v2, v3, v4 Vec, detail int) []Vec {
	x1, y1 := 2*v2.X, 2*v2.Y
	x2, y2 := -v1.X+v3.X, -v1.Y+v3.Y
	x3, y3 := 2*v1.X-5*v2.X+4*v3.X-v4.X, 2*v1.Y-5*v2.Y+4*v3.Y-v4.Y
	x4, y4 := -v1.X+3*(v2.X-v3.X)+v4.X, -v1.Y+3*(v2.Y-v3.Y)+v4.Y

	pos := func(t float64) Vec {
		t2 := t * t
		t3 := t2 * t
		return Vec{
			X: 0.5 * (x1 + x2*t + x3*t2 + x4*t3),
			Y: 0.5 * (y1 + y2*t + y3*t2 + y4*t3),
		}
	}
	d := float64(detail)
	for c := 0; c < detail; c++ {
		out = append(out, pos(float64(c)/d), pos(float64(c+1)/d))
	}
	return out
}

// --- Perfect circle ---

func approximateCircularArc(a, b, c Vec, tol float64) ([]Vec, bool) {
	if math.Abs((b.Y-a.Y)*(c.X-a.X)-(b.X-a.X)*(c.Y-a.Y)) <= ARC_COLLINEAR_EPSILON {
		return nil, false
	}

	d := 2 * (a.X*(b.Y-c.Y) + b.X*(c.Y-a.Y) + c.X*(a.Y-b.Y))
	aSq, bSq, cSq := a.LengthSquared(), b.LengthSquared(), c.LengthSquared()
	centre := Vec{
		X: (aSq*(b.Y-c.Y) + bSq*(c.Y-a.Y) + cSq*(a.Y-b.Y)) / d,
		Y: (aSq*(c.X-b.X) + bSq*(a.X-c.X) + cSq*(b.X-a.X)) / d,
	}

	da, dc := a.Sub(centre), c.Sub(centre)
	radius := da.Length()
	thetaStart := math.Atan2(da.Y, da.X)
	thetaEnd := math.Atan2(dc.Y, dc.X)
	for thetaEnd < thetaStart {
		thetaEnd += 2 * math.Pi
	}

	dir := 1.0
	thetaRange := thetaEnd - thetaStart
	// which side of AC does B lie on
	ac := c.Sub(a)
	if (Vec{ac.Y, -ac.X}).Dot(b.Sub(a)) < 0 {
		dir = -1
		thetaRange = 2*math.Pi - thetaRange
	}

	amount := 2
	if 2*radius > tol {
		step := 2 * math.Acos(1-tol/radius)
		if math.Abs(step) > ARC_COLLINEAR_EPSILON {
			amount = max(2, int(math.Ceil(thetaRange/step)))
		}
	}

	out := make([]Vec, amount)
	for i := range out {
		theta := thetaStart + float64(i)/float64(amount-1)*dir*thetaRange
		out[i] = centre.Add(Vec{math.Cos(theta), math.Sin(theta)}.Scale(radius))
	}
	return out, true
}

// ---------- lengths ----------

func dedup(pts []Vec) []Vec {
	if len(pts) == 0 {
		return pts
	}
	out := pts[:1]
	for _, p := range pts[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

func cumulativeLengths(path []Vec) []float64 {
	if len(path) == 0 {
		return nil
	}
	out := make([]float64, len(path))
	for i := 1; i < len(path); i++ {
		out[i] = out[i-1] + path[i].Sub(path[i-1]).Length()
	}
	return out
}

// reconcileLength clips or extends the polyline so its length is expected.
// Clipping drops the vertices past expected and moves the new end point
// along its segment, nothing is resampled.
func reconcileLength(path []Vec, lengths []float64, expected float64) ([]Vec, []float64) {
	if len(lengths) < 2 || math.Abs(lengths[len(lengths)-1]-expected) <= LENGTH_EPSILON {
		return path, lengths
	}

	lengths = lengths[:len(lengths)-1]
	lastValid := sort.SearchFloat64s(lengths, expected)
	if lastValid < len(lengths) {
		lengths = lengths[:lastValid]
		path = path[:lastValid+1]
	}

	end := len(lengths)
	prev := end - 1
	dir := path[end].Sub(path[prev]).Normalize()
	path[end] = path[prev].Add(dir.Scale(expected - lengths[prev]))
	return path, append(lengths, expected)
}
