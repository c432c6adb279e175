package dotosu

import (
	"math"
	"reflect"
	"testing"
)

const eps = 1e-9

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestCurveLinear(t *testing.T) {
	c := ComputeCurve(PathLinear, []Vec2{{0, 0}, {100, 0}, {100, 100}}, 0, ModeOsu)
	if c.Distance() != 200 {
		t.Fatalf("distance = %v, want 200", c.Distance())
	}
	if got := c.PositionAt(150); got != (Vec{100, 50}) {
		t.Fatalf("PositionAt(150) = %+v", got)
	}
	if got := c.PositionAtProgress(0); got != (Vec{0, 0}) {
		t.Fatalf("head = %+v", got)
	}
	if got := c.PositionAtProgress(2); got != (Vec{100, 100}) {
		t.Fatalf("progress past the end = %+v", got)
	}
	if c.DistanceAt(0.25) != 50 {
		t.Fatalf("DistanceAt(0.25) = %v", c.DistanceAt(0.25))
	}
}

func TestCurveLengthReconciliation(t *testing.T) {
	pts := []Vec2{{0, 0}, {100, 100}, {200, 0}, {300, 100}}
	natural := ComputeCurve(PathBezier, pts, 0, ModeOsu)
	L := natural.Distance()
	if L <= 0 {
		t.Fatalf("natural distance = %v", L)
	}

	t.Run("truncate", func(t *testing.T) {
		half := ComputeCurve(PathBezier, pts, L/2, ModeOsu)
		if !near(half.Distance(), L/2, eps) {
			t.Fatalf("distance = %v, want %v", half.Distance(), L/2)
		}
		n := len(half.Path)
		if n >= len(natural.Path) {
			t.Fatalf("truncated path has %d points, natural has %d", n, len(natural.Path))
		}
		for i := 0; i < n-1; i++ {
			if half.Path[i] != natural.Path[i] {
				t.Fatalf("point %d differs: %+v vs %+v", i, half.Path[i], natural.Path[i])
			}
		}
		// the clipped end lies on the natural path
		if end := natural.PositionAt(L / 2); !near(end.X, half.Path[n-1].X, 1e-6) || !near(end.Y, half.Path[n-1].Y, 1e-6) {
			t.Fatalf("end = %+v, natural position = %+v", half.Path[n-1], end)
		}
	})

	t.Run("extend", func(t *testing.T) {
		double := ComputeCurve(PathBezier, pts, 2*L, ModeOsu)
		if !near(double.Distance(), 2*L, eps) {
			t.Fatalf("distance = %v, want %v", double.Distance(), 2*L)
		}
		n := len(double.Path)
		if n != len(natural.Path) {
			t.Fatalf("extended path has %d points, natural has %d", n, len(natural.Path))
		}
		for i := 0; i < n-1; i++ {
			if double.Path[i] != natural.Path[i] || double.Lengths[i] != natural.Lengths[i] {
				t.Fatalf("point %d differs", i)
			}
		}
		// extension keeps the direction of the final segment
		a := natural.Path[n-1].Sub(natural.Path[n-2]).Normalize()
		b := double.Path[n-1].Sub(double.Path[n-2]).Normalize()
		if !near(a.X, b.X, 1e-9) || !near(a.Y, b.Y, 1e-9) {
			t.Fatalf("direction changed: %+v vs %+v", a, b)
		}
	})

	t.Run("unspecified", func(t *testing.T) {
		for _, expected := range []float64{0, -10} {
			c := ComputeCurve(PathBezier, pts, expected, ModeOsu)
			if !reflect.DeepEqual(c, natural) {
				t.Fatalf("expected length %v changed the curve", expected)
			}
		}
	})
}

func TestPerfectCurveCollinearFallsBackToBezier(t *testing.T) {
	pts := []Vec2{{0, 0}, {50, 0}, {100, 0}}
	perfect := ComputeCurve(PathPerfect, pts, 0, ModeOsu)
	bezier := ComputeCurve(PathBezier, pts, 0, ModeOsu)
	if !reflect.DeepEqual(perfect, bezier) {
		t.Fatalf("perfect = %+v\nbezier = %+v", perfect, bezier)
	}
	if perfect.Distance() != 100 {
		t.Fatalf("distance = %v", perfect.Distance())
	}

	// anything but three points is not an arc either
	four := []Vec2{{0, 0}, {50, 50}, {100, 0}, {150, 50}}
	if !reflect.DeepEqual(ComputeCurve(PathPerfect, four, 0, ModeOsu), ComputeCurve(PathBezier, four, 0, ModeOsu)) {
		t.Fatal("four-point perfect curve did not use bezier")
	}
}

func TestPerfectCurveArc(t *testing.T) {
	c := ComputeCurve(PathPerfect, []Vec2{{0, 0}, {50, 50}, {100, 0}}, 0, ModeOsu)
	if !near(c.Distance(), 50*math.Pi, 0.5) {
		t.Fatalf("distance = %v, want about %v", c.Distance(), 50*math.Pi)
	}
	if len(c.Path) < 3 {
		t.Fatalf("arc has only %d points", len(c.Path))
	}
	mid := c.PositionAtProgress(0.5)
	if !near(mid.X, 50, 1e-3) || !near(mid.Y, 50, 1e-3) {
		t.Fatalf("arc midpoint = %+v, want (50,50)", mid)
	}
	end := c.Path[len(c.Path)-1]
	if !near(end.X, 100, 1e-9) || !near(end.Y, 0, 1e-9) {
		t.Fatalf("arc end = %+v", end)
	}
}

func TestBezierSegments(t *testing.T) {
	c := ComputeCurve(PathBezier, []Vec2{{0, 0}, {100, 0}, {100, 0}, {100, 100}}, 0, ModeOsu)
	want := []Vec{{0, 0}, {100, 0}, {100, 100}}
	if !reflect.DeepEqual(c.Path, want) {
		t.Fatalf("path = %+v", c.Path)
	}
	if c.Distance() != 200 {
		t.Fatalf("distance = %v", c.Distance())
	}
}

func TestBezierToleranceByMode(t *testing.T) {
	pts := []Vec2{{0, 0}, {100, 200}, {200, 0}}
	osu := ComputeCurve(PathBezier, pts, 0, ModeOsu)
	taiko := ComputeCurve(PathBezier, pts, 0, ModeTaiko)
	if len(taiko.Path) >= len(osu.Path) {
		t.Fatalf("taiko has %d points, osu %d", len(taiko.Path), len(osu.Path))
	}
	if ToleranceFor(ModeCatch) != ToleranceFor(ModeOsu) || ToleranceFor(ModeMania) != ToleranceFor(ModeTaiko) {
		t.Fatal("unexpected tolerance grouping")
	}
}

func TestCatmullCurve(t *testing.T) {
	c := ComputeCurve(PathCatmull, []Vec2{{0, 0}, {100, 50}, {200, 0}, {300, 50}}, 0, ModeOsu)
	if c.Path[0] != (Vec{0, 0}) {
		t.Fatalf("catmull head = %+v", c.Path[0])
	}
	end := c.Path[len(c.Path)-1]
	if !near(end.X, 300, 1e-9) || !near(end.Y, 50, 1e-9) {
		t.Fatalf("catmull end = %+v", end)
	}
	for i := 1; i < len(c.Lengths); i++ {
		if c.Lengths[i] <= c.Lengths[i-1] {
			t.Fatalf("lengths not increasing at %d", i)
		}
	}
}

func TestSliderPathCachesCurve(t *testing.T) {
	p := NewSliderPath(PathLinear, []Vec2{{0, 0}, {30, 40}}, 0, ModeOsu)
	if p.Curve() != p.Curve() {
		t.Fatal("curve recomputed")
	}
	if p.Distance() != 50 {
		t.Fatalf("distance = %v", p.Distance())
	}
}
