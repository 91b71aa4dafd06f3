// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package hull

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/spatial/r2"
)

func randomPoints(rng *fastrand.RNG, n int, grid uint32) []r2.Vec {
	pts := make([]r2.Vec, n)
	for i := range pts {
		pts[i] = r2.Vec{X: float64(rng.Uint32n(grid)), Y: float64(rng.Uint32n(grid))}
	}
	return pts
}

func TestAreaSign(t *testing.T) {
	a, b := r2.Vec{X: 0, Y: 0}, r2.Vec{X: 1, Y: 0}
	if s := AreaSign(a, b, r2.Vec{X: 1, Y: 1}); s != 1 {
		t.Errorf("left turn=%d; want 1", s)
	}
	if s := AreaSign(a, b, r2.Vec{X: 1, Y: -1}); s != -1 {
		t.Errorf("right turn=%d; want -1", s)
	}
	if s := AreaSign(a, b, r2.Vec{X: 5, Y: 0}); s != 0 {
		t.Errorf("collinear=%d; want 0", s)
	}
}

func TestHullSquare(t *testing.T) {
	in := []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0.5, Y: 0.5}, {X: 0.5, Y: 0}}
	h, err := ConvexHull(in)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	want := []r2.Vec{{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}}
	if len(h) != len(want) {
		t.Fatalf("hull=%v; want %v", h, want)
	}
	for i := range want {
		if h[i].Vec != want[i] {
			t.Errorf("hull[%d]=%v; want %v", i, h[i], want[i])
		}
	}
	if h[0].Seq != 1 {
		t.Errorf("pivot seq=%d; want 1", h[0].Seq)
	}
	if in[0] != (r2.Vec{X: 0, Y: 0}) || in[1] != (r2.Vec{X: 1, Y: 0}) {
		t.Errorf("input modified: %v", in)
	}
}

func TestHullDuplicates(t *testing.T) {
	in := []r2.Vec{{X: 2, Y: 2}, {X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 0}}
	h, err := ConvexHull(in)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	wantSeq := []int{2, 0, 5, 1}
	if len(h) != len(wantSeq) {
		t.Fatalf("hull=%v; want seqs %v", h, wantSeq)
	}
	for i, s := range wantSeq {
		if h[i].Seq != s {
			t.Errorf("hull[%d]=%v; want seq %d", i, h[i], s)
		}
	}
}

func TestHullDegenerate(t *testing.T) {
	if _, err := ConvexHull(nil); !errors.Is(err, ErrNoPoints) {
		t.Errorf("empty input err=%v; want ErrNoPoints", err)
	}

	h, err := ConvexHull([]r2.Vec{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}})
	if !errors.Is(err, ErrDegenerate) {
		t.Errorf("coincident err=%v; want ErrDegenerate", err)
	}
	if len(h) != 1 || h[0].Seq != 0 {
		t.Errorf("coincident hull=%v; want single point with seq 0", h)
	}

	h, err = ConvexHull([]r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}})
	if !errors.Is(err, ErrDegenerate) {
		t.Errorf("collinear err=%v; want ErrDegenerate", err)
	}
	if len(h) != 2 || h[0].Vec != (r2.Vec{X: 2, Y: 0}) || h[1].Vec != (r2.Vec{X: 0, Y: 0}) {
		t.Errorf("collinear hull=%v; want endpoints", h)
	}
}

func TestHullContainsAllPoints(t *testing.T) {
	rng := fastrand.RNG{}
	for trial := 0; trial < 50; trial++ {
		pts := randomPoints(&rng, 5+int(rng.Uint32n(200)), 100)
		h, err := ConvexHull(pts)
		if err != nil {
			t.Fatalf("trial %d: unexpected error %s", trial, err)
		}
		for i := range h {
			a, b := h[i].Vec, h[(i+1)%len(h)].Vec
			if i+2 <= len(h) {
				if s := AreaSign(a, b, h[(i+2)%len(h)].Vec); s != 1 {
					t.Errorf("trial %d: hull not strictly convex at %d", trial, i)
				}
			}
			for _, p := range pts {
				if AreaSign(a, b, p) < 0 {
					t.Errorf("trial %d: point %v outside hull edge %v-%v", trial, p, a, b)
				}
			}
		}
	}
}

func TestHullDeterministic(t *testing.T) {
	rng := fastrand.RNG{}
	for trial := 0; trial < 20; trial++ {
		pts := randomPoints(&rng, 100, 6)
		h1, err1 := ConvexHull(pts)
		h2, err2 := ConvexHull(pts)
		if err1 != err2 || len(h1) != len(h2) {
			t.Fatalf("trial %d: results differ: %v %v vs %v %v", trial, h1, err1, h2, err2)
		}
		for i := range h1 {
			if h1[i] != h2[i] {
				t.Errorf("trial %d: hull[%d] %v vs %v", trial, i, h1[i], h2[i])
			}
		}
	}
}

func TestMinimumBoundingBoxCollinear(t *testing.T) {
	b, err := MinimumBoundingBox([]r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}})
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if b.Width != 2 || b.Height != 1 || b.Angle != 0 {
		t.Errorf("box=%v; want 2 x 1 angle 0", b)
	}
	if math.Signbit(b.Angle) {
		t.Errorf("angle is negative zero")
	}
	if js, _ := json.Marshal(b); !strings.Contains(string(js), `"angle":0}`) {
		t.Errorf("json=%s; want angle 0", js)
	}
	if math.Abs(b.Center.X-1) > 1e-12 || math.Abs(b.Center.Y) > 1e-12 {
		t.Errorf("center=%v; want (1,0)", b.Center)
	}
}

func TestMinimumBoundingBoxSmall(t *testing.T) {
	var tests = []struct {
		in   []r2.Vec
		want Box
	}{
		{[]r2.Vec{{X: 3, Y: 4}}, Box{Center: r2.Vec{X: 3, Y: 4}, Width: 1, Height: 1}},
		{[]r2.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}}, Box{Center: r2.Vec{X: 1, Y: 0}, Width: 3, Height: 1}},
		{[]r2.Vec{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}}, Box{Center: r2.Vec{X: 1, Y: 1}, Width: 1, Height: 1}},
	}
	for _, test := range tests {
		got, err := MinimumBoundingBox(test.in)
		if err != nil {
			t.Errorf("%v: unexpected error %s", test.in, err)
			continue
		}
		if got != test.want {
			t.Errorf("%v: box=%v; want %v", test.in, got, test.want)
		}
	}
	if _, err := MinimumBoundingBox(nil); !errors.Is(err, ErrNoPoints) {
		t.Errorf("empty err=%v; want ErrNoPoints", err)
	}
}

func TestMinimumBoundingBoxRotated(t *testing.T) {
	// a 4 x 1 rectangle rotated by 30 degrees
	sin, cos := math.Sincos(30 * math.Pi / 180)
	var pts []r2.Vec
	for _, c := range [][2]float64{{0, 0}, {4, 0}, {4, 1}, {0, 1}} {
		pts = append(pts, r2.Vec{X: c[0]*cos - c[1]*sin, Y: c[0]*sin + c[1]*cos})
	}
	b, err := MinimumBoundingBox(pts)
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if math.Abs(b.Area()-4) > 1e-9 {
		t.Errorf("area=%f; want 4", b.Area())
	}
	long, short := math.Max(b.Width, b.Height), math.Min(b.Width, b.Height)
	if math.Abs(long-4) > 1e-9 || math.Abs(short-1) > 1e-9 {
		t.Errorf("size=%f x %f; want 4 x 1", b.Width, b.Height)
	}
	for i, c := range b.Corners() {
		found := false
		for _, p := range pts {
			if r2.Norm(r2.Sub(c, p)) < 1e-9 {
				found = true
			}
		}
		if !found {
			t.Errorf("corner %d=%v is not a rectangle vertex", i, c)
		}
	}
}

func TestMinimumBoundingBoxMonotonic(t *testing.T) {
	rng := fastrand.RNG{}
	for trial := 0; trial < 50; trial++ {
		pts := randomPoints(&rng, 3+int(rng.Uint32n(50)), 1000)
		b, err := MinimumBoundingBox(pts)
		if err != nil {
			t.Fatalf("trial %d: unexpected error %s", trial, err)
		}
		aabb, err := AxisAlignedBox(pts)
		if err != nil {
			t.Fatalf("trial %d: unexpected error %s", trial, err)
		}
		if b.Area() > aabb.Area()*(1+1e-9) {
			t.Errorf("trial %d: box area %f > axis aligned area %f", trial, b.Area(), aabb.Area())
		}
		if b.Angle < -90 || b.Angle >= 90 {
			t.Errorf("trial %d: angle %f out of range", trial, b.Angle)
		}
	}
}

func TestBoxCorners(t *testing.T) {
	b := Box{Center: r2.Vec{X: 1, Y: 0}, Width: 2, Height: 1}
	want := [4]r2.Vec{{X: 0, Y: -0.5}, {X: 2, Y: -0.5}, {X: 2, Y: 0.5}, {X: 0, Y: 0.5}}
	for i, c := range b.Corners() {
		if r2.Norm(r2.Sub(c, want[i])) > 1e-12 {
			t.Errorf("corner %d=%v; want %v", i, c, want[i])
		}
	}

	b.Angle = -90
	want = [4]r2.Vec{{X: 1.5, Y: -1}, {X: 1.5, Y: 1}, {X: 0.5, Y: 1}, {X: 0.5, Y: -1}}
	for i, c := range b.Corners() {
		if r2.Norm(r2.Sub(c, want[i])) > 1e-12 {
			t.Errorf("rotated corner %d=%v; want %v", i, c, want[i])
		}
	}
}

func TestAxisAlignedBox(t *testing.T) {
	b, err := AxisAlignedBox([]r2.Vec{{X: 0, Y: 0}, {X: 4, Y: 1}, {X: 2, Y: 3}, {X: 1, Y: 1}})
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	want := Box{Center: r2.Vec{X: 2, Y: 1.5}, Width: 4, Height: 3}
	if b != want {
		t.Errorf("box=%v; want %v", b, want)
	}
}

func TestBoundingCircleSquare(t *testing.T) {
	c, err := BoundingCircle([]r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}})
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if math.Abs(c.Center.X-0.5) > 1e-12 || math.Abs(c.Center.Y-0.5) > 1e-12 {
		t.Errorf("center=%v; want (0.5,0.5)", c.Center)
	}
	if math.Abs(c.Radius-math.Sqrt(0.5)) > 1e-12 {
		t.Errorf("radius=%f; want %f", c.Radius, math.Sqrt(0.5))
	}
}

func TestBoundingCircleCentroidOfHull(t *testing.T) {
	// interior points must not pull the center
	c, err := BoundingCircle([]r2.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}, {X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.1}})
	if err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if math.Abs(c.Center.X-1) > 1e-12 || math.Abs(c.Center.Y-1) > 1e-12 {
		t.Errorf("center=%v; want (1,1)", c.Center)
	}
}
