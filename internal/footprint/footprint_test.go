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

package footprint

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/mlnoga/wcsbounds/internal/hull"
	"github.com/mlnoga/wcsbounds/internal/vec"
	"github.com/mlnoga/wcsbounds/internal/wcs"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/spatial/r2"
)

func image(t *testing.T, lon, lat, rot float64, n1, n2 int) *wcs.Descriptor {
	t.Helper()
	d, err := wcs.NewDescriptor(wcs.Descriptor{
		RefSky:   vec.SkyPoint{Lon: lon, Lat: lat},
		RefPixel: wcs.XY{X: float64(n1+1) / 2, Y: float64(n2+1) / 2},
		Scale:    wcs.XY{X: -0.001, Y: 0.001},
		Rotation: rot,
		Code:     wcs.TAN,
		Naxis1:   n1,
		Naxis2:   n2,
	})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestTangentPlaneRoundTrip(t *testing.T) {
	rng := fastrand.RNG{}
	for _, rot := range []float64{0, 25, -110} {
		tp := NewTangentPlane(vec.SkyPoint{Lon: 30, Lat: 40}, rot)
		for i := 0; i < 100; i++ {
			s := vec.SkyPoint{
				Lon: 30 + float64(rng.Uint32n(4000))/100 - 20,
				Lat: 40 + float64(rng.Uint32n(4000))/100 - 20,
			}
			p, err := tp.ProjectSky(s)
			if err != nil {
				t.Fatalf("%v: %s", s, err)
			}
			back := tp.Deproject(p)
			if a := vec.Angle(back, vec.FromSky(s)); a > 1e-9 {
				t.Errorf("rot %g: %v came back %g degrees off", rot, s, a)
			}
		}
	}
}

func TestTangentPlaneAxes(t *testing.T) {
	tp := NewTangentPlane(vec.SkyPoint{Lon: 0, Lat: 0}, 0)
	east, err := tp.ProjectSky(vec.SkyPoint{Lon: 1, Lat: 0})
	if err != nil {
		t.Fatal(err)
	}
	want := math.Tan(vec.DTR) / vec.DTR
	if math.Abs(east.X-want) > 1e-12 || math.Abs(east.Y) > 1e-12 {
		t.Errorf("east got %v want (%g, 0)", east, want)
	}
	north, err := tp.ProjectSky(vec.SkyPoint{Lon: 0, Lat: 1})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(north.X) > 1e-12 || math.Abs(north.Y-want) > 1e-12 {
		t.Errorf("north got %v want (0, %g)", north, want)
	}

	if _, err := tp.ProjectSky(vec.SkyPoint{Lon: 180, Lat: 0}); !errors.Is(err, wcs.ErrDomain) {
		t.Errorf("antipode: got %v want ErrDomain", err)
	}
	if _, err := tp.ProjectSky(vec.SkyPoint{Lon: 90, Lat: 0}); !errors.Is(err, wcs.ErrDomain) {
		t.Errorf("horizon: got %v want ErrDomain", err)
	}
}

func TestComputeTooFewPoints(t *testing.T) {
	_, err := Compute([]vec.SkyPoint{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}}, Box)
	if !errors.Is(err, hull.ErrDegenerate) {
		t.Errorf("got %v want hull.ErrDegenerate", err)
	}
}

func TestComputeNoCentroid(t *testing.T) {
	_, err := Compute([]vec.SkyPoint{{Lon: 0, Lat: 0}, {Lon: 120, Lat: 0}, {Lon: 240, Lat: 0}}, Box)
	if !errors.Is(err, wcs.ErrDomain) {
		t.Errorf("got %v want wcs.ErrDomain", err)
	}
}

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestImageFootprintBox(t *testing.T) {
	for _, c := range []struct{ lon, lat, rot float64 }{{10, 20, 0}, {0, -5, 30}, {250, 60, -40}} {
		d := image(t, c.lon, c.lat, c.rot, 200, 100)
		fi, err := ImageFootprint(d, Box)
		if err != nil {
			t.Fatal(err)
		}
		if s := Separation(fi.Center, d.RefSky); s > 1e-8 {
			t.Errorf("%v: center %v is %g degrees off", c, fi.Center, s)
		}

		// the minimum box of a rectangle is the rectangle, in either orientation
		straight := near(fi.LonSize, 0.2, 1e-7) && near(fi.LatSize, 0.1, 1e-7) && near(fi.PosAngle, -c.rot, 1e-6)
		turned := near(fi.LonSize, 0.1, 1e-7) && near(fi.LatSize, 0.2, 1e-7) && near(math.Abs(fi.PosAngle+c.rot), 90, 1e-6)
		if !straight && !turned {
			t.Errorf("%v: got %v", c, fi)
		}
		if want := math.Hypot(0.1, 0.05); !near(fi.Radius, want, 1e-6) {
			t.Errorf("%v: radius %g want %g", c, fi.Radius, want)
		}

		cs, _ := wcs.Corners(d)
		for _, ic := range cs {
			best := math.Inf(1)
			for _, bc := range fi.Corners {
				best = math.Min(best, Separation(ic, bc))
			}
			if best > 1e-7 {
				t.Errorf("%v: image corner %v not on box, %g degrees off", c, ic, best)
			}
		}
	}
}

func TestImageFootprintVerticalBox(t *testing.T) {
	d := image(t, 120, 10, 30, 200, 100)
	fi, err := ImageFootprint(d, VerticalBox)
	if err != nil {
		t.Fatal(err)
	}
	sin, cos := math.Sincos(30 * vec.DTR)
	wantW, wantH := 0.2*cos+0.1*sin, 0.2*sin+0.1*cos
	if !near(fi.LonSize, wantW, 1e-7) || !near(fi.LatSize, wantH, 1e-7) || fi.PosAngle != 0 {
		t.Errorf("got %v want size %g x %g angle 0", fi, wantW, wantH)
	}
	if fi.Mode != VerticalBox {
		t.Errorf("mode %s", fi.Mode)
	}
}

func TestImageFootprintCircle(t *testing.T) {
	d := image(t, 359.99, 0, 0, 100, 100)
	fi, err := ImageFootprint(d, Circle)
	if err != nil {
		t.Fatal(err)
	}
	want := math.Hypot(0.05, 0.05)
	if !near(fi.Radius, want, 1e-7) || !near(fi.LonSize, 2*want, 1e-7) || !near(fi.LatSize, 2*want, 1e-7) {
		t.Errorf("got %v want radius %g", fi, want)
	}
	if s := Separation(fi.Center, d.RefSky); s > 1e-8 {
		t.Errorf("center %v is %g degrees off", fi.Center, s)
	}
	for _, c := range fi.Corners {
		if c.Lon < 0 || c.Lon >= 360 {
			t.Errorf("corner %v outside [0,360)", c)
		}
		if s := Separation(c, fi.Center); !near(s, want*math.Sqrt2, 1e-6) {
			t.Errorf("corner %v at %g degrees, want %g", c, s, want*math.Sqrt2)
		}
	}
}

func TestComputeRandomPointsInsideBox(t *testing.T) {
	rng := fastrand.RNG{}
	pts := make([]vec.SkyPoint, 200)
	for i := range pts {
		pts[i] = vec.SkyPoint{
			Lon: 80 + float64(rng.Uint32n(10000))/5000,
			Lat: -30 + float64(rng.Uint32n(10000))/10000,
		}
	}
	fi, err := Compute(pts, Box)
	if err != nil {
		t.Fatal(err)
	}
	// every point lies in the deprojected box, checked in the box center's plane
	tp := NewTangentPlane(fi.Center, 0)
	var quad [4]r2.Vec
	for i, c := range fi.Corners {
		if quad[i], err = tp.ProjectSky(c); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range pts {
		q, err := tp.ProjectSky(p)
		if err != nil {
			t.Fatal(err)
		}
		for i := range quad {
			a, b := quad[i], quad[(i+1)%4]
			if cross := r2.Cross(r2.Sub(b, a), r2.Sub(q, a)); cross < -1e-9 {
				t.Errorf("point %v outside edge %d of %v", p, i, fi)
				break
			}
		}
	}
}

func TestOverlaps(t *testing.T) {
	a, _ := ImageFootprint(image(t, 10, 0, 0, 100, 100), Box)
	cases := []struct {
		lon, lat, rot float64
		want          bool
	}{
		{10.05, 0.02, 0, true}, // shifted by half a width
		{10.09, 0, 0, true},    // thin overlap
		{10.12, 0, 0, false},   // circumscribed circles overlap, boxes do not
		{10, 0.13, 45, false},  // rotated, above
		{10.1, 0.02, 45, true}, // rotated corner pokes in
		{11, 0, 0, false},      // far away
		{190, 0, 0, false},     // other side of the sky
	}
	for _, c := range cases {
		b, err := ImageFootprint(image(t, c.lon, c.lat, c.rot, 100, 100), Box)
		if err != nil {
			t.Fatal(err)
		}
		if got := Overlaps(a, b); got != c.want {
			t.Errorf("%v: got %v", c, got)
		}
		if got := Overlaps(b, a); got != c.want {
			t.Errorf("%v reversed: got %v", c, got)
		}
	}
}

func TestSeparation(t *testing.T) {
	if s := Separation(vec.SkyPoint{Lon: 0, Lat: 0}, vec.SkyPoint{Lon: 90, Lat: 0}); !near(s, 90, 1e-9) {
		t.Errorf("got %g want 90", s)
	}
	if s := Separation(vec.SkyPoint{Lon: 359.5, Lat: 0}, vec.SkyPoint{Lon: 0.5, Lat: 0}); !near(s, 1, 1e-9) {
		t.Errorf("got %g want 1", s)
	}
	want := 0.002 * math.Cos(10*math.Pi/180)
	for _, lons := range [][2]float64{{359.999, 0.001}, {0.001, 359.999}, {-0.001, 0.001}, {719.999, 0.001}} {
		s := Separation(vec.SkyPoint{Lon: lons[0], Lat: 10}, vec.SkyPoint{Lon: lons[1], Lat: 10})
		if !near(s, want, 1e-8) {
			t.Errorf("%v: got %g want %g", lons, s, want)
		}
	}
}

func TestOverlapsAcrossZero(t *testing.T) {
	a, err := ImageFootprint(image(t, 359.99, 0, 0, 100, 100), Box)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []struct {
		lon  float64
		want bool
	}{
		{0.01, true},
		{0.05, true},
		{0.12, false},
	} {
		b, err := ImageFootprint(image(t, c.lon, 0, 0, 100, 100), Box)
		if err != nil {
			t.Fatal(err)
		}
		if got := Overlaps(a, b); got != c.want {
			t.Errorf("lon %g: got %v", c.lon, got)
		}
		if got := Overlaps(b, a); got != c.want {
			t.Errorf("lon %g reversed: got %v", c.lon, got)
		}
	}
}

func TestMakeHeaderCoversCorners(t *testing.T) {
	ds := []*wcs.Descriptor{
		image(t, 10, 20, 0, 200, 100),
		image(t, 10.15, 20.05, 20, 200, 100),
		image(t, 9.95, 19.9, -10, 150, 150),
	}
	infos := make([]Info, len(ds))
	for i, d := range ds {
		fi, err := ImageFootprint(d, Box)
		if err != nil {
			t.Fatal(err)
		}
		infos[i] = fi
	}

	for _, north := range []bool{false, true} {
		hdr, err := MakeHeader(infos, 0.001, 0, north)
		if err != nil {
			t.Fatal(err)
		}
		if hdr.Code != wcs.TAN || hdr.Scale.X != -0.001 || hdr.Scale.Y != 0.001 {
			t.Errorf("got %v", hdr)
		}
		if north && hdr.Rotation != 0 {
			t.Errorf("north aligned header rotated by %g", hdr.Rotation)
		}
		for _, d := range ds {
			cs, _ := wcs.Corners(d)
			for _, c := range cs {
				x, y, err := hdr.Inverse(c.Lon, c.Lat)
				if err != nil {
					t.Fatal(err)
				}
				if x < -0.5 || x > float64(hdr.Naxis1)+1.5 || y < -0.5 || y > float64(hdr.Naxis2)+1.5 {
					t.Errorf("north %v: corner %v at pixel (%g, %g) outside %dx%d", north, c, x, y, hdr.Naxis1, hdr.Naxis2)
				}
			}
		}
	}

	padded, err := MakeHeader(infos, 0.001, 5, false)
	if err != nil {
		t.Fatal(err)
	}
	plain, _ := MakeHeader(infos, 0.001, 0, false)
	if padded.Naxis1 < plain.Naxis1+8 || padded.Naxis2 < plain.Naxis2+8 {
		t.Errorf("padding: %dx%d vs %dx%d", padded.Naxis1, padded.Naxis2, plain.Naxis1, plain.Naxis2)
	}
}

func TestMakeHeaderErrors(t *testing.T) {
	if _, err := MakeHeader(nil, 0.001, 0, false); !errors.Is(err, wcs.ErrConfig) {
		t.Errorf("no infos: got %v", err)
	}
	fi, _ := ImageFootprint(image(t, 10, 20, 0, 10, 10), Box)
	if _, err := MakeHeader([]Info{fi}, 0, 0, false); !errors.Is(err, wcs.ErrConfig) {
		t.Errorf("zero cdelt: got %v", err)
	}
}

func TestModeJSON(t *testing.T) {
	fi := Info{Mode: Circle}
	b, err := json.Marshal(fi)
	if err != nil {
		t.Fatal(err)
	}
	var back Info
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.Mode != Circle {
		t.Errorf("got %s from %s", back.Mode, b)
	}
	if _, err := ParseMode("ellipse"); err == nil {
		t.Errorf("expected error for unknown mode")
	}
	if m, err := ParseMode(" VBox "); err != nil || m != VerticalBox {
		t.Errorf("got %v, %v", m, err)
	}
}
