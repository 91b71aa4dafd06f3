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

package wcs

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/mlnoga/wcsbounds/internal/vec"
)

func mustDescriptor(t *testing.T, d Descriptor) *Descriptor {
	t.Helper()
	res, err := NewDescriptor(d)
	if err != nil {
		t.Fatalf("NewDescriptor(%v): %s", d, err)
	}
	return res
}

func checkRoundTrip(t *testing.T, d *Descriptor, eps float64) {
	t.Helper()
	for y := -10.0; y <= 110; y += 20 {
		for x := -10.0; x <= 110; x += 20 {
			lon, lat, err := d.Forward(x, y)
			if err != nil {
				t.Errorf("%v: Forward(%g,%g): %s", d, x, y, err)
				continue
			}
			if lon < 0 || lon >= 360 {
				t.Errorf("%v: Forward(%g,%g) lon %g outside [0,360)", d, x, y, lon)
			}
			xx, yy, err := d.Inverse(lon, lat)
			if err != nil {
				t.Errorf("%v: Inverse(%g,%g): %s", d, lon, lat, err)
				continue
			}
			if math.Abs(xx-x) > eps || math.Abs(yy-y) > eps {
				t.Errorf("%v: round trip (%g,%g) -> (%g,%g) -> (%.9f,%.9f)", d, x, y, lon, lat, xx, yy)
			}
		}
	}
}

func TestRoundTripAllCodes(t *testing.T) {
	for _, c := range Codes() {
		for _, rot := range []float64{0, 15} {
			d := mustDescriptor(t, Descriptor{
				RefSky:   vec.SkyPoint{Lon: 30, Lat: 40},
				RefPixel: XY{50.5, 50.5},
				Scale:    XY{-0.01, 0.01},
				Rotation: rot,
				Code:     c,
				Naxis1:   100,
				Naxis2:   100,
			})
			eps := 1e-6
			if c == COE {
				eps = 1e-4 // series inversion
			}
			checkRoundTrip(t, d, eps)
		}
	}
}

// Cylindrical projections with latitude-dependent scaling, also at the equator
func TestRoundTripEquator(t *testing.T) {
	for _, c := range []Code{CAR, MER, AIT, GLS, SFL} {
		d := mustDescriptor(t, Descriptor{
			RefSky:   vec.SkyPoint{Lon: 0, Lat: 0},
			RefPixel: XY{50.5, 50.5},
			Scale:    XY{-0.01, 0.01},
			Rotation: 15,
			Code:     c,
			Naxis1:   100,
			Naxis2:   100,
		})
		checkRoundTrip(t, d, 1e-6)
	}
}

func TestRoundTripConicBothHemispheres(t *testing.T) {
	for _, lat := range []float64{40, -40} {
		for _, xinc := range []float64{-0.01, 0.01} {
			d := mustDescriptor(t, Descriptor{
				RefSky:   vec.SkyPoint{Lon: 120, Lat: lat},
				RefPixel: XY{50.5, 50.5},
				Scale:    XY{xinc, 0.01},
				Code:     COE,
			})
			checkRoundTrip(t, d, 1e-4)
		}
	}
}

func TestRoundTripCD(t *testing.T) {
	sin, cos := math.Sincos(20 * math.Pi / 180)
	cd := [4]float64{-0.01 * cos, -0.01 * sin, -0.01 * sin, 0.01 * cos}
	d := mustDescriptor(t, Descriptor{
		RefSky:   vec.SkyPoint{Lon: 200, Lat: -30},
		RefPixel: XY{40, 60},
		CD:       &cd,
		Code:     TAN,
	})
	checkRoundTrip(t, d, 1e-6)
}

func TestReferencePixelFixpoint(t *testing.T) {
	ref := vec.SkyPoint{Lon: 123.456, Lat: -12.5}
	for _, c := range Codes() {
		d := mustDescriptor(t, Descriptor{
			RefSky:   ref,
			RefPixel: XY{10.25, 20.75},
			Scale:    XY{-0.002, 0.002},
			Rotation: 7,
			Code:     c,
		})
		lon, lat, err := d.Forward(10.25, 20.75)
		if err != nil {
			t.Errorf("%s: %s", c, err)
			continue
		}
		if lon != ref.Lon || lat != ref.Lat {
			t.Errorf("%s: got (%v, %v) want %v", c, lon, lat, ref)
		}
	}
}

func TestFixpointNormalizesLongitude(t *testing.T) {
	d := mustDescriptor(t, Descriptor{
		RefSky:   vec.SkyPoint{Lon: -10, Lat: 5},
		RefPixel: XY{1, 1},
		Scale:    XY{-0.001, 0.001},
		Code:     TAN,
	})
	lon, lat, err := d.Forward(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if lon != 350 || lat != 5 {
		t.Errorf("got (%v, %v) want (350, 5)", lon, lat)
	}
}

func TestUnitSquareTAN(t *testing.T) {
	d := mustDescriptor(t, Descriptor{
		RefSky:   vec.SkyPoint{Lon: 180, Lat: 0},
		RefPixel: XY{0.5, 0.5},
		Scale:    XY{-0.001, 0.001},
		Code:     TAN,
	})
	lon, lat, err := d.Forward(0.5, 0.5)
	if err != nil || lon != 180 || lat != 0 {
		t.Errorf("reference pixel: got (%v, %v, %v) want (180, 0, nil)", lon, lat, err)
	}

	lon, lat, err = d.Forward(1.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	l := -0.001 * math.Pi / 180
	wantLon := 180 + math.Atan(l)*180/math.Pi
	if math.Abs(lon-wantLon) > 1e-9 || math.Abs(lat) > 1e-9 {
		t.Errorf("got (%.12f, %.12f) want (%.12f, 0)", lon, lat, wantLon)
	}
	if !(lon < 180) {
		t.Errorf("longitude %v should be slightly less than 180", lon)
	}
}

func TestSINDomainError(t *testing.T) {
	d := mustDescriptor(t, Descriptor{
		RefSky:   vec.SkyPoint{Lon: 10, Lat: 10},
		RefPixel: XY{0, 0},
		Scale:    XY{-1, 1},
		Code:     SIN,
	})
	// 100 degrees off the reference is beyond the orthographic horizon
	_, _, err := d.Forward(100, 0)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, ErrDomain) {
		t.Errorf("got %v, want ErrDomain", err)
	}
	var pe *ProjectionError
	if !errors.As(err, &pe) {
		t.Fatalf("got %T, want *ProjectionError", err)
	}
	if pe.Code != SIN || pe.Direction != DirForward || pe.Status() != 1 {
		t.Errorf("got %s status %d", pe, pe.Status())
	}
	if !IsDomainError(err) {
		t.Errorf("IsDomainError(%v) = false", err)
	}
}

func TestTANInverseBehindPlane(t *testing.T) {
	d := mustDescriptor(t, Descriptor{
		RefSky:   vec.SkyPoint{Lon: 0, Lat: 0},
		RefPixel: XY{1, 1},
		Scale:    XY{-0.01, 0.01},
		Code:     TAN,
	})
	_, _, err := d.Inverse(180, 0)
	var pe *ProjectionError
	if !errors.As(err, &pe) || pe.Direction != DirInverse || pe.Status() != 1 {
		t.Errorf("got %v, want inverse domain error", err)
	}
}

func TestCDMatchesScaleAndRotation(t *testing.T) {
	const rot = 30.0
	sin, cos := math.Sincos(rot * math.Pi / 180)
	xinc, yinc := -0.003, 0.003
	cd := [4]float64{xinc * cos, -yinc * sin, xinc * sin, yinc * cos}

	ref, pix := vec.SkyPoint{Lon: 83.6, Lat: 22.0}, XY{100, 80}
	a := mustDescriptor(t, Descriptor{RefSky: ref, RefPixel: pix, Scale: XY{xinc, yinc}, Rotation: rot, Code: TAN})
	b := mustDescriptor(t, Descriptor{RefSky: ref, RefPixel: pix, CD: &cd, Code: TAN})

	if s := b.EffectiveScale(); math.Abs(s.X-xinc) > 1e-12 || math.Abs(s.Y-yinc) > 1e-12 {
		t.Errorf("scale %v, want (%g, %g)", s, xinc, yinc)
	}
	if r := b.EffectiveRotation(); math.Abs(r-rot) > 1e-9 {
		t.Errorf("rotation %g, want %g", r, rot)
	}
	for _, p := range []XY{{1, 1}, {200, 1}, {200, 160}, {37, 121}} {
		lonA, latA, errA := a.Forward(p.X, p.Y)
		lonB, latB, errB := b.Forward(p.X, p.Y)
		if errA != nil || errB != nil {
			t.Fatalf("%v %v", errA, errB)
		}
		if math.Abs(lonA-lonB) > 1e-9 || math.Abs(latA-latB) > 1e-9 {
			t.Errorf("at %v: scale (%g,%g) cd (%g,%g)", p, lonA, latA, lonB, latB)
		}
	}
}

func TestNewDescriptorErrors(t *testing.T) {
	singular := [4]float64{1, 2, 2, 4}
	cases := []struct {
		name string
		d    Descriptor
	}{
		{"zero scale", Descriptor{Code: TAN}},
		{"singular cd", Descriptor{CD: &singular, Code: TAN}},
		{"bad code", Descriptor{Scale: XY{1, 1}, Code: numCodes}},
		{"negative size", Descriptor{Scale: XY{1, 1}, Code: TAN, Naxis1: -1}},
		{"nan", Descriptor{Scale: XY{1, 1}, RefPixel: XY{math.NaN(), 0}, Code: TAN}},
	}
	for _, c := range cases {
		if _, err := NewDescriptor(c.d); !errors.Is(err, ErrConfig) {
			t.Errorf("%s: got %v, want ErrConfig", c.name, err)
		}
	}

	var zero Descriptor
	if _, _, err := zero.Forward(1, 1); !errors.Is(err, ErrConfig) {
		t.Errorf("uninitialized descriptor: got %v", err)
	}
}

func TestCARWrap(t *testing.T) {
	d := mustDescriptor(t, Descriptor{
		RefSky:   vec.SkyPoint{Lon: 0, Lat: 0},
		RefPixel: XY{0.5, 90.5},
		Scale:    XY{1, 1},
		Code:     CAR,
		Naxis1:   360,
		Naxis2:   180,
	})
	// 200 degrees first maps to -160, left of the image, then wraps by a full turn
	x, y, err := d.Inverse(200, 10)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x-200.5) > 1e-9 || math.Abs(y-100.5) > 1e-9 {
		t.Errorf("got (%g, %g) want (200.5, 100.5)", x, y)
	}

	// no wrap without a known image width
	d.Naxis1 = 0
	d, _ = NewDescriptor(*d)
	if x, _, _ = d.Inverse(200, 10); math.Abs(x+159.5) > 1e-9 {
		t.Errorf("got %g want -159.5", x)
	}
}

func TestInverseWideWrap(t *testing.T) {
	// reference pixel far outside the image: longitudes below the reference
	// are pushed up by a full turn instead of being wrapped by half a turn
	d := mustDescriptor(t, Descriptor{
		RefSky:   vec.SkyPoint{Lon: 10, Lat: 0},
		RefPixel: XY{-200, 0},
		Scale:    XY{1, 1},
		Code:     CAR,
	})
	x, _, err := d.Inverse(5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := -200 + 355.0; math.Abs(x-want) > 1e-9 {
		t.Errorf("got %g want %g", x, want)
	}
}

func TestParseCode(t *testing.T) {
	cases := []struct {
		in   string
		want Code
		ok   bool
	}{
		{"RA---TAN", TAN, true},
		{"DEC--TAN", TAN, true},
		{"RA---TAN-SIP", TAN, true},
		{"GLON-CAR", CAR, true},
		{"glat-ait", AIT, true},
		{"RA---TNX", TNX, true},
		{"SIN", SIN, true},
		{"LINEAR", Linear, true},
		{"PIXEL", Linear, true},
		{"", Linear, true},
		{"RA", Linear, true},
		{"RA---ZEA", Linear, false},
		{"BOGUS", Linear, false},
	}
	for _, c := range cases {
		got, err := ParseCode(c.in)
		if (err == nil) != c.ok {
			t.Errorf("ParseCode(%q) error %v, want ok=%v", c.in, err, c.ok)
			continue
		}
		if c.ok && got != c.want {
			t.Errorf("ParseCode(%q) = %s, want %s", c.in, got, c.want)
		}
		if !c.ok && !errors.Is(err, ErrConfig) {
			t.Errorf("ParseCode(%q) error %v is not ErrConfig", c.in, err)
		}
	}
}

func TestCorners(t *testing.T) {
	d := mustDescriptor(t, Descriptor{
		RefSky:   vec.SkyPoint{Lon: 0, Lat: 0},
		RefPixel: XY{0.5, 0.5},
		Scale:    XY{1, 1},
		Code:     Linear,
		Naxis1:   10,
		Naxis2:   20,
	})
	cs, err := Corners(d)
	if err != nil {
		t.Fatal(err)
	}
	want := [4]vec.SkyPoint{{Lon: 0, Lat: 0}, {Lon: 10, Lat: 0}, {Lon: 10, Lat: 20}, {Lon: 0, Lat: 20}}
	if cs != want {
		t.Errorf("got %v want %v", cs, want)
	}

	d.Naxis1 = 0
	if _, err := Corners(d); !errors.Is(err, ErrConfig) {
		t.Errorf("unknown size: got %v", err)
	}
}

// Keywords backed by plain maps
type testHeader map[string]interface{}

func (h testHeader) Float(key string) (float64, bool) {
	switch v := h[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func (h testHeader) Int(key string) (int, bool) {
	v, ok := h[key].(int)
	return v, ok
}

func (h testHeader) String(key string) (string, bool) {
	v, ok := h[key].(string)
	return v, ok
}

func TestFromHeader(t *testing.T) {
	h := testHeader{
		"CTYPE1": "RA---TAN", "CTYPE2": "DEC--TAN",
		"CRVAL1": 150.0, "CRVAL2": 2.5,
		"CRPIX1": 512.5, "CRPIX2": 384.5,
		"CDELT1": -0.0005, "CDELT2": 0.0005,
		"CROTA2": 12.0,
		"NAXIS1": 1024, "NAXIS2": 768,
	}
	d, err := FromHeader(h)
	if err != nil {
		t.Fatal(err)
	}
	want := mustDescriptor(t, Descriptor{
		RefSky:   vec.SkyPoint{Lon: 150, Lat: 2.5},
		RefPixel: XY{512.5, 384.5},
		Scale:    XY{-0.0005, 0.0005},
		Rotation: 12,
		Code:     TAN,
		Naxis1:   1024,
		Naxis2:   768,
	})
	for _, p := range []XY{{1, 1}, {1024, 768}, {300, 700}} {
		lon1, lat1, _ := d.Forward(p.X, p.Y)
		lon2, lat2, _ := want.Forward(p.X, p.Y)
		if lon1 != lon2 || lat1 != lat2 {
			t.Errorf("at %v: header (%g,%g) direct (%g,%g)", p, lon1, lat1, lon2, lat2)
		}
	}

	delete(h, "CRVAL2")
	if _, err := FromHeader(h); !errors.Is(err, ErrConfig) || !strings.Contains(err.Error(), "CRVAL2") {
		t.Errorf("missing CRVAL2: got %v", err)
	}
}

func TestFromHeaderFlippedCD(t *testing.T) {
	h := testHeader{
		"CTYPE1": "DEC--SIN", "CTYPE2": "RA---SIN",
		"CRVAL1": -20.0, "CRVAL2": 300.0,
		"CRPIX1": 10, "CRPIX2": 10,
		"CD1_1": 0.001, "CD2_2": -0.001,
	}
	d, err := FromHeader(h)
	if err != nil {
		t.Fatal(err)
	}
	if !d.AxisFlip || d.Code != SIN || d.CD == nil {
		t.Fatalf("got %v", d)
	}
	if d.RefSky.Lon != 300 || d.RefSky.Lat != -20 {
		t.Errorf("reference %v, want (300, -20)", d.RefSky)
	}
	lon, lat, err := d.Forward(10, 10)
	if err != nil || lon != 300 || lat != -20 {
		t.Errorf("fixpoint got (%g, %g, %v)", lon, lat, err)
	}
	checkRoundTrip(t, d, 1e-6)
}

func TestHeaderTemplate(t *testing.T) {
	d := mustDescriptor(t, Descriptor{
		RefSky:   vec.SkyPoint{Lon: 10, Lat: 20},
		RefPixel: XY{50.5, 40.5},
		Scale:    XY{-0.001, 0.001},
		Rotation: -5,
		Code:     TAN,
		Naxis1:   100,
		Naxis2:   80,
	})
	s := d.Header()
	for _, want := range []string{
		"NAXIS1  = 100\n",
		"CTYPE1  = 'RA---TAN'\n",
		"CTYPE2  = 'DEC--TAN'\n",
		"CRVAL1  = 10.0000000000\n",
		"CDELT1  = -1.0000000000E-03\n",
		"CROTA2  = -5.0000000000\n",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("header lacks %q:\n%s", want, s)
		}
	}
	if !strings.HasSuffix(s, "END\n") {
		t.Errorf("header not terminated:\n%s", s)
	}
}
