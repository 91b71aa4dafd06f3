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

import "math"

// Degrees to radians as used by the classic Mercator constants
const cond2r = 1.745329252e-2

func carForward(d *Descriptor, l, m float64) (float64, float64, error) {
	return d.ra0 + l, d.dec0 + m, nil
}

func carInverse(d *Descriptor, s *skyOffset) (float64, float64, error) {
	return s.ra - d.ra0, s.dec - d.dec0, nil
}

// Global sinusoid, also known as Sanson-Flamsteed
func glsForward(d *Descriptor, l, m float64) (float64, float64, error) {
	dect := d.dec0 + m
	if math.Abs(dect) > math.Pi/2 {
		return 0, 0, ErrDomain
	}
	coss := math.Cos(dect)
	if math.Abs(l) > math.Pi*coss {
		return 0, 0, ErrDomain
	}
	rat := d.ra0
	if coss > deps {
		rat += l / coss
	}
	return rat, dect, nil
}

func glsInverse(d *Descriptor, s *skyOffset) (float64, float64, error) {
	if math.Abs(s.dec) > math.Pi/2 || math.Abs(d.dec0) > math.Pi/2 {
		return 0, 0, ErrDomain
	}
	return s.da * s.coss, s.dec - d.dec0, nil
}

// Mercator scaling constants derived from the image scale and reference latitude
func merGeo(d *Descriptor) (geo1, geo2, geo3 float64) {
	dt := d.yinc*d.cosr + d.xinc*d.sinr
	if dt == 0 {
		dt = 1
	}
	dy := degrad(d.yref/2 + 45)
	dx := dy + dt/2*cond2r
	dy = math.Log(math.Tan(dy))
	dx = math.Log(math.Tan(dx))
	geo2 = degrad(dt) / (dx - dy)
	geo3 = geo2 * dy
	geo1 = math.Cos(degrad(d.yref))
	if geo1 <= 0 {
		geo1 = 1
	}
	return geo1, geo2, geo3
}

func merForward(d *Descriptor, l, m float64) (float64, float64, error) {
	geo1, geo2, geo3 := merGeo(d)
	rat := l/geo1 + d.ra0
	if math.Abs(rat-d.ra0) > twoPi {
		return 0, 0, ErrDomain
	}
	dt := 0.0
	if geo2 != 0 {
		dt = (m + geo3) / geo2
	}
	dect := 2*math.Atan(math.Exp(dt)) - math.Pi/2
	return rat, dect, nil
}

func merInverse(d *Descriptor, s *skyOffset) (float64, float64, error) {
	geo1, geo2, geo3 := merGeo(d)
	l := geo1 * s.da
	dt := math.Tan(s.dec/2 + math.Pi/4)
	if dt < deps {
		return 0, 0, ErrBadValue
	}
	return l, geo2*math.Log(dt) - geo3, nil
}

// Aitoff scaling constants derived from the image scale and reference latitude
func aitGeo(d *Descriptor) (geo1, geo2, geo3 float64) {
	dt := d.yinc*d.cosr + d.xinc*d.sinr
	if dt == 0 {
		dt = 1
	}
	dt = degrad(dt)
	dy := degrad(d.yref)
	dx := math.Sin(dy+dt)/math.Sqrt((1+math.Cos(dy+dt))/2) - math.Sin(dy)/math.Sqrt((1+math.Cos(dy))/2)
	if dx == 0 {
		dx = 1
	}
	geo2 = dt / dx
	dt = d.xinc*d.cosr - d.yinc*d.sinr
	if dt == 0 {
		dt = 1
	}
	dt = degrad(dt)
	dx = 2 * math.Cos(dy) * math.Sin(dt/2)
	if dx == 0 {
		dx = 1
	}
	geo1 = dt * math.Sqrt((1+math.Cos(dy)*math.Cos(dt/2))/2) / dx
	geo3 = geo2 * math.Sin(dy) / math.Sqrt((1+math.Cos(dy))/2)
	return geo1, geo2, geo3
}

func aitForward(d *Descriptor, l, m float64) (float64, float64, error) {
	if l == 0 && m == 0 {
		return d.ra0, d.dec0, nil
	}
	geo1, geo2, geo3 := aitGeo(d)
	y := (m + geo3) / geo2
	dz := 4 - l*l/(4*geo1*geo1) - y*y
	if dz > 4 || dz < 2 {
		return 0, 0, ErrDomain
	}
	dz = 0.5 * math.Sqrt(dz)
	dd := y * dz
	if math.Abs(dd) > 1 {
		return 0, 0, ErrDomain
	}
	dd = math.Asin(dd)
	if math.Abs(math.Cos(dd)) < deps {
		return 0, 0, ErrDomain
	}
	da := l * dz / (2 * geo1 * math.Cos(dd))
	if math.Abs(da) > 1 {
		return 0, 0, ErrDomain
	}
	return d.ra0 + 2*math.Asin(da), dd, nil
}

func aitInverse(d *Descriptor, s *skyOffset) (float64, float64, error) {
	da := s.da / 2
	if math.Abs(da) > math.Pi/2 {
		return 0, 0, ErrDomain
	}
	geo1, geo2, geo3 := aitGeo(d)
	dt := math.Sqrt((1 + s.coss*math.Cos(da)) / 2)
	if math.Abs(dt) < deps {
		return 0, 0, ErrDegenerate
	}
	l := 2 * geo1 * s.coss * math.Sin(da) / dt
	m := geo2*s.sins/dt - geo3
	return l, m, nil
}
