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

// Conic equal area. The standard parallel is the reference latitude,
// which must not be zero.

// Orientation of the longitude axis, from the first CD element or the x scale
func coeSign(d *Descriptor) float64 {
	if d.rotmat {
		return math.Copysign(1, d.cd[0])
	}
	return math.Copysign(1, d.xinc)
}

func coeForward(d *Descriptor, l, m float64) (float64, float64, error) {
	if d.sin0 == 0 {
		return 0, 0, ErrDomain
	}
	y0 := 1 / math.Tan(d.dec0)
	mt := y0 - m
	var a float64
	if d.dec0 < 0 {
		a = math.Atan2(l, -mt)
	} else {
		a = math.Atan2(l, mt)
	}
	rat := d.ra0 - coeSign(d)*a/math.Abs(d.sin0)
	r2 := l*l + mt*mt
	dt := 1 / (2 * d.sin0) * (1 + d.sin0*d.sin0*(1-r2))
	if dt > 1 || dt < -1 {
		return 0, 0, ErrDomain
	}
	return rat, math.Asin(dt), nil
}

// Inverts with a fourth order series in the latitude offset
func coeInverse(d *Descriptor, s *skyOffset) (float64, float64, error) {
	if d.sin0 == 0 {
		return 0, 0, ErrDomain
	}
	gamby2 := d.sin0
	tthea := math.Tan(d.dec0)
	rthea := 1 / tthea
	a := -2 * tthea
	b := tthea * tthea
	c := tthea / 3
	a2 := a * a
	a3 := a2 * a
	a4 := a2 * a2
	co1 := a / 2
	co2 := -0.125*a2 + b/2
	co3 := -0.25*a*b + 0.0625*a3 + c/2
	co4 := -0.125*b*b - 0.25*a*c + 0.1875*b*a2 - (5.0/128.0)*a4

	phi := d.ra0 - s.ra
	an := phi * gamby2
	v := s.dec - d.dec0
	rap := rthea * (1 + v*(co1+v*(co2+v*(co3+v*co4))))
	ansq := an * an

	l := rap * an * (1 - ansq/6) * coeSign(d)
	m := rthea - rap*(1-ansq/2)
	return l, m, nil
}
