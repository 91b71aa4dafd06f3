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

// Orthographic
func sinForward(d *Descriptor, l, m float64) (float64, float64, error) {
	sins := l*l + m*m
	if sins > 1 {
		return 0, 0, ErrDomain
	}
	coss := math.Sqrt(1 - sins)
	dt := d.sin0*coss + d.cos0*m
	if dt > 1 || dt < -1 {
		return 0, 0, ErrDomain
	}
	dect := math.Asin(dt)
	rat := d.cos0*coss - d.sin0*m
	if rat == 0 && l == 0 {
		return 0, 0, ErrDomain
	}
	return d.ra0 + math.Atan2(l, rat), dect, nil
}

func sinInverse(d *Descriptor, s *skyOffset) (float64, float64, error) {
	if s.sint < 0 {
		return 0, 0, ErrDomain
	}
	m := s.sins*d.cos0 - s.coss*d.sin0*math.Cos(s.da)
	return s.l, m, nil
}

// Gnomonic
func tanForward(d *Descriptor, l, m float64) (float64, float64, error) {
	if l*l+m*m > 1 {
		return 0, 0, ErrDomain
	}
	dect := d.cos0 - m*d.sin0
	if dect == 0 {
		return 0, 0, ErrDomain
	}
	rat := d.ra0 + math.Atan2(l, dect)
	dect = math.Atan(math.Cos(rat-d.ra0) * (m*d.cos0 + d.sin0) / dect)
	return rat, dect, nil
}

func tanInverse(d *Descriptor, s *skyOffset) (float64, float64, error) {
	if s.sint <= 0 {
		return 0, 0, ErrDomain
	}
	l := s.l / s.sint
	m := (s.sins*d.cos0 - s.coss*d.sin0*math.Cos(s.da)) / s.sint
	return l, m, nil
}

// Zenithal equidistant
func arcForward(d *Descriptor, l, m float64) (float64, float64, error) {
	sins := l*l + m*m
	if sins >= math.Pi*math.Pi {
		return 0, 0, ErrDomain
	}
	r := math.Sqrt(sins)
	coss := math.Cos(r)
	sinc := 1.0
	if r != 0 {
		sinc = math.Sin(r) / r
	}
	dt := m*d.cos0*sinc + d.sin0*coss
	if dt > 1 || dt < -1 {
		return 0, 0, ErrDomain
	}
	dect := math.Asin(dt)
	da := coss - dt*d.sin0
	dt = l * sinc * d.cos0
	if da == 0 && dt == 0 {
		return 0, 0, ErrDomain
	}
	return d.ra0 + math.Atan2(dt, da), dect, nil
}

func arcInverse(d *Descriptor, s *skyOffset) (float64, float64, error) {
	m := math.Max(-1, math.Min(1, s.sint))
	m = math.Acos(m)
	if m != 0 {
		m = m / math.Sin(m)
	} else {
		m = 1
	}
	l := s.l * m
	m = (s.sins*d.cos0 - s.coss*d.sin0*math.Cos(s.da)) * m
	return l, m, nil
}

// North celestial pole, the SIN special case used by radio interferometers
func ncpForward(d *Descriptor, l, m float64) (float64, float64, error) {
	dect := d.cos0 - m*d.sin0
	if dect == 0 {
		return 0, 0, ErrDomain
	}
	rat := d.ra0 + math.Atan2(l, dect)
	dt := math.Cos(rat - d.ra0)
	if dt == 0 {
		return 0, 0, ErrDomain
	}
	dect = dect / dt
	if dect > 1 || dect < -1 {
		return 0, 0, ErrDomain
	}
	dect = math.Acos(dect)
	if d.dec0 < 0 {
		dect = -dect
	}
	return rat, dect, nil
}

func ncpInverse(d *Descriptor, s *skyOffset) (float64, float64, error) {
	if d.dec0 == 0 {
		return 0, 0, ErrDomain
	}
	m := (d.cos0 - s.coss*math.Cos(s.da)) / d.sin0
	return s.l, m, nil
}

// Stereographic
func stgForward(d *Descriptor, l, m float64) (float64, float64, error) {
	sins := l*l + m*m
	dz := (4 - sins) / (4 + sins)
	if math.Abs(dz) > 1 {
		return 0, 0, ErrDomain
	}
	dect := dz*d.sin0 + m*d.cos0*(1+dz)/2
	if math.Abs(dect) > 1 {
		return 0, 0, ErrDomain
	}
	dect = math.Asin(dect)
	sinDec, cosDec := math.Sincos(dect)
	if math.Abs(cosDec) < deps {
		return 0, 0, ErrDomain
	}
	rat := l * (1 + dz) / (2 * cosDec)
	if math.Abs(rat) > 1 {
		return 0, 0, ErrDomain
	}
	rat = math.Asin(rat)

	// resolve the asin branch by recomputing m
	mg := 1 + sinDec*d.sin0 + cosDec*d.cos0*math.Cos(rat)
	if math.Abs(mg) < deps {
		return 0, 0, ErrDomain
	}
	mg = 2 * (sinDec*d.cos0 - cosDec*d.sin0*math.Cos(rat)) / mg
	if math.Abs(mg-m) > deps {
		rat = math.Pi - rat
	}
	return d.ra0 + rat, dect, nil
}

func stgInverse(d *Descriptor, s *skyOffset) (float64, float64, error) {
	if math.Abs(s.dec) > math.Pi/2 {
		return 0, 0, ErrDomain
	}
	dd := 1 + s.sins*d.sin0 + s.coss*d.cos0*math.Cos(s.da)
	if math.Abs(dd) < deps {
		return 0, 0, ErrDomain
	}
	dd = 2 / dd
	return s.l * dd, dd * (s.sins*d.cos0 - s.coss*d.sin0*math.Cos(s.da)), nil
}
