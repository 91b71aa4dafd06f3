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
	"fmt"
	"math"
)

const twoPi = 2 * math.Pi

// Small-value threshold used by the projection formulas
const deps = 1.0e-5

// Maps intermediate coordinates l, m in radians to longitude and latitude in radians
type forwardFunc func(d *Descriptor, l, m float64) (rat, dect float64, err error)

// Maps a sky position relative to the reference point to intermediate coordinates l, m in radians
type inverseFunc func(d *Descriptor, s *skyOffset) (l, m float64, err error)

type projection struct {
	forward forwardFunc
	inverse inverseFunc
}

// Every non-linear code has both directions
var projections = map[Code]projection{
	CAR: {carForward, carInverse},
	SIN: {sinForward, sinInverse},
	TAN: {tanForward, tanInverse},
	TNX: {tanForward, tanInverse},
	ARC: {arcForward, arcInverse},
	NCP: {ncpForward, ncpInverse},
	GLS: {glsForward, glsInverse},
	SFL: {glsForward, glsInverse},
	MER: {merForward, merInverse},
	AIT: {aitForward, aitInverse},
	STG: {stgForward, stgInverse},
	COE: {coeForward, coeInverse},
}

// Sky position in radians with direction cosines relative to the reference point
type skyOffset struct {
	ra, dec    float64
	da         float64 // ra - ra0
	sins, coss float64 // sine and cosine of dec
	l          float64 // sin(da) * cos(dec)
	sint       float64 // cosine of the distance to the reference point
}

func newSkyOffset(d *Descriptor, ra, dec float64) skyOffset {
	s := skyOffset{ra: ra, dec: dec, da: ra - d.ra0}
	s.sins, s.coss = math.Sincos(dec)
	s.l = math.Sin(s.da) * s.coss
	s.sint = s.sins*d.sin0 + s.coss*d.cos0*math.Cos(s.da)
	return s
}

// Converts pixel coordinates to sky longitude and latitude in degrees.
// For spherical projections the longitude is in [0,360). Points without an
// image under the projection return a *ProjectionError.
func (d *Descriptor) Forward(xpix, ypix float64) (lon, lat float64, err error) {
	if !d.Valid() {
		return 0, 0, fmt.Errorf("%w: descriptor not initialized", ErrConfig)
	}

	// offset from reference pixel, then scale and rotate
	dx, dy := xpix-d.RefPixel.X, ypix-d.RefPixel.Y
	if d.rotmat {
		dx, dy = dx*d.cd[0]+dy*d.cd[1], dx*d.cd[2]+dy*d.cd[3]
	} else {
		dx, dy = dx*d.xinc, dy*d.yinc
		if d.rot != 0 {
			dx, dy = dx*d.cosr-dy*d.sinr, dx*d.sinr+dy*d.cosr
		}
	}
	if d.AxisFlip {
		dx, dy = dy, dx
	}
	if d.proj == nil {
		return d.xref + dx, d.yref + dy, nil
	}
	if dx == 0 && dy == 0 {
		return normalizeLon(d.RefSky.Lon), d.RefSky.Lat, nil
	}

	rat, dect, err := d.proj.forward(d, degrad(dx), degrad(dy))
	if err == nil && (math.IsNaN(rat) || math.IsNaN(dect)) {
		err = ErrBadValue
	}
	if err != nil {
		return 0, 0, &ProjectionError{Code: d.Code, Direction: DirForward, Err: err}
	}

	if rat-d.ra0 > math.Pi {
		rat -= twoPi
	} else if rat-d.ra0 < -math.Pi {
		rat += twoPi
	}
	if rat < 0 {
		rat += twoPi
	} else if rat >= twoPi {
		rat -= twoPi
	}
	lon = raddeg(rat)
	if lon >= 360 {
		lon -= 360
	}
	return lon, raddeg(dect), nil
}

// Converts sky longitude and latitude in degrees to pixel coordinates.
// Points without an image under the projection return a *ProjectionError.
func (d *Descriptor) Inverse(lon, lat float64) (xpix, ypix float64, err error) {
	if !d.Valid() {
		return 0, 0, fmt.Errorf("%w: descriptor not initialized", ErrConfig)
	}

	var dx, dy float64
	if d.proj == nil {
		dx, dy = lon-d.xref, lat-d.yref
	} else {
		// 0h wraparound, wider if the reference pixel is far from the image
		dt := lon - d.RefSky.Lon
		if math.Abs(d.RefPixel.X*d.xinc) > 180 {
			if dt > 360 {
				lon -= 360
			} else if dt < 0 {
				lon += 360
			}
		} else {
			if dt > 180 {
				lon -= 360
			} else if dt < -180 {
				lon += 360
			}
		}

		s := newSkyOffset(d, degrad(lon), degrad(lat))
		l, m, err := d.proj.inverse(d, &s)
		if err == nil && (math.IsNaN(l) || math.IsNaN(m)) {
			err = ErrBadValue
		}
		if err != nil {
			return 0, 0, &ProjectionError{Code: d.Code, Direction: DirInverse, Err: err}
		}
		dx, dy = raddeg(l), raddeg(m)
	}

	if d.AxisFlip {
		dx, dy = dy, dx
	}
	if d.rotmat {
		dx, dy = dx*d.dc[0]+dy*d.dc[1], dx*d.dc[2]+dy*d.dc[3]
	} else {
		if d.rot != 0 {
			dx, dy = dx*d.cosr+dy*d.sinr, dy*d.cosr-dx*d.sinr
		}
		dx, dy = dx/d.xinc, dy/d.yinc
	}

	xpix, ypix = dx+d.RefPixel.X, dy+d.RefPixel.Y
	if d.Code == CAR && d.Naxis1 > 0 {
		nx, turn := float64(d.Naxis1), math.Abs(360/d.xinc)
		if xpix > nx {
			if x := xpix - turn; x > 0 {
				xpix = x
			}
		} else if xpix < 0 {
			if x := xpix + turn; x <= nx {
				xpix = x
			}
		}
	}
	return xpix, ypix, nil
}

// Wraps a longitude in degrees into [0,360)
func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	if lon >= 360 {
		lon -= 360
	}
	return lon
}
