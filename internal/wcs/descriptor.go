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

// Package wcs maps between image pixel coordinates and sky coordinates
// for the classic AIPS set of sky projections.
package wcs

import (
	"fmt"
	"math"

	"github.com/mlnoga/wcsbounds/internal/vec"
	"gonum.org/v1/gonum/mat"
)

// A coordinate pair in pixels or degrees
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// World coordinate system of one image. Build with NewDescriptor, which
// validates the fields and precomputes derived values. Treat as immutable.
type Descriptor struct {
	RefSky   vec.SkyPoint `json:"refSky"`         // sky position of the reference pixel, degrees
	RefPixel XY           `json:"refPixel"`       // reference pixel, 1-based
	Scale    XY           `json:"scale"`          // degrees per pixel, ignored if CD is given
	Rotation float64      `json:"rotation"`       // degrees, ignored if CD is given
	CD       *[4]float64  `json:"cd,omitempty"`   // CD1_1, CD1_2, CD2_1, CD2_2
	Code     Code         `json:"code"`           // projection
	AxisFlip bool         `json:"axisFlip"`       // first axis is latitude
	Naxis1   int          `json:"naxis1"`         // image width in pixels, 0 if unknown
	Naxis2   int          `json:"naxis2"`         // image height in pixels, 0 if unknown

	xref, yref float64 // reference values along the first and second axis, degrees
	xinc, yinc float64 // effective scale, degrees per pixel
	rot        float64 // effective rotation, degrees
	cosr, sinr float64
	ra0, dec0  float64 // reference point, radians
	sin0, cos0 float64
	rotmat     bool // use cd and dc instead of scale and rotation
	cd, dc     [4]float64
	proj       *projection
}

// Validates the given descriptor and returns a copy with all derived
// values precomputed. Errors wrap ErrConfig.
func NewDescriptor(d Descriptor) (*Descriptor, error) {
	if d.Code < 0 || d.Code >= numCodes {
		return nil, fmt.Errorf("%w: invalid projection code %d", ErrConfig, int(d.Code))
	}
	if d.Naxis1 < 0 || d.Naxis2 < 0 {
		return nil, fmt.Errorf("%w: negative image size %dx%d", ErrConfig, d.Naxis1, d.Naxis2)
	}
	for _, f := range []float64{d.RefSky.Lon, d.RefSky.Lat, d.RefPixel.X, d.RefPixel.Y, d.Scale.X, d.Scale.Y, d.Rotation} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: non-finite parameter", ErrConfig)
		}
	}

	if d.CD != nil {
		if err := d.setCD(*d.CD); err != nil {
			return nil, err
		}
	} else {
		if d.Scale.X == 0 || d.Scale.Y == 0 {
			return nil, fmt.Errorf("%w: need nonzero scale or a CD matrix", ErrConfig)
		}
		d.rotmat = false
		d.xinc, d.yinc, d.rot = d.Scale.X, d.Scale.Y, d.Rotation
	}
	d.sinr, d.cosr = math.Sincos(degrad(d.rot))

	if d.AxisFlip {
		d.xref, d.yref = d.RefSky.Lat, d.RefSky.Lon
	} else {
		d.xref, d.yref = d.RefSky.Lon, d.RefSky.Lat
	}
	d.ra0, d.dec0 = degrad(d.RefSky.Lon), degrad(d.RefSky.Lat)
	d.sin0, d.cos0 = math.Sincos(d.dec0)

	if d.Code != Linear {
		p := projections[d.Code]
		if p.forward == nil || p.inverse == nil {
			return nil, fmt.Errorf("%w: projection %s not implemented", ErrConfig, d.Code)
		}
		d.proj = &p
	}
	return &d, nil
}

// Sets the CD matrix, its inverse, and the equivalent scale and rotation
func (d *Descriptor) setCD(cd [4]float64) error {
	for _, f := range cd {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite CD matrix", ErrConfig)
		}
	}
	a := mat.NewDense(2, 2, []float64{cd[0], cd[1], cd[2], cd[3]})
	det := mat.Det(a)
	if det == 0 {
		return fmt.Errorf("%w: singular CD matrix %v", ErrConfig, cd)
	}
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return fmt.Errorf("%w: CD matrix %v: %s", ErrConfig, cd, err)
	}
	d.rotmat = true
	d.cd = cd
	d.dc = [4]float64{inv.At(0, 0), inv.At(0, 1), inv.At(1, 0), inv.At(1, 1)}

	// decompose cd = [[xinc cos, -yinc sin], [xinc sin, yinc cos]] with yinc > 0
	d.yinc = math.Hypot(cd[1], cd[3])
	d.xinc = math.Hypot(cd[0], cd[2])
	if det < 0 {
		d.xinc = -d.xinc
	}
	d.rot = raddeg(math.Atan2(-cd[1], cd[3]))
	return nil
}

// Returns true if the descriptor was built with NewDescriptor
func (d *Descriptor) Valid() bool {
	return d != nil && (d.xinc != 0 && d.yinc != 0)
}

// Effective scale in degrees per pixel. For CD matrices this is the
// decomposed scale
func (d *Descriptor) EffectiveScale() XY {
	return XY{d.xinc, d.yinc}
}

// Effective rotation in degrees. For CD matrices this is the decomposed rotation
func (d *Descriptor) EffectiveRotation() float64 {
	return d.rot
}

func (d *Descriptor) String() string {
	if d.CD != nil {
		return fmt.Sprintf("%s ref %v at (%g, %g) CD %v size %dx%d", d.Code, d.RefSky, d.RefPixel.X, d.RefPixel.Y, *d.CD, d.Naxis1, d.Naxis2)
	}
	return fmt.Sprintf("%s ref %v at (%g, %g) scale (%g, %g) rot %g size %dx%d", d.Code, d.RefSky, d.RefPixel.X, d.RefPixel.Y,
		d.Scale.X, d.Scale.Y, d.Rotation, d.Naxis1, d.Naxis2)
}

func degrad(x float64) float64 { return x * math.Pi / 180 }
func raddeg(x float64) float64 { return x * 180 / math.Pi }
