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
	"strings"

	"github.com/mlnoga/wcsbounds/internal/vec"
)

// Typed access to header keywords, as provided by a FITS header
type Keywords interface {
	Float(key string) (float64, bool)
	Int(key string) (int, bool)
	String(key string) (string, bool)
}

// Builds a descriptor from the standard WCS keywords. A CD matrix takes
// precedence over CDELT and CROTA2. A latitude first axis sets AxisFlip.
func FromHeader(h Keywords) (*Descriptor, error) {
	ctype1, _ := h.String("CTYPE1")
	ctype2, _ := h.String("CTYPE2")
	ctype := ctype1
	if strings.TrimSpace(ctype) == "" {
		ctype = ctype2
	}
	code, err := ParseCode(ctype)
	if err != nil {
		return nil, err
	}

	var missing []string
	need := func(key string) float64 {
		v, ok := h.Float(key)
		if !ok {
			missing = append(missing, key)
		}
		return v
	}
	crval1, crval2 := need("CRVAL1"), need("CRVAL2")
	crpix1, crpix2 := need("CRPIX1"), need("CRPIX2")

	d := Descriptor{
		RefPixel: XY{crpix1, crpix2},
		Code:     code,
		AxisFlip: isLatitudeAxis(ctype1),
	}
	if d.AxisFlip {
		d.RefSky = vec.SkyPoint{Lon: crval2, Lat: crval1}
	} else {
		d.RefSky = vec.SkyPoint{Lon: crval1, Lat: crval2}
	}

	var cd [4]float64
	hasCD := false
	for i, key := range []string{"CD1_1", "CD1_2", "CD2_1", "CD2_2"} {
		if v, ok := h.Float(key); ok {
			cd[i], hasCD = v, true
		}
	}
	if hasCD {
		d.CD = &cd
	} else {
		d.Scale = XY{need("CDELT1"), need("CDELT2")}
		if rot, ok := h.Float("CROTA2"); ok {
			d.Rotation = rot
		} else if rot, ok := h.Float("CROTA1"); ok {
			d.Rotation = rot
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: header lacks %s", ErrConfig, strings.Join(missing, ", "))
	}

	d.Naxis1, _ = h.Int("NAXIS1")
	d.Naxis2, _ = h.Int("NAXIS2")
	return NewDescriptor(d)
}

// Axis type keyword for the given axis name, e.g. RA---TAN
func axisType(name string, c Code) string {
	if c == Linear {
		return "LINEAR"
	}
	for len(name) < 4 {
		name += "-"
	}
	return name + "-" + c.String()
}

// Renders the descriptor as an ASCII header template, one keyword per line
func (d *Descriptor) Header() string {
	b := strings.Builder{}
	line := func(key, format string, args ...interface{}) {
		fmt.Fprintf(&b, "%-8s= "+format+"\n", append([]interface{}{key}, args...)...)
	}

	line("SIMPLE", "T")
	line("BITPIX", "%d", -64)
	line("NAXIS", "%d", 2)
	line("NAXIS1", "%d", d.Naxis1)
	line("NAXIS2", "%d", d.Naxis2)

	lonAxis, latAxis := "RA", "DEC"
	crval1, crval2 := d.RefSky.Lon, d.RefSky.Lat
	if d.AxisFlip {
		lonAxis, latAxis = latAxis, lonAxis
		crval1, crval2 = crval2, crval1
	}
	line("CTYPE1", "'%s'", axisType(lonAxis, d.Code))
	line("CTYPE2", "'%s'", axisType(latAxis, d.Code))
	line("EQUINOX", "%d", 2000)
	line("CRVAL1", "%.10f", crval1)
	line("CRVAL2", "%.10f", crval2)
	line("CRPIX1", "%.10f", d.RefPixel.X)
	line("CRPIX2", "%.10f", d.RefPixel.Y)
	if d.CD != nil {
		for i, key := range []string{"CD1_1", "CD1_2", "CD2_1", "CD2_2"} {
			line(key, "%.10E", d.CD[i])
		}
	} else {
		line("CDELT1", "%.10E", d.Scale.X)
		line("CDELT2", "%.10E", d.Scale.Y)
		line("CROTA2", "%.10f", d.Rotation)
	}
	b.WriteString("END\n")
	return b.String()
}
