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

	"github.com/mlnoga/wcsbounds/internal/vec"
)

// Returns the sky positions of the outer pixel edges at the four image
// corners, starting at pixel (1,1) and proceeding along the first axis.
// The image size must be known.
func Corners(d *Descriptor) (cs [4]vec.SkyPoint, err error) {
	if d.Naxis1 <= 0 || d.Naxis2 <= 0 {
		return cs, fmt.Errorf("%w: image size unknown", ErrConfig)
	}
	n1, n2 := float64(d.Naxis1)+0.5, float64(d.Naxis2)+0.5
	pix := [4]XY{{0.5, 0.5}, {n1, 0.5}, {n1, n2}, {0.5, n2}}
	for i, p := range pix {
		lon, lat, err := d.Forward(p.X, p.Y)
		if err != nil {
			return cs, fmt.Errorf("corner %d at (%g, %g): %w", i+1, p.X, p.Y, err)
		}
		cs[i] = vec.SkyPoint{Lon: lon, Lat: lat}
	}
	return cs, nil
}
