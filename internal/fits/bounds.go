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

package fits

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Returns the outline of the valid image area: for each row with at least two
// non-NaN pixels, the first and the last such pixel. Coordinates are 1-based
// FITS pixel positions relative to CRPIX1/2 (or to the origin if absent).
func (f *Image) RowBounds() ([]r2.Vec, error) {
	if len(f.Naxisn) < 2 {
		return nil, fmt.Errorf("%d: need a 2-dimensional image, got %s", f.ID, f.DimensionsToString())
	}
	if f.Data == nil {
		return nil, fmt.Errorf("%d: no pixel data loaded", f.ID)
	}
	crpix1, _ := f.Header.Float("CRPIX1")
	crpix2, _ := f.Header.Float("CRPIX2")

	width, height := int(f.Naxisn[0]), int(f.Naxisn[1])
	bounds := make([]r2.Vec, 0, 2*height)
	for y := 0; y < height; y++ {
		row := f.Data[y*width : (y+1)*width]
		first, last := width, -1
		for x, v := range row {
			if math.IsNaN(float64(v)) {
				continue
			}
			if x < first {
				first = x
			}
			last = x
		}
		if first < last {
			py := float64(y+1) - crpix2
			bounds = append(bounds,
				r2.Vec{X: float64(first+1) - crpix1, Y: py},
				r2.Vec{X: float64(last+1) - crpix1, Y: py})
		}
	}
	return bounds, nil
}
