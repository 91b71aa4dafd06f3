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
	"fmt"

	"github.com/mlnoga/wcsbounds/internal/vec"
	"github.com/mlnoga/wcsbounds/internal/wcs"
)

// Builds a TAN descriptor for a mosaic covering all given footprints, with
// square pixels of cdelt degrees and pad extra pixels on every side. If
// northAligned is set the image axes follow the tangent plane axes,
// otherwise the image is rotated to the minimum-area box.
func MakeHeader(infos []Info, cdelt float64, pad int, northAligned bool) (*wcs.Descriptor, error) {
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: no footprints", wcs.ErrConfig)
	}
	if !(cdelt > 0) {
		return nil, fmt.Errorf("%w: pixel scale must be positive, got %g", wcs.ErrConfig, cdelt)
	}
	if pad < 0 {
		return nil, fmt.Errorf("%w: negative padding %d", wcs.ErrConfig, pad)
	}

	corners := make([]vec.SkyPoint, 0, 4*len(infos))
	for _, fi := range infos {
		corners = append(corners, fi.Corners[:]...)
	}
	mode := Box
	if northAligned {
		mode = VerticalBox
	}
	all, err := Compute(corners, mode)
	if err != nil {
		return nil, err
	}

	naxis1 := int(all.LonSize/cdelt) + 2*pad
	if float64(naxis1)*cdelt < all.LonSize {
		naxis1 += 2
	}
	naxis2 := int(all.LatSize/cdelt) + 2*pad
	if float64(naxis2)*cdelt < all.LatSize {
		naxis2 += 2
	}

	// the box angle is a position angle; image rotation runs the other way
	return wcs.NewDescriptor(wcs.Descriptor{
		RefSky:   all.Center,
		RefPixel: wcs.XY{X: float64(naxis1+1) / 2, Y: float64(naxis2+1) / 2},
		Scale:    wcs.XY{X: -cdelt, Y: cdelt},
		Rotation: -all.PosAngle,
		Code:     wcs.TAN,
		Naxis1:   naxis1,
		Naxis2:   naxis2,
	})
}
