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
	"math"

	"github.com/mlnoga/wcsbounds/internal/vec"
	"github.com/soniakeys/meeus/v3/angle"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/spatial/r2"
)

// Angular separation of two sky points in degrees. The longitude difference
// is wrapped into (-180,180] first, as the small-angle branch of angle.Sep
// uses it unwrapped
func Separation(a, b vec.SkyPoint) float64 {
	dLon := math.Mod(b.Lon-a.Lon, 360)
	if dLon > 180 {
		dLon -= 360
	} else if dLon <= -180 {
		dLon += 360
	}
	return angle.Sep(unit.AngleFromDeg(a.Lon), unit.AngleFromDeg(a.Lat),
		unit.AngleFromDeg(a.Lon+dLon), unit.AngleFromDeg(b.Lat)).Deg()
}

// Reports whether two footprints overlap. Pairs whose circumscribed circles
// are apart are rejected first, the rest are tested for a separating axis
// between the corner quadrilaterals. When the corners cannot be projected
// into a common plane the result is true.
func Overlaps(a, b Info) bool {
	if Separation(a.Center, b.Center) > circumRadius(a)+circumRadius(b) {
		return false
	}

	center, ok := vec.Centroid([]vec.Vec3{vec.FromSky(a.Center), vec.FromSky(b.Center)})
	if !ok {
		return true
	}
	tp := NewTangentPlane(center.Sky(), 0)
	pa, errA := projectCorners(tp, a.Corners)
	pb, errB := projectCorners(tp, b.Corners)
	if errA != nil || errB != nil {
		return true
	}
	return !separated(pa, pb) && !separated(pb, pa)
}

func projectCorners(tp *TangentPlane, cs [4]vec.SkyPoint) (ps [4]r2.Vec, err error) {
	for i, c := range cs {
		if ps[i], err = tp.ProjectSky(c); err != nil {
			return ps, err
		}
	}
	return ps, nil
}

// True if one of the edge normals of a separates the two convex polygons
func separated(a, b [4]r2.Vec) bool {
	for i := range a {
		edge := r2.Sub(a[(i+1)%len(a)], a[i])
		axis := r2.Vec{X: -edge.Y, Y: edge.X}
		if axis.X == 0 && axis.Y == 0 {
			continue
		}
		aMin, aMax := extent(a, axis)
		bMin, bMax := extent(b, axis)
		if aMax < bMin || bMax < aMin {
			return true
		}
	}
	return false
}

func extent(ps [4]r2.Vec, axis r2.Vec) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range ps {
		d := r2.Dot(p, axis)
		lo, hi = math.Min(lo, d), math.Max(hi, d)
	}
	return lo, hi
}
