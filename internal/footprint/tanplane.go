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
	"math"

	"github.com/mlnoga/wcsbounds/internal/vec"
	"github.com/mlnoga/wcsbounds/internal/wcs"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Gnomonic projection onto the plane tangent to the sphere at a given point.
// Plane coordinates are in degrees, X pointing east and Y pointing north
// (for rotation 0).
type TangentPlane struct {
	Center vec.SkyPoint
	proj   *mat.Dense // rows: tangent point, X axis, Y axis
}

// Sets up the projection for the given tangent point and rotation, all in degrees
func NewTangentPlane(center vec.SkyPoint, rot float64) *TangentPlane {
	sinr, cosr := math.Sincos(rot * vec.DTR)
	sina, cosa := math.Sincos(center.Lon * vec.DTR)
	sind, cosd := math.Sincos(center.Lat * vec.DTR)

	proj := mat.NewDense(3, 3, []float64{
		cosd * cosa, cosd * sina, sind,
		-cosr*sina - sinr*sind*cosa, cosr*cosa - sinr*sind*sina, sinr * cosd,
		sinr*sina - cosr*sind*cosa, -sinr*cosa - cosr*sind*sina, cosr * cosd,
	})
	return &TangentPlane{Center: center, proj: proj}
}

// Projects a unit vector onto the plane. Points at or behind the horizon
// of the tangent point have no image and return wcs.ErrDomain.
func (tp *TangentPlane) Project(p vec.Vec3) (r2.Vec, error) {
	var im mat.VecDense
	im.MulVec(tp.proj, mat.NewVecDense(3, []float64{p.X, p.Y, p.Z}))
	x := im.AtVec(0)
	if x < vec.Tolerance {
		return r2.Vec{}, fmt.Errorf("%w: point %v is %.3f degrees from tangent point %v",
			wcs.ErrDomain, p.Sky(), vec.Angle(p, vec.FromSky(tp.Center)), tp.Center)
	}
	return r2.Vec{X: im.AtVec(1) / x / vec.DTR, Y: im.AtVec(2) / x / vec.DTR}, nil
}

// Projects a sky point onto the plane
func (tp *TangentPlane) ProjectSky(s vec.SkyPoint) (r2.Vec, error) {
	return tp.Project(vec.FromSky(s))
}

// Maps plane coordinates in degrees back to a unit vector on the sphere
func (tp *TangentPlane) Deproject(xy r2.Vec) vec.Vec3 {
	var p mat.VecDense
	p.MulVec(tp.proj.T(), mat.NewVecDense(3, []float64{1, xy.X * vec.DTR, xy.Y * vec.DTR}))
	v := vec.Vec3{Vec: r3.Vec{X: p.AtVec(0), Y: p.AtVec(1), Z: p.AtVec(2)}}
	v.Normalize()
	return v
}

// Maps plane coordinates in degrees back to a sky point
func (tp *TangentPlane) DeprojectSky(xy r2.Vec) vec.SkyPoint {
	return tp.Deproject(xy).Sky()
}
