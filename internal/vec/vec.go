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

// Package vec provides the small set of 3-vector operations used for
// geometry on the unit sphere.
package vec

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tolerance for unit vector comparisons. This is sin(x) where x = 0.001 arcsec.
const Tolerance = 4.848137e-10

// Degrees to radians
const DTR = math.Pi / 180

// A direction on the sky, in degrees
type SkyPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func (p SkyPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lon, p.Lat)
}

// A 3-dimensional vector. Sky directions are stored with unit length.
type Vec3 struct {
	r3.Vec
}

// Returns the unit vector for the given longitude and latitude in degrees
func FromLonLat(lon, lat float64) Vec3 {
	sinLon, cosLon := math.Sincos(lon * DTR)
	sinLat, cosLat := math.Sincos(lat * DTR)
	return Vec3{r3.Vec{X: cosLon * cosLat, Y: sinLon * cosLat, Z: sinLat}}
}

// Returns the unit vector for the given sky point
func FromSky(p SkyPoint) Vec3 {
	return FromLonLat(p.Lon, p.Lat)
}

// Returns longitude in [0,360) and latitude in degrees. Assumes unit length
func (v Vec3) LonLat() (lon, lat float64) {
	lon = math.Atan2(v.Y, v.X) / DTR
	z := v.Z
	if z > 1 {
		z = 1
	} else if z < -1 {
		z = -1
	}
	lat = math.Asin(z) / DTR
	if lon < 0 {
		lon += 360
	}
	if lon >= 360 {
		lon -= 360
	}
	return lon, lat
}

// Returns the sky point for this unit vector
func (v Vec3) Sky() SkyPoint {
	lon, lat := v.LonLat()
	return SkyPoint{lon, lat}
}

func Dot(a, b Vec3) float64 {
	return r3.Dot(a.Vec, b.Vec)
}

func Cross(a, b Vec3) Vec3 {
	return Vec3{r3.Cross(a.Vec, b.Vec)}
}

func Add(a, b Vec3) Vec3 {
	return Vec3{r3.Add(a.Vec, b.Vec)}
}

func Reverse(v Vec3) Vec3 {
	return Vec3{r3.Scale(-1, v.Vec)}
}

// Scales v to unit length and returns its previous length.
// Vectors of zero length are left untouched.
func (v *Vec3) Normalize() float64 {
	l := r3.Norm(v.Vec)
	if l <= 0 {
		return 0
	}
	v.Vec = r3.Scale(1/l, v.Vec)
	return l
}

// Returns a normalized copy of v
func Unit(v Vec3) Vec3 {
	v.Normalize()
	return v
}

// True if all components agree within Tolerance
func Equal(a, b Vec3) bool {
	return math.Abs(a.X-b.X) < Tolerance &&
		math.Abs(a.Y-b.Y) < Tolerance &&
		math.Abs(a.Z-b.Z) < Tolerance
}

// Returns the angle between two vectors in degrees. Accurate for small angles
func Angle(a, b Vec3) float64 {
	return math.Atan2(r3.Norm(r3.Cross(a.Vec, b.Vec)), Dot(a, b)) / DTR
}

// Returns the normalized centroid of the given unit vectors.
// Returns false if the vectors cancel out.
func Centroid(vs []Vec3) (Vec3, bool) {
	var sum Vec3
	for _, v := range vs {
		sum = Add(sum, v)
	}
	if sum.Normalize() < Tolerance {
		return sum, false
	}
	return sum, true
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.7f, %.7f, %.7f)", v.X, v.Y, v.Z)
}
