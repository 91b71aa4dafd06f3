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

// Package footprint computes bounding boxes and circles of point sets on
// the sky by running the planar hull algorithms in a gnomonic tangent plane.
package footprint

import (
	"fmt"
	"math"
	"strings"

	"github.com/mlnoga/wcsbounds/internal/hull"
	"github.com/mlnoga/wcsbounds/internal/vec"
	"github.com/mlnoga/wcsbounds/internal/wcs"
	"gonum.org/v1/gonum/spatial/r2"
)

// Shape of a footprint
type Mode int

const (
	Box         Mode = iota // minimum-area box at any angle
	VerticalBox             // box aligned with the tangent plane axes
	Circle                  // bounding circle around the hull centroid
)

var modeNames = []string{"box", "vbox", "circle"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return Box, fmt.Errorf("unknown footprint mode '%s', want one of %s", s, strings.Join(modeNames, ", "))
}

func (m Mode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(modeNames) {
		return nil, fmt.Errorf("invalid footprint mode %d", int(m))
	}
	return []byte(modeNames[m]), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Footprint of a point set on the sky. Sizes, angle and radius are in
// tangent plane degrees. Corners run clockwise as seen on the sky.
type Info struct {
	Corners  [4]vec.SkyPoint `json:"corners"`
	Center   vec.SkyPoint    `json:"center"`
	LonSize  float64         `json:"lonSize"`
	LatSize  float64         `json:"latSize"`
	PosAngle float64         `json:"posAngle"`
	Radius   float64         `json:"radius"`
	Mode     Mode            `json:"mode"`
}

func (fi Info) String() string {
	return fmt.Sprintf("%s center %v size %.6f x %.6f angle %.3f radius %.6f",
		fi.Mode, fi.Center, fi.LonSize, fi.LatSize, fi.PosAngle, fi.Radius)
}

// Computes the footprint of the given sky points. The tangent point is the
// normalized centroid of the points. Needs at least three points, and all
// points must lie in the hemisphere around the centroid.
func Compute(points []vec.SkyPoint, mode Mode) (Info, error) {
	if len(points) < 3 {
		return Info{}, fmt.Errorf("%w: need at least 3 points for a footprint, got %d", hull.ErrDegenerate, len(points))
	}
	vs := make([]vec.Vec3, len(points))
	for i, p := range points {
		vs[i] = vec.FromSky(p)
	}
	centroid, ok := vec.Centroid(vs)
	if !ok {
		return Info{}, fmt.Errorf("%w: points have no centroid on the sphere", wcs.ErrDomain)
	}

	tp := NewTangentPlane(centroid.Sky(), 0)
	plane := make([]r2.Vec, len(vs))
	for i, v := range vs {
		p, err := tp.Project(v)
		if err != nil {
			return Info{}, err
		}
		plane[i] = p
	}
	return fromPlane(tp, plane, mode)
}

// Runs the planar algorithm for the given mode and maps the result back to the sky
func fromPlane(tp *TangentPlane, plane []r2.Vec, mode Mode) (Info, error) {
	fi := Info{Mode: mode}
	switch mode {
	case Box, VerticalBox:
		var box hull.Box
		var err error
		if mode == Box {
			box, err = hull.MinimumBoundingBox(plane)
		} else {
			box, err = hull.AxisAlignedBox(plane)
		}
		if err != nil {
			return Info{}, err
		}
		fi.Center = tp.DeprojectSky(box.Center)
		for i, c := range box.Corners() {
			fi.Corners[i] = tp.DeprojectSky(c)
		}
		fi.LonSize, fi.LatSize, fi.PosAngle = box.Width, box.Height, box.Angle
		fi.Radius = circumRadius(fi)

	case Circle:
		c, err := hull.BoundingCircle(plane)
		if err != nil {
			return Info{}, err
		}
		fi.Center = tp.DeprojectSky(c.Center)
		square := hull.Box{Center: c.Center, Width: 2 * c.Radius, Height: 2 * c.Radius}
		for i, p := range square.Corners() {
			fi.Corners[i] = tp.DeprojectSky(p)
		}
		fi.LonSize, fi.LatSize = 2*c.Radius, 2*c.Radius
		fi.Radius = c.Radius

	default:
		return Info{}, fmt.Errorf("invalid footprint mode %d", int(mode))
	}
	return fi, nil
}

// Largest angular distance from the center to a corner, in degrees
func circumRadius(fi Info) float64 {
	c := vec.FromSky(fi.Center)
	r := 0.0
	for _, p := range fi.Corners {
		r = math.Max(r, vec.Angle(c, vec.FromSky(p)))
	}
	return r
}

// Computes the footprint of the four corners of an image
func ImageFootprint(d *wcs.Descriptor, mode Mode) (Info, error) {
	cs, err := wcs.Corners(d)
	if err != nil {
		return Info{}, err
	}
	return Compute(cs[:], mode)
}
