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

package hull

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

// A rectangle of the given width and height around a center point. Angle is
// in degrees; the box edges run along the direction -Angle from the x axis.
type Box struct {
	Center r2.Vec  `json:"center"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle"`
}

func (b Box) String() string {
	return fmt.Sprintf("center (%g, %g) size %g x %g angle %g", b.Center.X, b.Center.Y, b.Width, b.Height, b.Angle)
}

func (b Box) Area() float64 {
	return b.Width * b.Height
}

// Returns the unit vectors along the box width and height
func (b Box) axes() (u, v r2.Vec) {
	sin, cos := math.Sincos(-b.Angle * math.Pi / 180)
	return r2.Vec{X: cos, Y: sin}, r2.Vec{X: -sin, Y: cos}
}

// Returns the four box corners in the order (-w/2,-h/2), (+w/2,-h/2),
// (+w/2,+h/2), (-w/2,+h/2), relative to the rotated box axes
func (b Box) Corners() (cs [4]r2.Vec) {
	u, v := b.axes()
	signs := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for i, s := range signs {
		du := r2.Scale(s[0]*b.Width/2, u)
		dv := r2.Scale(s[1]*b.Height/2, v)
		cs[i] = r2.Add(b.Center, r2.Add(du, dv))
	}
	return cs
}

// Box around one or two points: centroid, extents padded by 0.5 on each side, angle 0
func smallBox(pts []r2.Vec) Box {
	xs, ys := make([]float64, len(pts)), make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	n := float64(len(pts))
	return Box{
		Center: r2.Vec{X: floats.Sum(xs) / n, Y: floats.Sum(ys) / n},
		Width:  floats.Max(xs) - floats.Min(xs) + 1,
		Height: floats.Max(ys) - floats.Min(ys) + 1,
	}
}

// Pads zero extents of a collinear box to unit thickness
func (b *Box) pad() {
	if b.Width == 0 {
		b.Width = 1
	}
	if b.Height == 0 {
		b.Height = 1
	}
}

// Computes the hull vertices for box and circle derivation. Degenerate
// hulls are accepted, the caller deals with them
func hullVecs(pts []r2.Vec) ([]r2.Vec, error) {
	h, err := ConvexHull(pts)
	if err != nil && !errors.Is(err, ErrDegenerate) {
		return nil, err
	}
	return Vecs(h), nil
}

// Computes the minimum-area bounding box whose orientation is aligned with
// one of the hull edges. Width runs along the winning edge. The returned
// angle is the negated edge direction, folded into [-90,90).
// One or two input points yield an axis-aligned box padded by 0.5 per side.
func MinimumBoundingBox(pts []r2.Vec) (Box, error) {
	if len(pts) == 0 {
		return Box{}, ErrNoPoints
	}
	if len(pts) < 3 {
		return smallBox(pts), nil
	}
	hv, err := hullVecs(pts)
	if err != nil {
		return Box{}, err
	}
	if len(hv) == 1 {
		return smallBox(hv), nil
	}

	var best Box
	bestArea, seeded := 0.0, false
	for i := range hv {
		a, b := hv[i], hv[(i+1)%len(hv)]
		d := r2.Sub(b, a)
		l := r2.Norm(d)
		if l == 0 {
			continue
		}
		u := r2.Scale(1/l, d)
		v := r2.Vec{X: -u.Y, Y: u.X}

		sMin, sMax := math.Inf(1), math.Inf(-1)
		tMin, tMax := math.Inf(1), math.Inf(-1)
		for _, p := range hv {
			s, t := r2.Dot(p, u), r2.Dot(p, v)
			sMin, sMax = math.Min(sMin, s), math.Max(sMax, s)
			tMin, tMax = math.Min(tMin, t), math.Max(tMax, t)
		}
		w, h := sMax-sMin, tMax-tMin
		area := w * h
		if seeded && !(area < bestArea) {
			continue
		}

		theta := math.Atan2(u.Y, u.X) * 180 / math.Pi
		if theta > 90 {
			theta -= 180
		} else if theta <= -90 {
			theta += 180
		}
		center := r2.Add(r2.Scale((sMin+sMax)/2, u), r2.Scale((tMin+tMax)/2, v))
		best = Box{Center: center, Width: w, Height: h, Angle: 0 - theta} // no negative zero
		bestArea, seeded = area, true
	}
	best.pad()
	return best, nil
}

// Computes the axis-aligned bounding box of the hull vertices, with the
// same small-input fallback as MinimumBoundingBox
func AxisAlignedBox(pts []r2.Vec) (Box, error) {
	if len(pts) == 0 {
		return Box{}, ErrNoPoints
	}
	if len(pts) < 3 {
		return smallBox(pts), nil
	}
	hv, err := hullVecs(pts)
	if err != nil {
		return Box{}, err
	}
	if len(hv) == 1 {
		return smallBox(hv), nil
	}
	xs, ys := make([]float64, len(hv)), make([]float64, len(hv))
	for i, p := range hv {
		xs[i], ys[i] = p.X, p.Y
	}
	xMin, xMax, yMin, yMax := floats.Min(xs), floats.Max(xs), floats.Min(ys), floats.Max(ys)
	b := Box{
		Center: r2.Vec{X: (xMin + xMax) / 2, Y: (yMin + yMax) / 2},
		Width:  xMax - xMin,
		Height: yMax - yMin,
	}
	b.pad()
	return b, nil
}
