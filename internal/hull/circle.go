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
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

type Circle struct {
	Center r2.Vec  `json:"center"`
	Radius float64 `json:"radius"`
}

func (c Circle) String() string {
	return fmt.Sprintf("center (%g, %g) radius %g", c.Center.X, c.Center.Y, c.Radius)
}

// Returns a circle around the centroid of the hull vertices, with the radius
// reaching the farthest vertex. This is not the minimum enclosing circle.
func BoundingCircle(pts []r2.Vec) (Circle, error) {
	if len(pts) == 0 {
		return Circle{}, ErrNoPoints
	}
	hv, err := hullVecs(pts)
	if err != nil {
		return Circle{}, err
	}

	var sum r2.Vec
	for _, p := range hv {
		sum = r2.Add(sum, p)
	}
	center := r2.Scale(1/float64(len(hv)), sum)

	radius := 0.0
	for _, p := range hv {
		radius = math.Max(radius, r2.Norm(r2.Sub(p, center)))
	}
	return Circle{Center: center, Radius: radius}, nil
}
