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

// Package hull computes planar convex hulls with a Graham scan, and derives
// bounding boxes and circles from them.
package hull

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

var ErrNoPoints = errors.New("no points")
var ErrDegenerate = errors.New("degenerate hull, fewer than 3 distinct non-collinear points")

// A planar point taking part in hull construction.
// Seq is the index of the point in the caller's input.
type Point struct {
	r2.Vec
	Seq     int
	Deleted bool
}

func (p Point) String() string {
	return fmt.Sprintf("%d:(%g, %g)", p.Seq, p.X, p.Y)
}

// Returns +1 if a->b->c is a left turn, -1 for a right turn, 0 if collinear
func AreaSign(a, b, c r2.Vec) int {
	area := r2.Cross(r2.Sub(b, a), r2.Sub(c, a))
	if area > 0 {
		return 1
	} else if area < 0 {
		return -1
	}
	return 0
}

// Working state of a single hull computation. Allocated per call,
// so concurrent computations never share scratch space.
type scan struct {
	pts     []Point
	nDelete int
}

func newScan(in []r2.Vec) *scan {
	pts := make([]Point, len(in))
	for i, v := range in {
		pts[i] = Point{Vec: v, Seq: i}
	}
	return &scan{pts: pts}
}

// Moves the lowest point to position 0. Ties go to the rightmost point,
// then to the lowest sequence number
func (s *scan) selectPivot() {
	min := 0
	for i := 1; i < len(s.pts); i++ {
		p, m := s.pts[i], s.pts[min]
		if p.Y < m.Y || (p.Y == m.Y && (p.X > m.X || (p.X == m.X && p.Seq < m.Seq))) {
			min = i
		}
	}
	s.pts[0], s.pts[min] = s.pts[min], s.pts[0]
}

// Sorts the points by polar angle around the pivot. Points coincident with the
// pivot are flagged. Points on the same ray are ordered by distance, nearest first,
// with coincident points ordered by descending sequence number
func (s *scan) sortByAngle() {
	pivot := s.pts[0]
	for i := 1; i < len(s.pts); i++ {
		if s.pts[i].Vec == pivot.Vec {
			s.pts[i].Deleted = true
			s.nDelete++
		}
	}

	rest := s.pts[1:]
	sort.Slice(rest, func(i, j int) bool {
		a, b := rest[i], rest[j]
		if a.Deleted != b.Deleted {
			return b.Deleted
		}
		if sign := AreaSign(pivot.Vec, a.Vec, b.Vec); sign != 0 {
			return sign > 0
		}
		da, db := r2.Norm2(r2.Sub(a.Vec, pivot.Vec)), r2.Norm2(r2.Sub(b.Vec, pivot.Vec))
		if da != db {
			return da < db
		}
		return a.Seq > b.Seq
	})
}

// Flags all but the farthest point on each ray from the pivot. Among
// coincident farthest points, the one with the lowest sequence number survives
func (s *scan) markCollinear() {
	pivot := s.pts[0].Vec
	for i := 1; i+1 < len(s.pts); i++ {
		cur, next := &s.pts[i], &s.pts[i+1]
		if cur.Deleted || next.Deleted {
			continue
		}
		if AreaSign(pivot, cur.Vec, next.Vec) == 0 {
			cur.Deleted = true
			s.nDelete++
		}
	}
}

// Removes flagged points in place, keeping the order of the survivors
func (s *scan) squash() {
	if s.nDelete == 0 {
		return
	}
	o := 0
	for _, p := range s.pts {
		if !p.Deleted {
			s.pts[o] = p
			o++
		}
	}
	s.pts = s.pts[:o]
	s.nDelete = 0
}

// Runs the Graham scan over the sorted, squashed points. The bottom two
// stack entries are never popped
func (s *scan) graham() []Point {
	stack := make([]Point, 0, len(s.pts))
	stack = append(stack, s.pts[0], s.pts[1])
	for i := 2; i < len(s.pts); i++ {
		p := s.pts[i]
		for len(stack) >= 2 && AreaSign(stack[len(stack)-2].Vec, stack[len(stack)-1].Vec, p.Vec) <= 0 {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, p)
	}
	return stack
}

// Computes the convex hull of the given points. Returns hull vertices in
// counter-clockwise order, starting with the pivot (lowest, then rightmost point).
// If fewer than three points survive duplicate and collinear elimination,
// returns the survivors together with ErrDegenerate. The input is not modified.
func ConvexHull(in []r2.Vec) (hull []Point, err error) {
	if len(in) == 0 {
		return nil, ErrNoPoints
	}
	s := newScan(in)
	s.selectPivot()
	s.sortByAngle()
	s.markCollinear()
	s.squash()
	if len(s.pts) < 3 {
		return s.pts, ErrDegenerate
	}
	hull = s.graham()
	if len(hull) < 3 {
		return hull, ErrDegenerate
	}
	return hull, nil
}

// Returns the plain coordinates of the given hull points
func Vecs(pts []Point) []r2.Vec {
	vs := make([]r2.Vec, len(pts))
	for i, p := range pts {
		vs[i] = p.Vec
	}
	return vs
}
