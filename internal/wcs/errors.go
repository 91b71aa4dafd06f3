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
	"errors"
	"fmt"
)

// Point has no image under the projection (status 1)
var ErrDomain = errors.New("angle too large for projection")

// Intermediate value out of range (status 2)
var ErrBadValue = errors.New("bad intermediate value")

// Denominator of the projection formula vanishes (status 3)
var ErrDegenerate = errors.New("degenerate denominator")

// Inconsistent or incomplete descriptor
var ErrConfig = errors.New("invalid WCS configuration")

type Direction int

const (
	DirForward Direction = iota
	DirInverse
)

func (d Direction) String() string {
	if d == DirForward {
		return "forward"
	}
	return "inverse"
}

// Error from a single forward or inverse projection. Wraps one of
// ErrDomain, ErrBadValue or ErrDegenerate.
type ProjectionError struct {
	Code      Code
	Direction Direction
	Err       error
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Code, e.Direction, e.Err)
}

func (e *ProjectionError) Unwrap() error {
	return e.Err
}

// Returns the numeric status of the wrapped error: 1 for domain errors,
// 2 for bad values, 3 for degenerate denominators, 0 otherwise
func (e *ProjectionError) Status() int {
	switch {
	case errors.Is(e.Err, ErrDomain):
		return 1
	case errors.Is(e.Err, ErrBadValue):
		return 2
	case errors.Is(e.Err, ErrDegenerate):
		return 3
	}
	return 0
}

// True if the error means the point is not representable, as opposed to a
// configuration problem. Callers skip such points
func IsDomainError(err error) bool {
	var pe *ProjectionError
	return errors.As(err, &pe) && pe.Status() != 0
}
