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

package ops

import (
	"encoding/json"
	"fmt"

	"github.com/mlnoga/wcsbounds/internal/footprint"
	"github.com/mlnoga/wcsbounds/internal/hull"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/spatial/r2"
)

// Computes the sky footprint of a frame from its WCS and image size
type OpFootprint struct {
	OpUnaryBase
	Mode *footprint.Mode `json:"mode,omitempty"` // nil selects the context default
}

func init() { SetOperatorFactory(func() Operator { return NewOpFootprintDefault() }) } // register the operator for JSON decoding

func NewOpFootprintDefault() *OpFootprint { return NewOpFootprint(nil) }

func NewOpFootprint(mode *footprint.Mode) *OpFootprint {
	op := &OpFootprint{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "footprint", Active: true}},
		Mode:        mode,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpFootprint) UnmarshalJSON(data []byte) error {
	type defaults OpFootprint
	def := defaults(*NewOpFootprintDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpFootprint(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpFootprint) Apply(f *Frame, c *Context) (*Frame, error) {
	if f.WCS == nil {
		return nil, fmt.Errorf("%d: %s has no WCS for a footprint", f.ID, f.FileName)
	}
	mode := c.Mode
	if op.Mode != nil {
		mode = *op.Mode
	}
	fi, err := footprint.ImageFootprint(f.WCS, mode)
	if err != nil {
		return nil, fmt.Errorf("%d: footprint of %s: %w", f.ID, f.FileName, err)
	}
	f.Footprint = &fi
	fmt.Fprintf(c.Log, "%d: Footprint %s\n", f.ID, fi)
	return f, nil
}

// Finds the minimum-area box around the valid pixels of a frame, using the
// first and last non-NaN pixel of each row. Releases the pixel data afterwards
type OpPixBounds struct {
	OpUnaryBase
	MaxPoints int `json:"maxPoints"` // randomly subsample larger outlines, 0 = keep all
}

func init() { SetOperatorFactory(func() Operator { return NewOpPixBoundsDefault() }) } // register the operator for JSON decoding

func NewOpPixBoundsDefault() *OpPixBounds { return NewOpPixBounds(0) }

func NewOpPixBounds(maxPoints int) *OpPixBounds {
	op := &OpPixBounds{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "pixBounds", Active: true}},
		MaxPoints:   maxPoints,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpPixBounds) UnmarshalJSON(data []byte) error {
	type defaults OpPixBounds
	def := defaults(*NewOpPixBoundsDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpPixBounds(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpPixBounds) Apply(f *Frame, c *Context) (*Frame, error) {
	if f.Image == nil {
		return nil, fmt.Errorf("%d: %s has no image for pixel bounds", f.ID, f.FileName)
	}
	pts, err := f.Image.RowBounds()
	if err != nil {
		return nil, err
	}
	f.Image.Data = nil // no longer needed

	pts = subsample(pts, op.MaxPoints)
	box, err := hull.MinimumBoundingBox(pts)
	if err != nil {
		return nil, fmt.Errorf("%d: pixel bounds of %s: %w", f.ID, f.FileName, err)
	}
	f.PixBox = &box
	fmt.Fprintf(c.Log, "%d: Pixel bounds from %d points: %s\n", f.ID, len(pts), box)
	return f, nil
}

// Returns a random subset of at most n points, keeping the first and the
// last row so the outline stays anchored. Returns pts unchanged if n<=0
func subsample(pts []r2.Vec, n int) []r2.Vec {
	if n <= 0 || len(pts) <= n {
		return pts
	}
	if n < 4 {
		n = 4
	}
	rng := fastrand.RNG{}
	out := make([]r2.Vec, 0, n)
	out = append(out, pts[0], pts[1], pts[len(pts)-2], pts[len(pts)-1])
	rest := pts[2 : len(pts)-2]
	// partial Fisher-Yates on a copy
	rest = append([]r2.Vec(nil), rest...)
	for i := 0; len(out) < n && i < len(rest); i++ {
		j := i + int(rng.Uint32n(uint32(len(rest)-i)))
		rest[i], rest[j] = rest[j], rest[i]
		out = append(out, rest[i])
	}
	return out
}
