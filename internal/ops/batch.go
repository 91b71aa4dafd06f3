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
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/mlnoga/wcsbounds/internal/footprint"
)

// Returns the footprint of a frame, computing a box footprint if none is present
func frameFootprint(f *Frame) (footprint.Info, error) {
	if f.Footprint != nil {
		return *f.Footprint, nil
	}
	if f.WCS == nil {
		return footprint.Info{}, fmt.Errorf("%d: %s has no WCS", f.ID, f.FileName)
	}
	fi, err := footprint.ImageFootprint(f.WCS, footprint.Box)
	if err != nil {
		return footprint.Info{}, fmt.Errorf("%d: footprint of %s: %w", f.ID, f.FileName, err)
	}
	f.Footprint = &fi
	return fi, nil
}

// Builds the TAN header of a mosaic covering all input frames.
// Takes n inputs, produces one output: a frame carrying the mosaic WCS
type OpMakeHeader struct {
	OpBase
	FileName string  `json:"fileName"` // write the header template here, if set
	Cdelt    float64 `json:"cdelt"`    // pixel scale in degrees, 0 = finest input scale
	Pad      int     `json:"pad"`      // extra pixels on each side
	North    bool    `json:"north"`    // align with north instead of the minimum-area box
}

func init() { SetOperatorFactory(func() Operator { return NewOpMakeHeaderDefault() }) } // register the operator for JSON decoding

func NewOpMakeHeaderDefault() *OpMakeHeader { return NewOpMakeHeader("", 0, 0, false) }

func NewOpMakeHeader(fileName string, cdelt float64, pad int, north bool) *OpMakeHeader {
	return &OpMakeHeader{
		OpBase:   OpBase{Type: "makeHeader", Active: true},
		FileName: fileName,
		Cdelt:    cdelt,
		Pad:      pad,
		North:    north,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpMakeHeader) UnmarshalJSON(data []byte) error {
	type defaults OpMakeHeader
	def := defaults(*NewOpMakeHeaderDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpMakeHeader(def)
	return nil
}

func (op *OpMakeHeader) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) == 0 {
		return nil, fmt.Errorf("%s operator needs inputs", op.Type)
	}
	if op.FileName != "" && !isPathAllowed(op.FileName) {
		return nil, errors.New("Filename outside current directory tree, aborting")
	}

	out := func() (f *Frame, err error) {
		fs, err := MaterializeAll(ins, c.MaxThreads, false) // materialize all input promises
		if err != nil {
			return nil, err
		}
		return op.Apply(fs, c)
	}
	return []Promise{out}, nil
}

func (op *OpMakeHeader) Apply(fs []*Frame, c *Context) (*Frame, error) {
	infos := make([]footprint.Info, len(fs))
	cdelt := op.Cdelt
	finest := math.Inf(1)
	for i, f := range fs {
		fi, err := frameFootprint(f)
		if err != nil {
			return nil, err
		}
		infos[i] = fi
		s := f.WCS.EffectiveScale()
		finest = math.Min(finest, math.Min(math.Abs(s.X), math.Abs(s.Y)))
	}
	if cdelt <= 0 {
		cdelt = finest
	}

	d, err := footprint.MakeHeader(infos, cdelt, op.Pad, op.North)
	if err != nil {
		return nil, err
	}
	mosaic := &Frame{ID: len(fs), FileName: op.FileName, WCS: d}
	if _, err := frameFootprint(mosaic); err != nil {
		return nil, err
	}
	fmt.Fprintf(c.Log, "%d: Mosaic header for %d frames: %s\n", mosaic.ID, len(fs), d)

	if op.FileName != "" {
		if err := os.WriteFile(op.FileName, []byte(d.Header()), 0666); err != nil {
			return nil, fmt.Errorf("%d: Error writing to file %s: %w", mosaic.ID, op.FileName, err)
		}
		fmt.Fprintf(c.Log, "%d: Wrote header template to %s\n", mosaic.ID, op.FileName)
	}
	return mosaic, nil
}

// Finds all pairs of overlapping frames and records them on each frame.
// Takes n inputs, produces the same n frames as outputs
type OpOverlaps struct {
	OpBase
}

func init() { SetOperatorFactory(func() Operator { return NewOpOverlapsDefault() }) } // register the operator for JSON decoding

func NewOpOverlapsDefault() *OpOverlaps { return NewOpOverlaps() }

func NewOpOverlaps() *OpOverlaps {
	return &OpOverlaps{OpBase: OpBase{Type: "overlaps", Active: true}}
}

func (op *OpOverlaps) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) == 0 {
		return nil, fmt.Errorf("%s operator needs inputs", op.Type)
	}

	// all outputs share one materialization of the inputs
	var once sync.Once
	var frames []*Frame
	var opErr error
	run := func() {
		frames, opErr = MaterializeAll(ins, c.MaxThreads, false)
		if opErr == nil {
			opErr = op.Apply(frames, c)
		}
	}

	outs = make([]Promise, len(ins))
	for i := range ins {
		i := i
		outs[i] = func() (*Frame, error) {
			once.Do(run)
			if opErr != nil {
				if i == 0 {
					return nil, opErr
				}
				return nil, nil // reported once
			}
			if i >= len(frames) { // inputs dropped upstream
				return nil, nil
			}
			return frames[i], nil
		}
	}
	return outs, nil
}

func (op *OpOverlaps) Apply(fs []*Frame, c *Context) error {
	infos := make([]footprint.Info, len(fs))
	for i, f := range fs {
		fi, err := frameFootprint(f)
		if err != nil {
			return err
		}
		infos[i] = fi
		f.Overlaps = nil
	}
	pairs := 0
	for i := range fs {
		for j := i + 1; j < len(fs); j++ {
			if footprint.Overlaps(infos[i], infos[j]) {
				fs[i].Overlaps = append(fs[i].Overlaps, fs[j].ID)
				fs[j].Overlaps = append(fs[j].Overlaps, fs[i].ID)
				fmt.Fprintf(c.Log, "%d: Overlaps %d (%s and %s)\n", fs[i].ID, fs[j].ID, fs[i].FileName, fs[j].FileName)
				pairs++
			}
		}
	}
	fmt.Fprintf(c.Log, "Found %d overlapping pairs among %d frames.\n", pairs, len(fs))
	return nil
}
