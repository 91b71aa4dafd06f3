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
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mlnoga/wcsbounds/internal/fits"
	"github.com/mlnoga/wcsbounds/internal/wcs"
)

// Load a single FITS image from a single filename and derive its WCS.
// Reads pixel data only if requested. Takes zero inputs, produces one output
type OpLoad struct {
	OpBase
	ID       int    `json:"id"`
	FileName string `json:"fileName"`
	Pixels   bool   `json:"pixels"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadDefault() }) } // register the operator for JSON decoding

func NewOpLoadDefault() *OpLoad { return NewOpLoad(0, "", false) }

func NewOpLoad(id int, fileName string, pixels bool) *OpLoad {
	return &OpLoad{
		OpBase:   OpBase{Type: "load", Active: true},
		ID:       id,
		FileName: fileName,
		Pixels:   pixels,
	}
}

func (op *OpLoad) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) > 0 {
		return nil, fmt.Errorf("%s operator with non-zero input", op.Type)
	}
	if !isPathAllowed(op.FileName) {
		return nil, errors.New("Filename outside current directory tree, aborting")
	}

	out := func() (f *Frame, err error) {
		return op.Apply(c)
	}
	return []Promise{out}, nil
}

func (op *OpLoad) readsPixels() bool { return op.Pixels }

// Returns true if a path is considered safe, i.e. not an absolute path,
// and doesn't contain the ".." characters to change to a parent directory
func isPathAllowed(p string) bool {
	if filepath.IsAbs(p) { // relative paths only
		return false
	}
	if strings.Contains(p, "..") { // no going outside the tree
		return false
	}
	return true
}

func (op *OpLoad) Apply(c *Context) (*Frame, error) {
	read := fits.NewImageHeaderFromFile
	if op.Pixels {
		read = fits.NewImageFromFile
	}
	img, err := read(op.FileName, op.ID, c.Log)
	if err != nil {
		return nil, err
	}
	return NewFrame(img, c)
}

// Wraps an image into a frame and derives the WCS from its header.
// Images without a usable WCS yield frames without a descriptor.
func NewFrame(img *fits.Image, c *Context) (*Frame, error) {
	f := &Frame{ID: img.ID, FileName: img.FileName, Image: img}
	d, err := wcs.FromHeader(img.Header)
	if err != nil {
		fmt.Fprintf(c.Log, "%d: Warning: no WCS in %s: %s\n", f.ID, f.FileName, err.Error())
	} else {
		f.WCS = d
	}

	pixels := ""
	if img.Data != nil {
		pixels = " with pixels"
	}
	fmt.Fprintf(c.Log, "%d: Loaded %s image%s from %s\n", f.ID, img.DimensionsToString(), pixels, f.FileName)
	return f, nil
}

// Load many FITS images from a slice of filename patterns with wildcards.
// Takes zero inputs, produces n outputs
type OpLoadMany struct {
	OpBase
	FilePatterns []string `json:"filePatterns"`
	Pixels       bool     `json:"pixels"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadManyDefault() }) } // register the operator for JSON decoding

func NewOpLoadManyDefault() *OpLoadMany { return NewOpLoadMany(nil, false) }

func NewOpLoadMany(filePatterns []string, pixels bool) *OpLoadMany {
	return &OpLoadMany{
		OpBase:       OpBase{Type: "loadMany", Active: true},
		FilePatterns: filePatterns,
		Pixels:       pixels,
	}
}

func (op *OpLoadMany) readsPixels() bool { return op.Pixels }

// Turn filename wildcards into list of file load operators
func (op *OpLoadMany) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) > 0 {
		return nil, fmt.Errorf("%s operator with non-zero input", op.Type)
	}
	for _, pattern := range op.FilePatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if !isPathAllowed(match) {
				fmt.Fprintf(c.Log, "Pattern match outside current directory tree, skipping\n")
				continue
			}
			opLoad := NewOpLoad(len(outs), match, op.Pixels)
			promises, err := opLoad.MakePromises(nil, c)
			if err != nil {
				return nil, err
			}
			if len(promises) != 1 {
				return nil, fmt.Errorf("%s operator did not return exactly one promise", opLoad.Type)
			}
			outs = append(outs, promises[0])
		}
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("%s operator with no files to load from pattern %v", op.Type, op.FilePatterns)
	}
	fmt.Fprintf(c.Log, "Found %d files.\n", len(outs))
	return outs, nil
}
