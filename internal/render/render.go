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

// Package render plots planar point sets with their hull and bounding box.
package render

import (
	"bufio"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mlnoga/wcsbounds/internal/hull"
	"golang.org/x/image/tiff"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

// Plot dimensions in pixels
type Plot struct {
	Width  int
	Height int
	Margin int
}

func NewPlot() Plot { return Plot{Width: 800, Height: 800, Margin: 20} }

// Palette in HCL, so the three layers are equally bright
var (
	background = color.RGBA{255, 255, 255, 255}
	pointColor = colorful.Hcl(250, 0.6, 0.5).Clamped()
	hullColor  = colorful.Hcl(140, 0.6, 0.5).Clamped()
	boxColor   = colorful.Hcl(20, 0.7, 0.5).Clamped()
)

// Maps plane coordinates to image pixels, uniformly scaled with y pointing up
type transform struct {
	min    r2.Vec
	scale  float64
	height float64
	margin float64
}

func (p Plot) fit(all []r2.Vec) transform {
	lo := r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi := r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, v := range all {
		lo.X, lo.Y = math.Min(lo.X, v.X), math.Min(lo.Y, v.Y)
		hi.X, hi.Y = math.Max(hi.X, v.X), math.Max(hi.Y, v.Y)
	}
	if len(all) == 0 {
		lo, hi = r2.Vec{}, r2.Vec{X: 1, Y: 1}
	}
	w := float64(p.Width - 2*p.Margin)
	h := float64(p.Height - 2*p.Margin)
	dx, dy := hi.X-lo.X, hi.Y-lo.Y
	scale := math.Inf(1)
	if dx > 0 {
		scale = w / dx
	}
	if dy > 0 {
		scale = math.Min(scale, h/dy)
	}
	if math.IsInf(scale, 1) {
		scale = 1
	}
	return transform{min: lo, scale: scale, height: float64(p.Height), margin: float64(p.Margin)}
}

func (t transform) apply(v r2.Vec) (float32, float32) {
	x := t.margin + (v.X-t.min.X)*t.scale
	y := t.height - t.margin - (v.Y-t.min.Y)*t.scale
	return float32(x), float32(y)
}

// Renders the points as small squares, the hull as a closed polygon and the
// box outline. Hull and box are optional
func (p Plot) Render(points []r2.Vec, hullPts []r2.Vec, box *hull.Box) *image.RGBA {
	var boxCorners []r2.Vec
	if box != nil {
		cs := box.Corners()
		boxCorners = cs[:]
	}
	all := make([]r2.Vec, 0, len(points)+len(hullPts)+len(boxCorners))
	all = append(append(append(all, points...), hullPts...), boxCorners...)
	t := p.fit(all)

	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	z := vector.NewRasterizer(p.Width, p.Height)
	if len(boxCorners) > 0 {
		outline(z, t, boxCorners, 1.5)
		fill(img, z, boxColor)
	}
	if len(hullPts) > 1 {
		outline(z, t, hullPts, 1)
		fill(img, z, hullColor)
	}
	for _, v := range points {
		x, y := t.apply(v)
		z.MoveTo(x-2, y-2)
		z.LineTo(x+2, y-2)
		z.LineTo(x+2, y+2)
		z.LineTo(x-2, y+2)
		z.ClosePath()
	}
	fill(img, z, pointColor)
	return img
}

// Adds the closed polygon through vs as a series of thin quads of the given half width
func outline(z *vector.Rasterizer, t transform, vs []r2.Vec, halfWidth float64) {
	for i := range vs {
		ax, ay := t.apply(vs[i])
		bx, by := t.apply(vs[(i+1)%len(vs)])
		dx, dy := float64(bx-ax), float64(by-ay)
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := float32(-dy/l*halfWidth), float32(dx/l*halfWidth)
		z.MoveTo(ax+nx, ay+ny)
		z.LineTo(bx+nx, by+ny)
		z.LineTo(bx-nx, by-ny)
		z.LineTo(ax-nx, ay-ny)
		z.ClosePath()
	}
}

// Paints the accumulated path in the given color and resets the rasterizer
func fill(img *image.RGBA, z *vector.Rasterizer, c color.Color) {
	z.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{})
	b := img.Bounds()
	z.Reset(b.Dx(), b.Dy())
}

// Encodes the image as PNG
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// Encodes the image as deflate-compressed TIFF
func WriteTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Writes the image to a file, as TIFF for .tif and .tiff names and as PNG otherwise
func WriteFile(fileName string, img image.Image) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	switch strings.ToLower(path.Ext(fileName)) {
	case ".tif", ".tiff":
		err = WriteTIFF(writer, img)
	default:
		err = WritePNG(writer, img)
	}
	if err != nil {
		return err
	}
	return writer.Flush()
}
