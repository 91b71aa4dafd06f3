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

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/cpuid"
	nl "github.com/mlnoga/wcsbounds/internal"
	"github.com/mlnoga/wcsbounds/internal/fits"
	"github.com/mlnoga/wcsbounds/internal/footprint"
	"github.com/mlnoga/wcsbounds/internal/hull"
	"github.com/mlnoga/wcsbounds/internal/ops"
	"github.com/mlnoga/wcsbounds/internal/render"
	"github.com/mlnoga/wcsbounds/internal/rest"
	"github.com/mlnoga/wcsbounds/internal/vec"
	"github.com/mlnoga/wcsbounds/internal/wcs"
	"github.com/pbnjay/memory"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/spatial/r2"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out = flag.String("out", "", "save header template (makehdr) or plot (plot) to `file`")
var log = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")

var hdr = flag.String("hdr", "", "read WCS for forward/inverse from FITS `file`, or from an ASCII header template ending in .hdr or .txt")
var ctype = flag.String("ctype", "TAN", "projection for forward/inverse, e.g. TAN, SIN, CAR or RA---TAN")
var crval1 = flag.Float64("crval1", 0, "reference longitude in degrees")
var crval2 = flag.Float64("crval2", 0, "reference latitude in degrees")
var crpix1 = flag.Float64("crpix1", 0, "reference pixel along the first axis, 1-based")
var crpix2 = flag.Float64("crpix2", 0, "reference pixel along the second axis, 1-based")
var cdelt1 = flag.Float64("cdelt1", -1.0/3600, "degrees per pixel along the first axis")
var cdelt2 = flag.Float64("cdelt2", 1.0/3600, "degrees per pixel along the second axis")
var crota2 = flag.Float64("crota2", 0, "rotation in degrees")
var naxis1 = flag.Int("naxis1", 0, "image width in pixels, 0=unknown")
var naxis2 = flag.Int("naxis2", 0, "image height in pixels, 0=unknown")

var mode = flag.String("mode", "box", "footprint and plot shape, one of box, vbox, circle")
var sexa = flag.Bool("sexa", false, "print sky positions as sexagesimal RA and Dec")
var maxPoints = flag.Int("maxPoints", 0, "subsample pixel bounds to at most this many points, 0=all")

var cdelt = flag.Float64("cdelt", 0, "mosaic pixel scale in degrees for makehdr, 0=finest input scale")
var pad = flag.Int("pad", 0, "mosaic padding in pixels on each side for makehdr")
var north = flag.Bool("north", false, "align mosaic with north for makehdr instead of using the minimum-area box")

var threads = flag.Int("threads", 0, "number of images to process in parallel, 0=number of CPUs")

var addr = flag.String("addr", ":8080", "listen `address` for serve")
var chroot = flag.String("chroot", "", "chroot to `dir` before serving, requires root")
var setuid = flag.Int("setuid", -1, "change user id to `uid` before serving, -1=keep")

func main() {
	logWriter := nl.LogWriter()
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `wcsbounds Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] command (args)

Commands:
  forward   x y [x y ...]        Map pixel positions to the sky
  inverse   lon lat [lon lat ...] Map sky positions in degrees to pixels
  corners   img0.fits ... imgn.fits  Show the sky positions of the image corners
  footprint img0.fits ... imgn.fits  Show the sky footprint of images
  pixbounds img0.fits ... imgn.fits  Show the minimum box around the valid pixels of images
  overlaps  img0.fits ... imgn.fits  List overlapping images
  makehdr   img0.fits ... imgn.fits  Build a mosaic header covering all images
  hull      x,y x,y ...          Show convex hull, box and circle of planar points
  plot      x,y x,y ...          Plot planar points with hull and box
  run       pipeline.json        Run an operator pipeline from a JSON file
  serve                          Serve the REST API
  legal     Show license and attribution information
  version   Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize logging to file in addition to stdout, if selected
	if *log == "%auto" {
		if *out != "" {
			*log = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".log"
		} else {
			*log = ""
		}
	}
	if *log != "" {
		err := nl.LogAlsoToFile(*log)
		if err != nil {
			nl.LogFatalf("Unable to open logfile '%s'\n", *log)
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			nl.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			nl.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	fpMode, err := footprint.ParseMode(*mode)
	if err != nil {
		nl.LogFatalf("Error: %s\n", err.Error())
	}
	c := ops.NewContext(logWriter, fpMode)
	c.Sexagesimal = *sexa
	if *threads > 0 {
		c.MaxThreads = *threads
	}

	// run actions
	switch args[0] {
	case "forward":
		err = cmdForward(args[1:], logWriter)

	case "inverse":
		err = cmdInverse(args[1:], logWriter)

	case "corners":
		err = cmdCorners(args[1:], c)

	case "footprint":
		_, err = runFiles(args[1:], false, c, ops.NewOpFootprint(nil), ops.NewOpReport())

	case "pixbounds":
		_, err = runFiles(args[1:], true, c, ops.NewOpPixBounds(*maxPoints), ops.NewOpReport())

	case "overlaps":
		_, err = runFiles(args[1:], false, c, ops.NewOpFootprint(nil), ops.NewOpOverlaps(), ops.NewOpReport())

	case "makehdr":
		err = cmdMakeHeader(args[1:], c)

	case "hull":
		err = cmdHull(args[1:], fpMode, logWriter)

	case "plot":
		err = cmdPlot(args[1:], fpMode, logWriter)

	case "run":
		err = cmdRun(args[1:], c)

	case "serve":
		if err = rest.MakeSandbox(*chroot, *setuid, logWriter); err == nil {
			err = rest.Serve(*addr)
		}

	case "legal":
		nl.LogPrint(legal)

	case "version":
		cmdVersion(logWriter)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	now := time.Now()
	elapsed := now.Sub(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			nl.LogFatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			nl.LogFatal("Could not write allocation profile: ", err)
		}
	}

	if err != nil {
		nl.LogFatalf("Error: %s\n", err.Error())
	}
	nl.LogSync()
}

// Builds the descriptor for forward and inverse from -hdr, or from the individual flags
func descriptorFromFlags() (*wcs.Descriptor, error) {
	if *hdr != "" {
		return loadDescriptor(*hdr)
	}
	code, err := wcs.ParseCode(*ctype)
	if err != nil {
		return nil, err
	}
	return wcs.NewDescriptor(wcs.Descriptor{
		RefSky:   vec.SkyPoint{Lon: *crval1, Lat: *crval2},
		RefPixel: wcs.XY{X: *crpix1, Y: *crpix2},
		Scale:    wcs.XY{X: *cdelt1, Y: *cdelt2},
		Rotation: *crota2,
		Code:     code,
		AxisFlip: strings.HasPrefix(strings.ToUpper(*ctype), "DEC"),
		Naxis1:   *naxis1,
		Naxis2:   *naxis2,
	})
}

// Reads a WCS from a FITS file, or from an ASCII header template
func loadDescriptor(fileName string) (*wcs.Descriptor, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".hdr", ".txt":
		f, err := os.Open(fileName)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		h, err := fits.ReadTemplate(f, nl.LogWriter())
		if err != nil {
			return nil, err
		}
		return wcs.FromHeader(h)
	}
	img, err := fits.NewImageHeaderFromFile(fileName, 0, nl.LogWriter())
	if err != nil {
		return nil, err
	}
	return wcs.FromHeader(img.Header)
}

// Parses an even number of arguments into coordinate pairs
func parsePairs(args []string) ([][2]float64, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, fmt.Errorf("need pairs of coordinates, got %d values", len(args))
	}
	pairs := make([][2]float64, len(args)/2)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, err
		}
		pairs[i/2][i%2] = v
	}
	return pairs, nil
}

// Parses arguments of the form x,y into planar points
func parsePoints(args []string) ([]r2.Vec, error) {
	pts := make([]r2.Vec, len(args))
	for i, a := range args {
		xs := strings.Split(a, ",")
		if len(xs) != 2 {
			return nil, fmt.Errorf("point '%s' is not of the form x,y", a)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs[0]), 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(xs[1]), 64)
		if err != nil {
			return nil, err
		}
		pts[i] = r2.Vec{X: x, Y: y}
	}
	return pts, nil
}

func cmdForward(args []string, logWriter io.Writer) error {
	d, err := descriptorFromFlags()
	if err != nil {
		return err
	}
	pairs, err := parsePairs(args)
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "WCS %s\n", d)
	for _, p := range pairs {
		lon, lat, err := d.Forward(p[0], p[1])
		if wcs.IsDomainError(err) {
			fmt.Fprintf(logWriter, "%10.3f %10.3f -> not visible: %s\n", p[0], p[1], err.Error())
			continue
		} else if err != nil {
			return err
		}
		fmt.Fprintf(logWriter, "%10.3f %10.3f -> %s\n", p[0], p[1], ops.FormatSky(vec.SkyPoint{Lon: lon, Lat: lat}, *sexa))
	}
	return nil
}

func cmdInverse(args []string, logWriter io.Writer) error {
	d, err := descriptorFromFlags()
	if err != nil {
		return err
	}
	pairs, err := parsePairs(args)
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "WCS %s\n", d)
	for _, p := range pairs {
		lon, lat := unit.AngleFromDeg(p[0]).Mod1(), unit.AngleFromDeg(p[1])
		sky := ops.FormatSky(vec.SkyPoint{Lon: lon.Deg(), Lat: lat.Deg()}, *sexa)
		x, y, err := d.Inverse(lon.Deg(), lat.Deg())
		if wcs.IsDomainError(err) {
			fmt.Fprintf(logWriter, "%s -> not visible: %s\n", sky, err.Error())
			continue
		} else if err != nil {
			return err
		}
		fmt.Fprintf(logWriter, "%s -> %10.3f %10.3f\n", sky, x, y)
	}
	return nil
}

// Loads the given files with the given pixel setting, then applies the steps
func runFiles(patterns []string, pixels bool, c *ops.Context, steps ...ops.Operator) ([]*ops.Frame, error) {
	if len(patterns) == 0 {
		return nil, errors.New("no input files given")
	}
	seq := ops.NewOpSequence(ops.NewOpLoadMany(patterns, pixels))
	seq.Append(steps...)
	return ops.RunAll(seq, c)
}

func cmdCorners(args []string, c *ops.Context) error {
	frames, err := runFiles(args, false, c)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if f.WCS == nil {
			continue
		}
		cs, err := wcs.Corners(f.WCS)
		if err != nil {
			fmt.Fprintf(c.Log, "%d: %s corners: %s\n", f.ID, f.FileName, err.Error())
			continue
		}
		for i, p := range cs {
			fmt.Fprintf(c.Log, "%d: %s corner %d %s\n", f.ID, f.FileName, i, ops.FormatSky(p, c.Sexagesimal))
		}
	}
	return nil
}

func cmdMakeHeader(args []string, c *ops.Context) error {
	frames, err := runFiles(args, false, c, ops.NewOpMakeHeader(*out, *cdelt, *pad, *north))
	if err != nil {
		return err
	}
	for _, f := range frames {
		if *out == "" {
			fmt.Fprint(c.Log, f.WCS.Header())
		}
		fmt.Fprintf(c.Log, "%d: %s\n", f.ID, ops.ReportLine(f, c.Sexagesimal))
	}
	return nil
}

// Computes hull and the shape selected by mode. The hull may be degenerate
func shapes(pts []r2.Vec, m footprint.Mode) (h []hull.Point, box *hull.Box, circle *hull.Circle, err error) {
	h, err = hull.ConvexHull(pts)
	if err != nil && !errors.Is(err, hull.ErrDegenerate) {
		return nil, nil, nil, err
	}
	switch m {
	case footprint.Circle:
		ci, err := hull.BoundingCircle(pts)
		if err != nil {
			return nil, nil, nil, err
		}
		return h, nil, &ci, nil
	case footprint.VerticalBox:
		b, err := hull.AxisAlignedBox(pts)
		if err != nil {
			return nil, nil, nil, err
		}
		return h, &b, nil, nil
	}
	b, err := hull.MinimumBoundingBox(pts)
	if err != nil {
		return nil, nil, nil, err
	}
	return h, &b, nil, nil
}

func cmdHull(args []string, m footprint.Mode, logWriter io.Writer) error {
	pts, err := parsePoints(args)
	if err != nil {
		return err
	}
	h, box, circle, err := shapes(pts, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "Hull of %d points has %d vertices:\n", len(pts), len(h))
	for _, p := range h {
		fmt.Fprintf(logWriter, "  %s\n", p)
	}
	if box != nil {
		fmt.Fprintf(logWriter, "Box %s\n", box)
		for i, p := range box.Corners() {
			fmt.Fprintf(logWriter, "  corner %d (%g, %g)\n", i, p.X, p.Y)
		}
	}
	if circle != nil {
		fmt.Fprintf(logWriter, "Circle %s\n", circle)
	}
	return nil
}

func cmdPlot(args []string, m footprint.Mode, logWriter io.Writer) error {
	pts, err := parsePoints(args)
	if err != nil {
		return err
	}
	h, box, _, err := shapes(pts, m)
	if err != nil {
		return err
	}
	fileName := *out
	if fileName == "" {
		fileName = "plot.png"
	}
	img := render.NewPlot().Render(pts, hull.Vecs(h), box)
	if err := render.WriteFile(fileName, img); err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "Wrote plot of %d points to %s\n", len(pts), fileName)
	return nil
}

func cmdRun(args []string, c *ops.Context) error {
	if len(args) != 1 {
		return errors.New("run needs exactly one pipeline file")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	op, err := ops.UnmarshalOperator(raw)
	if err != nil {
		return err
	}
	_, err = ops.RunAll(op, c)
	return err
}

func cmdVersion(logWriter io.Writer) {
	fmt.Fprintf(logWriter, "Version %s\n", version)
	fmt.Fprintf(logWriter, "Go %s on %s/%s, GOMAXPROCS %d\n", runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.GOMAXPROCS(0))
	fmt.Fprintf(logWriter, "CPU %s, %d physical cores, %d logical cores, AVX2 %v\n",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, cpuid.CPU.AVX2())
	fmt.Fprintf(logWriter, "Memory %d MiB\n", memory.TotalMemory()/1024/1024)
}
