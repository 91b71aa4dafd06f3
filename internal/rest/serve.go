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

package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/wcsbounds/internal/footprint"
	"github.com/mlnoga/wcsbounds/internal/hull"
	"github.com/mlnoga/wcsbounds/internal/ops"
	"github.com/mlnoga/wcsbounds/internal/vec"
	"github.com/mlnoga/wcsbounds/internal/wcs"
	"gonum.org/v1/gonum/spatial/r2"
)

// Listens and serves the API on the given address, with metrics on the global registry
func Serve(addr string) error {
	m, err := NewMetrics(nil)
	if err != nil {
		return err
	}
	return NewRouter(m).Run(addr)
}

// Builds the API routes
func NewRouter(m *Metrics) *gin.Engine {
	s := &server{metrics: m}
	r := gin.Default()
	r.Use(m.Middleware())
	r.GET("/metrics", gin.WrapH(m.Handler()))
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/forward", s.postForward)
			v1.POST("/inverse", s.postInverse)
			v1.POST("/footprint", s.postFootprint)
			v1.POST("/hull", s.postHull)
			v1.POST("/box", s.postBox)
			v1.POST("/run", s.postRun)
		}
	}
	return r
}

type server struct {
	metrics *Metrics
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

// Reports an error with the HTTP status matching its kind. Configuration and
// input errors are 400, projection and geometry failures 422
func (s *server) fail(c *gin.Context, code wcs.Code, index int, err error) {
	s.metrics.ObserveError(code, err)
	body := gin.H{"error": err.Error()}
	if index >= 0 {
		body["index"] = index
	}
	var pe *wcs.ProjectionError
	switch {
	case errors.As(err, &pe):
		body["status"] = pe.Status()
		body["code"] = pe.Code.String()
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.Is(err, wcs.ErrDomain), errors.Is(err, hull.ErrDegenerate):
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.Is(err, wcs.ErrConfig), errors.Is(err, hull.ErrNoPoints):
		c.JSON(http.StatusBadRequest, body)
	default:
		c.JSON(http.StatusInternalServerError, body)
	}
}

type postForwardArgs struct {
	WCS    wcs.Descriptor `json:"wcs"`
	Pixels []wcs.XY       `json:"pixels"`
}

func (s *server) postForward(c *gin.Context) {
	var args postForwardArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := wcs.NewDescriptor(args.WCS)
	if err != nil {
		s.fail(c, args.WCS.Code, -1, err)
		return
	}
	sky := make([]vec.SkyPoint, len(args.Pixels))
	for i, p := range args.Pixels {
		if sky[i].Lon, sky[i].Lat, err = d.Forward(p.X, p.Y); err != nil {
			s.fail(c, d.Code, i, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"sky": sky})
}

type postInverseArgs struct {
	WCS wcs.Descriptor `json:"wcs"`
	Sky []vec.SkyPoint `json:"sky"`
}

func (s *server) postInverse(c *gin.Context) {
	var args postInverseArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := wcs.NewDescriptor(args.WCS)
	if err != nil {
		s.fail(c, args.WCS.Code, -1, err)
		return
	}
	pixels := make([]wcs.XY, len(args.Sky))
	for i, p := range args.Sky {
		if pixels[i].X, pixels[i].Y, err = d.Inverse(p.Lon, p.Lat); err != nil {
			s.fail(c, d.Code, i, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"pixels": pixels})
}

// Either sky points or an image WCS with NAXIS1/2
type postFootprintArgs struct {
	WCS  *wcs.Descriptor `json:"wcs"`
	Sky  []vec.SkyPoint  `json:"sky"`
	Mode footprint.Mode  `json:"mode"`
}

func (s *server) postFootprint(c *gin.Context) {
	var args postFootprintArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var fi footprint.Info
	var err error
	code := wcs.TAN // footprints are computed in a gnomonic tangent plane
	if args.WCS != nil {
		var d *wcs.Descriptor
		if d, err = wcs.NewDescriptor(*args.WCS); err == nil {
			code = d.Code
			fi, err = footprint.ImageFootprint(d, args.Mode)
		}
	} else {
		fi, err = footprint.Compute(args.Sky, args.Mode)
	}
	if err != nil {
		s.fail(c, code, -1, err)
		return
	}
	c.JSON(http.StatusOK, fi)
}

type postPointsArgs struct {
	Points []wcs.XY       `json:"points"`
	Mode   footprint.Mode `json:"mode"`
}

func vecs(xys []wcs.XY) []r2.Vec {
	vs := make([]r2.Vec, len(xys))
	for i, p := range xys {
		vs[i] = r2.Vec{X: p.X, Y: p.Y}
	}
	return vs
}

// Convex hull of planar points. Degenerate inputs return the surviving points
func (s *server) postHull(c *gin.Context) {
	var args postPointsArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h, err := hull.ConvexHull(vecs(args.Points))
	degenerate := errors.Is(err, hull.ErrDegenerate)
	if err != nil && !degenerate {
		s.fail(c, wcs.Linear, -1, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hull": h, "degenerate": degenerate})
}

// Bounding box or circle of planar points, as selected by the mode
func (s *server) postBox(c *gin.Context) {
	var args postPointsArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pts := vecs(args.Points)
	var res interface{}
	var err error
	switch args.Mode {
	case footprint.Box:
		res, err = hull.MinimumBoundingBox(pts)
	case footprint.VerticalBox:
		res, err = hull.AxisAlignedBox(pts)
	case footprint.Circle:
		res, err = hull.BoundingCircle(pts)
	default:
		err = fmt.Errorf("%w: unknown mode %d", wcs.ErrConfig, args.Mode)
	}
	if err != nil {
		s.fail(c, wcs.Linear, -1, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Runs an operator pipeline over files below the working directory,
// streaming the log as plain text
func (s *server) postRun(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := ops.UnmarshalOperator(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logWriter := c.Writer
	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	if err := printArgs(logWriter, "Arguments:\n", "\n", op); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	// frames are materialized concurrently
	ctx := ops.NewContext(&lockedWriter{w: logWriter}, footprint.Box)
	if _, err := ops.RunAll(op, ctx); err != nil {
		s.metrics.ObserveError(wcs.Linear, err)
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	logWriter.Flush()
}

// Serializes writes from concurrent operators
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
