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
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/wcsbounds/internal/hull"
	"github.com/mlnoga/wcsbounds/internal/wcs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics for the REST surface
type Metrics struct {
	gatherer prometheus.Gatherer

	Requests  *prometheus.CounterVec   // by route and HTTP status
	Durations *prometheus.HistogramVec // by route
	Errors    *prometheus.CounterVec   // by projection code and error kind
}

// Registers the metrics against the given registerer, or the global
// registry if nil. Registering twice returns the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wcsbounds_requests_total",
		Help: "Total number of handled API requests, labeled by route and HTTP status.",
	}, []string{"route", "status"}))
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wcsbounds_request_duration_seconds",
		Help:    "API request latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"route"}))
	if err != nil {
		return nil, err
	}

	errs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wcsbounds_errors_total",
		Help: "Projection and geometry errors, labeled by projection code and kind.",
	}, []string{"code", "kind"}))
	if err != nil {
		return nil, err
	}

	return &Metrics{gatherer: gatherer, Requests: requests, Durations: durations, Errors: errs}, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return vec, nil
}

// Gin middleware counting requests and timing them per route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.Durations.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Returns the kind label of an error: domain, badValue, degenerate, config,
// geometry or other
func errorKind(err error) string {
	switch {
	case errors.Is(err, wcs.ErrDomain):
		return "domain"
	case errors.Is(err, wcs.ErrBadValue):
		return "badValue"
	case errors.Is(err, wcs.ErrDegenerate):
		return "degenerate"
	case errors.Is(err, wcs.ErrConfig):
		return "config"
	case errors.Is(err, hull.ErrDegenerate), errors.Is(err, hull.ErrNoPoints):
		return "geometry"
	}
	return "other"
}

// Counts an error under the projection code it occurred in
func (m *Metrics) ObserveError(code wcs.Code, err error) {
	if m == nil || err == nil {
		return
	}
	var pe *wcs.ProjectionError
	if errors.As(err, &pe) {
		code = pe.Code
	}
	m.Errors.WithLabelValues(code.String(), errorKind(err)).Inc()
}

// Exposes the metrics for scraping
func (m *Metrics) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if m != nil && m.gatherer != nil {
		gatherer = m.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
