// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

// Metrics is the metrics backend. The process starts with the no-op backend
// so library code can declare meters unconditionally; binaries that want
// real telemetry call InitializePrometheusMetrics before serving.
type Metrics interface {
	GetOrCreateCountMeter(name string) CountMeter
	GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter
	GetOrCreateGaugeMeter(name string) GaugeMeter
	GetOrCreateHistogramVecMeter(name string, labels []string, buckets []int64) HistogramVecMeter
	GetOrCreateHandler() http.Handler
}

type CountMeter interface {
	Add(int64)
}

type CountVecMeter interface {
	AddWithLabel(int64, map[string]string)
}

type GaugeMeter interface {
	Set(int64)
}

type HistogramVecMeter interface {
	ObserveWithLabels(int64, map[string]string)
}

// BucketHTTPReqs is the default bucket set for request durations, in ms.
var BucketHTTPReqs = []int64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}

var backend Metrics = defaultNoopMetrics()

// Meters resolve the backend at call time, so package-level meter variables
// declared before InitializePrometheusMetrics still record.

type lazyCounter struct{ name string }

func (l lazyCounter) Add(i int64) { backend.GetOrCreateCountMeter(l.name).Add(i) }

type lazyCounterVec struct {
	name   string
	labels []string
}

func (l lazyCounterVec) AddWithLabel(i int64, labels map[string]string) {
	backend.GetOrCreateCountVecMeter(l.name, l.labels).AddWithLabel(i, labels)
}

type lazyGauge struct{ name string }

func (l lazyGauge) Set(i int64) { backend.GetOrCreateGaugeMeter(l.name).Set(i) }

type lazyHistogramVec struct {
	name    string
	labels  []string
	buckets []int64
}

func (l lazyHistogramVec) ObserveWithLabels(i int64, labels map[string]string) {
	backend.GetOrCreateHistogramVecMeter(l.name, l.labels, l.buckets).ObserveWithLabels(i, labels)
}

func Counter(name string) CountMeter {
	return lazyCounter{name}
}

func CounterVec(name string, labels []string) CountVecMeter {
	return lazyCounterVec{name, labels}
}

func Gauge(name string) GaugeMeter {
	return lazyGauge{name}
}

func HistogramVec(name string, labels []string, buckets []int64) HistogramVecMeter {
	return lazyHistogramVec{name, labels, buckets}
}

// HTTPHandler exposes the scrape endpoint of the active backend, or nil for
// the no-op backend.
func HTTPHandler() http.Handler {
	return backend.GetOrCreateHandler()
}
