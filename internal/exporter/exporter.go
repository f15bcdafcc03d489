// Package exporter publishes the latest dashboard frame as Prometheus gauges.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/coremon/internal/model"
)

const namespace = "coremon"

// Exporter holds gauges for the most recent sample only.
type Exporter struct {
	registry *prometheus.Registry

	coreUsage   *prometheus.GaugeVec
	cores       prometheus.Gauge
	memTotal    prometheus.Gauge
	memAvail    prometheus.Gauge
	swapTotal   prometheus.Gauge
	swapFree    prometheus.Gauge
	lastSampled prometheus.Gauge

	mu       sync.Mutex
	exported int // per-core series currently registered

	log zerolog.Logger
}

func New() *Exporter {
	gauge := func(subsystem, name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		coreUsage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cpu",
			Name:      "core_usage_percent",
			Help:      "Per-core utilization over the last sampling interval.",
		}, []string{"core"}),
		cores:       gauge("cpu", "cores", "Per-core rows read in the last sample."),
		memTotal:    gauge("memory", "total_kb", "MemTotal in kB."),
		memAvail:    gauge("memory", "available_kb", "MemAvailable in kB."),
		swapTotal:   gauge("swap", "total_kb", "SwapTotal in kB."),
		swapFree:    gauge("swap", "free_kb", "SwapFree in kB."),
		lastSampled: gauge("", "last_sample_timestamp_seconds", "Unix time of the last sample."),
		log:         zerolog.Nop(),
	}
	e.registry.MustRegister(e.coreUsage, e.cores, e.memTotal, e.memAvail, e.swapTotal, e.swapFree, e.lastSampled)
	return e
}

// SetLogger configures the logger for server events.
func (e *Exporter) SetLogger(l zerolog.Logger) { e.log = l }

// Observe replaces every gauge with the values of s. Cores that disappeared
// since the previous call are dropped; the others are overwritten in place so
// a concurrent scrape never sees them missing.
func (e *Exporter) Observe(s model.Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, pct := range s.PerCore {
		e.coreUsage.WithLabelValues(strconv.Itoa(i)).Set(pct)
	}
	for i := len(s.PerCore); i < e.exported; i++ {
		e.coreUsage.DeleteLabelValues(strconv.Itoa(i))
	}
	e.exported = len(s.PerCore)
	e.cores.Set(float64(s.Cores))
	e.memTotal.Set(float64(s.Memory.TotalKB))
	e.memAvail.Set(float64(s.Memory.AvailableKB))
	e.swapTotal.Set(float64(s.Memory.SwapTotalKB))
	e.swapFree.Set(float64(s.Memory.SwapFreeKB))
	if !s.Timestamp.IsZero() {
		e.lastSampled.Set(float64(s.Timestamp.Unix()))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr until ctx is done.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	e.log.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
