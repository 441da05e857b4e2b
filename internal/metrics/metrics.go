package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder tracks render outcomes and phase timings.
type Recorder struct {
	mu sync.Mutex

	rendersTotal     *prometheus.CounterVec
	phaseSeconds     *prometheus.HistogramVec
	rateLimitedTotal *prometheus.CounterVec
	imageBytes       *prometheus.HistogramVec

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	registered bool
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kindling",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newHistogramVec(name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kindling",
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}

// NewRecorder creates collectors bound to registerer (the default
// registerer when nil). Call Register before use.
func NewRecorder(registerer prometheus.Registerer) *Recorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &Recorder{
		registerer:       registerer,
		gatherer:         gatherer,
		rendersTotal:     newCounterVec("renders_total", "Rendered images by route, target and HTTP status", []string{"route", "target", "status"}),
		phaseSeconds:     newHistogramVec("render_phase_duration_seconds", "Time spent in each render phase", []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}, []string{"handler", "phase"}),
		rateLimitedTotal: newCounterVec("rate_limited_total", "Requests rejected by the per-client rate limiter", []string{"route"}),
		imageBytes:       newHistogramVec("image_bytes", "Size of encoded PNG responses", prometheus.ExponentialBuckets(1024, 4, 8), []string{"route"}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (r *Recorder) Register() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registered {
		return nil
	}

	// a collector already registered by another recorder is adopted so
	// both recorders feed the series the registry exposes
	counters := []**prometheus.CounterVec{&r.rendersTotal, &r.rateLimitedTotal}
	for _, c := range counters {
		if err := r.registerer.Register(*c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return err
			}
			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return err
			}
			*c = existing
		}
	}
	histograms := []**prometheus.HistogramVec{&r.phaseSeconds, &r.imageBytes}
	for _, h := range histograms {
		if err := r.registerer.Register(*h); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return err
			}
			existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				return err
			}
			*h = existing
		}
	}

	r.registered = true
	return nil
}

// ObserveRender records one finished image response.
func (r *Recorder) ObserveRender(route, target string, status, size int) {
	r.rendersTotal.WithLabelValues(route, target, strconv.Itoa(status)).Inc()
	r.imageBytes.WithLabelValues(route).Observe(float64(size))
}

// ObservePhase records the duration of a load, draw or encode phase.
func (r *Recorder) ObservePhase(handler, phase string, d time.Duration) {
	r.phaseSeconds.WithLabelValues(handler, phase).Observe(d.Seconds())
}

// ObserveRateLimited records a rejected request.
func (r *Recorder) ObserveRateLimited(route string) {
	r.rateLimitedTotal.WithLabelValues(route).Inc()
}

// Handler serves the exposition format for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Reset clears all series (useful for testing).
func (r *Recorder) Reset() {
	r.rendersTotal.Reset()
	r.phaseSeconds.Reset()
	r.rateLimitedTotal.Reset()
	r.imageBytes.Reset()
}
