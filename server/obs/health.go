// Package obs is the minimal internal operational surface: a liveness
// endpoint and a Prometheus metrics endpoint reporting cursor lag and tick
// counters. This is not the read-only query surface external callers use
// to read ratings and matchups — that lives outside this module.
package obs

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gauges and counters the ingest and rating ticks
// report into.
type Metrics struct {
	startTime time.Time

	ingestTicks      prometheus.Counter
	ingestErrors     prometheus.Counter
	ratingWindows    prometheus.Counter
	ratingErrors     prometheus.Counter
	cursorLagSeconds prometheus.Gauge
	newGamesPerTick  prometheus.Gauge
}

// NewMetrics registers the gauges/counters against the default Prometheus
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		ingestTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ratingengine_ingest_ticks_total",
			Help: "Number of completed ingest ticks.",
		}),
		ingestErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ratingengine_ingest_errors_total",
			Help: "Number of ingest ticks that returned an error.",
		}),
		ratingWindows: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ratingengine_rating_windows_total",
			Help: "Number of rating ticks run, including ticks that returned an error.",
		}),
		ratingErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ratingengine_rating_errors_total",
			Help: "Number of rating ticks that returned an error.",
		}),
		cursorLagSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ratingengine_cursor_lag_seconds",
			Help: "Seconds between now and the rating cursor's last_update watermark.",
		}),
		newGamesPerTick: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ratingengine_new_games_last_tick",
			Help: "Number of newly inserted games in the most recent ingest tick.",
		}),
	}
}

func (m *Metrics) IngestTick(newGames int, err error) {
	m.ingestTicks.Inc()
	m.newGamesPerTick.Set(float64(newGames))
	if err != nil {
		m.ingestErrors.Inc()
	}
}

func (m *Metrics) RatingWindow(err error) {
	m.ratingWindows.Inc()
	if err != nil {
		m.ratingErrors.Inc()
	}
}

func (m *Metrics) SetCursorLag(d time.Duration) {
	m.cursorLagSeconds.Set(d.Seconds())
}

// Router builds the internal chi router serving /healthz and /metrics.
func Router(m *Metrics) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"uptime": time.Since(m.startTime).String(),
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
