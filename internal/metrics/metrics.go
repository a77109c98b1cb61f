// Package metrics provides Prometheus instrumentation for the puzzle ledger.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TxTotal counts ledger transactions by method and outcome
	// (committed, rejected, failed).
	TxTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wordle_ledger_tx_total",
		Help: "Total ledger transactions",
	}, []string{"method", "outcome"})

	// TxLatency tracks transaction execution latency by method.
	TxLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wordle_ledger_tx_latency_seconds",
		Help:    "Ledger transaction latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// RejectionsTotal counts rejected transactions by error code.
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wordle_rejections_total",
		Help: "Ledger transactions rejected, by reason code",
	}, []string{"code"})

	SolvesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wordle_solves_total",
		Help: "Accepted puzzle answers",
	})

	IncorrectGuessesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wordle_incorrect_guesses_total",
		Help: "Submitted answers that did not match the solution",
	})

	HintsSoldTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wordle_hints_sold_total",
		Help: "Hints purchased",
	})

	// RewardsPaidTotal is cumulative rewards in asset base units.
	RewardsPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wordle_rewards_paid_total",
		Help: "Cumulative rewards paid in asset base units",
	})

	TreasuryBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wordle_treasury_balance",
		Help: "Puzzle engine treasury balance in asset base units",
	})

	LeaderboardPlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wordle_leaderboard_players",
		Help: "Distinct players recorded by the leaderboard",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wordle_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wordle_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wordle_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})

	// RateLimited counts write requests refused by the rate limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wordle_rate_limited_total",
		Help: "Write requests refused by the per-signer rate limiter",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern keeps addresses out of the label set.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
