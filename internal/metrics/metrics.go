package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profscout_fetch_requests_total",
			Help: "Total number of page fetches executed",
		},
		[]string{"domain", "status", "detection_src"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "profscout_fetch_duration_seconds",
			Help:    "Duration of page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profscout_fetch_bytes_total",
			Help: "Total bytes downloaded across all fetches",
		},
		[]string{"domain"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profscout_proxy_failures_total",
			Help: "Total number of proxy failures during fetches",
		},
		[]string{"proxy_url"},
	)

	CandidatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "profscout_candidates_total",
			Help: "Candidate profile URLs discovered from search pages",
		},
	)

	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profscout_verdicts_total",
			Help: "Outcome of processing each candidate profile page",
		},
		[]string{"outcome"},
	)
)

// Candidate outcomes recorded in VerdictsTotal.
const (
	OutcomeAccepted  = "accepted"
	OutcomeStructure = "structure_error"
	OutcomeTransport = "transport_error"
	OutcomeRobots    = "robots_disallowed"
)

// RecordFetch updates the fetch metrics for one request to domain.
func RecordFetch(domain string, statusCode int, failed bool, detectionSrc string, d time.Duration, bytes int) {
	status := strconv.Itoa(statusCode)
	if failed {
		status = "error"
	}
	FetchRequestsTotal.WithLabelValues(domain, status, detectionSrc).Inc()
	FetchDuration.WithLabelValues(domain).Observe(d.Seconds())
	FetchBytesTotal.WithLabelValues(domain).Add(float64(bytes))
}

// RecordCandidates counts discovered candidate URLs.
func RecordCandidates(n int) {
	CandidatesTotal.Add(float64(n))
}

// RecordVerdict counts one candidate outcome. Validation rejections use the
// rejection reason as the outcome.
func RecordVerdict(outcome string) {
	VerdictsTotal.WithLabelValues(outcome).Inc()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
