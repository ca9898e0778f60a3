// Package metrics exposes Prometheus counters for the console session. The
// listener is opt-in: nothing is served unless Serve is called with an
// address from preferences.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// InjectionAttempts counts bridge injection attempts by outcome
	// (injected, already-injected, blocked).
	InjectionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyroid_injection_attempts_total",
		Help: "Bridge injection attempts by outcome.",
	}, []string{"outcome"})

	// ClipboardPushes counts clipboard payloads pushed to the console.
	ClipboardPushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cyroid_clipboard_pushes_total",
		Help: "Clipboard payloads pushed to the remote console.",
	})

	// ClipboardAcks counts bridge acknowledgements by result.
	ClipboardAcks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyroid_clipboard_acks_total",
		Help: "Bridge acknowledgements by result (success, failure).",
	}, []string{"result"})

	// SessionStatus reports the current connection state as a one-hot gauge
	// over the status label.
	SessionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cyroid_session_status",
		Help: "Current connection state (1 for the active status).",
	}, []string{"status"})
)

// RecordStatus sets the one-hot session status gauge.
func RecordStatus(status string) {
	for _, s := range []string{"connecting", "connected", "timeout", "error"} {
		v := 0.0
		if s == status {
			v = 1
		}
		SessionStatus.WithLabelValues(s).Set(v)
	}
}

// RecordAck bumps the ack counter for the given result.
func RecordAck(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	ClipboardAcks.WithLabelValues(result).Inc()
}

// Serve runs a metrics HTTP listener on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
