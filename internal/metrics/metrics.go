package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobResults counts runner outcomes by outcome, media class, and reason.
	JobResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convertify_job_results_total",
		Help: "Total number of job results by outcome",
	}, []string{"outcome", "media_class", "reason"})

	// ConversionDuration tracks the wall time of a single engine conversion.
	ConversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "convertify_conversion_duration_seconds",
		Help:    "Duration of engine conversions",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"media_class", "format"})

	// ConversionBytes tracks bytes handed to and produced by the engine.
	ConversionBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convertify_conversion_bytes_total",
		Help: "Total bytes written to and read from the engine workspace",
	}, []string{"direction"})

	// EngineLoads counts engine initializations by result.
	EngineLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convertify_engine_loads_total",
		Help: "Total number of engine initializations by result",
	}, []string{"result"})

	// NotificationsSent counts notification deliveries by event and result.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convertify_notifications_total",
		Help: "Total number of notifications by event and result",
	}, []string{"event", "result"})
)

// RecordJobResult increments the job result counter.
func RecordJobResult(outcome, mediaClass, reason string) {
	JobResults.WithLabelValues(outcome, mediaClass, reason).Inc()
}

// ObserveConversion records the duration and byte counts of one conversion.
func ObserveConversion(mediaClass, format string, duration time.Duration, inBytes, outBytes int) {
	ConversionDuration.WithLabelValues(mediaClass, format).Observe(duration.Seconds())
	ConversionBytes.WithLabelValues("input").Add(float64(inBytes))
	ConversionBytes.WithLabelValues("output").Add(float64(outBytes))
}

// RecordEngineLoad increments the engine load counter.
func RecordEngineLoad(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	EngineLoads.WithLabelValues(result).Inc()
}

// RecordNotification increments the notification counter.
func RecordNotification(event string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	NotificationsSent.WithLabelValues(event, result).Inc()
}

// Serve exposes the default registry on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, listener, logger)
}

// ServeListener exposes the default registry on an existing listener until ctx is done.
func ServeListener(ctx context.Context, listener net.Listener, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if logger != nil {
		logger.Info("metrics endpoint listening", slog.String("addr", listener.Addr().String()))
	}
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
