package sandbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	runnerLocal  = "local"
	runnerDocker = "docker"
)

var (
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codesnap",
		Subsystem: "sandbox",
		Name:      "run_duration_seconds",
		Help:      "Duration of sandboxed child process runs",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"runner"})

	runTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codesnap",
		Subsystem: "sandbox",
		Name:      "run_timeouts_total",
		Help:      "Number of runs killed after exceeding their timeout",
	}, []string{"runner"})

	runFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codesnap",
		Subsystem: "sandbox",
		Name:      "run_launch_failures_total",
		Help:      "Number of runs that could not be started",
	}, []string{"runner"})
)
