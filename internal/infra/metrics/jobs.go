package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, jobsQueuedTotal, generationSeconds) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "video_jobs_processed_total",
		Help: "Total number of video jobs driven to a terminal state, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var jobsQueuedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "video_jobs_queued_total",
		Help: "Total number of jobs accepted into the queue.",
	},
)

var generationSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "video_generation_seconds",
		Help:    "Wall-clock generation time distribution for completed jobs.",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
	},
)

func IncJobProcessed(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func IncJobQueued() { jobsQueuedTotal.Inc() }

func ObserveGenerationSeconds(secs float64) { generationSeconds.Observe(secs) }
