package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(workersBusy, workerTaskErrors) }

var workersBusy = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "video_workers_busy",
		Help: "Number of pool workers currently running a task.",
	},
)

var workerTaskErrors = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "video_worker_task_errors_total",
		Help: "Total number of tasks that returned an error.",
	},
)

func IncWorkerBusy() { workersBusy.Inc() }

func DecWorkerBusy() { workersBusy.Dec() }

func IncWorkerTaskError() { workerTaskErrors.Inc() }
