package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(rateLimitRejections, rateLimitLogReaped) }

var rateLimitRejections = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Requests rejected because the caller exceeded its window limit.",
	},
)

var rateLimitLogReaped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "rate_limit_log_rows_reaped_total",
		Help: "Expired rate limit log rows removed by the reaper.",
	},
)

func IncRateLimitRejection() { rateLimitRejections.Inc() }

func AddRateLimitRowsReaped(n int64) { rateLimitLogReaped.Add(float64(n)) }
