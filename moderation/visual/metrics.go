package visual

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var mediaAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "gatekeeper_media_api_duration_sec",
	Help: "Duration of media scoring API calls",
})

var mediaAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_media_api_count",
	Help: "Number of media scoring API calls, by HTTP status code",
}, []string{"status"})

var mediaJobsStarted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gatekeeper_media_jobs_started",
	Help: "Number of async media classification jobs submitted",
})
