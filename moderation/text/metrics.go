package text

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var textAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "gatekeeper_text_api_duration_sec",
	Help: "Duration of text scoring API calls",
})

var textAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_text_api_count",
	Help: "Number of text scoring API calls, by HTTP status code",
}, []string{"status"})
