package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submissionsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gatekeeper_submissions_received",
	Help: "Number of content submissions accepted for moderation",
})

var submissionsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_submissions_decided",
	Help: "Number of moderation decisions, by resulting status",
}, []string{"status"})

var alertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_alerts_created",
	Help: "Number of admin alerts created, by alert type",
}, []string{"type"})

var callbacksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_job_callbacks_received",
	Help: "Number of media job callbacks acted on, by job status",
}, []string{"status"})

var callbacksDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_job_callbacks_dropped",
	Help: "Number of media job callbacks dropped, by reason",
}, []string{"reason"})

var jobsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gatekeeper_media_jobs_expired",
	Help: "Number of async media jobs that expired unanswered",
})
