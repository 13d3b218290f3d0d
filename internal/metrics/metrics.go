// Package metrics provides Prometheus instrumentation for groupguard. It
// exposes counters for moderated messages, enforcement actions and platform
// failures, and a histogram for classification latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesTotal counts moderated messages, labeled by kind ("text",
	// "video") and outcome ("clean", "flagged", "exempt", "banned_sender").
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_messages_total",
		Help: "Total number of group messages moderated",
	}, []string{"kind", "outcome"})

	// ReasonsTotal counts verdict reasons by category.
	ReasonsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_reasons_total",
		Help: "Classification reasons recorded, by category",
	}, []string{"kind"})

	WarningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_warnings_total",
		Help: "Warnings issued to members",
	})

	BansTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_bans_total",
		Help: "Members added to a ban set",
	})

	VideoReportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_video_reports_total",
		Help: "Distinct video reports recorded",
	})

	VideosDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_videos_deleted_total",
		Help: "Videos removed after reaching the report threshold",
	})

	// PlatformErrorsTotal counts failed platform calls by operation
	// ("send", "delete", "ban", "is_admin", "administrators", "answer").
	PlatformErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_platform_errors_total",
		Help: "Failed chat platform calls",
	}, []string{"op"})

	// ClassifyLatency records classification time in seconds.
	ClassifyLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "guard_classify_seconds",
		Help:    "Message classification latency in seconds",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
	})

	FAQAnswersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_faq_answers_total",
		Help: "Questions answered by the FAQ matcher, by topic",
	}, []string{"topic"})

	StreamDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_stream_dropped_total",
		Help: "Dashboard stream messages dropped for slow subscribers",
	})
)

func init() {
	prometheus.MustRegister(
		MessagesTotal,
		ReasonsTotal,
		WarningsTotal,
		BansTotal,
		VideoReportsTotal,
		VideosDeletedTotal,
		PlatformErrorsTotal,
		ClassifyLatency,
		FAQAnswersTotal,
		StreamDroppedTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
