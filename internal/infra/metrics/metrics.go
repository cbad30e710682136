package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the access-code critical path. Registered on the default
// registry so the /metrics sidecar picks them up without extra wiring.
var (
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secureview_resolutions_total",
		Help: "Access code resolutions by result (hit, miss, error).",
	}, []string{"result"})

	ViewEventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "secureview_view_events_published_total",
		Help: "View audit events published to the stream.",
	})

	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secureview_uploads_total",
		Help: "Upload attempts by result (ok, quota_exceeded, error).",
	}, []string{"result"})
)
