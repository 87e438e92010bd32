package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TaskToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_toggles_total",
			Help: "Task toggles written, by task and resulting state",
		},
		[]string{"task", "state"},
	)
	SyncItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_items_total",
			Help: "Background sync items processed, by outcome",
		},
		[]string{"outcome"},
	)
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notifications delivered, by kind and channel",
		},
		[]string{"kind", "channel"},
	)
	RealtimeSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_subscribers",
			Help: "Open community websocket connections",
		},
	)
)

var registerOnce sync.Once

// Register adds the domain collectors to the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(TaskToggles, SyncItems, NotificationsSent, RealtimeSubscribers)
	})
}

// ToggleState is the state label for a toggle write.
func ToggleState(completed bool) string {
	if completed {
		return "completed"
	}
	return "cleared"
}
