package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_active_connections",
			Help: "Current number of live websocket connections",
		},
	)

	connectionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_connections_opened_total",
			Help: "Total number of websocket connections accepted",
		},
	)
)
