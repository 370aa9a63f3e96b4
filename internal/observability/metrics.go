package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebSocketBackpressureDrops counts messages dropped because a client's send
// buffer was full or closed.
var WebSocketBackpressureDrops = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "websocket_backpressure_drops_total",
		Help: "Number of websocket messages dropped due to backpressure",
	},
	[]string{"hub", "reason"},
)
