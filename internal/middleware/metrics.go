package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis command failures by operation.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docflow_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// WorkflowTransitions counts successful status transitions by target status.
	WorkflowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docflow_workflow_transitions_total",
		Help: "Total number of applied workflow status transitions",
	}, []string{"status"})

	// PermissionDenials counts rejected operations by operation name.
	PermissionDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docflow_permission_denials_total",
		Help: "Total number of operations rejected by the authorization guard",
	}, []string{"operation"})

	// ActiveWebSockets tracks currently open WebSocket connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docflow_active_websockets",
		Help: "Number of currently open WebSocket connections",
	})

	// SideChannelFailures counts swallowed side-channel errors by channel.
	SideChannelFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docflow_side_channel_failures_total",
		Help: "Total number of fire-and-forget side-channel failures",
	}, []string{"channel"})
)

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware adapts the fiberprometheus middleware into a fiber.Handler.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
