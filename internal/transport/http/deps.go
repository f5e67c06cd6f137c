package http

import (
	"github.com/go-email-service/internal/application/verification"
	"github.com/go-email-service/internal/metrics"
	"github.com/go-email-service/internal/transport/http/handler"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Deps holds the application services and observability hooks for the router.
type Deps struct {
	Dispatcher   handler.Dispatcher
	Verification verification.Service
	Metrics      *metrics.Metrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}
