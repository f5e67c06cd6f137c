package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so components can be built without a registry.
type Metrics struct {
	dispatches        *prometheus.CounterVec
	dispatchDuration  prometheus.Histogram
	collaboratorCalls *prometheus.CounterVec
	workflows         *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg (or the default
// registerer if nil). Collectors already registered are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "email_dispatches_total",
			Help: "Mail dispatch attempts by result",
		}, []string{"result"}), // result: sent|failed

		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "email_dispatch_duration_seconds",
			Help:    "Time spent handing a message to the mail transport",
			Buckets: prometheus.DefBuckets,
		}),

		collaboratorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collaborator_calls_total",
			Help: "Calls to downstream services by operation and outcome",
		}, []string{"service", "operation", "outcome"}),

		workflows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_workflows_total",
			Help: "Verification workflow runs by workflow and outcome",
		}, []string{"workflow", "outcome"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served by method, route and status",
		}, []string{"method", "route", "status"}),
	}

	var err error
	m.dispatches, err = register(reg, m.dispatches)
	if err != nil {
		return nil, err
	}
	m.dispatchDuration, err = register(reg, m.dispatchDuration)
	if err != nil {
		return nil, err
	}
	m.collaboratorCalls, err = register(reg, m.collaboratorCalls)
	if err != nil {
		return nil, err
	}
	m.workflows, err = register(reg, m.workflows)
	if err != nil {
		return nil, err
	}
	m.httpRequests, err = register(reg, m.httpRequests)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveDispatch records one finished mail dispatch.
func (m *Metrics) ObserveDispatch(err error, took time.Duration) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(result(err, "sent", "failed")).Inc()
	m.dispatchDuration.Observe(took.Seconds())
}

// ObserveCall records the outcome of one downstream call. outcome is a short
// stable label such as "ok", "not_found" or "unavailable".
func (m *Metrics) ObserveCall(service, operation, outcome string) {
	if m == nil {
		return
	}
	m.collaboratorCalls.WithLabelValues(service, operation, outcome).Inc()
}

// ObserveWorkflow records the outcome of one orchestrator workflow.
func (m *Metrics) ObserveWorkflow(workflow, outcome string) {
	if m == nil {
		return
	}
	m.workflows.WithLabelValues(workflow, outcome).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
}

func result(err error, ok, failed string) string {
	if err != nil {
		return failed
	}
	return ok
}
