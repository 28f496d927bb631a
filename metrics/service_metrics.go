package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServiceType labels the service layer a metric came from.
type ServiceType string

const (
	ServiceTypeOrder        ServiceType = "order"
	ServiceTypeFlow         ServiceType = "flow"
	ServiceTypeNotification ServiceType = "notification"
)

// OperationType labels the operation being measured.
type OperationType string

const (
	OperationCreate       OperationType = "create"
	OperationStatusUpdate OperationType = "status_update"
	OperationDispatch     OperationType = "dispatch"
	OperationFlowStep     OperationType = "flow_step"
)

// OperationStatus labels the outcome.
type OperationStatus string

const (
	StatusSuccess OperationStatus = "success"
	StatusError   OperationStatus = "error"
)

var (
	serviceOperationsTotal   *prometheus.CounterVec
	serviceOperationDuration *prometheus.HistogramVec
	notificationsSentTotal   *prometheus.CounterVec
)

// InitServiceMetrics registers service layer metrics on the shared registry.
func InitServiceMetrics(registry *prometheus.Registry) error {
	serviceOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "service_operations_total",
			Help: "Total number of service layer operations",
		},
		[]string{"service", "operation", "status"},
	)

	serviceOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "service_operation_duration_seconds",
			Help:    "Duration of service layer operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	notificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Customer notifications delivered or failed, by outcome",
		},
		[]string{"status"},
	)

	if err := registry.Register(serviceOperationsTotal); err != nil {
		return err
	}

	if err := registry.Register(serviceOperationDuration); err != nil {
		return err
	}

	if err := registry.Register(notificationsSentTotal); err != nil {
		return err
	}

	return nil
}

// RecordServiceOperation records one service layer operation.
func RecordServiceOperation(service ServiceType, operation OperationType, status OperationStatus, duration time.Duration) {
	if serviceOperationsTotal != nil && serviceOperationDuration != nil {
		serviceOperationsTotal.WithLabelValues(string(service), string(operation), string(status)).Inc()
		serviceOperationDuration.WithLabelValues(string(service), string(operation)).Observe(duration.Seconds())
	}
}

// RecordOrderOperation is a convenience wrapper for order metrics.
func RecordOrderOperation(operation OperationType, status OperationStatus, duration time.Duration) {
	RecordServiceOperation(ServiceTypeOrder, operation, status, duration)
}

// RecordNotificationDelivery counts one delivery attempt outcome.
func RecordNotificationDelivery(status OperationStatus) {
	if notificationsSentTotal != nil {
		notificationsSentTotal.WithLabelValues(string(status)).Inc()
	}
}
