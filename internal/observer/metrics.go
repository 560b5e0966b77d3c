package observer

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for standard event metrics
	eventProcessingLabels = []string{"event_type", "company_id", "consumer_type"}
	// Labels for tracking specific processing actions
	eventActionLabels = []string{"event_type", "company_id", "consumer_type", "action", "error_type"}

	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_crm_service_events_received_total",
			Help: "Total number of events received from NATS, labeled by consumer type.",
		},
		eventProcessingLabels,
	)
	EventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_crm_service_events_processed_total",
			Help: "Total number of events successfully processed and acknowledged, labeled by consumer type.",
		},
		eventProcessingLabels,
	)
	EventsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_crm_service_events_failed_total",
			Help: "Total number of events that failed processing (resulting in Nack or error), labeled by consumer type.",
		},
		eventProcessingLabels,
	)

	EventProcessingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_crm_service_event_processing_duration_seconds",
			Help:    "Histogram of event processing durations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		eventProcessingLabels,
	)

	EventProcessingActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_crm_service_event_processing_actions_total",
			Help: "Total count of specific actions taken after event processing, labeled by error type.",
		},
		eventActionLabels,
	)

	// Global metrics instance
	Metrics *metricsStore
)

// Metrics related to touchpoint scheduling
var (
	touchpointLabels = []string{"company_id"}

	touchpointsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_touchpoints_generated_total",
			Help: "Total number of touchpoints generated by the scheduler before channel filtering.",
		},
		touchpointLabels,
	)
	touchpointsPersistedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_touchpoints_persisted_total",
			Help: "Total number of touchpoints written to storage.",
		},
		touchpointLabels,
	)
	touchpointsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_touchpoints_skipped_total",
			Help: "Total number of scheduled touchpoints dropped by the channel post-filter.",
		},
		touchpointLabels,
	)
	touchpointsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_touchpoints_completed_total",
			Help: "Total number of touchpoints marked completed.",
		},
		touchpointLabels,
	)
)

// Labels for database operations
var (
	dbOperationLabels = []string{"operation", "entity", "company_id", "status"}

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_crm_service_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// --- Enrollment Worker Pool Metrics ---
var (
	enrollmentLabels       = []string{"company_id"}
	enrollmentStatusLabels = []string{"company_id", "status"}

	enrollmentTasksSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_tasks_submitted_total",
			Help: "Total number of enrollment tasks submitted to the worker pool.",
		},
		enrollmentLabels,
	)
	enrollmentTasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_tasks_processed_total",
			Help: "Total number of enrollment tasks processed by the worker pool, labeled by final status.",
		},
		enrollmentStatusLabels,
	)
	enrollmentProcessingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enrollment_processing_duration_seconds",
			Help:    "Histogram of processing durations for enrollment tasks.",
			Buckets: prometheus.DefBuckets,
		},
		enrollmentLabels,
	)
	enrollmentQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "enrollment_queue_length",
		Help: "Approximate number of tasks waiting in the enrollment worker pool queue.",
	})
)

// --- Enrollment Dedup Cache Metrics ---
var (
	cacheCheckLabels = []string{"company_id", "cache_type", "result"}

	enrollmentCacheChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_cache_checks_total",
			Help: "Total number of dedup cache lookups during enrollment, labeled by filter and result.",
		},
		cacheCheckLabels,
	)
)

// metricsStore holds references to all Prometheus metrics.
type metricsStore struct{}

// InitMetrics initializes and registers the Prometheus metrics if enabled.
// Call this function during application startup.
func InitMetrics(enabled bool) {
	if !enabled {
		metricsEnabled = false
		return
	}

	metricsEnabled = true

	// Metrics are auto-registered via promauto, so no explicit registration
	// needed here.
	Metrics = &metricsStore{}
}

// IncEventsReceived increments the events received counter.
func IncEventsReceived(eventType, tenant, consumerType string) {
	if !metricsEnabled {
		return
	}
	EventsReceivedTotal.WithLabelValues(eventType, sanitizeTenant(tenant), consumerType).Inc()
}

// IncEventsProcessed increments the events processed counter.
func IncEventsProcessed(eventType, tenant, consumerType string) {
	if !metricsEnabled {
		return
	}
	EventsProcessedTotal.WithLabelValues(eventType, sanitizeTenant(tenant), consumerType).Inc()
}

// IncEventsFailed increments the events failed counter.
func IncEventsFailed(eventType, tenant, consumerType string) {
	if !metricsEnabled {
		return
	}
	EventsFailedTotal.WithLabelValues(eventType, sanitizeTenant(tenant), consumerType).Inc()
}

// sanitizeTenant ensures the tenant label is valid or returns a default value.
func sanitizeTenant(tenant string) string {
	if tenant == "" {
		return "unknown"
	}
	return tenant
}

// ObserveEventProcessingDuration records the processing time for a specific event.
func ObserveEventProcessingDuration(eventType, tenant, consumerType string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	EventProcessingDurationSeconds.WithLabelValues(eventType, sanitizeTenant(tenant), consumerType).Observe(duration.Seconds())
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity, companyID string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, sanitizeTenant(companyID), status).Observe(duration.Seconds())
}

// IncEventProcessingAction increments the counter for a specific processing outcome.
func IncEventProcessingAction(eventType, tenant, consumerType, action, errorType string) {
	if !metricsEnabled {
		return
	}
	sanitizedErrorType := SanitizeErrorType(errorType)
	EventProcessingActionsTotal.WithLabelValues(eventType, sanitizeTenant(tenant), consumerType, action, sanitizedErrorType).Inc()
}

// SanitizeErrorType maps specific errors or provides a default category.
// Keep this simple to avoid high cardinality.
func SanitizeErrorType(errStr string) string {
	if errStr == "" || errStr == "none" {
		return "none"
	}

	switch {
	case strings.Contains(errStr, "database"), strings.Contains(errStr, "SQL"), strings.Contains(errStr, "duplicate key"), strings.Contains(errStr, "constraint"), strings.Contains(errStr, "connection"):
		return "database"
	case strings.Contains(errStr, "validation failed"), strings.Contains(errStr, "bad request"), strings.Contains(errStr, "invalid"), strings.Contains(errStr, "missing field"):
		return "validation"
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "no rows"):
		return "not_found"
	case strings.Contains(errStr, "nats"), strings.Contains(errStr, "jetstream"):
		return "nats"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errStr, "unmarshal"), strings.Contains(errStr, "json"):
		return "unmarshal"
	case strings.Contains(errStr, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}

// --- Touchpoint Metric Helpers ---

// AddTouchpointsGenerated adds to the generated touchpoint counter.
func AddTouchpointsGenerated(companyID string, n int) {
	if Metrics != nil {
		touchpointsGeneratedTotal.WithLabelValues(sanitizeTenant(companyID)).Add(float64(n))
	}
}

// AddTouchpointsPersisted adds to the persisted touchpoint counter.
func AddTouchpointsPersisted(companyID string, n int) {
	if Metrics != nil {
		touchpointsPersistedTotal.WithLabelValues(sanitizeTenant(companyID)).Add(float64(n))
	}
}

// AddTouchpointsSkipped adds to the channel-filtered touchpoint counter.
func AddTouchpointsSkipped(companyID string, n int) {
	if Metrics != nil {
		touchpointsSkippedTotal.WithLabelValues(sanitizeTenant(companyID)).Add(float64(n))
	}
}

// IncTouchpointsCompleted increments the completed touchpoint counter.
func IncTouchpointsCompleted(companyID string) {
	if Metrics != nil {
		touchpointsCompletedTotal.WithLabelValues(sanitizeTenant(companyID)).Inc()
	}
}

// --- Enrollment Metric Helpers ---

// IncEnrollmentTasksSubmitted increments the counter for submitted enrollment tasks.
func IncEnrollmentTasksSubmitted(companyID string) {
	if Metrics != nil {
		enrollmentTasksSubmittedTotal.WithLabelValues(sanitizeTenant(companyID)).Inc()
	}
}

// IncEnrollmentTasksProcessed increments the counter for processed enrollment tasks by status.
func IncEnrollmentTasksProcessed(companyID, status string) {
	if Metrics != nil {
		enrollmentTasksProcessedTotal.WithLabelValues(sanitizeTenant(companyID), status).Inc()
	}
}

// ObserveEnrollmentProcessingDuration records the processing time for an enrollment task.
func ObserveEnrollmentProcessingDuration(companyID string, duration time.Duration) {
	if Metrics != nil {
		enrollmentProcessingDurationSeconds.WithLabelValues(sanitizeTenant(companyID)).Observe(duration.Seconds())
	}
}

// SetEnrollmentQueueLength sets the current enrollment queue length.
func SetEnrollmentQueueLength(length int) {
	if Metrics != nil {
		enrollmentQueueLength.Set(float64(length))
	}
}

// --- Cache Metric Helpers ---

// IncCacheCheck increments the dedup cache check counter for a filter and result.
func IncCacheCheck(companyID, cacheType, result string) {
	if Metrics != nil {
		enrollmentCacheChecksTotal.WithLabelValues(sanitizeTenant(companyID), cacheType, result).Inc()
	}
}
