package types

// Health status constants, ordered from best to worst.
const (
	// StatusHealthy indicates the listing source is readable and parses.
	StatusHealthy = "healthy"

	// StatusDegraded indicates the listing parses but with reservations,
	// such as a slow read.
	StatusDegraded = "degraded"

	// StatusUnhealthy indicates the listing cannot be read or is malformed.
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is the outcome of a health check.
type HealthStatus struct {
	// Status is one of StatusHealthy, StatusDegraded or StatusUnhealthy.
	Status string `json:"status" yaml:"status"`

	// Message is a human-readable description.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Details carries diagnostic context, such as the position of a parse
	// failure.
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

func (h HealthStatus) IsHealthy() bool {
	return h.Status == StatusHealthy
}

func (h HealthStatus) IsDegraded() bool {
	return h.Status == StatusDegraded
}

func (h HealthStatus) IsUnhealthy() bool {
	return h.Status == StatusUnhealthy
}

// Severity ranks the status: 0 healthy, 1 degraded, 2 unhealthy. Unknown
// statuses rank as unhealthy.
func (h HealthStatus) Severity() int {
	switch h.Status {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// NewHealthyStatus creates a healthy status with an optional message.
func NewHealthyStatus(message string) HealthStatus {
	return HealthStatus{
		Status:  StatusHealthy,
		Message: message,
	}
}

// NewDegradedStatus creates a degraded status.
func NewDegradedStatus(message string, details map[string]any) HealthStatus {
	return HealthStatus{
		Status:  StatusDegraded,
		Message: message,
		Details: details,
	}
}

// NewUnhealthyStatus creates an unhealthy status.
func NewUnhealthyStatus(message string, details map[string]any) HealthStatus {
	return HealthStatus{
		Status:  StatusUnhealthy,
		Message: message,
		Details: details,
	}
}
