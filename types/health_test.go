package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthStatus_Predicates(t *testing.T) {
	tests := []struct {
		status    HealthStatus
		healthy   bool
		degraded  bool
		unhealthy bool
		severity  int
	}{
		{status: NewHealthyStatus("ok"), healthy: true, severity: 0},
		{status: NewDegradedStatus("slow read", nil), degraded: true, severity: 1},
		{status: NewUnhealthyStatus("malformed", nil), unhealthy: true, severity: 2},
		{status: HealthStatus{Status: "bogus"}, severity: 2},
	}

	for _, tt := range tests {
		t.Run(tt.status.Status, func(t *testing.T) {
			assert.Equal(t, tt.healthy, tt.status.IsHealthy())
			assert.Equal(t, tt.degraded, tt.status.IsDegraded())
			assert.Equal(t, tt.unhealthy, tt.status.IsUnhealthy())
			assert.Equal(t, tt.severity, tt.status.Severity())
		})
	}
}

func TestHealthStatus_JSON(t *testing.T) {
	status := NewUnhealthyStatus("listing rejected", map[string]any{
		"code": "MALFORMED_FIELD",
		"line": 2,
	})

	data, err := json.Marshal(status)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status": "unhealthy",
		"message": "listing rejected",
		"details": {"code": "MALFORMED_FIELD", "line": 2}
	}`, string(data))

	data, err = json.Marshal(NewHealthyStatus(""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "healthy"}`, string(data))
}
