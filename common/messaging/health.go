package messaging

import "time"

// HealthStatus is the broker section of the ingest /readyz response.
type HealthStatus struct {
	Connected bool          `json:"connected"`
	Latency   time.Duration `json:"latency_ms"`
	Error     string        `json:"error,omitempty"`
}

// CheckClientHealth reports whether client is connected. A nil client is
// reported as disconnected rather than as an error so optional brokers do
// not fail readiness.
func CheckClientHealth(client Client) HealthStatus {
	if client == nil {
		return HealthStatus{Error: "messaging disabled"}
	}

	start := time.Now()
	status := HealthStatus{Connected: client.IsConnected()}
	status.Latency = time.Since(start)
	if !status.Connected {
		status.Error = "not connected to message broker"
	}
	return status
}
