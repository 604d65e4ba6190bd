package api

// HealthResponse is returned by the liveness probe
type HealthResponse struct {
	Status string `json:"status"`
}
