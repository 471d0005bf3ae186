package types

// ErrorResponse is the JSON error body for non-2xx REST responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status string `json:"status"`
}
