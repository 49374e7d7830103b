package api

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CatResponse is returned by upload and replace.
type CatResponse struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// CatRef identifies one stored cat pic in a listing.
type CatRef struct {
	ID string `json:"id"`
}

// MessageResponse carries a bare confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status string `json:"status"`
}
