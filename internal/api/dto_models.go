package api

// ErrorResponse is the standardized error payload for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse is a simple message payload for operations that return no
// resource.
type SuccessResponse struct {
	Message string `json:"message"`
}
