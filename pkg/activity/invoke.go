package activity

import "net/http"

/*
InvokeResponse is the synchronous result of an invoke-type turn. It is
produced by the agent (by sending an invokeResponse activity) and handed to
the work item's completion callback.
*/
type InvokeResponse struct {
	Status int `json:"status"`
	Body   any `json:"body,omitempty"`
}

// NewInternalServerErrorResponse is what a failed invoke turn completes
// with when the agent callback errors or panics.
func NewInternalServerErrorResponse(message string) *InvokeResponse {
	return &InvokeResponse{
		Status: http.StatusInternalServerError,
		Body:   map[string]string{"error": message},
	}
}
