// Package types holds the JSON shapes shared by every endpoint.
package types

// SuccessEnvelope wraps every 2xx body as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the body of a failed request. RequestID echoes X-Request-Id so
// a shopper's screenshot can be matched to the server log line.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// CursorPage is one page of an admin listing. NextCursor is empty on the
// last page.
type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// NewCursorPage builds a page, making sure items encode as [] rather than null.
func NewCursorPage[T any](items []T, next string) *CursorPage[T] {
	if items == nil {
		items = []T{}
	}
	return &CursorPage[T]{Items: items, NextCursor: next, HasMore: next != ""}
}
