// Package apierror holds the error envelopes written to API clients. Internal
// details (database errors, stack traces) never reach this package.
package apierror

// APIError is the body of every 4xx/5xx response.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError carries the failing tag of each invalid field.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Erro de validacao", Fields: fields}
}
