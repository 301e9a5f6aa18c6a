package services

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// UnavailableError marks failures of the external AI collaborator.
// Callers treat it identically to "service unavailable" and take the
// non-AI path wherever one exists.
type UnavailableError struct{ Message string }

func (e *UnavailableError) Error() string { return e.Message }
