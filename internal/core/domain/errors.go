package domain

import "fmt"

// StatusError is a non-success HTTP result from the upstream service,
// carrying the status code and the server's detail message when present.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Detail, e.StatusCode)
}
