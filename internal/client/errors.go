package client

import "fmt"

// StatusError is returned when a vendor answers with a non-2xx status.
type StatusError struct {
	Vendor     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Vendor, e.StatusCode, truncateBody(e.Body))
}

func truncateBody(body string) string {
	const max = 300
	if len(body) <= max {
		return body
	}
	return body[:max] + "..."
}
