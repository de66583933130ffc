package exchange

import "fmt"

// GatewayError is raised for transport failures, HTTP statuses >= 400, and
// signed requests issued without credentials.
type GatewayError struct {
	Venue  string
	Status int // 0 for transport-level failures
	Body   string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s API %d: %s", e.Venue, e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %v", e.Venue, e.Err)
	}
	return fmt.Sprintf("%s request failed", e.Venue)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ParserError is raised for malformed payloads and venue-declared error
// statuses (e.g. Bithumb status != "0000").
type ParserError struct {
	Venue  string
	Detail string
	Err    error
}

func (e *ParserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s parse: %s: %v", e.Venue, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s parse: %s", e.Venue, e.Detail)
}

func (e *ParserError) Unwrap() error { return e.Err }
