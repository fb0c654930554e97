package backend

import (
	"fmt"
	"net/http"
)

// StatusError reports a non-200 answer from the backend.
type StatusError struct {
	Code int
	Body string // truncated response body
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend http error: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("backend http error: %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}
