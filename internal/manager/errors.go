package manager

import "errors"

// ErrBackendUnavailable is reported when the backend is unreachable and
// could not be started. Its text is what chat streams carry as the error chunk.
var ErrBackendUnavailable = errors.New("backend unavailable")

// ErrClosed is returned by Chat after Close.
var ErrClosed = errors.New("manager closed")
