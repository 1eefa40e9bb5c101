package memory

import "errors"

// ErrUnavailable is returned when the memory backend cannot be reached.
// Callers degrade to absent memory rather than failing the request.
var ErrUnavailable = errors.New("memory store unavailable")
