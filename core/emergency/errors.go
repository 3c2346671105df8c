package emergency

import "errors"

// ErrNotFound is returned when no stored emergency matches.
var ErrNotFound = errors.New("emergency: not found")
