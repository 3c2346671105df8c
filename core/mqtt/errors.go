package mqtt

import "errors"

// ErrPublishFailed is returned when every publish attempt failed.
var ErrPublishFailed = errors.New("mqtt publish failed")
