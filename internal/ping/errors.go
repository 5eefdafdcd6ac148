package ping

import "errors"

// Session configuration errors.
var (
	// ErrInvalidCount indicates the request count is below 1
	ErrInvalidCount = errors.New("count must be at least 1")

	// ErrInvalidTimeout indicates the timeout is too short
	ErrInvalidTimeout = errors.New("timeout must be at least 100ms")

	// ErrInvalidTTL indicates the TTL is out of valid range (1-255)
	ErrInvalidTTL = errors.New("TTL must be between 1 and 255")

	// ErrInvalidPayloadSize indicates the payload size is out of range
	ErrInvalidPayloadSize = errors.New("payload size must be between 0 and 65500")

	// ErrFamilyConflict indicates both IPv4 and IPv6 were forced
	ErrFamilyConflict = errors.New("cannot force both IPv4 and IPv6")

	// ErrTargetResolution indicates the target could not be resolved
	ErrTargetResolution = errors.New("could not resolve target hostname")
)
