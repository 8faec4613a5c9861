package sntp

import "fmt"

// InvalidArgumentError reports malformed input to a constructor, such as a
// Timestamp64 string that isn't the canonical 17-character hex form. It is
// a read-time (recoverable) error, distinct from the
// write-time panics builder setters raise on out-of-range field values.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return "sntp: invalid argument: " + e.Message
}

// InvalidNtpValueError reports that a wire-format field exists but holds a
// value outside the range this library is willing to interpret: for
// example a poll exponent outside [0,17] when accessed, or a
// pow2ToDuration exponent outside [0,62]. It is a read-time error: the
// bytes parsed fine, but the protocol value they encode isn't usable.
type InvalidNtpValueError struct {
	Field   string
	Message string
}

func (e *InvalidNtpValueError) Error() string {
	return fmt.Sprintf("sntp: invalid ntp value for %s: %s", e.Field, e.Message)
}
