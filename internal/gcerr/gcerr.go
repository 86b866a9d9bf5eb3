// Package gcerr holds the fatal error taxonomy for the connected
// components job. The pipeline stages report their failures as one of
// these categories; errors returned unchanged from libraries (flag and
// config binding, the final output flush) are not wrapped. The core
// recovers none of them locally.
package gcerr

import "fmt"

// ConfigError reports a bad CLI argument or missing required option.
type ConfigError struct {
	Cause error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("configuration error: %v", e.Cause) }
func (e *ConfigError) Unwrap() error { return e.Cause }

// NewConfigError wraps cause as a ConfigError.
func NewConfigError(cause error) error { return &ConfigError{Cause: cause} }

// InputError reports an empty local segment at start or a malformed
// input record.
type InputError struct {
	Rank  int
	Cause error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input error on peer %d: %v", e.Rank, e.Cause)
}
func (e *InputError) Unwrap() error { return e.Cause }

// NewInputError wraps cause as an InputError attributed to rank.
func NewInputError(rank int, cause error) error { return &InputError{Rank: rank, Cause: cause} }

// CollectiveError reports a transport-layer failure: peer loss, a
// dial/accept error, or a malformed wire message.
type CollectiveError struct {
	Op    string
	Cause error
}

func (e *CollectiveError) Error() string {
	return fmt.Sprintf("collective %q failed: %v", e.Op, e.Cause)
}
func (e *CollectiveError) Unwrap() error { return e.Cause }

// NewCollectiveError wraps cause as a CollectiveError for the named
// collective operation.
func NewCollectiveError(op string, cause error) error {
	return &CollectiveError{Op: op, Cause: cause}
}

// InvariantError reports a violated core invariant, e.g. a non-empty
// local segment requirement or misaligned bucket boundaries after a
// sort. Always fatal, never recovered.
type InvariantError struct {
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", e.Invariant, e.Detail)
}

// NewInvariantError builds an InvariantError naming the violated
// invariant and a human-readable detail.
func NewInvariantError(invariant, detail string) error {
	return &InvariantError{Invariant: invariant, Detail: detail}
}
