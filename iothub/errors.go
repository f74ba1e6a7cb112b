package iothub

import "fmt"

var (
	// ErrInvalidConfig is the class of all configuration errors, usable
	// with errors.Is
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// ErrIssueFailed is the class of credential issuance errors, usable
	// with errors.Is
	ErrIssueFailed = fmt.Errorf("credential issuance failed")
)

// ConfigError reports a missing or malformed configuration value
type ConfigError struct {
	Reason string
}

// Error implements error
func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Is matches ErrInvalidConfig
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func configErrorf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IssueError reports a failure of the token signing primitive,
// carrying the underlying cause
type IssueError struct {
	Cause error
}

// Error implements error
func (e *IssueError) Error() string {
	return "credential issuance failed: " + e.Cause.Error()
}

// Unwrap exposes the signing failure
func (e *IssueError) Unwrap() error {
	return e.Cause
}

// Is matches ErrIssueFailed
func (e *IssueError) Is(target error) bool {
	return target == ErrIssueFailed
}
