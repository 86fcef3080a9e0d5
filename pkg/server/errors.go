package server

import (
	"errors"
	"fmt"
)

const (
	errorCodeInvalidPort       = "SERVER_INVALID_PORT"
	errorCodeConfigUnavailable = "SERVER_CONFIG_UNAVAILABLE"
	errorCodeInvalidConfig     = "SERVER_INVALID_CONFIG"
	errorCodeLibraryMissing    = "SERVER_LIBRARY_MISSING"
	errorCodeWorkerUnavailable = "SERVER_WORKER_UNAVAILABLE"
	errorCodeAppInitFailed     = "SERVER_INIT_FAILED"
	errorCodeRuntimeFailed     = "SERVER_RUNTIME_FAILED"
)

var (
	// ErrInvalidPort indicates an invalid port flag value.
	ErrInvalidPort = errors.New("invalid port")
	// ErrConfigUnavailable indicates the CLI context lacked a config manager.
	ErrConfigUnavailable = errors.New("config manager unavailable")
	// ErrLibraryMissing indicates the library root is not a readable directory.
	ErrLibraryMissing = errors.New("library root missing")
	// ErrWorkerUnavailable indicates the worker executable cannot be run.
	ErrWorkerUnavailable = errors.New("worker executable unavailable")
)

type errorCoder interface {
	error
	Code() string
}

type withCodeError struct {
	error
	code string
}

func (e *withCodeError) Code() string {
	return e.code
}

func (e *withCodeError) Unwrap() error {
	return e.error
}

// WithErrorCode annotates err with a server error code.
func WithErrorCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &withCodeError{error: err, code: code}
}

// NewInvalidPortError formats an invalid port error with context.
func NewInvalidPortError(port int) error {
	return WithErrorCode(fmt.Errorf("%w: invalid port %d: must be between 1 and 65535", ErrInvalidPort, port), errorCodeInvalidPort)
}

// NewLibraryMissingError reports an unusable library root.
func NewLibraryMissingError(root string, cause error) error {
	return WithErrorCode(fmt.Errorf("%w: %s: %w", ErrLibraryMissing, root, cause), errorCodeLibraryMissing)
}

// NewWorkerUnavailableError reports a worker executable that cannot be started.
func NewWorkerUnavailableError(path string, cause error) error {
	return WithErrorCode(fmt.Errorf("%w: %s: %w", ErrWorkerUnavailable, path, cause), errorCodeWorkerUnavailable)
}

// WrapInvalidConfig annotates server config validation errors.
func WrapInvalidConfig(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(fmt.Errorf("invalid server configuration: %w", err), errorCodeInvalidConfig)
}

// WrapAppInit annotates server app creation failures.
func WrapAppInit(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(err, errorCodeAppInitFailed)
}

// WrapRuntime annotates server runtime failures.
func WrapRuntime(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(err, errorCodeRuntimeFailed)
}

// ErrorCode resolves a server error to its error code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var coded errorCoder
	if errors.As(err, &coded) {
		if code := coded.Code(); code != "" {
			return code
		}
	}

	switch {
	case errors.Is(err, ErrInvalidPort):
		return errorCodeInvalidPort
	case errors.Is(err, ErrConfigUnavailable):
		return errorCodeConfigUnavailable
	case errors.Is(err, ErrLibraryMissing):
		return errorCodeLibraryMissing
	case errors.Is(err, ErrWorkerUnavailable):
		return errorCodeWorkerUnavailable
	default:
		return errorCodeRuntimeFailed
	}
}

// ExitCode maps server errors to CLI exit codes.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch {
	case errors.Is(err, ErrInvalidPort),
		ErrorCode(err) == errorCodeInvalidConfig:
		return 2
	case errors.Is(err, ErrConfigUnavailable):
		return 1
	case errors.Is(err, ErrLibraryMissing),
		errors.Is(err, ErrWorkerUnavailable),
		ErrorCode(err) == errorCodeAppInitFailed:
		return 7
	default:
		return 1
	}
}

// HTTPStatus maps server errors to HTTP status codes.
func HTTPStatus(err error) int {
	if err == nil {
		return 200
	}

	switch {
	case errors.Is(err, ErrInvalidPort),
		ErrorCode(err) == errorCodeInvalidConfig:
		return 400
	default:
		return 500
	}
}

// Suggestions provides CLI hints for server errors.
func Suggestions(err error) []string {
	if err == nil {
		return nil
	}

	switch ErrorCode(err) {
	case errorCodeInvalidPort:
		return []string{
			"Use a port between 1 and 65535",
			"Example:                 shelfkeeper server start --server.port 8080",
		}
	case errorCodeConfigUnavailable:
		return []string{
			"Run via the shelfkeeper CLI so the config manager initializes",
			"Avoid calling server start from custom scripts without init",
		}
	case errorCodeInvalidConfig:
		return []string{
			"Check configuration values in config file",
			"Token mode needs server.auth.users with unique tokens of 8+ characters",
		}
	case errorCodeLibraryMissing:
		return []string{
			"Point the server at an existing directory: --library.root <path>",
			"Check that the server user can read the library",
		}
	case errorCodeWorkerUnavailable:
		return []string{
			"Leave jobs.worker_path empty to re-execute this binary",
			"Ensure the configured worker file exists and is executable",
		}
	case errorCodeAppInitFailed:
		return []string{
			"Retry with debug logging:  shelfkeeper server start --debug",
			"Review configuration for invalid values",
		}
	case errorCodeRuntimeFailed:
		return []string{
			"Check server logs for runtime errors",
			"Ensure no other process is using the selected port",
		}
	default:
		return nil
	}
}
