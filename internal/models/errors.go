package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that carry no extra payload
var (
	// ErrInvalidURL means the input failed classification; it never reaches the network
	ErrInvalidURL = errors.New("not a valid video or playlist URL")

	// ErrDisconnected means every candidate backend address failed its liveness check
	ErrDisconnected = errors.New("download service is unreachable")

	// ErrStreamInterrupted means a byte stream ended early or was cancelled mid-transfer
	ErrStreamInterrupted = errors.New("download stream interrupted")
)

// ServiceError is a remote-reported failure: the backend answered but returned
// an {error} body or a non-2xx status with a decodable message
type ServiceError struct {
	StatusCode int // 0 when the error came from a 2xx body
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("service error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("service error: %s", e.Message)
}

// MalformedDataError is a 2xx response missing fields the caller requires
type MalformedDataError struct {
	Reason string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed service response: %s", e.Reason)
}

// IsPermanent reports whether retrying err could never help. Remote-reported
// errors and malformed payloads are deterministic; transport failures and
// attempt timeouts are not.
func IsPermanent(err error) bool {
	var svcErr *ServiceError
	var malformedErr *MalformedDataError
	return errors.As(err, &svcErr) ||
		errors.As(err, &malformedErr) ||
		errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrDisconnected)
}
