package models

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorKind classifies backend failures into the fixed taxonomy the
// transfer queue and the UI report on.
type ErrorKind string

const (
	ErrNotFound                 ErrorKind = "not_found"
	ErrPermissionDenied         ErrorKind = "permission_denied"
	ErrNameCollisionExhausted   ErrorKind = "name_collision_exhausted"
	ErrDeviceNotPresent         ErrorKind = "device_not_present"
	ErrDeviceSessionUnavailable ErrorKind = "device_session_unavailable"
	ErrTransport                ErrorKind = "transport_error"
	ErrInsufficientSpace        ErrorKind = "insufficient_space"
	ErrCancelled                ErrorKind = "cancelled"
)

// BackendError is the uniform failure type returned by both backends.
// Path holds the local path or rendered device locator the operation
// targeted; Code carries the transport status for ErrTransport.
type BackendError struct {
	Kind ErrorKind
	Path string
	Code int
	Err  error
}

func (e *BackendError) Error() string {
	msg := string(e.Kind)
	switch e.Kind {
	case ErrNotFound:
		msg = "not found"
	case ErrPermissionDenied:
		msg = "permission denied"
	case ErrNameCollisionExhausted:
		msg = "no collision-free name available"
	case ErrDeviceNotPresent:
		msg = "device no longer attached"
	case ErrDeviceSessionUnavailable:
		msg = "no device session open"
	case ErrTransport:
		msg = fmt.Sprintf("transport error (code %d)", e.Code)
	case ErrInsufficientSpace:
		msg = "insufficient space"
	case ErrCancelled:
		msg = "cancelled"
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError builds a BackendError for the given kind and target.
func NewBackendError(kind ErrorKind, path string, err error) *BackendError {
	return &BackendError{Kind: kind, Path: path, Err: err}
}

// WrapFSError classifies an OS filesystem error into the taxonomy.
// Unclassifiable errors default to ErrTransport with code 0 so nothing
// silently escapes the taxonomy.
func WrapFSError(path string, err error) *BackendError {
	kind := ErrTransport
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = ErrPermissionDenied
	}
	return &BackendError{Kind: kind, Path: path, Err: err}
}

// KindOf extracts the ErrorKind from err, or "" if err is not a BackendError.
func KindOf(err error) ErrorKind {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}
