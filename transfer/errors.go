package transfer

import (
	"errors"
	"fmt"
	"net/textproto"
)

var (
	// ErrNotConnected is returned by session operations before Connect succeeds.
	ErrNotConnected = errors.New("ftp connection is not established")
	// ErrNotRegularFile is returned when an upload source is missing or not a regular file.
	ErrNotRegularFile = errors.New("not a regular file")
)

// LocalError reports a failure on the local side of a transfer. It is never retried.
type LocalError struct {
	Op   string
	Path string
	Err  error
}

func (e *LocalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LocalError) Unwrap() error { return e.Err }

// TransportError reports a failure returned by the FTP client: network errors,
// timeouts and negative server replies. It is retried by DefaultRetryPolicy.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Code returns the FTP reply code carried by the error, or 0 when the
// failure happened below the protocol level.
func (e *TransportError) Code() int {
	var protoErr *textproto.Error
	if errors.As(e.Err, &protoErr) {
		return protoErr.Code
	}
	return 0
}

// IsTransportError reports whether err wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsLocalError reports whether err wraps a *LocalError.
func IsLocalError(err error) bool {
	var le *LocalError
	return errors.As(err, &le)
}

// transportErr wraps err as a TransportError unless it is already classified.
func transportErr(op string, err error) error {
	if err == nil || IsTransportError(err) || IsLocalError(err) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
