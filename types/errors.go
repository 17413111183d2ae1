package types

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyWatching = errors.New("already watching for logs")
	ErrNotWatching     = errors.New("not watching for logs")
	ErrQueueFull       = errors.New("transfer queue is full")
	ErrQueueStopped    = errors.New("transfer queue is stopped")
)

// DecodeError is returned when a log does not match the expected event.
type DecodeError struct {
	LogKey string
	Err    error
}

func NewDecodeError(logKey string, err error) error {
	return &DecodeError{LogKey: logKey, Err: err}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode log %s: %v", e.LogKey, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type TransferErrorKind int

const (
	TransferSubmissionFailed TransferErrorKind = iota
	TransferUnconfirmed
	TransferInvalidTarget
	TransferSignerUnavailable
	TransferBuildFailed
)

func (k TransferErrorKind) String() string {
	switch k {
	case TransferSubmissionFailed:
		return "submission failed"
	case TransferUnconfirmed:
		return "unconfirmed"
	case TransferInvalidTarget:
		return "invalid target"
	case TransferSignerUnavailable:
		return "signer unavailable"
	case TransferBuildFailed:
		return "build failed"
	}

	return "unknown"
}

type TransferError struct {
	Kind TransferErrorKind
	Err  error
}

func NewTransferError(kind TransferErrorKind, err error) error {
	return &TransferError{Kind: kind, Err: err}
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s: %v", e.Kind, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsTransferError reports whether err is a TransferError of the given kind.
func IsTransferError(err error, kind TransferErrorKind) bool {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind == kind
	}

	return false
}
