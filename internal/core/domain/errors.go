package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks a fetch that failed at the transport layer or timed out.
	ErrNetwork = errors.New("network error")

	// ErrStorage marks an unavailable durable store or an exceeded quota.
	ErrStorage = errors.New("storage error")

	// ErrConfirmation marks a non-success answer from the mutation endpoint.
	ErrConfirmation = errors.New("confirmation failure")

	// ErrDeserialization marks a push payload that could not be decoded.
	ErrDeserialization = errors.New("deserialization error")
)

// NetworkError wraps a failed fetch.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// StorageError wraps a failed durable store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ConfirmationFailure is returned when an outbox entry was not acknowledged.
type ConfirmationFailure struct {
	EntryID    int64
	StatusCode int
}

func (e *ConfirmationFailure) Error() string {
	return fmt.Sprintf("entry %d not confirmed: http %d", e.EntryID, e.StatusCode)
}

func (e *ConfirmationFailure) Is(target error) bool { return target == ErrConfirmation }

// DeserializationError wraps a malformed push payload.
type DeserializationError struct {
	Channel string
	Err     error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("decode %s payload: %v", e.Channel, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

func (e *DeserializationError) Is(target error) bool { return target == ErrDeserialization }
