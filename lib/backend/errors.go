package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrContainerNotFound is returned when a container does not exist on the engine.
	ErrContainerNotFound = errors.New("container not found")

	// ErrImageNotFound is returned when an image does not exist on the engine.
	ErrImageNotFound = errors.New("image not found")

	// ErrSnapshotNotFound is returned when a container snapshot does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrUserNotFound is returned when a user record does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrGroupNotFound is returned when a group record does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrAlreadyExists is returned when a resource with the derived name already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrIllegalState is returned when an operation is not valid for the
	// container's current lifecycle state.
	ErrIllegalState = errors.New("illegal container state")

	// ErrConnection is returned when the engine or remote peer cannot be reached at all.
	ErrConnection = errors.New("backend connection failed")

	// ErrBackend wraps any engine or remote failure that has no more specific kind.
	ErrBackend = errors.New("backend error")

	// ErrAuthFailed is returned when credential verification fails.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrReadOnly is returned when a write is attempted against a read-only backend.
	ErrReadOnly = errors.New("backend is read-only")
)

// WrapBackend marks err as a generic backend failure while keeping the
// underlying cause matchable with errors.Is/As.
func WrapBackend(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrBackend, err)
}

// WrapConnection marks err as a transport-level failure to reach the backend.
func WrapConnection(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}
