// Package backend defines the normalized container/image/snapshot model, the
// capability contracts implemented by the concrete backends, and the shared
// error taxonomy. Callers depend only on the capability interfaces they need;
// a concrete backend declares which of them it satisfies.
package backend

import "context"

// ContainerBackend is the base capability: container lifecycle and queries.
//
// Every query-type operation checks existence first and fails with
// ErrContainerNotFound before any other derived check, so querying a
// nonexistent container never surfaces a different error kind.
type ContainerBackend interface {
	ContainerExists(ctx context.Context, id string) (bool, error)
	ContainerIsRunning(ctx context.Context, id string) (bool, error)
	GetContainer(ctx context.Context, id string) (*Container, error)
	ListContainers(ctx context.Context, onlyRunning bool) ([]Container, error)

	// CreateContainer creates a container and implicitly starts it, so a
	// successful create always yields a running container. The returned
	// CreateResult carries the intermediate clone image when req.CloneOf is
	// set. The name-uniqueness pre-check is advisory, not atomic: two
	// concurrent creates with the same derived name may both pass it, and the
	// engine's own conflict error on the actual create call is the
	// authoritative arbiter.
	CreateContainer(ctx context.Context, req CreateContainerRequest) (*CreateResult, error)

	// DeleteContainer removes the container in any state. A suspended
	// container is resumed and a running one stopped first; failures in that
	// cascade are swallowed and only the final remove failure is surfaced.
	DeleteContainer(ctx context.Context, id string) error

	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string, force bool) error
	RestartContainer(ctx context.Context, id string, force bool) error

	// ExecInContainer runs cmd synchronously in a running container and
	// returns the combined output. Suspended containers are rejected with
	// ErrIllegalState.
	ExecInContainer(ctx context.Context, id string, cmd []string) ([]byte, error)

	// ContainerLogs returns the container's log as individual non-empty lines.
	ContainerLogs(ctx context.Context, id string, timestamps bool) ([]string, error)
}

// SuspendableContainerBackend extends ContainerBackend with pause/unpause
// style suspension. Suspension is only reachable from the running state.
type SuspendableContainerBackend interface {
	ContainerBackend

	ContainerIsSuspended(ctx context.Context, id string) (bool, error)
	SuspendContainer(ctx context.Context, id string) error
	ResumeContainer(ctx context.Context, id string) error
}

// ImageBackend manages the immutable templates containers are created from.
type ImageBackend interface {
	ImageExists(ctx context.Context, id string) (bool, error)
	GetImage(ctx context.Context, id string) (*Image, error)

	// ListImages lists regular images; images used internally as container
	// snapshots are filtered out.
	ListImages(ctx context.Context) ([]Image, error)

	// CreateImage commits the container's current filesystem state under the
	// name derived for that container and returns the new image.
	CreateImage(ctx context.Context, containerID, name string) (*Image, error)

	DeleteImage(ctx context.Context, id string) error
}

// SnapshotBackend manages per-container snapshots. A snapshot is an image
// distinguished purely by its name, so whether an image is a snapshot and
// which container it belongs to are decidable without extra metadata.
type SnapshotBackend interface {
	ContainerSnapshotExists(ctx context.Context, containerID, name string) (bool, error)
	GetContainerSnapshot(ctx context.Context, containerID, name string) (*Snapshot, error)
	ListContainerSnapshots(ctx context.Context, containerID string) ([]Snapshot, error)
	ListSnapshots(ctx context.Context) ([]Snapshot, error)
	CreateContainerSnapshot(ctx context.Context, containerID, name string) (*Snapshot, error)
	DeleteContainerSnapshot(ctx context.Context, containerID, name string) error
}

// HealthReporter reports the coarse backend health. The value is recomputed
// on every call and never cached.
type HealthReporter interface {
	Health(ctx context.Context) HealthStatus
}

// Backend is the full container capability set. Both the local engine adapter
// and the HTTP remote proxy satisfy it with identical external behavior.
type Backend interface {
	SuspendableContainerBackend
	ImageBackend
	SnapshotBackend
	HealthReporter
}

// UserBackend is the directory-service user contract.
type UserBackend interface {
	UserExists(ctx context.Context, username string) (bool, error)
	GetUser(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, user User, password string) error
	SetUserPassword(ctx context.Context, username, password string) error
	DeleteUser(ctx context.Context, username string) error

	// AuthenticateUser verifies credentials by binding as the user.
	AuthenticateUser(ctx context.Context, username, password string) error
}

// GroupBackend is the directory-service group contract.
type GroupBackend interface {
	GroupExists(ctx context.Context, name string) (bool, error)
	GetGroup(ctx context.Context, name string) (*Group, error)
	ListGroups(ctx context.Context) ([]Group, error)
	CreateGroup(ctx context.Context, group Group) error
	DeleteGroup(ctx context.Context, name string) error

	IsGroupMember(ctx context.Context, group, username string) (bool, error)
	AddGroupMember(ctx context.Context, group, username string) error
	RemoveGroupMember(ctx context.Context, group, username string) error
}
