package backend

// ContainerStatus is the normalized lifecycle status of a container.
type ContainerStatus string

const (
	StatusStopped   ContainerStatus = "stopped"
	StatusRunning   ContainerStatus = "running"
	StatusSuspended ContainerStatus = "suspended"
)

// HealthStatus is the coarse health signal reported by a backend.
type HealthStatus string

const (
	HealthOK    HealthStatus = "ok"
	HealthError HealthStatus = "error"
)

// PortMapping maps a port inside the container to an external port on the host.
type PortMapping struct {
	Internal int    `json:"internal"`
	External int    `json:"external"`
	Address  string `json:"address"`
}

// VolumeMount is a bind mount from a host path into the container.
type VolumeMount struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Container is the normalized, engine-independent container record.
type Container struct {
	// ID is the engine-assigned primary key, immutable for the container's life.
	ID      string          `json:"id"`
	Status  ContainerStatus `json:"status"`
	Ports   []PortMapping   `json:"ports,omitempty"`
	Volumes []VolumeMount   `json:"volumes,omitempty"`
	Owner   string          `json:"owner,omitempty"`
	Image   string          `json:"image,omitempty"`
}

// Image is the normalized image record. The ID is the engine-addressable
// repository:tag reference.
type Image struct {
	ID string `json:"id"`
}

// Snapshot is a committed point-in-time image of a specific container. Its ID
// lives in the image identity space, namespaced under the source container's
// derived name.
type Snapshot struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Container string `json:"container,omitempty"`
}

// CreateContainerRequest carries everything needed to create (and implicitly
// start) a container.
type CreateContainerRequest struct {
	Name     string        `json:"name"`
	Username string        `json:"username"`
	UID      int           `json:"uid"`
	Image    string        `json:"image,omitempty"`
	Ports    []PortMapping `json:"ports,omitempty"`
	Volumes  []VolumeMount `json:"volumes,omitempty"`
	Cmd      []string      `json:"cmd,omitempty"`

	// CloneOf, when set, names an existing container whose current filesystem
	// state is committed to a private image that the new container is created
	// from. Image is ignored in that case.
	CloneOf string `json:"clone_of,omitempty"`
}

// CreateResult is the outcome of CreateContainer. For a plain create only
// Container is set; for a clone, CloneImage additionally names the
// intermediate image the clone was created from. Callers distinguish the two
// shapes by CloneImage being nil.
type CreateResult struct {
	Container  Container `json:"container"`
	CloneImage *Image    `json:"clone_image,omitempty"`
}

// User is a directory-service user record. The password is write-only: it is
// accepted on creation and password changes but never read back.
type User struct {
	Username string `json:"username"`
	UID      int    `json:"uid"`
	GID      int    `json:"gid"`
	HomeDir  string `json:"home_directory,omitempty"`
}

// Group is a directory-service group record.
type Group struct {
	Name    string   `json:"name"`
	GID     int      `json:"gid"`
	Members []string `json:"members,omitempty"`
}
