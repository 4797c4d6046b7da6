// Package backendtest provides in-memory implementations of the backend
// contracts for use in tests.
package backendtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/stevedore-sh/stevedore/lib/backend"
	"github.com/stevedore-sh/stevedore/lib/naming"
)

// Fake is an in-memory backend.Backend. All operations honor the same
// preconditions as the engine adapter so handler tests exercise real
// error paths.
type Fake struct {
	mu         sync.Mutex
	containers map[string]*backend.Container
	images     map[string]backend.Image
	snapshots  map[string]backend.Snapshot
	healthy    bool
}

var _ backend.Backend = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		containers: map[string]*backend.Container{},
		images:     map[string]backend.Image{},
		snapshots:  map[string]backend.Snapshot{},
		healthy:    true,
	}
}

// SeedImage registers an image so CreateContainer requests can reference it.
func (f *Fake) SeedImage(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[id] = backend.Image{ID: id}
}

// SetHealthy flips the status reported by Health.
func (f *Fake) SetHealthy(healthy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = healthy
}

func (f *Fake) ContainerExists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.containers[id]
	return ok, nil
}

func (f *Fake) ContainerIsRunning(ctx context.Context, id string) (bool, error) {
	ct, err := f.GetContainer(ctx, id)
	if err != nil {
		return false, err
	}
	return ct.Status != backend.StatusStopped, nil
}

func (f *Fake) ContainerIsSuspended(ctx context.Context, id string) (bool, error) {
	ct, err := f.GetContainer(ctx, id)
	if err != nil {
		return false, err
	}
	return ct.Status == backend.StatusSuspended, nil
}

func (f *Fake) GetContainer(ctx context.Context, id string) (*backend.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ct, ok := f.containers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrContainerNotFound, id)
	}
	copied := *ct
	return &copied, nil
}

func (f *Fake) ListContainers(ctx context.Context, onlyRunning bool) ([]backend.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	containers := lo.FilterMap(lo.Values(f.containers), func(ct *backend.Container, _ int) (backend.Container, bool) {
		if onlyRunning && ct.Status == backend.StatusStopped {
			return backend.Container{}, false
		}
		return *ct, true
	})
	return containers, nil
}

func (f *Fake) CreateContainer(ctx context.Context, req backend.CreateContainerRequest) (*backend.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	derived := naming.DerivedName{UID: req.UID, Name: req.Name}
	id := derived.String()
	if _, ok := f.containers[id]; ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrAlreadyExists, id)
	}

	result := &backend.CreateResult{}
	imageID := req.Image
	if req.CloneOf != "" {
		if _, ok := f.containers[req.CloneOf]; !ok {
			return nil, fmt.Errorf("%w: %s", backend.ErrContainerNotFound, req.CloneOf)
		}
		imageID = naming.ImageRef(derived, naming.CloneTag(id, time.Now()), "")
		f.images[imageID] = backend.Image{ID: imageID}
		result.CloneImage = &backend.Image{ID: imageID}
	} else if _, ok := f.images[imageID]; !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrImageNotFound, imageID)
	}

	ct := &backend.Container{
		ID:      id,
		Status:  backend.StatusRunning,
		Ports:   req.Ports,
		Volumes: req.Volumes,
		Owner:   req.Username,
		Image:   imageID,
	}
	f.containers[id] = ct
	result.Container = *ct
	return result, nil
}

func (f *Fake) DeleteContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[id]; !ok {
		return fmt.Errorf("%w: %s", backend.ErrContainerNotFound, id)
	}
	delete(f.containers, id)
	return nil
}

// transition applies fn to the container's status under the guard check.
func (f *Fake) transition(id string, allowed func(backend.ContainerStatus) bool, next backend.ContainerStatus, verb string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ct, ok := f.containers[id]
	if !ok {
		return fmt.Errorf("%w: %s", backend.ErrContainerNotFound, id)
	}
	if !allowed(ct.Status) {
		return fmt.Errorf("%w: cannot %s container in status %s", backend.ErrIllegalState, verb, ct.Status)
	}
	ct.Status = next
	return nil
}

func (f *Fake) StartContainer(ctx context.Context, id string) error {
	return f.transition(id, backend.ContainerStatus.CanStart, backend.StatusRunning, "start")
}

func (f *Fake) StopContainer(ctx context.Context, id string, force bool) error {
	return f.transition(id, backend.ContainerStatus.CanStop, backend.StatusStopped, "stop")
}

// RestartContainer has no state guard; the engine restarts from any state.
func (f *Fake) RestartContainer(ctx context.Context, id string, force bool) error {
	return f.transition(id, func(backend.ContainerStatus) bool { return true }, backend.StatusRunning, "restart")
}

func (f *Fake) SuspendContainer(ctx context.Context, id string) error {
	return f.transition(id, backend.ContainerStatus.CanSuspend, backend.StatusSuspended, "suspend")
}

func (f *Fake) ResumeContainer(ctx context.Context, id string) error {
	return f.transition(id, backend.ContainerStatus.CanResume, backend.StatusRunning, "resume")
}

func (f *Fake) ExecInContainer(ctx context.Context, id string, cmd []string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ct, ok := f.containers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrContainerNotFound, id)
	}
	if !ct.Status.CanExec() {
		return nil, fmt.Errorf("%w: cannot exec in container in status %s", backend.ErrIllegalState, ct.Status)
	}
	return []byte(fmt.Sprintf("exec %v in %s\n", cmd, id)), nil
}

func (f *Fake) ContainerLogs(ctx context.Context, id string, timestamps bool) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[id]; !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrContainerNotFound, id)
	}
	line := "log line from " + id
	if timestamps {
		line = "2026-01-01T00:00:00Z " + line
	}
	return []string{line}, nil
}

func (f *Fake) ImageExists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.images[id]
	return ok, nil
}

func (f *Fake) GetImage(ctx context.Context, id string) (*backend.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	image, ok := f.images[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrImageNotFound, id)
	}
	return &image, nil
}

// ListImages excludes snapshot-tagged images, matching the adapter's
// contract that snapshots only surface through the snapshot operations.
func (f *Fake) ListImages(ctx context.Context) ([]backend.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Filter(lo.Values(f.images), func(img backend.Image, _ int) bool {
		return !naming.IsSnapshotRef(img.ID)
	}), nil
}

func (f *Fake) CreateImage(ctx context.Context, containerID, name string) (*backend.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ct, ok := f.containers[containerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrContainerNotFound, containerID)
	}
	derived, err := naming.ParseContainerName(ct.ID)
	if err != nil {
		return nil, backend.WrapBackend(err)
	}
	id := naming.ImageRef(derived, name, "")
	if _, ok := f.images[id]; ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrAlreadyExists, id)
	}
	image := backend.Image{ID: id}
	f.images[id] = image
	return &image, nil
}

func (f *Fake) DeleteImage(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.images[id]; !ok {
		return fmt.Errorf("%w: %s", backend.ErrImageNotFound, id)
	}
	delete(f.images, id)
	return nil
}

func snapshotKey(containerID, name string) string {
	return containerID + "\x00" + name
}

func (f *Fake) ContainerSnapshotExists(ctx context.Context, containerID, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.snapshots[snapshotKey(containerID, name)]
	return ok, nil
}

func (f *Fake) GetContainerSnapshot(ctx context.Context, containerID, name string) (*backend.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.snapshots[snapshotKey(containerID, name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s of %s", backend.ErrSnapshotNotFound, name, containerID)
	}
	return &snapshot, nil
}

func (f *Fake) ListContainerSnapshots(ctx context.Context, containerID string) ([]backend.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[containerID]; !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrContainerNotFound, containerID)
	}
	return lo.Filter(lo.Values(f.snapshots), func(s backend.Snapshot, _ int) bool {
		return s.Container == containerID
	}), nil
}

func (f *Fake) ListSnapshots(ctx context.Context) ([]backend.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Values(f.snapshots), nil
}

func (f *Fake) CreateContainerSnapshot(ctx context.Context, containerID, name string) (*backend.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ct, ok := f.containers[containerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrContainerNotFound, containerID)
	}
	key := snapshotKey(containerID, name)
	if _, ok := f.snapshots[key]; ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrAlreadyExists, name)
	}
	derived, err := naming.ParseContainerName(ct.ID)
	if err != nil {
		return nil, backend.WrapBackend(err)
	}
	snapshot := backend.Snapshot{
		ID:        naming.SnapshotRef(derived, name, ""),
		Name:      name,
		Container: containerID,
	}
	f.snapshots[key] = snapshot
	f.images[snapshot.ID] = backend.Image{ID: snapshot.ID}
	return &snapshot, nil
}

func (f *Fake) DeleteContainerSnapshot(ctx context.Context, containerID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := snapshotKey(containerID, name)
	snapshot, ok := f.snapshots[key]
	if !ok {
		return fmt.Errorf("%w: %s of %s", backend.ErrSnapshotNotFound, name, containerID)
	}
	delete(f.snapshots, key)
	delete(f.images, snapshot.ID)
	return nil
}

func (f *Fake) Health(ctx context.Context) backend.HealthStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.healthy {
		return backend.HealthError
	}
	return backend.HealthOK
}
