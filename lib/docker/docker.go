// Package docker implements the backend contracts against a local container
// engine through its client SDK. The adapter is a stateless translator: every
// lifecycle fact is re-fetched from the engine on each call, and the only
// state held is configuration fixed at construction time.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/samber/lo"

	"github.com/stevedore-sh/stevedore/lib/backend"
	"github.com/stevedore-sh/stevedore/lib/logger"
	"github.com/stevedore-sh/stevedore/lib/naming"
)

// DefaultRequestTimeout bounds every engine round trip. Image commits and
// pushes can take minutes on large containers.
const DefaultRequestTimeout = 10 * time.Minute

// Config configures the engine adapter.
type Config struct {
	// Host is the engine endpoint (unix socket or tcp address). Empty means
	// the SDK's environment resolution.
	Host string

	// Registry, when set, is prepended to derived image names and committed
	// images are pushed to it. Snapshots are never pushed.
	Registry string

	// RequestTimeout overrides DefaultRequestTimeout when positive.
	RequestTimeout time.Duration
}

// Adapter implements backend.Backend against a container engine.
type Adapter struct {
	cli      *client.Client
	registry string
}

var _ backend.Backend = (*Adapter)(nil)

// New creates an engine adapter. The connection itself is lazy; a failure to
// build the client is a connection error.
func New(cfg Config) (*Adapter, error) {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	opts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
		client.WithTimeout(timeout),
	}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, backend.WrapConnection(err)
	}

	return &Adapter{cli: cli, registry: cfg.Registry}, nil
}

// Close releases the underlying client transport.
func (a *Adapter) Close() error {
	return a.cli.Close()
}

func (a *Adapter) ContainerExists(ctx context.Context, id string) (bool, error) {
	_, err := a.cli.ContainerInspect(ctx, id)
	if err == nil {
		return true, nil
	}
	if client.IsErrNotFound(err) {
		return false, nil
	}
	return false, translate(err, backend.ErrContainerNotFound)
}

// containerStatus is the shared existence-then-state precondition: it fails
// with ErrContainerNotFound before any derived check.
func (a *Adapter) containerStatus(ctx context.Context, id string) (backend.ContainerStatus, error) {
	info, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return "", translate(err, backend.ErrContainerNotFound)
	}
	if info.State == nil {
		return backend.StatusStopped, nil
	}
	return backend.StatusFromFlags(info.State.Running, info.State.Paused), nil
}

// ContainerIsRunning reports the engine's running flag, which stays set while
// the container is suspended.
func (a *Adapter) ContainerIsRunning(ctx context.Context, id string) (bool, error) {
	status, err := a.containerStatus(ctx, id)
	if err != nil {
		return false, err
	}
	return status != backend.StatusStopped, nil
}

func (a *Adapter) ContainerIsSuspended(ctx context.Context, id string) (bool, error) {
	status, err := a.containerStatus(ctx, id)
	if err != nil {
		return false, err
	}
	return status == backend.StatusSuspended, nil
}

func (a *Adapter) GetContainer(ctx context.Context, id string) (*backend.Container, error) {
	info, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return nil, translate(err, backend.ErrContainerNotFound)
	}
	c := containerFromInspect(info)
	return &c, nil
}

func (a *Adapter) ListContainers(ctx context.Context, onlyRunning bool) ([]backend.Container, error) {
	summaries, err := a.cli.ContainerList(ctx, container.ListOptions{All: !onlyRunning})
	if err != nil {
		return nil, translate(err, backend.ErrContainerNotFound)
	}
	return lo.Map(summaries, func(s types.Container, _ int) backend.Container {
		return containerFromSummary(s)
	}), nil
}

func (a *Adapter) CreateContainer(ctx context.Context, req backend.CreateContainerRequest) (*backend.CreateResult, error) {
	log := logger.FromContext(ctx)

	derived := naming.DerivedName{UID: req.UID, Name: req.Name}
	internal := derived.String()

	if exists, err := a.ContainerExists(ctx, internal); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: container %s", backend.ErrAlreadyExists, internal)
	}

	result := &backend.CreateResult{}
	imageRef := req.Image
	if req.CloneOf != "" {
		if exists, err := a.ContainerExists(ctx, req.CloneOf); err != nil {
			return nil, err
		} else if !exists {
			return nil, fmt.Errorf("%w: clone source %s", backend.ErrContainerNotFound, req.CloneOf)
		}

		cloneImage, err := a.createImage(ctx, req.CloneOf, naming.CloneTag(internal, time.Now()), false)
		if err != nil {
			return nil, err
		}
		result.CloneImage = cloneImage
		imageRef = cloneImage.ID
	}

	log.InfoContext(ctx, "creating container", "name", internal, "image", imageRef)
	created, err := a.cli.ContainerCreate(ctx, containerConfig(req, imageRef), hostConfig(req), nil, nil, internal)
	if err != nil {
		return nil, translate(err, backend.ErrImageNotFound)
	}

	// Creation always yields a running container. A failed start leaves no
	// externally visible partial state: it is surfaced as a backend error
	// from the create itself.
	if err := a.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, backend.WrapBackend(fmt.Errorf("container created but failed to start: %w", err))
	}

	c, err := a.GetContainer(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	result.Container = *c
	return result, nil
}

func (a *Adapter) DeleteContainer(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	status, err := a.containerStatus(ctx, id)
	if err != nil {
		return err
	}

	// Best-effort cascade to a stopped state; only the remove failure below
	// is surfaced.
	if status == backend.StatusSuspended {
		if err := a.cli.ContainerUnpause(ctx, id); err != nil {
			log.WarnContext(ctx, "ignoring resume failure during delete", "id", id, "error", err)
		}
	}
	if status != backend.StatusStopped {
		if err := a.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
			log.WarnContext(ctx, "ignoring stop failure during delete", "id", id, "error", err)
		}
	}

	err = a.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
	return translate(err, backend.ErrContainerNotFound)
}

func (a *Adapter) StartContainer(ctx context.Context, id string) error {
	status, err := a.containerStatus(ctx, id)
	if err != nil {
		return err
	}
	if !status.CanStart() {
		return fmt.Errorf("%w: cannot start %s container", backend.ErrIllegalState, status)
	}
	err = a.cli.ContainerStart(ctx, id, container.StartOptions{})
	return translate(err, backend.ErrContainerNotFound)
}

func (a *Adapter) StopContainer(ctx context.Context, id string, force bool) error {
	status, err := a.containerStatus(ctx, id)
	if err != nil {
		return err
	}
	if !status.CanStop() {
		return fmt.Errorf("%w: cannot stop %s container", backend.ErrIllegalState, status)
	}

	// The engine refuses to stop a paused container; resume first and let
	// the stop call below report the authoritative error.
	if status == backend.StatusSuspended {
		if err := a.cli.ContainerUnpause(ctx, id); err != nil {
			logger.FromContext(ctx).WarnContext(ctx, "ignoring resume failure during stop", "id", id, "error", err)
		}
	}

	err = a.cli.ContainerStop(ctx, id, stopOptions(force))
	return translate(err, backend.ErrContainerNotFound)
}

func (a *Adapter) RestartContainer(ctx context.Context, id string, force bool) error {
	if exists, err := a.ContainerExists(ctx, id); err != nil {
		return err
	} else if !exists {
		return fmt.Errorf("%w: %s", backend.ErrContainerNotFound, id)
	}
	err := a.cli.ContainerRestart(ctx, id, stopOptions(force))
	return translate(err, backend.ErrContainerNotFound)
}

func (a *Adapter) SuspendContainer(ctx context.Context, id string) error {
	status, err := a.containerStatus(ctx, id)
	if err != nil {
		return err
	}
	if !status.CanSuspend() {
		return fmt.Errorf("%w: cannot suspend %s container", backend.ErrIllegalState, status)
	}
	err = a.cli.ContainerPause(ctx, id)
	return translate(err, backend.ErrContainerNotFound)
}

func (a *Adapter) ResumeContainer(ctx context.Context, id string) error {
	status, err := a.containerStatus(ctx, id)
	if err != nil {
		return err
	}
	if !status.CanResume() {
		return fmt.Errorf("%w: cannot resume %s container", backend.ErrIllegalState, status)
	}
	err = a.cli.ContainerUnpause(ctx, id)
	return translate(err, backend.ErrContainerNotFound)
}

func (a *Adapter) ExecInContainer(ctx context.Context, id string, cmd []string) ([]byte, error) {
	status, err := a.containerStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if !status.CanExec() {
		return nil, fmt.Errorf("%w: cannot exec in %s container", backend.ErrIllegalState, status)
	}

	exec, err := a.cli.ContainerExecCreate(ctx, id, types.ExecConfig{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, translate(err, backend.ErrContainerNotFound)
	}

	hr, err := a.cli.ContainerExecAttach(ctx, exec.ID, types.ExecStartCheck{})
	if err != nil {
		return nil, translate(err, backend.ErrContainerNotFound)
	}
	defer hr.Close()

	// Blocking: the attach stream ends when the command exits. Stdout and
	// stderr are combined into one output.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, hr.Reader); err != nil {
		return nil, backend.WrapBackend(err)
	}
	return buf.Bytes(), nil
}

func (a *Adapter) ContainerLogs(ctx context.Context, id string, timestamps bool) ([]string, error) {
	if exists, err := a.ContainerExists(ctx, id); err != nil {
		return nil, err
	} else if !exists {
		return nil, fmt.Errorf("%w: %s", backend.ErrContainerNotFound, id)
	}

	stream, err := a.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: timestamps,
	})
	if err != nil {
		return nil, translate(err, backend.ErrContainerNotFound)
	}
	defer stream.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, stream); err != nil {
		return nil, backend.WrapBackend(err)
	}
	return splitLogLines(buf.String()), nil
}

// Health reports whether the engine answers its info endpoint. The result is
// recomputed on every call.
func (a *Adapter) Health(ctx context.Context) backend.HealthStatus {
	if _, err := a.cli.Info(ctx); err != nil {
		return backend.HealthError
	}
	return backend.HealthOK
}

func stopOptions(force bool) container.StopOptions {
	if !force {
		return container.StopOptions{}
	}
	// Zero grace period: kill immediately instead of waiting out the
	// engine's graceful-shutdown window.
	zero := 0
	return container.StopOptions{Timeout: &zero}
}

// splitLogLines splits a raw log stream into individual non-empty lines.
func splitLogLines(raw string) []string {
	return lo.Filter(strings.Split(raw, "\n"), func(line string, _ int) bool {
		return line != ""
	})
}
