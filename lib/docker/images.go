package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"

	"github.com/stevedore-sh/stevedore/lib/backend"
	"github.com/stevedore-sh/stevedore/lib/logger"
	"github.com/stevedore-sh/stevedore/lib/naming"
)

func (a *Adapter) ImageExists(ctx context.Context, id string) (bool, error) {
	_, _, err := a.cli.ImageInspectWithRaw(ctx, id)
	if err == nil {
		return true, nil
	}
	if client.IsErrNotFound(err) {
		return false, nil
	}
	return false, translate(err, backend.ErrImageNotFound)
}

func (a *Adapter) GetImage(ctx context.Context, id string) (*backend.Image, error) {
	if _, _, err := a.cli.ImageInspectWithRaw(ctx, id); err != nil {
		return nil, translate(err, backend.ErrImageNotFound)
	}
	return &backend.Image{ID: id}, nil
}

// ListImages lists regular images. Snapshots share the image identity space
// and are filtered out here by their reserved tag prefix.
func (a *Adapter) ListImages(ctx context.Context) ([]backend.Image, error) {
	summaries, err := a.cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, translate(err, backend.ErrImageNotFound)
	}

	var out []backend.Image
	for _, s := range summaries {
		if len(s.RepoTags) == 0 {
			continue
		}
		if ref := s.RepoTags[0]; !naming.IsSnapshotRef(ref) {
			out = append(out, backend.Image{ID: ref})
		}
	}
	return out, nil
}

func (a *Adapter) CreateImage(ctx context.Context, containerID, name string) (*backend.Image, error) {
	return a.createImage(ctx, containerID, name, true)
}

// createImage commits the container's current filesystem state under the
// name derived for it. push controls whether the result is uploaded to the
// configured registry; snapshots and clone intermediates never are.
func (a *Adapter) createImage(ctx context.Context, containerID, tag string, push bool) (*backend.Image, error) {
	log := logger.FromContext(ctx)

	derived, err := a.derivedName(ctx, containerID)
	if err != nil {
		return nil, err
	}

	ref := naming.ImageRef(derived, tag, a.registry)
	if exists, err := a.ImageExists(ctx, ref); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: image %s", backend.ErrAlreadyExists, ref)
	}

	log.InfoContext(ctx, "committing container", "container", containerID, "image", ref)
	if _, err := a.cli.ContainerCommit(ctx, containerID, container.CommitOptions{Reference: ref}); err != nil {
		return nil, translate(err, backend.ErrContainerNotFound)
	}

	if push && a.registry != "" {
		if err := a.pushImage(ctx, ref); err != nil {
			return nil, err
		}
	}

	return &backend.Image{ID: ref}, nil
}

func (a *Adapter) pushImage(ctx context.Context, ref string) error {
	auth, err := registry.EncodeAuthConfig(registry.AuthConfig{})
	if err != nil {
		return backend.WrapBackend(err)
	}

	stream, err := a.cli.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: auth})
	if err != nil {
		return translate(err, backend.ErrImageNotFound)
	}
	defer stream.Close()

	// The push completes only once the progress stream is drained.
	if _, err := io.Copy(io.Discard, stream); err != nil {
		return backend.WrapBackend(err)
	}
	return nil
}

func (a *Adapter) DeleteImage(ctx context.Context, id string) error {
	if exists, err := a.ImageExists(ctx, id); err != nil {
		return err
	} else if !exists {
		return fmt.Errorf("%w: %s", backend.ErrImageNotFound, id)
	}
	_, err := a.cli.ImageRemove(ctx, id, image.RemoveOptions{Force: true})
	return translate(err, backend.ErrImageNotFound)
}

func (a *Adapter) ContainerSnapshotExists(ctx context.Context, containerID, name string) (bool, error) {
	ref, err := a.snapshotRef(ctx, containerID, name)
	if err != nil {
		return false, err
	}
	return a.ImageExists(ctx, ref)
}

func (a *Adapter) GetContainerSnapshot(ctx context.Context, containerID, name string) (*backend.Snapshot, error) {
	derived, err := a.derivedName(ctx, containerID)
	if err != nil {
		return nil, err
	}

	ref := naming.SnapshotRef(derived, name, a.registry)
	if exists, err := a.ImageExists(ctx, ref); err != nil {
		return nil, err
	} else if !exists {
		return nil, fmt.Errorf("%w: %s", backend.ErrSnapshotNotFound, ref)
	}

	return &backend.Snapshot{ID: ref, Name: name, Container: derived.String()}, nil
}

func (a *Adapter) ListContainerSnapshots(ctx context.Context, containerID string) ([]backend.Snapshot, error) {
	derived, err := a.derivedName(ctx, containerID)
	if err != nil {
		return nil, err
	}

	all, err := a.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	var out []backend.Snapshot
	for _, s := range all {
		if s.Container == derived.String() {
			out = append(out, s)
		}
	}
	return out, nil
}

// ListSnapshots filters the full image list down to snapshot-tagged entries.
// The engine has no server-side filter for this.
func (a *Adapter) ListSnapshots(ctx context.Context) ([]backend.Snapshot, error) {
	summaries, err := a.cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, translate(err, backend.ErrImageNotFound)
	}

	var out []backend.Snapshot
	for _, s := range summaries {
		for _, ref := range s.RepoTags {
			owner, name, ok := naming.SnapshotOwner(ref)
			if !ok {
				continue
			}
			out = append(out, backend.Snapshot{ID: ref, Name: name, Container: owner.String()})
		}
	}
	return out, nil
}

func (a *Adapter) CreateContainerSnapshot(ctx context.Context, containerID, name string) (*backend.Snapshot, error) {
	derived, err := a.derivedName(ctx, containerID)
	if err != nil {
		return nil, err
	}

	img, err := a.createImage(ctx, containerID, naming.SnapshotTag(name), false)
	if err != nil {
		return nil, err
	}

	return &backend.Snapshot{ID: img.ID, Name: name, Container: derived.String()}, nil
}

// DeleteContainerSnapshot is image deletion with the not-found kind
// retyped; it deliberately shares the image path instead of duplicating it.
func (a *Adapter) DeleteContainerSnapshot(ctx context.Context, containerID, name string) error {
	ref, err := a.snapshotRef(ctx, containerID, name)
	if err != nil {
		return err
	}
	if err := a.DeleteImage(ctx, ref); err != nil {
		if errors.Is(err, backend.ErrImageNotFound) {
			return fmt.Errorf("%w: %s", backend.ErrSnapshotNotFound, ref)
		}
		return err
	}
	return nil
}

// derivedName resolves a container identifier to its parsed internal name.
// It fails with ErrContainerNotFound for unknown containers, and with a
// backend error for containers that were not created through this naming
// scheme.
func (a *Adapter) derivedName(ctx context.Context, containerID string) (naming.DerivedName, error) {
	info, err := a.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return naming.DerivedName{}, translate(err, backend.ErrContainerNotFound)
	}

	derived, err := naming.ParseContainerName(strings.TrimPrefix(info.Name, "/"))
	if err != nil {
		return naming.DerivedName{}, backend.WrapBackend(err)
	}
	return derived, nil
}

func (a *Adapter) snapshotRef(ctx context.Context, containerID, name string) (string, error) {
	derived, err := a.derivedName(ctx, containerID)
	if err != nil {
		return "", err
	}
	return naming.SnapshotRef(derived, name, a.registry), nil
}
