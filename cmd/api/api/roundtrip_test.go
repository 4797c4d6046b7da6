package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevedore-sh/stevedore/cmd/api/config"
	"github.com/stevedore-sh/stevedore/lib/backend"
	"github.com/stevedore-sh/stevedore/lib/backend/backendtest"
	"github.com/stevedore-sh/stevedore/lib/httpremote"
)

// The proxy client and the HTTP surface implement two halves of one wire
// contract. Drive the real handlers through httpremote.Client to prove a
// remote node is indistinguishable from a local backend.
func TestRemoteProxyRoundTrip(t *testing.T) {
	fake := backendtest.NewFake()
	fake.SeedImage("jupyter/base:latest")
	service := New(&config.Config{}, fake, nil, nil)
	r := chi.NewRouter()
	service.Routes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	var remote backend.Backend = httpremote.New(httpremote.Config{BaseURL: srv.URL})
	ctx := context.Background()

	// Create
	result, err := remote.CreateContainer(ctx, backend.CreateContainerRequest{
		Name:     "ipython",
		Username: "alice",
		UID:      2500,
		Image:    "jupyter/base:latest",
	})
	require.NoError(t, err)
	id := result.Container.ID
	assert.Equal(t, "stv-u2500-ipython", id)
	assert.Nil(t, result.CloneImage)

	exists, err := remote.ContainerExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	// Suspend keeps the engine running flag set.
	require.NoError(t, remote.SuspendContainer(ctx, id))
	running, err := remote.ContainerIsRunning(ctx, id)
	require.NoError(t, err)
	assert.True(t, running)
	suspended, err := remote.ContainerIsSuspended(ctx, id)
	require.NoError(t, err)
	assert.True(t, suspended)

	// Precondition violations surface as typed errors across the wire.
	err = remote.SuspendContainer(ctx, id)
	require.ErrorIs(t, err, backend.ErrIllegalState)

	require.NoError(t, remote.ResumeContainer(ctx, id))

	// Only-running filtering happens client side.
	require.NoError(t, remote.StopContainer(ctx, id, false))
	runningList, err := remote.ListContainers(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, runningList)
	allList, err := remote.ListContainers(ctx, false)
	require.NoError(t, err)
	assert.Len(t, allList, 1)
	require.NoError(t, remote.StartContainer(ctx, id))

	// Snapshots round-trip, including the escaped image reference.
	snapshot, err := remote.CreateContainerSnapshot(ctx, id, "clean")
	require.NoError(t, err)
	assert.Equal(t, "stv-u2500/ipython:snapshot-clean", snapshot.ID)

	image, err := remote.GetImage(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID, image.ID)

	snapshots, err := remote.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)

	// Snapshots share the image identity space but never appear in the
	// regular image listing.
	images, err := remote.ListImages(ctx)
	require.NoError(t, err)
	for _, img := range images {
		assert.NotContains(t, img.ID, ":snapshot-")
	}

	require.NoError(t, remote.DeleteContainerSnapshot(ctx, id, "clean"))
	err = remote.DeleteContainerSnapshot(ctx, id, "clean")
	require.ErrorIs(t, err, backend.ErrSnapshotNotFound)

	// Clone via the remote surface.
	cloneResult, err := remote.CreateContainer(ctx, backend.CreateContainerRequest{
		Name:     "ipython-copy",
		Username: "alice",
		UID:      2500,
		CloneOf:  id,
	})
	require.NoError(t, err)
	require.NotNil(t, cloneResult.CloneImage)
	assert.Contains(t, cloneResult.CloneImage.ID, "for-clone-")

	// Exec and logs.
	out, err := remote.ExecInContainer(ctx, id, []string{"uname"})
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	lines, err := remote.ContainerLogs(ctx, id, false)
	require.NoError(t, err)
	assert.NotEmpty(t, lines)

	// Health flows through the aggregate endpoint.
	assert.Equal(t, backend.HealthOK, remote.Health(ctx))
	fake.SetHealthy(false)
	assert.Equal(t, backend.HealthError, remote.Health(ctx))
	fake.SetHealthy(true)

	// Delete.
	require.NoError(t, remote.DeleteContainer(ctx, id))
	err = remote.DeleteContainer(ctx, id)
	require.ErrorIs(t, err, backend.ErrContainerNotFound)
}

func TestRemoteProxyNotFoundKinds(t *testing.T) {
	fake := backendtest.NewFake()
	service := New(&config.Config{}, fake, nil, nil)
	r := chi.NewRouter()
	service.Routes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	remote := httpremote.New(httpremote.Config{BaseURL: srv.URL})
	ctx := context.Background()

	_, err := remote.GetContainer(ctx, "absent")
	require.ErrorIs(t, err, backend.ErrContainerNotFound)

	_, err = remote.GetImage(ctx, "absent:latest")
	require.ErrorIs(t, err, backend.ErrImageNotFound)

	_, err = remote.GetContainerSnapshot(ctx, "absent", "clean")
	require.ErrorIs(t, err, backend.ErrSnapshotNotFound)

	err = remote.StartContainer(ctx, "absent")
	require.ErrorIs(t, err, backend.ErrContainerNotFound)
}
