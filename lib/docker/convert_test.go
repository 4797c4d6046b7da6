package docker

import (
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevedore-sh/stevedore/lib/backend"
)

func TestContainerFromInspect(t *testing.T) {
	info := types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			ID:    "abc123",
			Name:  "/stv-u2500-ipython",
			State: &types.ContainerState{Running: true, Paused: false},
			HostConfig: &container.HostConfig{
				Binds: []string{"/srv/data:/home/user/data:rw", "/srv/shared:/shared"},
			},
		},
		Config: &container.Config{
			Image:  "debian:latest",
			Labels: map[string]string{ownerLabel: "alice", uidLabel: "2500"},
		},
		NetworkSettings: &types.NetworkSettings{
			NetworkSettingsBase: types.NetworkSettingsBase{
				Ports: nat.PortMap{
					"8888/tcp": []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "32768"}},
				},
			},
		},
	}

	c := containerFromInspect(info)
	assert.Equal(t, "abc123", c.ID)
	assert.Equal(t, backend.StatusRunning, c.Status)
	assert.Equal(t, "alice", c.Owner)
	assert.Equal(t, "debian:latest", c.Image)
	require.Len(t, c.Ports, 1)
	assert.Equal(t, backend.PortMapping{Internal: 8888, External: 32768, Address: "0.0.0.0"}, c.Ports[0])
	require.Len(t, c.Volumes, 2)
	assert.Equal(t, backend.VolumeMount{Source: "/srv/data", Target: "/home/user/data"}, c.Volumes[0])
	assert.Equal(t, backend.VolumeMount{Source: "/srv/shared", Target: "/shared"}, c.Volumes[1])
}

func TestContainerFromInspect_Paused(t *testing.T) {
	info := types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			ID:    "abc123",
			State: &types.ContainerState{Running: true, Paused: true},
		},
	}
	assert.Equal(t, backend.StatusSuspended, containerFromInspect(info).Status)

	// Paused without running reports stopped: the running flag wins.
	info.State = &types.ContainerState{Running: false, Paused: true}
	assert.Equal(t, backend.StatusStopped, containerFromInspect(info).Status)
}

func TestPortsFromMap_Ordered(t *testing.T) {
	ports := nat.PortMap{
		"8888/tcp": []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "32770"}},
		"22/tcp":   []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "32769"}},
		"80/tcp": []nat.PortBinding{
			{HostIP: "0.0.0.0", HostPort: "32771"},
			{HostIP: "0.0.0.0", HostPort: "32768"},
		},
	}

	// Map iteration order varies; the mapping list must not.
	want := []backend.PortMapping{
		{Internal: 22, External: 32769, Address: "0.0.0.0"},
		{Internal: 80, External: 32768, Address: "0.0.0.0"},
		{Internal: 80, External: 32771, Address: "0.0.0.0"},
		{Internal: 8888, External: 32770, Address: "0.0.0.0"},
	}
	for range 10 {
		assert.Equal(t, want, portsFromMap(ports))
	}
}

func TestContainerFromSummary(t *testing.T) {
	s := types.Container{
		ID:     "def456",
		State:  "paused",
		Image:  "debian:latest",
		Labels: map[string]string{ownerLabel: "bob"},
		Ports: []types.Port{
			{IP: "127.0.0.1", PrivatePort: 80, PublicPort: 8080, Type: "tcp"},
		},
	}

	c := containerFromSummary(s)
	assert.Equal(t, backend.StatusSuspended, c.Status)
	assert.Equal(t, "bob", c.Owner)
	require.Len(t, c.Ports, 1)
	assert.Equal(t, backend.PortMapping{Internal: 80, External: 8080, Address: "127.0.0.1"}, c.Ports[0])

	s.State = "exited"
	assert.Equal(t, backend.StatusStopped, containerFromSummary(s).Status)
	s.State = "running"
	assert.Equal(t, backend.StatusRunning, containerFromSummary(s).Status)
}

func TestContainerConfig(t *testing.T) {
	req := backend.CreateContainerRequest{
		Name:     "ipython",
		Username: "alice",
		UID:      2500,
		Cmd:      []string{"jupyter", "notebook"},
		Ports:    []backend.PortMapping{{Internal: 8888, External: 32768, Address: "0.0.0.0"}},
	}

	cfg := containerConfig(req, "debian:latest")
	assert.Equal(t, "debian:latest", cfg.Image)
	assert.Equal(t, []string{"jupyter", "notebook"}, []string(cfg.Cmd))
	assert.Contains(t, cfg.Env, "OWNER=alice")
	assert.Equal(t, "alice", cfg.Labels[ownerLabel])
	assert.Equal(t, "2500", cfg.Labels[uidLabel])
	assert.Contains(t, cfg.ExposedPorts, nat.Port("8888/tcp"))
}

func TestHostConfig(t *testing.T) {
	req := backend.CreateContainerRequest{
		Ports: []backend.PortMapping{
			{Internal: 8888, External: 32768, Address: "0.0.0.0"},
		},
		Volumes: []backend.VolumeMount{
			{Source: "/srv/data", Target: "/home/user/data"},
		},
	}

	hc := hostConfig(req)
	assert.Equal(t, []string{"/srv/data:/home/user/data"}, hc.Binds)
	require.Contains(t, hc.PortBindings, nat.Port("8888/tcp"))
	assert.Equal(t, nat.PortBinding{HostIP: "0.0.0.0", HostPort: "32768"}, hc.PortBindings["8888/tcp"][0])
}

func TestSplitLogLines(t *testing.T) {
	assert.Equal(t, []string{"one", "two"}, splitLogLines("one\ntwo\n"))
	assert.Empty(t, splitLogLines(""))
	assert.Equal(t, []string{"solo"}, splitLogLines("solo"))
	assert.Equal(t, []string{"a", "b"}, splitLogLines("\na\n\nb\n\n"))
}
