package docker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/go-connections/nat"
	"github.com/samber/lo"

	"github.com/stevedore-sh/stevedore/lib/backend"
)

// Labels attached to every container created through the adapter. The owner
// is also derivable from the container name; the labels keep list responses
// cheap.
const (
	ownerLabel = "sh.stevedore.owner"
	uidLabel   = "sh.stevedore.uid"
)

// containerFromInspect normalizes an engine inspect response into the
// contract record.
func containerFromInspect(info types.ContainerJSON) backend.Container {
	c := backend.Container{
		ID:     info.ID,
		Status: backend.StatusStopped,
	}
	if info.State != nil {
		c.Status = backend.StatusFromFlags(info.State.Running, info.State.Paused)
	}
	if info.Config != nil {
		c.Owner = info.Config.Labels[ownerLabel]
		c.Image = info.Config.Image
	}
	if info.NetworkSettings != nil {
		c.Ports = portsFromMap(info.NetworkSettings.Ports)
	}
	if info.HostConfig != nil {
		c.Volumes = volumesFromBinds(info.HostConfig.Binds)
	}
	return c
}

// containerFromSummary normalizes an engine list entry. List responses carry
// a single state string instead of the running/paused flag pair, so the flags
// are reconstructed first and run through the same derivation.
func containerFromSummary(s types.Container) backend.Container {
	running, paused := summaryFlags(s.State)
	return backend.Container{
		ID:     s.ID,
		Status: backend.StatusFromFlags(running, paused),
		Owner:  s.Labels[ownerLabel],
		Image:  s.Image,
		Ports: lo.Map(s.Ports, func(p types.Port, _ int) backend.PortMapping {
			return backend.PortMapping{
				Internal: int(p.PrivatePort),
				External: int(p.PublicPort),
				Address:  p.IP,
			}
		}),
	}
}

// summaryFlags maps the engine's list state string back onto the
// running/paused flag pair. A paused container is running in the flag sense.
func summaryFlags(state string) (running, paused bool) {
	switch state {
	case "running":
		return true, false
	case "paused":
		return true, true
	default:
		return false, false
	}
}

// portsFromMap flattens the engine's port map into an ordered mapping list.
// Map iteration is not stable, so the result is sorted by internal then
// external port.
func portsFromMap(ports nat.PortMap) []backend.PortMapping {
	var out []backend.PortMapping
	for port, bindings := range ports {
		for _, b := range bindings {
			external, err := strconv.Atoi(b.HostPort)
			if err != nil {
				continue
			}
			out = append(out, backend.PortMapping{
				Internal: port.Int(),
				External: external,
				Address:  b.HostIP,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Internal != out[j].Internal {
			return out[i].Internal < out[j].Internal
		}
		return out[i].External < out[j].External
	})
	return out
}

func volumesFromBinds(binds []string) []backend.VolumeMount {
	var out []backend.VolumeMount
	for _, bind := range binds {
		parts := strings.SplitN(bind, ":", 3)
		if len(parts) < 2 {
			continue
		}
		out = append(out, backend.VolumeMount{Source: parts[0], Target: parts[1]})
	}
	return out
}

// containerConfig translates the normalized create request into the engine's
// container configuration.
func containerConfig(req backend.CreateContainerRequest, imageRef string) *container.Config {
	exposed := make(nat.PortSet, len(req.Ports))
	for _, p := range req.Ports {
		exposed[natPort(p.Internal)] = struct{}{}
	}

	return &container.Config{
		Image:        imageRef,
		Cmd:          strslice.StrSlice(req.Cmd),
		Env:          []string{"OWNER=" + req.Username},
		ExposedPorts: exposed,
		Labels: map[string]string{
			ownerLabel: req.Username,
			uidLabel:   strconv.Itoa(req.UID),
		},
	}
}

// hostConfig translates bind mounts and port mappings into the engine's host
// configuration.
func hostConfig(req backend.CreateContainerRequest) *container.HostConfig {
	bindings := make(nat.PortMap, len(req.Ports))
	for _, p := range req.Ports {
		bindings[natPort(p.Internal)] = append(bindings[natPort(p.Internal)], nat.PortBinding{
			HostIP:   p.Address,
			HostPort: strconv.Itoa(p.External),
		})
	}

	return &container.HostConfig{
		Binds: lo.Map(req.Volumes, func(v backend.VolumeMount, _ int) string {
			return v.Source + ":" + v.Target
		}),
		PortBindings: bindings,
	}
}

func natPort(internal int) nat.Port {
	return nat.Port(fmt.Sprintf("%d/tcp", internal))
}
