package httpremote

import (
	"net/url"
	"strings"
)

// PlaceholderContainer is the token in the container-snapshots slug that is
// replaced by the (path-escaped) container identifier.
const PlaceholderContainer = "<container>"

// Slugs maps each resource collection to the path it lives under on the
// remote peer.
type Slugs struct {
	Containers         string
	Images             string
	Snapshots          string
	ContainerSnapshots string
}

// DefaultSlugs returns the paths served by this system's own HTTP surface.
func DefaultSlugs() Slugs {
	return Slugs{
		Containers:         "/containers",
		Images:             "/containers/images",
		Snapshots:          "/containers/snapshots",
		ContainerSnapshots: "/containers/" + PlaceholderContainer + "/snapshots",
	}
}

func (c *Client) containersURL() string {
	return c.baseURL + c.slugs.Containers
}

// containerURL addresses a single container. Identifiers may contain
// characters unsafe in a path segment and are escaped before substitution.
func (c *Client) containerURL(id string) string {
	return c.containersURL() + "/" + url.PathEscape(id)
}

func (c *Client) imagesURL() string {
	return c.baseURL + c.slugs.Images
}

// imageURL addresses a single image. Image identifiers are repository:tag
// references containing '/' and ':', so escaping is mandatory here.
func (c *Client) imageURL(id string) string {
	return c.imagesURL() + "/" + url.PathEscape(id)
}

func (c *Client) snapshotsURL() string {
	return c.baseURL + c.slugs.Snapshots
}

func (c *Client) containerSnapshotsURL(containerID string) string {
	return c.baseURL + strings.ReplaceAll(c.slugs.ContainerSnapshots, PlaceholderContainer, url.PathEscape(containerID))
}

func (c *Client) containerSnapshotURL(containerID, name string) string {
	return c.containerSnapshotsURL(containerID) + "/" + url.PathEscape(name)
}

func (c *Client) healthURL() string {
	return c.baseURL + "/health"
}
