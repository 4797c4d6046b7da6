// Package naming implements the deterministic derivation of internal
// container, image and snapshot names from caller-supplied names and
// ownership context. The derivation is reversible: ownership and
// snapshot-ness are decidable from a name alone.
package naming

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/distribution/reference"
)

const (
	// ContainerPrefix is prepended to every container created through the
	// backend, so foreign containers on the same engine are never touched.
	ContainerPrefix = "stv-"

	// SnapshotTagPrefix marks an image tag as a container snapshot.
	SnapshotTagPrefix = "snapshot-"
)

// DerivedName is the parsed form of an internal container name,
// e.g. "stv-u2500-ipython" for UID 2500 and user-supplied name "ipython".
type DerivedName struct {
	UID  int
	Name string
}

// String renders the internal container name.
func (d DerivedName) String() string {
	return fmt.Sprintf("%su%d-%s", ContainerPrefix, d.UID, d.Name)
}

// Repository renders the image repository namespace for this container,
// e.g. "stv-u2500/ipython". Image and snapshot names for the container live
// under this repository.
func (d DerivedName) Repository() string {
	return fmt.Sprintf("%su%d/%s", ContainerPrefix, d.UID, d.Name)
}

// ParseContainerName parses an internal container name back into its
// components. It is a structured parse (fixed prefix, numeric uid, free-text
// name) rather than a split, because the free-text name may itself contain
// the separator character.
func ParseContainerName(s string) (DerivedName, error) {
	rest, ok := strings.CutPrefix(s, ContainerPrefix+"u")
	if !ok {
		return DerivedName{}, fmt.Errorf("container name %q does not start with %q", s, ContainerPrefix+"u")
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits == 0 || digits >= len(rest) || rest[digits] != '-' || digits+1 >= len(rest) {
		return DerivedName{}, fmt.Errorf("container name %q does not match the %su<uid>-<name> form", s, ContainerPrefix)
	}

	uid, err := strconv.Atoi(rest[:digits])
	if err != nil {
		return DerivedName{}, fmt.Errorf("container name %q: parse uid: %w", s, err)
	}

	return DerivedName{UID: uid, Name: rest[digits+1:]}, nil
}

// ImageRef renders the full image reference for an image of this container
// with the given tag. A non-empty registry is prepended as the reference
// domain.
func ImageRef(d DerivedName, tag, registry string) string {
	ref := d.Repository() + ":" + tag
	if registry != "" {
		ref = registry + "/" + ref
	}
	return ref
}

// SnapshotTag renders the reserved tag for a snapshot with the given
// caller-supplied name.
func SnapshotTag(name string) string {
	return SnapshotTagPrefix + name
}

// SnapshotRef renders the full snapshot image reference for a container.
func SnapshotRef(d DerivedName, name, registry string) string {
	return ImageRef(d, SnapshotTag(name), registry)
}

// CloneTag renders the tag of the private intermediate image committed when a
// container is cloned. The timestamp keeps repeated clone attempts with the
// same names unique.
func CloneTag(newContainerName string, now time.Time) string {
	return fmt.Sprintf("for-clone-%s-at-%d", newContainerName, now.Unix())
}

// RefTag extracts the tag component of an image reference. Parsing goes
// through the reference grammar so a registry domain containing a port colon
// is never mistaken for a tag separator.
func RefTag(ref string) (string, bool) {
	parsed, err := reference.Parse(ref)
	if err != nil {
		return "", false
	}
	tagged, ok := parsed.(reference.Tagged)
	if !ok {
		return "", false
	}
	return tagged.Tag(), true
}

// IsSnapshotRef reports whether the image reference names a container
// snapshot, decided purely from the tag component.
func IsSnapshotRef(ref string) bool {
	tag, ok := RefTag(ref)
	return ok && strings.HasPrefix(tag, SnapshotTagPrefix)
}

// SnapshotOwner decomposes a snapshot reference into the owning container's
// derived name and the caller-supplied snapshot name. The second return is
// false when ref is not a snapshot reference produced by this scheme.
func SnapshotOwner(ref string) (DerivedName, string, bool) {
	parsed, err := reference.Parse(ref)
	if err != nil {
		return DerivedName{}, "", false
	}
	named, ok := parsed.(reference.Named)
	if !ok {
		return DerivedName{}, "", false
	}
	tagged, ok := parsed.(reference.Tagged)
	if !ok || !strings.HasPrefix(tagged.Tag(), SnapshotTagPrefix) {
		return DerivedName{}, "", false
	}

	// The repository path ends in "<prefix>u<uid>/<name>"; anything before
	// that is the registry domain.
	segments := strings.Split(named.Name(), "/")
	if len(segments) < 2 {
		return DerivedName{}, "", false
	}
	owner, name := segments[len(segments)-2], segments[len(segments)-1]
	uidPart, ok := strings.CutPrefix(owner, ContainerPrefix+"u")
	if !ok {
		return DerivedName{}, "", false
	}
	uid, err := strconv.Atoi(uidPart)
	if err != nil {
		return DerivedName{}, "", false
	}

	return DerivedName{UID: uid, Name: name}, strings.TrimPrefix(tagged.Tag(), SnapshotTagPrefix), true
}
