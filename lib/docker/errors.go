package docker

import (
	"fmt"

	"github.com/docker/docker/client"

	"github.com/stevedore-sh/stevedore/lib/backend"
)

// translate converts an engine call error into the contract taxonomy.
// notFound is the typed error surfaced when the engine reports the resource
// missing; it depends on the call context (container, image or snapshot), so
// a missing resource is never reported as a generic failure.
func translate(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case client.IsErrNotFound(err):
		return fmt.Errorf("%w: %w", notFound, err)
	case client.IsErrConnectionFailed(err):
		return backend.WrapConnection(err)
	default:
		return backend.WrapBackend(err)
	}
}
