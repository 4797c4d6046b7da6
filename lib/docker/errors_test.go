package docker

import (
	"errors"
	"testing"

	"github.com/docker/docker/errdefs"
	"github.com/stretchr/testify/assert"

	"github.com/stevedore-sh/stevedore/lib/backend"
)

func TestTranslate_NotFoundUsesCallContext(t *testing.T) {
	engineErr := errdefs.NotFound(errors.New("No such container: abc"))

	err := translate(engineErr, backend.ErrContainerNotFound)
	assert.ErrorIs(t, err, backend.ErrContainerNotFound)
	assert.NotErrorIs(t, err, backend.ErrBackend)

	err = translate(engineErr, backend.ErrImageNotFound)
	assert.ErrorIs(t, err, backend.ErrImageNotFound)

	err = translate(engineErr, backend.ErrSnapshotNotFound)
	assert.ErrorIs(t, err, backend.ErrSnapshotNotFound)
}

func TestTranslate_GenericBecomesBackendError(t *testing.T) {
	cause := errors.New("engine exploded")
	err := translate(cause, backend.ErrContainerNotFound)
	assert.ErrorIs(t, err, backend.ErrBackend)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, backend.ErrContainerNotFound)
}

func TestTranslate_Nil(t *testing.T) {
	assert.NoError(t, translate(nil, backend.ErrContainerNotFound))
}
