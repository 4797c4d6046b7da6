package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevedore-sh/stevedore/cmd/api/config"
	"github.com/stevedore-sh/stevedore/lib/backend"
	"github.com/stevedore-sh/stevedore/lib/backend/backendtest"
)

func newTestService(t *testing.T) (http.Handler, *backendtest.Fake, *backendtest.FakeDirectory) {
	t.Helper()
	fake := backendtest.NewFake()
	dir := backendtest.NewFakeDirectory()
	service := New(&config.Config{}, fake, dir, dir)
	r := chi.NewRouter()
	service.Routes(r)
	return r, fake, dir
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func seedContainer(t *testing.T, fake *backendtest.Fake, uid int, name string) string {
	t.Helper()
	fake.SeedImage("jupyter/base:latest")
	result, err := fake.CreateContainer(context.Background(), backend.CreateContainerRequest{
		Name:     name,
		Username: "alice",
		UID:      uid,
		Image:    "jupyter/base:latest",
	})
	require.NoError(t, err)
	return result.Container.ID
}

func TestCreateContainerHandler(t *testing.T) {
	handler, fake, _ := newTestService(t)
	fake.SeedImage("jupyter/base:latest")

	rec := doJSON(t, handler, http.MethodPost, "/containers", backend.CreateContainerRequest{
		Name:     "ipython",
		Username: "alice",
		UID:      2500,
		Image:    "jupyter/base:latest",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var result backend.CreateResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "stv-u2500-ipython", result.Container.ID)
	assert.Equal(t, backend.StatusRunning, result.Container.Status)
	assert.Nil(t, result.CloneImage)
}

func TestCreateContainerUnknownImage(t *testing.T) {
	handler, _, _ := newTestService(t)

	rec := doJSON(t, handler, http.MethodPost, "/containers", backend.CreateContainerRequest{
		Name: "ipython", Username: "alice", UID: 2500, Image: "missing:latest",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "not_found", body.Code)
}

func TestCreateContainerDuplicate(t *testing.T) {
	handler, fake, _ := newTestService(t)
	seedContainer(t, fake, 2500, "ipython")

	rec := doJSON(t, handler, http.MethodPost, "/containers", backend.CreateContainerRequest{
		Name: "ipython", Username: "alice", UID: 2500, Image: "jupyter/base:latest",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateContainerClone(t *testing.T) {
	handler, fake, _ := newTestService(t)
	source := seedContainer(t, fake, 2500, "ipython")

	rec := doJSON(t, handler, http.MethodPost, "/containers", backend.CreateContainerRequest{
		Name: "ipython-copy", Username: "alice", UID: 2500, CloneOf: source,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var result backend.CreateResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.NotNil(t, result.CloneImage)
	assert.Contains(t, result.CloneImage.ID, "for-clone-")
	assert.Equal(t, result.CloneImage.ID, result.Container.Image)
}

func TestGetContainerHandler(t *testing.T) {
	handler, fake, _ := newTestService(t)
	id := seedContainer(t, fake, 2500, "ipython")

	rec := doJSON(t, handler, http.MethodGet, "/containers/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var container backend.Container
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&container))
	assert.Equal(t, id, container.ID)
	assert.Equal(t, "alice", container.Owner)

	rec = doJSON(t, handler, http.MethodGet, "/containers/absent", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListContainersHandler(t *testing.T) {
	handler, fake, _ := newTestService(t)

	rec := doJSON(t, handler, http.MethodGet, "/containers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	seedContainer(t, fake, 2500, "ipython")
	rec = doJSON(t, handler, http.MethodGet, "/containers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var containers []backend.Container
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&containers))
	assert.Len(t, containers, 1)
}

func TestLifecycleTransitions(t *testing.T) {
	handler, fake, _ := newTestService(t)
	id := seedContainer(t, fake, 2500, "ipython")

	// Starting a running container violates its precondition.
	rec := doJSON(t, handler, http.MethodPost, "/containers/"+id+"/start", nil)
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/containers/"+id+"/suspend", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// A suspended container cannot be suspended again.
	rec = doJSON(t, handler, http.MethodPost, "/containers/"+id+"/suspend", nil)
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/containers/"+id+"/resume", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/containers/"+id+"/stop", forceRequest{Force: true})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/containers/"+id+"/start", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/containers/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/containers/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStopWithEmptyBody(t *testing.T) {
	handler, fake, _ := newTestService(t)
	id := seedContainer(t, fake, 2500, "ipython")

	req := httptest.NewRequest(http.MethodPost, "/containers/"+id+"/stop", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestExecHandler(t *testing.T) {
	handler, fake, _ := newTestService(t)
	id := seedContainer(t, fake, 2500, "ipython")

	rec := doJSON(t, handler, http.MethodPost, "/containers/"+id+"/exec", execRequest{Command: []string{"ls"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp execResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Output)

	// Exec against a stopped container is rejected.
	require.Equal(t, http.StatusNoContent,
		doJSON(t, handler, http.MethodPost, "/containers/"+id+"/stop", nil).Code)
	rec = doJSON(t, handler, http.MethodPost, "/containers/"+id+"/exec", execRequest{Command: []string{"ls"}})
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
}

func TestLogsHandler(t *testing.T) {
	handler, fake, _ := newTestService(t)
	id := seedContainer(t, fake, 2500, "ipython")

	rec := doJSON(t, handler, http.MethodGet, "/containers/"+id+"/logs?timestamps=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var lines []string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&lines))
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "2026-01-01")
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	handler, _, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, "/containers", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
