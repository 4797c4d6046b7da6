// Package httpremote talks to a peer of this system over its HTTP surface,
// exposing the remote node through the same contracts the local engine
// adapter implements. Callers cannot tell a proxied backend from a local one.
package httpremote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/stevedore-sh/stevedore/lib/backend"
)

const DefaultRequestTimeout = 10 * time.Minute

type Config struct {
	// BaseURL is the root of the remote peer, e.g. "http://node2:8080".
	BaseURL string
	// Slugs overrides the resource paths; zero value means DefaultSlugs.
	Slugs Slugs
	// RequestTimeout bounds each request; zero means DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// Client implements backend.Backend against a remote peer.
type Client struct {
	baseURL string
	slugs   Slugs
	http    *http.Client
}

var _ backend.Backend = (*Client)(nil)

func New(cfg Config) *Client {
	slugs := cfg.Slugs
	if slugs == (Slugs{}) {
		slugs = DefaultSlugs()
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		slugs:   slugs,
		http:    &http.Client{Timeout: timeout},
	}
}

// do issues one request. Transport-level failures become ErrConnection; the
// response status is left for check to interpret per call site.
func (c *Client) do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, backend.WrapBackend(err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, backend.WrapBackend(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, backend.WrapConnection(err)
	}
	return resp, nil
}

// check maps the response status to the error taxonomy: 404 becomes the
// caller-supplied not-found kind, 428 a precondition violation, and any other
// unexpected status a generic backend error carrying the remote message.
func check(resp *http.Response, want int, notFound error) error {
	if resp.StatusCode == want {
		return nil
	}
	msg := remoteMessage(resp)
	switch resp.StatusCode {
	case http.StatusNotFound:
		if notFound != nil {
			return fmt.Errorf("%w: %s", notFound, msg)
		}
	case http.StatusPreconditionRequired:
		return fmt.Errorf("%w: %s", backend.ErrIllegalState, msg)
	}
	return fmt.Errorf("%w: unexpected status %d: %s", backend.ErrBackend, resp.StatusCode, msg)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func remoteMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(raw))
}

func decode[T any](resp *http.Response) (T, error) {
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, backend.WrapBackend(err)
	}
	return out, nil
}

// get fetches url, expects 200, and decodes the body into T.
func get[T any](ctx context.Context, c *Client, url string, notFound error) (T, error) {
	var zero T
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()
	if err := check(resp, http.StatusOK, notFound); err != nil {
		return zero, err
	}
	return decode[T](resp)
}

// exists fetches url and folds 404 into (false, nil).
func (c *Client) exists(ctx context.Context, url string) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := check(resp, http.StatusOK, nil); err != nil {
		return false, err
	}
	return true, nil
}

// action POSTs to url and expects want, discarding any body.
func (c *Client) action(ctx context.Context, url string, body any, want int, notFound error) error {
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return check(resp, want, notFound)
}

func (c *Client) delete(ctx context.Context, url string, notFound error) error {
	resp, err := c.do(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return check(resp, http.StatusNoContent, notFound)
}

// Containers

func (c *Client) ContainerExists(ctx context.Context, id string) (bool, error) {
	return c.exists(ctx, c.containerURL(id))
}

// ContainerIsRunning reports the engine's running flag, which stays set while
// the container is suspended.
func (c *Client) ContainerIsRunning(ctx context.Context, id string) (bool, error) {
	container, err := c.GetContainer(ctx, id)
	if err != nil {
		return false, err
	}
	return container.Status != backend.StatusStopped, nil
}

func (c *Client) ContainerIsSuspended(ctx context.Context, id string) (bool, error) {
	container, err := c.GetContainer(ctx, id)
	if err != nil {
		return false, err
	}
	return container.Status == backend.StatusSuspended, nil
}

func (c *Client) GetContainer(ctx context.Context, id string) (*backend.Container, error) {
	return get[*backend.Container](ctx, c, c.containerURL(id), backend.ErrContainerNotFound)
}

func (c *Client) ListContainers(ctx context.Context, onlyRunning bool) ([]backend.Container, error) {
	containers, err := get[[]backend.Container](ctx, c, c.containersURL(), nil)
	if err != nil {
		return nil, err
	}
	if !onlyRunning {
		return containers, nil
	}
	// The list endpoint always returns everything; filter here so both
	// adapters honor the flag identically.
	return lo.Filter(containers, func(ct backend.Container, _ int) bool {
		return ct.Status != backend.StatusStopped
	}), nil
}

func (c *Client) CreateContainer(ctx context.Context, req backend.CreateContainerRequest) (*backend.CreateResult, error) {
	resp, err := c.do(ctx, http.MethodPost, c.containersURL(), req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := check(resp, http.StatusCreated, backend.ErrContainerNotFound); err != nil {
		return nil, err
	}
	return decode[*backend.CreateResult](resp)
}

func (c *Client) DeleteContainer(ctx context.Context, id string) error {
	return c.delete(ctx, c.containerURL(id), backend.ErrContainerNotFound)
}

func (c *Client) StartContainer(ctx context.Context, id string) error {
	return c.action(ctx, c.containerURL(id)+"/start", nil, http.StatusNoContent, backend.ErrContainerNotFound)
}

type forceBody struct {
	Force bool `json:"force"`
}

func (c *Client) StopContainer(ctx context.Context, id string, force bool) error {
	return c.action(ctx, c.containerURL(id)+"/stop", forceBody{Force: force}, http.StatusNoContent, backend.ErrContainerNotFound)
}

func (c *Client) RestartContainer(ctx context.Context, id string, force bool) error {
	return c.action(ctx, c.containerURL(id)+"/restart", forceBody{Force: force}, http.StatusNoContent, backend.ErrContainerNotFound)
}

func (c *Client) SuspendContainer(ctx context.Context, id string) error {
	return c.action(ctx, c.containerURL(id)+"/suspend", nil, http.StatusNoContent, backend.ErrContainerNotFound)
}

func (c *Client) ResumeContainer(ctx context.Context, id string) error {
	return c.action(ctx, c.containerURL(id)+"/resume", nil, http.StatusNoContent, backend.ErrContainerNotFound)
}

type execRequest struct {
	Command []string `json:"command"`
}

type execResponse struct {
	Output string `json:"output"`
}

func (c *Client) ExecInContainer(ctx context.Context, id string, cmd []string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodPost, c.containerURL(id)+"/exec", execRequest{Command: cmd})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := check(resp, http.StatusOK, backend.ErrContainerNotFound); err != nil {
		return nil, err
	}
	out, err := decode[execResponse](resp)
	if err != nil {
		return nil, err
	}
	return []byte(out.Output), nil
}

func (c *Client) ContainerLogs(ctx context.Context, id string, timestamps bool) ([]string, error) {
	url := c.containerURL(id) + "/logs"
	if timestamps {
		url += "?timestamps=true"
	}
	return get[[]string](ctx, c, url, backend.ErrContainerNotFound)
}

// Images

func (c *Client) ImageExists(ctx context.Context, id string) (bool, error) {
	return c.exists(ctx, c.imageURL(id))
}

func (c *Client) GetImage(ctx context.Context, id string) (*backend.Image, error) {
	return get[*backend.Image](ctx, c, c.imageURL(id), backend.ErrImageNotFound)
}

func (c *Client) ListImages(ctx context.Context) ([]backend.Image, error) {
	return get[[]backend.Image](ctx, c, c.imagesURL(), nil)
}

type createImageRequest struct {
	Container string `json:"container"`
	Name      string `json:"name"`
}

func (c *Client) CreateImage(ctx context.Context, containerID, name string) (*backend.Image, error) {
	resp, err := c.do(ctx, http.MethodPost, c.imagesURL(), createImageRequest{Container: containerID, Name: name})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := check(resp, http.StatusCreated, backend.ErrContainerNotFound); err != nil {
		return nil, err
	}
	return decode[*backend.Image](resp)
}

func (c *Client) DeleteImage(ctx context.Context, id string) error {
	return c.delete(ctx, c.imageURL(id), backend.ErrImageNotFound)
}

// Snapshots

func (c *Client) ContainerSnapshotExists(ctx context.Context, containerID, name string) (bool, error) {
	return c.exists(ctx, c.containerSnapshotURL(containerID, name))
}

func (c *Client) GetContainerSnapshot(ctx context.Context, containerID, name string) (*backend.Snapshot, error) {
	return get[*backend.Snapshot](ctx, c, c.containerSnapshotURL(containerID, name), backend.ErrSnapshotNotFound)
}

func (c *Client) ListContainerSnapshots(ctx context.Context, containerID string) ([]backend.Snapshot, error) {
	return get[[]backend.Snapshot](ctx, c, c.containerSnapshotsURL(containerID), backend.ErrContainerNotFound)
}

func (c *Client) ListSnapshots(ctx context.Context) ([]backend.Snapshot, error) {
	return get[[]backend.Snapshot](ctx, c, c.snapshotsURL(), nil)
}

type createSnapshotRequest struct {
	Name string `json:"name"`
}

func (c *Client) CreateContainerSnapshot(ctx context.Context, containerID, name string) (*backend.Snapshot, error) {
	resp, err := c.do(ctx, http.MethodPost, c.containerSnapshotsURL(containerID), createSnapshotRequest{Name: name})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := check(resp, http.StatusCreated, backend.ErrContainerNotFound); err != nil {
		return nil, err
	}
	return decode[*backend.Snapshot](resp)
}

func (c *Client) DeleteContainerSnapshot(ctx context.Context, containerID, name string) error {
	return c.delete(ctx, c.containerSnapshotURL(containerID, name), backend.ErrSnapshotNotFound)
}

// Health

type healthResponse struct {
	Backends map[string]struct {
		Status backend.HealthStatus `json:"status"`
	} `json:"backends"`
}

// RemoteHealth fetches the peer's health endpoint and returns the reported
// status of its container backend.
func (c *Client) RemoteHealth(ctx context.Context) (backend.HealthStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, c.healthURL(), nil)
	if err != nil {
		return backend.HealthError, err
	}
	defer resp.Body.Close()
	if err := check(resp, http.StatusOK, nil); err != nil {
		return backend.HealthError, err
	}
	health, err := decode[healthResponse](resp)
	if err != nil {
		return backend.HealthError, err
	}
	ct, ok := health.Backends["container"]
	if !ok {
		return backend.HealthError, fmt.Errorf("%w: health response missing container backend", backend.ErrBackend)
	}
	return ct.Status, nil
}

// Health folds any failure to reach or parse the peer into an error status.
func (c *Client) Health(ctx context.Context) backend.HealthStatus {
	status, err := c.RemoteHealth(ctx)
	if err != nil {
		return backend.HealthError
	}
	return status
}
