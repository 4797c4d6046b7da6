package api

import (
	"net/http"

	"github.com/stevedore-sh/stevedore/lib/backend"
	"github.com/stevedore-sh/stevedore/lib/logger"
)

func (s *ApiService) ListContainers(w http.ResponseWriter, r *http.Request) {
	containers, err := s.Backend.ListContainers(r.Context(), false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if containers == nil {
		containers = []backend.Container{}
	}
	writeJSON(w, http.StatusOK, containers)
}

func (s *ApiService) CreateContainer(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateContainerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.Backend.CreateContainer(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("container created",
		"container", result.Container.ID, "owner", req.Username, "clone_of", req.CloneOf)
	writeJSON(w, http.StatusCreated, result)
}

func (s *ApiService) GetContainer(w http.ResponseWriter, r *http.Request) {
	container, err := s.Backend.GetContainer(r.Context(), pathParam(r, "container"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, container)
}

func (s *ApiService) DeleteContainer(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "container")
	if err := s.Backend.DeleteContainer(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("container deleted", "container", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *ApiService) StartContainer(w http.ResponseWriter, r *http.Request) {
	if err := s.Backend.StartContainer(r.Context(), pathParam(r, "container")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type forceRequest struct {
	Force bool `json:"force"`
}

// decodeForce tolerates an empty body; force defaults to false.
func decodeForce(w http.ResponseWriter, r *http.Request) (bool, bool) {
	if r.Body == nil || r.ContentLength == 0 {
		return false, true
	}
	var req forceRequest
	if !decodeBody(w, r, &req) {
		return false, false
	}
	return req.Force, true
}

func (s *ApiService) StopContainer(w http.ResponseWriter, r *http.Request) {
	force, ok := decodeForce(w, r)
	if !ok {
		return
	}
	if err := s.Backend.StopContainer(r.Context(), pathParam(r, "container"), force); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ApiService) RestartContainer(w http.ResponseWriter, r *http.Request) {
	force, ok := decodeForce(w, r)
	if !ok {
		return
	}
	if err := s.Backend.RestartContainer(r.Context(), pathParam(r, "container"), force); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ApiService) SuspendContainer(w http.ResponseWriter, r *http.Request) {
	if err := s.Backend.SuspendContainer(r.Context(), pathParam(r, "container")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ApiService) ResumeContainer(w http.ResponseWriter, r *http.Request) {
	if err := s.Backend.ResumeContainer(r.Context(), pathParam(r, "container")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type execRequest struct {
	Command []string `json:"command"`
}

type execResponse struct {
	Output string `json:"output"`
}

func (s *ApiService) ExecInContainer(w http.ResponseWriter, r *http.Request) {
	var req execRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.Backend.ExecInContainer(r.Context(), pathParam(r, "container"), req.Command)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, execResponse{Output: string(out)})
}

func (s *ApiService) ContainerLogs(w http.ResponseWriter, r *http.Request) {
	timestamps := r.URL.Query().Get("timestamps") == "true"
	lines, err := s.Backend.ContainerLogs(r.Context(), pathParam(r, "container"), timestamps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, lines)
}
