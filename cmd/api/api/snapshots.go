package api

import (
	"net/http"

	"github.com/stevedore-sh/stevedore/lib/backend"
	"github.com/stevedore-sh/stevedore/lib/logger"
)

func (s *ApiService) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.Backend.ListSnapshots(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if snapshots == nil {
		snapshots = []backend.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *ApiService) ListContainerSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.Backend.ListContainerSnapshots(r.Context(), pathParam(r, "container"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if snapshots == nil {
		snapshots = []backend.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

type createSnapshotRequest struct {
	Name string `json:"name"`
}

func (s *ApiService) CreateContainerSnapshot(w http.ResponseWriter, r *http.Request) {
	var req createSnapshotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	containerID := pathParam(r, "container")
	snapshot, err := s.Backend.CreateContainerSnapshot(r.Context(), containerID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("snapshot created", "snapshot", snapshot.ID, "container", containerID)
	writeJSON(w, http.StatusCreated, snapshot)
}

func (s *ApiService) GetContainerSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.Backend.GetContainerSnapshot(r.Context(), pathParam(r, "container"), pathParam(r, "snapshot"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *ApiService) DeleteContainerSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.Backend.DeleteContainerSnapshot(r.Context(), pathParam(r, "container"), pathParam(r, "snapshot")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
