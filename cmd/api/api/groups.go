package api

import (
	"net/http"

	"github.com/stevedore-sh/stevedore/lib/backend"
	"github.com/stevedore-sh/stevedore/lib/logger"
)

func (s *ApiService) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.Groups.ListGroups(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if groups == nil {
		groups = []backend.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *ApiService) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var group backend.Group
	if !decodeBody(w, r, &group) {
		return
	}
	if err := s.Groups.CreateGroup(r.Context(), group); err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("group created", "group", group.Name, "gid", group.GID)
	writeJSON(w, http.StatusCreated, group)
}

func (s *ApiService) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.Groups.GetGroup(r.Context(), pathParam(r, "group"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *ApiService) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.Groups.DeleteGroup(r.Context(), pathParam(r, "group")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type memberRequest struct {
	Username string `json:"username"`
}

type memberResponse struct {
	Member bool `json:"member"`
}

func (s *ApiService) IsGroupMember(w http.ResponseWriter, r *http.Request) {
	member, err := s.Groups.IsGroupMember(r.Context(), pathParam(r, "group"), pathParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{Member: member})
}

func (s *ApiService) AddGroupMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Groups.AddGroupMember(r.Context(), pathParam(r, "group"), req.Username); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ApiService) RemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	if err := s.Groups.RemoveGroupMember(r.Context(), pathParam(r, "group"), pathParam(r, "username")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
