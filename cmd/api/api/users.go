package api

import (
	"net/http"

	"github.com/stevedore-sh/stevedore/lib/backend"
	"github.com/stevedore-sh/stevedore/lib/logger"
)

func (s *ApiService) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Users.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []backend.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	backend.User
	Password string `json:"password"`
}

func (s *ApiService) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Users.CreateUser(r.Context(), req.User, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("user created", "username", req.Username, "uid", req.UID)
	writeJSON(w, http.StatusCreated, req.User)
}

func (s *ApiService) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.Users.GetUser(r.Context(), pathParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *ApiService) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := pathParam(r, "username")
	if err := s.Users.DeleteUser(r.Context(), username); err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("user deleted", "username", username)
	w.WriteHeader(http.StatusNoContent)
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (s *ApiService) SetUserPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Users.SetUserPassword(r.Context(), pathParam(r, "username"), req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ApiService) AuthenticateUser(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Users.AuthenticateUser(r.Context(), pathParam(r, "username"), req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
