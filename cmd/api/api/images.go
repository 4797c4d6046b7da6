package api

import (
	"net/http"

	"github.com/stevedore-sh/stevedore/lib/backend"
	"github.com/stevedore-sh/stevedore/lib/logger"
)

func (s *ApiService) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.Backend.ListImages(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if images == nil {
		images = []backend.Image{}
	}
	writeJSON(w, http.StatusOK, images)
}

type createImageRequest struct {
	Container string `json:"container"`
	Name      string `json:"name"`
}

func (s *ApiService) CreateImage(w http.ResponseWriter, r *http.Request) {
	var req createImageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	image, err := s.Backend.CreateImage(r.Context(), req.Container, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("image created", "image", image.ID, "container", req.Container)
	writeJSON(w, http.StatusCreated, image)
}

func (s *ApiService) GetImage(w http.ResponseWriter, r *http.Request) {
	image, err := s.Backend.GetImage(r.Context(), pathParam(r, "image"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, image)
}

func (s *ApiService) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "image")
	if err := s.Backend.DeleteImage(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("image deleted", "image", id)
	w.WriteHeader(http.StatusNoContent)
}
