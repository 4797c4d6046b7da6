package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/stevedore-sh/stevedore/cmd/api/config"
	"github.com/stevedore-sh/stevedore/lib/backend"
)

// ApiService exposes a container backend, and optionally an identity store,
// over HTTP. The routes are the same surface httpremote.Client consumes, so
// any node can proxy another.
type ApiService struct {
	Config  *config.Config
	Backend backend.Backend
	Users   backend.UserBackend
	Groups  backend.GroupBackend
}

// New creates a new ApiService. Users and Groups may be nil; identity routes
// are only mounted when they are present.
func New(
	config *config.Config,
	containerBackend backend.Backend,
	users backend.UserBackend,
	groups backend.GroupBackend,
) *ApiService {
	return &ApiService{
		Config:  config,
		Backend: containerBackend,
		Users:   users,
		Groups:  groups,
	}
}

// Routes mounts all handlers on r.
func (s *ApiService) Routes(r chi.Router) {
	r.Get("/health", s.GetHealth)

	r.Route("/containers", func(r chi.Router) {
		r.Get("/", s.ListContainers)
		r.Post("/", s.CreateContainer)

		// Static collections must be registered before the {container}
		// subtree so "images" and "snapshots" never match as an ID.
		r.Route("/images", func(r chi.Router) {
			r.Get("/", s.ListImages)
			r.Post("/", s.CreateImage)
			r.Get("/{image}", s.GetImage)
			r.Delete("/{image}", s.DeleteImage)
		})
		r.Get("/snapshots", s.ListSnapshots)

		r.Route("/{container}", func(r chi.Router) {
			r.Get("/", s.GetContainer)
			r.Delete("/", s.DeleteContainer)
			r.Post("/start", s.StartContainer)
			r.Post("/stop", s.StopContainer)
			r.Post("/restart", s.RestartContainer)
			r.Post("/suspend", s.SuspendContainer)
			r.Post("/resume", s.ResumeContainer)
			r.Post("/exec", s.ExecInContainer)
			r.Get("/logs", s.ContainerLogs)

			r.Route("/snapshots", func(r chi.Router) {
				r.Get("/", s.ListContainerSnapshots)
				r.Post("/", s.CreateContainerSnapshot)
				r.Get("/{snapshot}", s.GetContainerSnapshot)
				r.Delete("/{snapshot}", s.DeleteContainerSnapshot)
			})
		})
	})

	if s.Users != nil {
		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.ListUsers)
			r.Post("/", s.CreateUser)
			r.Get("/{username}", s.GetUser)
			r.Delete("/{username}", s.DeleteUser)
			r.Post("/{username}/password", s.SetUserPassword)
			r.Post("/{username}/authenticate", s.AuthenticateUser)
		})
	}
	if s.Groups != nil {
		r.Route("/groups", func(r chi.Router) {
			r.Get("/", s.ListGroups)
			r.Post("/", s.CreateGroup)
			r.Get("/{group}", s.GetGroup)
			r.Delete("/{group}", s.DeleteGroup)
			r.Post("/{group}/members", s.AddGroupMember)
			r.Get("/{group}/members/{username}", s.IsGroupMember)
			r.Delete("/{group}/members/{username}", s.RemoveGroupMember)
		})
	}
}
