package api

import (
	"net/http"

	"github.com/stevedore-sh/stevedore/lib/backend"
)

type backendHealth struct {
	Status backend.HealthStatus `json:"status"`
}

type healthResponse struct {
	Status   backend.HealthStatus     `json:"status"`
	Backends map[string]backendHealth `json:"backends"`
}

// GetHealth reports the status of every configured backend. The overall
// status is an error as soon as any backend reports one.
func (s *ApiService) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   backend.HealthOK,
		Backends: map[string]backendHealth{},
	}

	resp.Backends["container"] = backendHealth{Status: s.Backend.Health(r.Context())}
	if reporter, ok := s.Users.(backend.HealthReporter); ok && s.Users != nil {
		resp.Backends["directory"] = backendHealth{Status: reporter.Health(r.Context())}
	}

	for _, health := range resp.Backends {
		if health.Status != backend.HealthOK {
			resp.Status = backend.HealthError
			break
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
