package plan

import (
	"fmt"
	"net/http"

	"github.com/fiberline/ispbill/auth"
	resp "github.com/fiberline/ispbill/response"

	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

// Options contains the configuration for Service router
type Options struct {
	PlanManager *Manager
	Logger      *zap.Logger
}

// Service is the plan catalog API router
type Service struct {
	Options
}

// NewService will create an instance of the plan API router
func NewService(option Options) (*Service, error) {
	if option.PlanManager == nil {
		return nil, fmt.Errorf("nil PlanManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		Options: option,
	}, nil
}

func (s *Service) listPlans(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())

	// inactive plans are hidden unless asked for, they can no longer be sold
	activeOnly := r.URL.Query().Get("all") != "true"
	plans, err := s.PlanManager.List(r.Context(), principal.TenantID, activeOnly)
	if err != nil {
		s.Logger.Error("Unable to list plans",
			zap.String("TenantID", principal.TenantID),
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	resp.WriteResponse(w, r, plans)
}

// Router will return the routes under plan API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listPlans)

	return r
}
