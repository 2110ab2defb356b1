package installation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fiberline/ispbill/auth"
	resp "github.com/fiberline/ispbill/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// Store is what the router needs from the installation Manager
type Store interface {
	Create(ctx context.Context, inst *Installation) error
	GetByID(ctx context.Context, tenantID, id string) (*Installation, error)
	AssignPort(ctx context.Context, tenantID, id, napID string, port int) (*Installation, error)
}

// Options contains the configuration for Service router
type Options struct {
	InstallationManager Store
	Logger              *zap.Logger
}

// Service is the installation API router
type Service struct {
	Options
}

// CreateRequest is the model of a request to register an installation
type CreateRequest struct {
	CustomerID string `json:"customerId" validate:"required"`
	Address    string `json:"address" validate:"max=500"`
}

// AssignPortRequest patches an installation into a NAP port. Port 0 picks the lowest free port.
type AssignPortRequest struct {
	NAPID string `json:"napId" validate:"required"`
	Port  int    `json:"port" validate:"min=0"`
}

// NewService will create an instance of the installation API router
func NewService(option Options) (*Service, error) {
	if option.InstallationManager == nil {
		return nil, fmt.Errorf("nil InstallationManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		Options: option,
	}, nil
}

func (s *Service) createInstallation(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	inst := &Installation{
		TenantID:   principal.TenantID,
		CustomerID: req.CustomerID,
		Address:    req.Address,
	}
	if err := s.InstallationManager.Create(r.Context(), inst); err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	resp.WriteResponseWithStatus(w, r, http.StatusCreated, inst)
}

func (s *Service) getInstallation(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())

	inst, err := s.InstallationManager.GetByID(r.Context(), principal.TenantID, chi.URLParam(r, "id"))
	if err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}
	if inst == nil {
		resp.WriteError(w, r, resp.ErrNotFound())
		return
	}

	resp.WriteResponse(w, r, inst)
}

func (s *Service) assignPort(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())
	logger := s.Logger.With(
		zap.String("TenantID", principal.TenantID),
		zap.String("ActorID", principal.ActorID),
	)

	var req AssignPortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	inst, err := s.InstallationManager.AssignPort(r.Context(), principal.TenantID, chi.URLParam(r, "id"), req.NAPID, req.Port)
	if err != nil {
		e, known := resp.FromError(err)
		if !known {
			logger.Error("Unable to assign port",
				zap.Error(err),
			)
		}
		resp.WriteError(w, r, e)
		return
	}

	logger.Info("Installation port assigned",
		zap.String("InstallationID", inst.ID),
		zap.String("NAPID", req.NAPID),
		zap.Int("Port", *inst.Port),
	)
	resp.WriteResponse(w, r, inst)
}

// Router will return the routes under installation API. The returned router is
// open so that other packages can hang per-installation routes on it.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/", s.createInstallation)
	r.Get("/{id}", s.getInstallation)
	r.Put("/{id}/port", s.assignPort)

	return r
}
