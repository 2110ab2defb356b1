package network

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

// Store is what the router needs from Manager
type Store interface {
	Create(ctx context.Context, record interface{}) error
	GetNAP(ctx context.Context, tenantID, id string) (*NAP, error)
	OccupiedPorts(ctx context.Context, tenantID, napID string) ([]int, error)
}

// Options contains the configuration for Service router
type Options struct {
	NetworkManager Store
	Logger         *zap.Logger
}

// Service is the network API router
type Service struct {
	Options
}

type createLCPRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location"`
}

type createSplitterRequest struct {
	LCPID string `json:"lcpId" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Ratio string `json:"ratio"`
}

type createNAPRequest struct {
	SplitterID string `json:"splitterId" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Capacity   int    `json:"capacity" validate:"required,min=1,max=64"`
}

// NAPStatus is a NAP with its port usage
type NAPStatus struct {
	NAP      NAP   `json:"nap"`
	Occupied []int `json:"occupied"`
	NextFree int   `json:"nextFree,omitempty"`
}

// NewService will create an instance of the network API router
func NewService(option Options) (*Service, error) {
	if option.NetworkManager == nil {
		return nil, fmt.Errorf("nil NetworkManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		Options: option,
	}, nil
}

func decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return false
	}
	if err := validate.Struct(req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return false
	}
	return true
}

func (s *Service) create(w http.ResponseWriter, r *http.Request, record interface{}) {
	if err := s.NetworkManager.Create(r.Context(), record); err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}
	resp.WriteResponseWithStatus(w, r, http.StatusCreated, record)
}

func (s *Service) createLCP(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())
	var req createLCPRequest
	if !decode(w, r, &req) {
		return
	}
	s.create(w, r, &LCP{TenantID: principal.TenantID, Name: req.Name, Location: req.Location})
}

func (s *Service) createSplitter(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())
	var req createSplitterRequest
	if !decode(w, r, &req) {
		return
	}
	s.create(w, r, &Splitter{TenantID: principal.TenantID, LCPID: req.LCPID, Name: req.Name, Ratio: req.Ratio})
}

func (s *Service) createNAP(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())
	var req createNAPRequest
	if !decode(w, r, &req) {
		return
	}
	s.create(w, r, &NAP{TenantID: principal.TenantID, SplitterID: req.SplitterID, Name: req.Name, Capacity: req.Capacity})
}

func (s *Service) getNAP(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())

	nap, err := s.NetworkManager.GetNAP(r.Context(), principal.TenantID, chi.URLParam(r, "id"))
	if err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}
	if nap == nil {
		resp.WriteError(w, r, resp.ErrNotFound())
		return
	}

	occupied, err := s.NetworkManager.OccupiedPorts(r.Context(), principal.TenantID, nap.ID)
	if err != nil {
		s.Logger.Error("Unable to list occupied ports",
			zap.String("NAPID", nap.ID),
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	status := NAPStatus{NAP: *nap, Occupied: occupied}
	if next, err := NextFreePort(*nap, occupied); err == nil {
		status.NextFree = next
	}
	resp.WriteResponse(w, r, status)
}

// Router will return the routes under network API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/lcps", s.createLCP)
	r.Post("/splitters", s.createSplitter)
	r.Post("/naps", s.createNAP)
	r.Get("/naps/{id}", s.getNAP)

	return r
}
