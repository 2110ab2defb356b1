package customer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fiberline/ispbill/auth"
	resp "github.com/fiberline/ispbill/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// Options contains the configuration for Service router
type Options struct {
	CustomerManager *Manager
	Logger          *zap.Logger
}

// Service is the customer API router
type Service struct {
	Options
}

// CreateRequest is the model of a request to register a customer
type CreateRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// NewService will create an instance of the customer API router
func NewService(option Options) (*Service, error) {
	if option.CustomerManager == nil {
		return nil, fmt.Errorf("nil CustomerManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		Options: option,
	}, nil
}

func (s *Service) createCustomer(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())
	logger := s.Logger.With(zap.String("TenantID", principal.TenantID))

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	cust, err := s.CustomerManager.NewCustomer(r.Context(), principal.TenantID, strings.TrimSpace(req.Name), req.Email, req.Phone)
	if err != nil {
		logger.Error("Unable to create Customer",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	resp.WriteResponseWithStatus(w, r, http.StatusCreated, cust)
}

func (s *Service) getCustomer(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())

	cust, err := s.CustomerManager.GetByID(r.Context(), principal.TenantID, chi.URLParam(r, "id"))
	if err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}
	if cust == nil {
		resp.WriteError(w, r, resp.ErrNotFound())
		return
	}

	resp.WriteResponse(w, r, cust)
}

// Router will return the routes under customer API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/", s.createCustomer)
	r.Get("/{id}", s.getCustomer)

	return r
}
