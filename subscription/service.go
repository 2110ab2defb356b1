package subscription

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fiberline/ispbill/auth"
	"github.com/fiberline/ispbill/billing"
	resp "github.com/fiberline/ispbill/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Lifecycle *Lifecycle
	Logger    *zap.Logger
}

// Service is the subscription API router
type Service struct {
	ServiceOptions
}

// SubscribeRequest is the body of both preview and subscribe
type SubscribeRequest struct {
	InstallationID   string           `json:"installation_id" validate:"required"`
	PlanID           string           `json:"plan_id" validate:"required"`
	SubscriptionType billing.Type     `json:"subscription_type" validate:"required"`
	Amount           *decimal.Decimal `json:"amount"`
	StartDate        *time.Time       `json:"start_date"`
}

func (s SubscribeRequest) toRequest() Request {
	req := Request{
		InstallationID: s.InstallationID,
		PlanID:         s.PlanID,
		Type:           s.SubscriptionType,
		StartDate:      s.StartDate,
	}
	if s.Amount != nil {
		req.Amount = *s.Amount
	}
	return req
}

// NewService will create an instance of the subscription API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Lifecycle == nil {
		return nil, fmt.Errorf("nil Lifecycle is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// writeLifecycleError writes err through the response envelope, logging
// anything that is not a known domain error
func (s *Service) writeLifecycleError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	e, known := resp.FromError(err)
	if !known {
		logger.Error("Subscription operation failed",
			zap.Error(err),
		)
	}
	resp.WriteError(w, r, e)
}

func (s *Service) decode(w http.ResponseWriter, r *http.Request) (*SubscribeRequest, bool) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return nil, false
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return nil, false
	}
	return &req, true
}

func (s *Service) preview(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())
	logger := s.Logger.With(zap.String("TenantID", principal.TenantID))

	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	q, err := s.Lifecycle.Preview(r.Context(), principal.TenantID, req.toRequest())
	if err != nil {
		s.writeLifecycleError(w, r, logger, err)
		return
	}

	resp.WriteResponse(w, r, q)
}

func (s *Service) subscribe(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())
	logger := s.Logger.With(
		zap.String("TenantID", principal.TenantID),
		zap.String("ActorID", principal.ActorID),
	)

	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	sub, err := s.Lifecycle.Subscribe(r.Context(), principal.TenantID, principal.ActorID, req.toRequest())
	if err != nil {
		s.writeLifecycleError(w, r, logger, err)
		return
	}

	resp.WriteResponseWithStatus(w, r, http.StatusCreated, sub)
}

func (s *Service) getSubscription(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())
	logger := s.Logger.With(zap.String("TenantID", principal.TenantID))

	sub, err := s.Lifecycle.Get(r.Context(), principal.TenantID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeLifecycleError(w, r, logger, err)
		return
	}

	resp.WriteResponse(w, r, sub)
}

func (s *Service) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())
	logger := s.Logger.With(
		zap.String("TenantID", principal.TenantID),
		zap.String("ActorID", principal.ActorID),
	)

	sub, err := s.Lifecycle.Cancel(r.Context(), principal.TenantID, principal.ActorID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeLifecycleError(w, r, logger, err)
		return
	}

	resp.WriteResponse(w, r, sub)
}

func (s *Service) listByInstallation(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())
	logger := s.Logger.With(zap.String("TenantID", principal.TenantID))

	subs, err := s.Lifecycle.ListByInstallation(r.Context(), principal.TenantID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeLifecycleError(w, r, logger, err)
		return
	}

	resp.WriteResponse(w, r, subs)
}

func (s *Service) latestByInstallation(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())
	logger := s.Logger.With(zap.String("TenantID", principal.TenantID))

	sub, err := s.Lifecycle.Latest(r.Context(), principal.TenantID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeLifecycleError(w, r, logger, err)
		return
	}
	if sub == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("installation has no subscriptions"))
		return
	}

	resp.WriteResponse(w, r, sub)
}

// Router will return the routes under subscription API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/preview", s.preview)
	r.Post("/", s.subscribe)
	r.Get("/{id}", s.getSubscription)
	r.Post("/{id}/cancel", s.cancelSubscription)

	return r
}

// InstallationRoutes hangs the per-installation subscription routes on r,
// which is expected to be mounted at /installations
func (s *Service) InstallationRoutes(r chi.Router) {
	r.Get("/{id}/subscriptions", s.listByInstallation)
	r.Get("/{id}/subscriptions/latest", s.latestByInstallation)
}
