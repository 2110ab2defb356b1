package report

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fiberline/ispbill/auth"
	resp "github.com/fiberline/ispbill/response"

	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Reporter computes revenue. *Manager satisfies it.
type Reporter interface {
	Revenue(ctx context.Context, tenantID string, from, to time.Time) (*Revenue, error)
}

// Options contains the configuration for Service router
type Options struct {
	Reporter Reporter
	Logger   *zap.Logger
	Now      func() time.Time
}

// Service is the report API router
type Service struct {
	Options
}

// NewService will create an instance of the report API router
func NewService(option Options) (*Service, error) {
	if option.Reporter == nil {
		return nil, fmt.Errorf("nil Reporter is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Now == nil {
		option.Now = time.Now
	}
	return &Service{
		Options: option,
	}, nil
}

// parsePeriod reads from/to as dates or RFC3339 timestamps. It defaults to
// the current month up to now.
func parsePeriod(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := now
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = parseTime(v); err != nil {
			return from, to, fmt.Errorf("invalid from: %q", v)
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = parseTime(v); err != nil {
			return from, to, fmt.Errorf("invalid to: %q", v)
		}
	}
	if !from.Before(to) {
		return from, to, fmt.Errorf("from must be before to")
	}
	return from, to, nil
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func (s *Service) revenue(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipal(r.Context())
	logger := s.Logger.With(zap.String("TenantID", principal.TenantID))

	from, to, err := parsePeriod(r, s.Now())
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	rev, err := s.Reporter.Revenue(r.Context(), principal.TenantID, from, to)
	if err != nil {
		logger.Error("Unable to compute revenue report",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		resp.WriteResponse(w, r, rev)
	case "xlsx":
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=revenue-%s-%s.xlsx",
			from.Format(dateLayout), to.Format(dateLayout)))
		if err := WriteXLSX(w, rev); err != nil {
			logger.Error("Unable to write revenue workbook",
				zap.Error(err),
			)
		}
	default:
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("format must be json or xlsx"))
	}
}

// Router will return the routes under report API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/revenue", s.revenue)

	return r
}
