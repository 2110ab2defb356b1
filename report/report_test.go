package report

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fiberline/ispbill/auth"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type fakeReporter struct {
	tenantID string
	from, to time.Time
	rows     []Row
}

func (f *fakeReporter) Revenue(ctx context.Context, tenantID string, from, to time.Time) (*Revenue, error) {
	f.tenantID, f.from, f.to = tenantID, from, to
	return newRevenue(tenantID, from, to, f.rows), nil
}

func sampleRows() []Row {
	return []Row{
		{PlanID: "p1", PlanName: "Fiber 100", Subscriptions: 3, AmountCharged: decimal.RequireFromString("2500"), DaysAdded: decimal.RequireFromString("75")},
		{PlanID: "p2", PlanName: "Fiber 50", Subscriptions: 2, AmountCharged: decimal.RequireFromString("450.50"), DaysAdded: decimal.RequireFromString("33.75")},
	}
}

func TestNewRevenueTotals(t *testing.T) {
	rev := newRevenue("t1", now.Add(-time.Hour), now, sampleRows())
	assert.Equal(t, int64(5), rev.Subscriptions)
	assert.True(t, rev.Total.Equal(decimal.RequireFromString("2950.5")))

	empty := newRevenue("t1", now.Add(-time.Hour), now, nil)
	assert.True(t, empty.Total.IsZero())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	rev := newRevenue("t1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), now, sampleRows())
	require.NoError(t, WriteXLSX(&buf, rev))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"Revenue", "2024-03-01", "2024-03-15"}, rows[0])
	assert.Equal(t, "Plan", rows[2][0])
	assert.Equal(t, "Fiber 100", rows[3][0])
	assert.Equal(t, "2500", rows[3][2])
	assert.Equal(t, "Total", rows[5][0])
	assert.Equal(t, "5", rows[5][1])
}

func request(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{TenantID: "t1", ActorID: "a1", Role: auth.RoleAdmin}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRevenueHandler(t *testing.T) {
	reporter := &fakeReporter{rows: sampleRows()}
	svc, err := NewService(Options{Reporter: reporter, Logger: zap.NewNop(), Now: func() time.Time { return now }})
	require.NoError(t, err)
	h := svc.Router()

	rec := request(t, h, "/revenue")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", reporter.tenantID)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), reporter.from)
	assert.Equal(t, now, reporter.to)

	var body struct {
		Result Revenue `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Result.Rows, 2)
	assert.True(t, body.Result.Total.Equal(decimal.RequireFromString("2950.5")))

	rec = request(t, h, "/revenue?from=2024-01-01&to=2024-02-01&format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), reporter.to)
	assert.NotZero(t, rec.Body.Len())

	rec = request(t, h, "/revenue?from=2024-02-01&to=2024-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, h, "/revenue?from=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, h, "/revenue?format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
