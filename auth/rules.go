package auth

import "net/http"

// DefaultRules is the access table of the billing API
var DefaultRules = Rules{
	{Method: http.MethodGet, Pattern: "/plans", Permission: PermSubscriptionView},

	{Method: http.MethodPost, Pattern: "/customers", Permission: PermCustomerManage},
	{Method: http.MethodGet, Pattern: "/customers/{id}", Permission: PermSubscriptionView},

	{Method: http.MethodPost, Pattern: "/subscriptions/preview", Permission: PermSubscriptionView},
	{Method: http.MethodPost, Pattern: "/subscriptions", Permission: PermSubscriptionCreate},
	{Method: http.MethodGet, Pattern: "/subscriptions/{id}", Permission: PermSubscriptionView},
	{Method: http.MethodPost, Pattern: "/subscriptions/{id}/cancel", Permission: PermSubscriptionCancel},

	{Method: http.MethodPost, Pattern: "/installations", Permission: PermCustomerManage},
	{Method: http.MethodGet, Pattern: "/installations/{id}", Permission: PermSubscriptionView},
	{Method: http.MethodGet, Pattern: "/installations/{id}/subscriptions", Permission: PermSubscriptionView},
	{Method: http.MethodGet, Pattern: "/installations/{id}/subscriptions/latest", Permission: PermSubscriptionView},
	{Method: http.MethodPut, Pattern: "/installations/{id}/port", Permission: PermInstallationAssign},

	{Method: http.MethodPost, Pattern: "/network/lcps", Permission: PermInstallationAssign},
	{Method: http.MethodPost, Pattern: "/network/splitters", Permission: PermInstallationAssign},
	{Method: http.MethodPost, Pattern: "/network/naps", Permission: PermInstallationAssign},
	{Method: http.MethodGet, Pattern: "/network/naps/{id}", Permission: PermSubscriptionView},

	{Method: http.MethodGet, Pattern: "/reports/revenue", Permission: PermReportView},
}
