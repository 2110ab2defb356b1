package auth

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
)

// Role is the job an actor performs for a tenant
type Role string

// Roles known to the policy
const (
	RoleAdmin      Role = "admin"
	RoleCashier    Role = "cashier"
	RoleTechnician Role = "technician"
	RoleViewer     Role = "viewer"
)

// Permission is an action on a resource
type Permission string

// Permissions checked by the API
const (
	PermSubscriptionView   Permission = "subscription:view"
	PermSubscriptionCreate Permission = "subscription:create"
	PermSubscriptionCancel Permission = "subscription:cancel"
	PermCustomerManage     Permission = "customer:manage"
	PermInstallationAssign Permission = "installation:assign"
	PermReportView         Permission = "report:view"
)

// Decision is the outcome of a policy evaluation
type Decision struct {
	Allowed bool
	Reason  string
}

// Policy maps roles to the permissions they hold
type Policy struct {
	grants map[Role]map[Permission]struct{}
}

// NewPolicy builds a Policy from a role → permissions table
func NewPolicy(grants map[Role][]Permission) *Policy {
	p := &Policy{grants: make(map[Role]map[Permission]struct{}, len(grants))}
	for role, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		p.grants[role] = set
	}
	return p
}

// DefaultPolicy is the role table of an ISP office
func DefaultPolicy() *Policy {
	return NewPolicy(map[Role][]Permission{
		RoleAdmin: {
			PermSubscriptionView, PermSubscriptionCreate, PermSubscriptionCancel,
			PermCustomerManage, PermInstallationAssign, PermReportView,
		},
		RoleCashier: {
			PermSubscriptionView, PermSubscriptionCreate, PermCustomerManage,
		},
		RoleTechnician: {
			PermSubscriptionView, PermInstallationAssign,
		},
		RoleViewer: {
			PermSubscriptionView,
		},
	})
}

// Evaluate decides whether principal may use perm
func (p *Policy) Evaluate(principal Principal, perm Permission) Decision {
	if len(principal.TenantID) == 0 {
		return Decision{Reason: "token carries no tenant"}
	}
	if len(principal.ActorID) == 0 {
		return Decision{Reason: "token carries no actor"}
	}
	set, ok := p.grants[principal.Role]
	if !ok {
		return Decision{Reason: fmt.Sprintf("unknown role %q", principal.Role)}
	}
	if _, ok := set[perm]; !ok {
		return Decision{Reason: fmt.Sprintf("role %s lacks %s", principal.Role, perm)}
	}
	return Decision{Allowed: true, Reason: fmt.Sprintf("role %s grants %s", principal.Role, perm)}
}

// Rule binds a route pattern to the permission it requires. Patterns use
// chi syntax, so {name} matches any single path segment.
type Rule struct {
	Method     string
	Pattern    string
	Permission Permission
}

// Rules is the route table evaluated by Middleware
type Rules []Rule

// Matcher resolves a request to the permission of its rule. The rules are
// loaded into a chi routing tree, the same one the API mounts its handlers on.
type Matcher struct {
	mux   *chi.Mux
	perms map[string]Permission
}

// Compile builds a Matcher from the table. A pattern also matches with a
// trailing slash, as mounted sub-routers serve both forms.
func (rs Rules) Compile() *Matcher {
	m := &Matcher{
		mux:   chi.NewRouter(),
		perms: make(map[string]Permission, len(rs)*2),
	}
	for _, rule := range rs {
		patterns := []string{rule.Pattern}
		if rule.Pattern != "/" {
			patterns = append(patterns, rule.Pattern+"/")
		}
		for _, pattern := range patterns {
			m.mux.Method(rule.Method, pattern, http.NotFoundHandler())
			m.perms[rule.Method+" "+pattern] = rule.Permission
		}
	}
	return m
}

// Match returns the permission of the rule matching method and path
func (m *Matcher) Match(method, path string) (Permission, bool) {
	rctx := chi.NewRouteContext()
	if !m.mux.Match(rctx, method, path) {
		return "", false
	}
	perm, ok := m.perms[method+" "+rctx.RoutePattern()]
	return perm, ok
}
