package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gatehouse-io/gatehouse/pkg/auth"
	"github.com/gatehouse-io/gatehouse/pkg/observability"
	"github.com/gatehouse-io/gatehouse/pkg/scope"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

// Decision reasons.
const (
	ReasonWhitelist       = "whitelist"
	ReasonSuperuser       = "superuser"
	ReasonPermission      = "permission"
	ReasonUnauthenticated = "unauthenticated"
	ReasonInactive        = "inactive"
	ReasonForbidden       = "forbidden"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string

	// ScopeExempt marks requests that skip data-scope filtering: whitelist
	// entries with enable_datasource off.
	ScopeExempt bool

	// User is loaded for authenticated decisions so downstream code does
	// not re-read it.
	User *store.User
}

// Gate evaluates the authorization chain for a request.
type Gate struct {
	whitelist *store.WhitelistStore
	users     *store.UserStore
	roles     *store.RoleStore
	menus     *store.MenuStore
	resolver  *scope.Resolver
	logger    *observability.Logger
	metrics   *observability.Metrics

	// Whitelist rows change rarely; a short TTL keeps the hot path off the
	// database.
	wlCache *expirable.LRU[string, []*store.WhitelistEntry]
}

// NewGate creates a Gate.
func NewGate(
	whitelist *store.WhitelistStore,
	users *store.UserStore,
	roles *store.RoleStore,
	menus *store.MenuStore,
	resolver *scope.Resolver,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Gate {
	return &Gate{
		whitelist: whitelist,
		users:     users,
		roles:     roles,
		menus:     menus,
		resolver:  resolver,
		logger:    logger,
		metrics:   metrics,
		wlCache:   expirable.NewLRU[string, []*store.WhitelistEntry](1, nil, 30*time.Second),
	}
}

// Authorize runs the chain: whitelist, authentication, superuser,
// permission codes. ident may be nil for anonymous requests.
func (g *Gate) Authorize(ctx context.Context, method, path string, ident *auth.Identity) (*Decision, error) {
	d, err := g.authorize(ctx, method, path, ident)
	if err != nil {
		return nil, err
	}
	if g.metrics != nil {
		outcome := "deny"
		if d.Allowed {
			outcome = "allow"
		}
		g.metrics.AuthzDecisionsTotal.WithLabelValues(outcome, d.Reason).Inc()
	}
	return d, nil
}

func (g *Gate) authorize(ctx context.Context, method, path string, ident *auth.Identity) (*Decision, error) {
	entries, err := g.whitelistEntries(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Method == method && matchPath(e.URL, path) {
			return &Decision{Allowed: true, Reason: ReasonWhitelist, ScopeExempt: !e.EnableDatasource}, nil
		}
	}

	if ident == nil {
		return &Decision{Allowed: false, Reason: ReasonUnauthenticated}, nil
	}

	user, err := g.users.Get(ctx, ident.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &Decision{Allowed: false, Reason: ReasonUnauthenticated}, nil
		}
		return nil, fmt.Errorf("loading user for authorization: %w", err)
	}
	if !user.IsActive {
		return &Decision{Allowed: false, Reason: ReasonInactive}, nil
	}
	if user.IsSuperuser {
		return &Decision{Allowed: true, Reason: ReasonSuperuser, User: user}, nil
	}

	buttons, err := g.grantedButtons(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, b := range buttons {
		if b.Method == method && b.API != "" && matchPath(b.API, path) {
			return &Decision{Allowed: true, Reason: ReasonPermission, User: user}, nil
		}
	}
	return &Decision{Allowed: false, Reason: ReasonForbidden, User: user}, nil
}

// ResolveScope computes the data scope for an allowed decision. Whitelisted
// anonymous requests and scope-exempt decisions return nil.
func (g *Gate) ResolveScope(ctx context.Context, d *Decision) (*scope.Spec, error) {
	if !d.Allowed || d.ScopeExempt || d.User == nil {
		return nil, nil
	}
	spec, err := g.resolver.Resolve(ctx, d.User)
	if err != nil {
		return nil, fmt.Errorf("resolving data scope: %w", err)
	}
	return spec, nil
}

func (g *Gate) whitelistEntries(ctx context.Context) ([]*store.WhitelistEntry, error) {
	if entries, ok := g.wlCache.Get("whitelist"); ok {
		if g.metrics != nil {
			g.metrics.CacheHitsTotal.WithLabelValues("whitelist").Inc()
		}
		return entries, nil
	}
	if g.metrics != nil {
		g.metrics.CacheMissesTotal.WithLabelValues("whitelist").Inc()
	}
	entries, err := g.whitelist.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading whitelist: %w", err)
	}
	g.wlCache.Add("whitelist", entries)
	return entries, nil
}

// InvalidateWhitelist drops the cached whitelist after an administrative
// edit.
func (g *Gate) InvalidateWhitelist() {
	g.wlCache.Remove("whitelist")
}

func (g *Gate) grantedButtons(ctx context.Context, userID int64) ([]*store.MenuButton, error) {
	roles, err := g.roles.ForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading roles for authorization: %w", err)
	}
	idSet := make(map[int64]bool)
	for _, role := range roles {
		for _, id := range role.PermissionIDs {
			idSet[id] = true
		}
	}
	if len(idSet) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	buttons, err := g.menus.ButtonsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading granted buttons: %w", err)
	}
	return buttons, nil
}
