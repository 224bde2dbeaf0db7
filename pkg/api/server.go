package api

import (
	"database/sql"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/gatehouse-io/gatehouse/pkg/audit"
	"github.com/gatehouse-io/gatehouse/pkg/auth"
	"github.com/gatehouse-io/gatehouse/pkg/config"
	"github.com/gatehouse-io/gatehouse/pkg/files"
	"github.com/gatehouse-io/gatehouse/pkg/gate"
	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/menu"
	"github.com/gatehouse-io/gatehouse/pkg/observability"
	"github.com/gatehouse-io/gatehouse/pkg/orgquery"
	"github.com/gatehouse-io/gatehouse/pkg/orgtree"
	"github.com/gatehouse-io/gatehouse/pkg/scope"
	"github.com/gatehouse-io/gatehouse/pkg/settings"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

// Server owns the router, the stores and the domain services behind the
// administrative API.
type Server struct {
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger
	metrics *observability.Metrics
	cfg     *config.Config

	depts     *store.DepartmentStore
	users     *store.UserStore
	roles     *store.RoleStore
	menus     *store.MenuStore
	whitelist *store.WhitelistStore
	dicts     *store.DictionaryStore
	configs   *store.SystemConfigStore
	fileStore *store.FileStore
	loginLogs *store.LoginLogStore
	opLogs    *store.OperationLogStore

	trees    *orgtree.Loader
	gate     *gate.Gate
	menuSvc  *menu.Service
	settings *settings.Cache
	storage  *files.Storage
	resolver *orgquery.Resolver
	recorder *audit.Recorder
	purger   *audit.Purger
	tokens   *auth.TokenManager
}

// NewServer builds the full handler stack on top of db. redisClient may be
// nil; the settings cache then runs on its in-process tier alone.
func NewServer(
	db *sql.DB,
	cfg *config.Config,
	redisClient *redis.Client,
	logger *observability.Logger,
	metrics *observability.Metrics,
) (*Server, error) {
	s := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,

		depts:     store.NewDepartmentStore(db),
		users:     store.NewUserStore(db),
		roles:     store.NewRoleStore(db),
		menus:     store.NewMenuStore(db),
		whitelist: store.NewWhitelistStore(db),
		dicts:     store.NewDictionaryStore(db),
		configs:   store.NewSystemConfigStore(db),
		fileStore: store.NewFileStore(db),
		loginLogs: store.NewLoginLogStore(db),
		opLogs:    store.NewOperationLogStore(db),
	}

	s.trees = orgtree.NewLoader(s.depts, logger, metrics)
	scopeResolver := scope.NewResolver(s.roles, s.trees, logger, metrics)
	s.gate = gate.NewGate(s.whitelist, s.users, s.roles, s.menus, scopeResolver, logger, metrics)
	s.menuSvc = menu.NewService(s.menus, s.roles, logger, metrics)
	s.resolver = orgquery.NewResolver(s.users, s.trees, logger)
	s.recorder = audit.NewRecorder(s.loginLogs, s.opLogs, logger, metrics)
	s.tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	cache, err := settings.NewCache(s.dicts, s.configs, redisClient, logger, metrics)
	if err != nil {
		return nil, err
	}
	s.settings = cache

	storage, err := files.NewStorage(cfg.Files.Root, s.fileStore, logger)
	if err != nil {
		return nil, err
	}
	s.storage = storage

	purger, err := audit.NewPurger(s.loginLogs, s.opLogs, cfg.Audit.RetentionDays, logger)
	if err != nil {
		return nil, err
	}
	s.purger = purger

	s.setupRoutes()
	s.handler = s.buildMiddleware()
	return s, nil
}

func (s *Server) setupRoutes() {
	authHandler := auth.NewHandler(s.users, s.tokens, s.recorder, s.logger)
	s.route("/api/login/", authHandler.Login, http.MethodPost)
	s.route("/api/logout/", authHandler.Logout, http.MethodPost)
	s.route("/api/token/refresh/", authHandler.Refresh, http.MethodPost)

	newDepartmentHandlers(s).RegisterRoutes(s)
	newUserHandlers(s).RegisterRoutes(s)
	newRoleHandlers(s).RegisterRoutes(s)
	newMenuHandlers(s).RegisterRoutes(s)
	newSettingsHandlers(s).RegisterRoutes(s)
	newWhitelistHandlers(s).RegisterRoutes(s)
	newFileHandlers(s).RegisterRoutes(s)
	newAuditHandlers(s).RegisterRoutes(s)
	newOrgHandlers(s).RegisterRoutes(s)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "not found")
	})
}

// route registers a handler and instruments it with the route template so
// metric cardinality stays bounded.
func (s *Server) route(path string, handler http.HandlerFunc, methods ...string) {
	var h http.Handler = handler
	if s.metrics != nil {
		h = s.metrics.InstrumentHandler(path, h)
	}
	s.router.Handle(path, h).Methods(methods...)
}

func (s *Server) buildMiddleware() http.Handler {
	authMW := auth.NewMiddleware(s.tokens, nil)
	auditMW := audit.NewMiddleware(s.recorder, s.users)
	return httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		httputil.MaxBytesMiddleware(s.cfg.Server.MaxBodyBytes),
		authMW.Handler,
		auditMW.Handler,
		s.gate.Middleware,
	)(s.router)
}

// ServeHTTP implements http.Handler through the middleware chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Settings exposes the settings cache for startup warm-up.
func (s *Server) Settings() *settings.Cache { return s.settings }

// Purger exposes the audit retention purger for scheduling.
func (s *Server) Purger() *audit.Purger { return s.purger }

// Users exposes the user store for startup seeding.
func (s *Server) Users() *store.UserStore { return s.users }
