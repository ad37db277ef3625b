package bootstrap

import (
	"database/sql"
	"io"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/avisitor/idp-client/config"
	"github.com/avisitor/idp-client/internal/adapters/authroles"
	"github.com/avisitor/idp-client/internal/adapters/devauth"
	"github.com/avisitor/idp-client/internal/adapters/idp"
	"github.com/avisitor/idp-client/internal/adapters/memory"
	"github.com/avisitor/idp-client/internal/adapters/oidc"
	redisadapter "github.com/avisitor/idp-client/internal/adapters/redis"
	"github.com/avisitor/idp-client/internal/data"
	apperrors "github.com/avisitor/idp-client/internal/errors"
	httpx "github.com/avisitor/idp-client/internal/http"
	"github.com/avisitor/idp-client/internal/ports"
	"github.com/avisitor/idp-client/internal/service"
)

// stateLength is the size of generated OAuth state values.
const stateLength = 32

// AuthDeps contains the infrastructure BuildAuth wires together.
type AuthDeps struct {
	Config *config.AppConfig // Required
	// DB backs the local user store when AUTH_USER_SOURCE=postgres.
	DB *sql.DB
	// Redis backs sessions when SESSION_STORE=redis.
	Redis redis.UniversalClient
	// App replaces the example host pages mounted at "/".
	App http.Handler
	// Hooks replaces service.DefaultLoginHooks.
	Hooks ports.LoginHooks
	// HTTPClient is used for IDP and JWKS calls.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Auth is the wired auth stack.
type Auth struct {
	Factory  *service.AuthProviderFactory
	IDP      *idp.Client
	Tokens   *service.TokenManager
	Target   service.TokenTarget
	Sessions *httpx.SessionManager
	Handlers *httpx.AuthHandlers
	Router   http.Handler

	store ports.SessionStore
}

// Close releases background work owned by the session store, such as the
// in-memory expiry sweeper.
func (a *Auth) Close() error {
	if c, ok := a.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// UserStore is what both local user sources provide.
type UserStore interface {
	ports.LocalUserStore
	ports.UserDirectory
}

// BuildAuth wires the IDP client, provider factory, session store, token
// manager and HTTP handlers from cfg. Only configuration problems are errors.
func BuildAuth(deps AuthDeps) (*Auth, error) {
	if deps.Config == nil {
		return nil, apperrors.Configurationf("configuration is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := NewIDPClient(cfg.IDP, deps.HTTPClient, logger)

	urls := service.AppURLs{BaseURL: cfg.App.BaseURL, AuthPath: cfg.App.AuthPath}
	factory := service.NewAuthProviderFactory(service.FactoryOptions{
		Config: service.FactoryConfig{
			UseExternalAuth: cfg.Auth.UseExternalAuth,
			IDPURL:          cfg.IDP.URL,
			AppID:           cfg.IDP.AppID,
			URLs:            urls,
		},
		Pages:  idp.NewPages(cfg.IDP.URL, cfg.IDP.AppID),
		Logger: logger,
	})

	users, err := NewUserStore(cfg.Auth, deps.DB)
	if err != nil {
		return nil, err
	}
	factory.SetLocalUserStore(users)

	store, err := buildSessionStore(cfg.Session, deps.Redis)
	if err != nil {
		return nil, err
	}
	sessions := httpx.NewSessionManager(httpx.SessionManagerOptions{
		Sessions: service.NewSessionService(service.SessionServiceOptions{Store: store, TTL: cfg.Session.TTL}),
		Cookie:   httpx.CookieOptions{Name: cfg.Session.CookieName, Domain: cfg.HTTP.CookieDomain},
		Logger:   logger,
	})

	tokens := service.NewTokenManager(service.TokenManagerOptions{
		Enhancer: client,
		Policy: service.TokenPolicy{
			UsableBuffer:       cfg.Auth.UsableBuffer,
			MaxRefreshAttempts: cfg.Auth.MaxRefreshAttempts,
		},
		Logger: logger,
	})
	target := service.TokenTarget{
		AppID:     cfg.IDP.AppID,
		IDPURL:    cfg.IDP.URL,
		Directory: users,
		Roles:     authroles.NewLevelRoleMapper(cfg.Auth.RoleLevels),
	}

	hooks := deps.Hooks
	if hooks == nil {
		hooks = service.DefaultLoginHooks{Logger: logger}
	}

	handlers := &httpx.AuthHandlers{
		Providers: factory,
		Sessions:  sessions,
		Routes: httpx.AuthRoutes{
			URLs:            urls,
			DefaultRedirect: cfg.App.DefaultRedirect,
			LogoutRedirect:  cfg.App.LogoutRedirect,
			SupportEmail:    cfg.App.SupportEmail,
		},
		IDP:           client,
		Hooks:         hooks,
		Tokens:        tokens,
		TokenTarget:   target,
		RefreshBuffer: cfg.Auth.RefreshBuffer,
		NewState:      func() (string, error) { return oidc.GenerateState(stateLength) },
		Logger:        logger,
	}
	verifier, err := buildVerifier(cfg, deps.HTTPClient)
	if err != nil {
		if c, ok := store.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	handlers.Verifier = verifier
	if cfg.Auth.UseExternalAuth && verifier == nil {
		logger.Warn("IDP token signatures are not verified", "setting", "IDP_VERIFY_SIGNATURE")
	}

	logger.Info("auth configured",
		"provider", factory.ProviderType(),
		"user_source", cfg.Auth.UserSource,
		"session_store", cfg.Session.Store,
		"verify_signature", handlers.Verifier != nil,
	)

	return &Auth{
		Factory:  factory,
		IDP:      client,
		Tokens:   tokens,
		Target:   target,
		Sessions: sessions,
		Handlers: handlers,
		Router: httpx.NewRouter(httpx.RouterServices{
			Auth:     handlers,
			Sessions: sessions,
			App:      deps.App,
			Logger:   logger,
		}),
		store: store,
	}, nil
}

// NewIDPClient builds the IDP API client from configuration.
func NewIDPClient(cfg config.IDPConfig, httpClient *http.Client, logger *slog.Logger) *idp.Client {
	return idp.NewClient(idp.Config{
		BaseURL:            cfg.URL,
		AppID:              cfg.AppID,
		ClientSecret:       cfg.ClientSecret,
		EnhanceTimeout:     cfg.EnhanceTimeout,
		APITimeout:         cfg.APITimeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		HTTPClient:         httpClient,
		Logger:             logger,
	})
}

// buildVerifier returns a signature verifier when external auth asks for
// one, and nil otherwise.
//
//nolint:ireturn // nil disables verification in the callback handler.
func buildVerifier(cfg *config.AppConfig, httpClient *http.Client) (ports.TokenVerifier, error) {
	if !cfg.Auth.UseExternalAuth || !cfg.IDP.VerifySignature {
		return nil, nil
	}
	v, err := oidc.NewVerifier(oidc.VerifierConfig{
		JWKSURL:    cfg.IDP.JWKSURL,
		Issuer:     cfg.IDP.Issuer,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

//nolint:ireturn // the session backend is chosen at runtime.
func buildSessionStore(cfg config.SessionConfig, client redis.UniversalClient) (ports.SessionStore, error) {
	switch cfg.Store {
	case config.SessionStoreRedis:
		if client == nil {
			return nil, apperrors.Configuration("SESSION_STORE", "SESSION_STORE=redis requires a Redis connection")
		}
		return redisadapter.NewSessionStore(client, redisadapter.WithKeyPrefix(cfg.KeyPrefix)), nil
	default:
		store := memory.NewSessionStore(nil)
		store.StartSweeper(memory.DefaultSweepInterval)
		return store, nil
	}
}

// NewUserStore returns the static directory or the Postgres user table,
// depending on AUTH_USER_SOURCE.
//
//nolint:ireturn // the user source is chosen at runtime.
func NewUserStore(cfg config.AuthConfig, db *sql.DB) (UserStore, error) {
	switch cfg.UserSource {
	case config.UserSourcePostgres:
		if db == nil {
			return nil, apperrors.Configuration("AUTH_USER_SOURCE", "AUTH_USER_SOURCE=postgres requires a database connection")
		}
		return data.NewUserRepo(db), nil
	default:
		dir, err := devauth.NewDirectory(cfg.DevUsers)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "build static user directory")
		}
		return dir, nil
	}
}
