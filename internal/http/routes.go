package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth     *AuthHandlers   // Required
	Sessions *SessionManager // Required
	// App serves the host application at "/". Defaults to AppHandlers.
	App    http.Handler
	Logger *slog.Logger // Optional
}

// NewRouter mounts the auth handlers under the configured auth path, the
// host application behind RequireAuth, and /healthz. Sessions are loaded for
// every request; POSTs must carry the session's CSRF token.
func NewRouter(services RouterServices) http.Handler {
	if services.Auth == nil || services.Sessions == nil {
		panic("auth handlers and session manager are required")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	health := healthHandler(services.Auth.Providers)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)

	registerAuthRoutes(mux, services.Auth)
	registerAppRoutes(mux, services)

	var handler http.Handler = mux
	handler = CSRFProtection(CSRFConfig{})(handler)
	handler = services.Sessions.Middleware(handler)
	handler = Logging(logger)(handler)
	return Recover(logger)(handler)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	base := strings.TrimSuffix(h.Routes.URLs.LocalPath("", nil), "/")
	get := func(page string, fn http.HandlerFunc) {
		mux.Handle("GET "+base+"/"+page, fn)
	}
	post := func(page string, fn http.HandlerFunc) {
		mux.Handle("POST "+base+"/"+page, fn)
	}

	get("login", h.Login)
	post("login", h.Login)
	get("callback", h.Return)
	get("idp-callback", h.Callback)
	get("logout", h.Logout)
	post("logout", h.Logout)
	get("register", h.Register)
	post("register", h.Register)
	get("reset", h.Reset)
	post("reset", h.Reset)
	get("change", h.Change)
	post("change", h.Change)
	get("verify", h.Verify)
	get("token", h.Token)
	get("status", h.Status)
}

func registerAppRoutes(mux *http.ServeMux, services RouterServices) {
	urls := services.Auth.Routes.URLs
	if services.App != nil {
		mux.Handle("/", RequireAuth(urls)(services.App))
		return
	}
	app := &AppHandlers{Providers: services.Auth.Providers, Routes: services.Auth.Routes}
	mux.Handle("GET /{$}", RequireAuth(urls)(http.HandlerFunc(app.Home)))
	mux.Handle("GET /admin", RequireRole(urls, domainauth.RoleAdmin)(http.HandlerFunc(app.Admin)))
}
