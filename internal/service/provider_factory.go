package service

import (
	"log/slog"
	"reflect"
	"sync"

	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/ports"
)

// FactoryConfig selects and configures the provider.
type FactoryConfig struct {
	UseExternalAuth bool
	IDPURL          string
	AppID           string
	URLs            AppURLs
}

// FactoryOptions groups dependencies for AuthProviderFactory.
type FactoryOptions struct {
	Config FactoryConfig
	Pages  ports.IDPPages // Required for external auth
	Logger *slog.Logger   // Optional
}

// AuthProviderFactory builds the configured AuthProvider and caches it.
// It is owned by the composition root; SetConfig, SetLocalUserStore and
// ClearInstance all drop the cached provider.
type AuthProviderFactory struct {
	mu       sync.Mutex
	cfg      FactoryConfig
	pages    ports.IDPPages
	store    ports.LocalUserStore
	instance ports.AuthProvider
	logger   *slog.Logger
}

// NewAuthProviderFactory constructs a factory.
func NewAuthProviderFactory(opts FactoryOptions) *AuthProviderFactory {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthProviderFactory{cfg: opts.Config, pages: opts.Pages, logger: logger}
}

// SetConfig replaces the configuration and clears the cached provider.
func (f *AuthProviderFactory) SetConfig(cfg FactoryConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
	f.instance = nil
}

// SetLocalUserStore registers the host's credential store for local auth and
// clears the cached provider.
func (f *AuthProviderFactory) SetLocalUserStore(store ports.LocalUserStore) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store = store
	f.instance = nil
}

// ClearInstance drops the cached provider.
func (f *AuthProviderFactory) ClearInstance() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instance = nil
}

// Create builds a new provider without touching the cache. Local auth without
// a registered store is a configuration error.
func (f *AuthProviderFactory) Create() (ports.AuthProvider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.create()
}

func (f *AuthProviderFactory) create() (ports.AuthProvider, error) {
	if f.cfg.UseExternalAuth {
		if f.pages == nil {
			return nil, apperrors.Configurationf("IDP page builder not configured for external auth")
		}
		f.logger.Debug("creating external auth provider")
		return NewExternalAuthProvider(ExternalProviderOptions{
			URLs:   f.cfg.URLs,
			Pages:  f.pages,
			Logger: f.logger,
		}), nil
	}

	if f.store == nil {
		err := apperrors.Configurationf("local auth user store not configured; call SetLocalUserStore first")
		f.logger.Error("creating auth provider", "error", err)
		return nil, err
	}
	f.logger.Debug("creating local auth provider")
	return NewLocalAuthProvider(LocalProviderOptions{
		URLs:   f.cfg.URLs,
		Store:  f.store,
		Logger: f.logger,
	}), nil
}

// Instance returns the cached provider, creating it on first use.
func (f *AuthProviderFactory) Instance() (ports.AuthProvider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.instance != nil {
		return f.instance, nil
	}
	p, err := f.create()
	if err != nil {
		return nil, err
	}
	f.instance = p
	return p, nil
}

// IsExternalAuthEnabled reports whether external auth is selected and the IDP
// URL and app id are both set.
func (f *AuthProviderFactory) IsExternalAuthEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.externalEnabled()
}

func (f *AuthProviderFactory) externalEnabled() bool {
	return f.cfg.UseExternalAuth && f.cfg.IDPURL != "" && f.cfg.AppID != ""
}

// ProviderType returns "external" or "local".
func (f *AuthProviderFactory) ProviderType() string {
	if f.IsExternalAuthEnabled() {
		return "external"
	}
	return "local"
}

// CheckResult is one entry of a ConfigurationReport.
type CheckResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ConfigurationReport summarises TestConfiguration.
type ConfigurationReport struct {
	ProviderType string                 `json:"provider_type"`
	Tests        map[string]CheckResult `json:"tests"`
}

// OK reports whether every check passed.
func (r ConfigurationReport) OK() bool {
	for _, t := range r.Tests {
		if !t.Success {
			return false
		}
	}
	return len(r.Tests) > 0
}

// TestConfiguration builds a provider and exercises URL generation.
func (f *AuthProviderFactory) TestConfiguration() ConfigurationReport {
	report := ConfigurationReport{ProviderType: f.ProviderType(), Tests: map[string]CheckResult{}}

	p, err := f.Create()
	if err != nil {
		report.Tests["provider_creation"] = CheckResult{Message: "Provider creation failed: " + apperrors.UserMessage(err)}
		return report
	}
	report.Tests["provider_creation"] = CheckResult{
		Success: true,
		Message: "Provider created successfully",
		Detail:  reflect.TypeOf(p).Elem().Name(),
	}

	if p.IsExternalAuth() {
		ok := f.IsExternalAuthEnabled()
		msg := "External auth properly configured"
		if !ok {
			msg = "External auth configuration incomplete"
		}
		report.Tests["external_config"] = CheckResult{Success: ok, Message: msg}
	} else {
		report.Tests["local_config"] = CheckResult{Success: true, Message: "Local auth configuration available"}
	}

	loginURL, err := p.LoginURL("")
	switch {
	case err != nil:
		report.Tests["url_generation"] = CheckResult{Message: "URL generation failed: " + apperrors.UserMessage(err)}
	case loginURL == "":
		report.Tests["url_generation"] = CheckResult{Message: "URL generation failed"}
	default:
		report.Tests["url_generation"] = CheckResult{Success: true, Message: "URL generation working", Detail: loginURL}
	}
	return report
}
