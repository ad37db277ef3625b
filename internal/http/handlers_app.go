package httpx

import (
	"net/http"

	"github.com/avisitor/idp-client/internal/ports"
)

// homeResponse is the example host's landing payload.
type homeResponse struct {
	Message string   `json:"message"`
	Email   string   `json:"email"`
	Name    string   `json:"name,omitempty"`
	Roles   []string `json:"roles"`
	Links   []string `json:"links"`
}

// AppHandlers is a minimal host application mounted behind the auth routes.
type AppHandlers struct {
	Providers ProviderSource
	Routes    AuthRoutes
}

// Home greets the logged-in user. Mounted behind RequireAuth.
func (h *AppHandlers) Home(w http.ResponseWriter, r *http.Request) {
	if p, err := h.Providers.Instance(); err == nil {
		h.initialize(p, r)
	}
	sess := GetSessionFromContext(r.Context())
	resp := homeResponse{
		Message: "Welcome",
		Email:   sess.Email,
		Name:    sess.Name,
		Roles:   sess.Roles,
		Links: []string{
			h.Routes.URLs.LocalPath("token", nil),
			h.Routes.URLs.LocalPath("status", nil),
			h.Routes.URLs.LocalPath("logout", nil),
		},
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// initialize lets the provider top up session data restored from the store.
func (h *AppHandlers) initialize(p ports.AuthProvider, r *http.Request) {
	if sess := GetSessionFromContext(r.Context()); sess != nil {
		p.InitializeSession(sess)
	}
}

// Admin is the example admin-only page. Mounted behind RequireRole("admin").
func (h *AppHandlers) Admin(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Admin area",
		"email":   sess.Email,
		"admin":   sess.Admin,
	})
}
