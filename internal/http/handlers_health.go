package httpx

import (
	"net/http"
)

type healthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`
}

// healthHandler reports liveness plus whether an auth provider can be built.
// A provider failure turns the check into a 503.
func healthHandler(providers ProviderSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		code := http.StatusOK
		if providers != nil {
			p, err := providers.Instance()
			switch {
			case err != nil:
				resp.Status = "degraded"
				resp.Error = "auth provider unavailable"
				code = http.StatusServiceUnavailable
			case p.IsExternalAuth():
				resp.Provider = "external"
			default:
				resp.Provider = "local"
			}
		}
		if r.Method == http.MethodHead {
			w.WriteHeader(code)
			return
		}
		WriteJSON(w, code, resp)
	}
}
