package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeRedirect(t *testing.T) {
	const base = "https://app.example.com"
	tests := []struct {
		name      string
		candidate string
		want      string
	}{
		{name: "empty", candidate: "", want: "/home"},
		{name: "relative path", candidate: "/reports?x=1", want: "/reports?x=1"},
		{name: "same host absolute", candidate: "https://app.example.com/a", want: "https://app.example.com/a"},
		{name: "other host", candidate: "https://evil.example.net/a", want: "/home"},
		{name: "scheme downgrade", candidate: "http://app.example.com/a", want: "/home"},
		{name: "protocol relative", candidate: "//evil.example.net", want: "/home"},
		{name: "backslash trick", candidate: "/\\evil.example.net", want: "/home"},
		{name: "no leading slash", candidate: "reports", want: "/home"},
		{name: "javascript", candidate: "javascript:alert(1)", want: "/home"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, safeRedirect(tt.candidate, "/home", base))
		})
	}
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		want   bool
	}{
		{name: "plain browser", header: map[string]string{"Accept": "text/html,*/*"}, want: false},
		{name: "json body", header: map[string]string{"Content-Type": "application/json"}, want: true},
		{name: "json accept", header: map[string]string{"Accept": "application/json"}, want: true},
		{name: "mixed accept", header: map[string]string{"Accept": "text/html, application/json"}, want: false},
		{name: "xhr", header: map[string]string{"X-Requested-With": "XMLHttpRequest"}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, wantsJSON(req))
		})
	}
}
