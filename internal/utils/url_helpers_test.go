package utils

import (
	"crypto/tls"
	"net/http"
	"testing"
)

func newRequest(host string, tlsState *tls.ConnectionState, headers map[string]string) *http.Request {
	req := &http.Request{Host: host, TLS: tlsState, Header: make(http.Header)}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		req        *http.Request
		want       string
	}{
		{
			name: "plain request on the LAN",
			req:  newRequest("10.0.0.50:8000", nil, nil),
			want: "http://10.0.0.50:8000",
		},
		{
			name: "direct TLS",
			req:  newRequest("kindling.example.com", &tls.ConnectionState{}, nil),
			want: "https://kindling.example.com",
		},
		{
			name: "reverse proxy terminating TLS",
			req: newRequest("kindling:8000", nil, map[string]string{
				"X-Forwarded-Proto": "https",
				"X-Forwarded-Host":  "dash.example.com",
			}),
			want: "https://dash.example.com",
		},
		{
			name: "forwarded host keeps its port",
			req: newRequest("localhost:8000", nil, map[string]string{
				"X-Forwarded-Host": "dash.example.com:8443",
			}),
			want: "http://dash.example.com:8443",
		},
		{
			name: "TLS wins over a forwarded http proto",
			req: newRequest("kindling.example.com", &tls.ConnectionState{}, map[string]string{
				"X-Forwarded-Proto": "http",
			}),
			want: "https://kindling.example.com",
		},
		{
			name:       "configured URL wins",
			configured: "https://kindling.example.com/",
			req: newRequest("10.0.0.50:8000", nil, map[string]string{
				"X-Forwarded-Host": "ignored.example.com",
			}),
			want: "https://kindling.example.com",
		},
		{
			name:       "configured URL with a path prefix",
			configured: "http://nas.local/kindling//",
			req:        newRequest("nas.local", nil, nil),
			want:       "http://nas.local/kindling",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveBaseURL(tt.configured, tt.req); got != tt.want {
				t.Errorf("ResolveBaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestURLFromRequestScheme(t *testing.T) {
	u := URLFromRequest(newRequest("example.com", nil, map[string]string{"X-Forwarded-Proto": "https"}))
	if u.Scheme != "https" || u.Host != "example.com" {
		t.Errorf("URLFromRequest() = %s://%s, want https://example.com", u.Scheme, u.Host)
	}
	if got := BaseURLFromRequest(newRequest("example.com", nil, nil)); got != "http://example.com" {
		t.Errorf("BaseURLFromRequest() = %q", got)
	}
}
