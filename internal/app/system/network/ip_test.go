package network

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name          string
		trustProxy    bool
		xForwardedFor string
		xRealIP       string
		remoteAddr    string
		expectedIP    string
	}{
		{
			name:          "X-Forwarded-For single IP",
			trustProxy:    true,
			xForwardedFor: "192.168.1.1",
			remoteAddr:    "10.0.0.1:12345",
			expectedIP:    "192.168.1.1",
		},
		{
			name:          "X-Forwarded-For chain uses first hop",
			trustProxy:    true,
			xForwardedFor: "203.0.113.195, 70.41.3.18, 150.172.238.178",
			remoteAddr:    "127.0.0.1:8080",
			expectedIP:    "203.0.113.195",
		},
		{
			name:          "X-Forwarded-For with spaces",
			trustProxy:    true,
			xForwardedFor: "  192.168.1.1  ",
			remoteAddr:    "10.0.0.1:12345",
			expectedIP:    "192.168.1.1",
		},
		{
			name:       "X-Real-IP",
			trustProxy: true,
			xRealIP:    "192.168.1.1",
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "192.168.1.1",
		},
		{
			name:          "X-Forwarded-For takes precedence over X-Real-IP",
			trustProxy:    true,
			xForwardedFor: "192.168.1.1",
			xRealIP:       "10.0.0.2",
			remoteAddr:    "10.0.0.1:12345",
			expectedIP:    "192.168.1.1",
		},
		{
			name:          "headers ignored without trusted proxy",
			xForwardedFor: "192.168.1.1",
			xRealIP:       "10.0.0.2",
			remoteAddr:    "10.0.0.1:12345",
			expectedIP:    "10.0.0.1",
		},
		{
			name:       "RemoteAddr without port",
			remoteAddr: "192.168.1.1",
			expectedIP: "192.168.1.1",
		},
		{
			name:       "IPv6 RemoteAddr with port",
			remoteAddr: "[::1]:12345",
			expectedIP: "::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.xForwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwardedFor)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}
			req.RemoteAddr = tt.remoteAddr

			if got := ClientIP(req, tt.trustProxy); got != tt.expectedIP {
				t.Errorf("ClientIP() = %q, want %q", got, tt.expectedIP)
			}
		})
	}
}
