package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_NoProxyIgnoresHeaders(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "198.51.100.7:52110"
	r.Header.Set("X-Forwarded-For", "203.0.113.99")

	ip := ExtractClientIP(r, &IPConfig{})
	assert.Equal(t, "198.51.100.7", ip, "untrusted peers cannot forward addresses")
}

func TestExtractClientIP_TrustedProxyForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:40000"
	r.Header.Set("X-Forwarded-For", "203.0.113.99, 10.0.0.5")

	ip := ExtractClientIP(r, &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}})
	assert.Equal(t, "203.0.113.99", ip)
}

func TestExtractClientIP_TrustedProxyRealIPFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:40000"
	r.Header.Set("X-Real-IP", "203.0.113.42")

	ip := ExtractClientIP(r, &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}})
	assert.Equal(t, "203.0.113.42", ip)
}

func TestExtractClientIP_GarbageHeaderFallsBack(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:40000"
	r.Header.Set("X-Forwarded-For", "not-an-ip")

	ip := ExtractClientIP(r, &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}})
	assert.Equal(t, "10.0.0.5", ip)
}

func TestExtractClientIP_NilConfig(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "198.51.100.7:52110"

	assert.Equal(t, "198.51.100.7", ExtractClientIP(r, nil))
}

func TestExtractClientIP_RemoteAddrWithoutPort(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "198.51.100.7"

	assert.Equal(t, "198.51.100.7", ExtractClientIP(r, nil))
}
