package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinLink(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://party.example/scoring/join/ABC123/qr", nil)
	assert.Equal(t, "http://party.example/scoring/join/ABC123", joinLink(req))

	// A trustworthy proxy header upgrades the scheme.
	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://party.example/scoring/join/ABC123", joinLink(req))

	// Anything that is not a real scheme is ignored.
	for _, proto := range []string{"javascript", "https://evil.example/?", ""} {
		req.Header.Set("X-Forwarded-Proto", proto)
		assert.Equal(t, "http://party.example/scoring/join/ABC123", joinLink(req),
			"forwarded proto %q must not reach the join link", proto)
	}
}

func TestServeJoinQR(t *testing.T) {
	mux := testRouter()

	rec := do(t, mux, http.MethodGet, "/scoring/join/ABC123/qr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}
