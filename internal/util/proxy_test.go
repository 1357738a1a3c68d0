package util

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProxyEnv(t *testing.T) {
	for _, k := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy", "NO_PROXY", "no_proxy", "REQUEST_METHOD"} {
		t.Setenv(k, "")
	}
}

func TestNewProxyFunc(t *testing.T) {
	clearProxyEnv(t)
	fn := NewProxyFunc("http://proxy.local:3128", "", "internal.example")

	req, err := http.NewRequest(http.MethodGet, "http://api.example.com/devices", nil)
	require.NoError(t, err)
	u, err := fn(req)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "proxy.local:3128", u.Host)

	req, err = http.NewRequest(http.MethodGet, "https://api.example.com/devices", nil)
	require.NoError(t, err)
	u, err = fn(req)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "proxy.local:3128", u.Host)

	req, err = http.NewRequest(http.MethodGet, "http://internal.example/devices", nil)
	require.NoError(t, err)
	u, err = fn(req)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestNewProxyFunc_HTTPSOverride(t *testing.T) {
	clearProxyEnv(t)
	fn := NewProxyFunc("http://plain.local:3128", "http://secure.local:3129", "")

	req, err := http.NewRequest(http.MethodGet, "https://api.example.com/", nil)
	require.NoError(t, err)
	u, err := fn(req)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "secure.local:3129", u.Host)
}
