package httpclient

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-findings/internal/config"
)

func TestApplyHTTPClientConfigDefaults(t *testing.T) {
	cfg := applyHTTPClientConfig(nil)
	assert.Equal(t, 0, cfg.RetryCount)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.False(t, cfg.TLSClientConfig.InsecureSkipVerify)
	assert.Empty(t, cfg.Proxy)
}

func TestApplyHTTPClientConfigOverrides(t *testing.T) {
	no := false
	cfg := applyHTTPClientConfig(&config.HTTPClient{
		RetryCount:      3,
		Timeout:         5 * time.Second,
		TLSClientConfig: config.TLSClientConfig{Verify: &no},
		Proxy:           config.Proxy{Host: "http://proxy.local", Port: 3128},
	})
	assert.Equal(t, 3, cfg.RetryCount)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.TLSClientConfig.InsecureSkipVerify)
	assert.Equal(t, "http://proxy.local:3128", cfg.Proxy)
}

func TestApplyHTTPClientConfigDoesNotShareTLSConfig(t *testing.T) {
	no := false
	_ = applyHTTPClientConfig(&config.HTTPClient{TLSClientConfig: config.TLSClientConfig{Verify: &no}})
	assert.False(t, applyHTTPClientConfig(nil).TLSClientConfig.InsecureSkipVerify)
}

func TestInitializeRestyClient(t *testing.T) {
	client := InitializeRestyClient(hclog.NewNullLogger(), config.NewDefault())
	assert.Equal(t, 0, client.RetryCount)
	assert.NotNil(t, client.GetClient())

	data, err := client.JSONMarshal(map[string][]string{"b": {"2"}, "a": {"1"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":["1"],"b":["2"]}`, string(data))
}
