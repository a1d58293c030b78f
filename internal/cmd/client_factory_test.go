package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFactory_Timeout(t *testing.T) {
	handler := newRouteHandler().On("GET", "/api/v1/users/me", jsonResponse(200, meBody))
	env := setupTestEnv(t, handler)

	tests := []struct {
		name string
		args []string
		want time.Duration
	}{
		{name: "default", args: nil, want: defaultTimeout},
		{name: "explicit", args: []string{"--timeout", "2m"}, want: 2 * time.Minute},
		{name: "zero disables", args: []string{"--timeout", "0"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.run(t, append([]string{"users", "me"}, tt.args...)...)
			require.NoError(t, res.err, res.stderr)

			client := newClientFactory().newClient(nil)
			assert.Equal(t, tt.want, client.HTTP.Timeout)
		})
	}
}

func TestClientFactory_RetryPolicy(t *testing.T) {
	f := &clientFactory{retries: 0}
	assert.Nil(t, f.newClient(nil).Retry)

	f = &clientFactory{retries: 3, retryDelay: 5 * time.Millisecond}
	client := f.newClient(nil)
	require.NotNil(t, client.Retry)
	assert.Equal(t, 3, client.Retry.MaxRetries)
	assert.Equal(t, 5*time.Millisecond, client.Retry.BaseDelay)
}
