package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHeaderStaticToken(t *testing.T) {
	h, err := Header(context.Background(), Conf{Token: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", h.Get("Authorization"))
}

func TestHeaderWithoutCredentials(t *testing.T) {
	h, err := Header(context.Background(), Conf{})
	require.NoError(t, err)
	assert.Empty(t, h.Get("Authorization"))
	assert.False(t, Conf{}.Enabled())
}

func TestClientCredentialsCachesToken(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, &calls)

	var seen []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	conf := Conf{ClientID: "id", ClientSecret: "secret", AuthURL: srv.URL}
	require.True(t, conf.Enabled())
	cli := HTTPClient(context.Background(), conf, time.Second)
	for i := 0; i < 2; i++ {
		resp, err := cli.Get(api.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	assert.Equal(t, []string{"Bearer token123", "Bearer token123"}, seen)
	assert.Equal(t, int32(1), calls.Load())
}
