package token_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
	"github.com/jrsteele09/riff-finder/token"
	"github.com/stretchr/testify/require"
)

type catalogConfigStub struct {
	clientID, clientSecret, tokenURL string
}

func (c catalogConfigStub) GetClientID() string     { return c.clientID }
func (c catalogConfigStub) GetClientSecret() string { return c.clientSecret }
func (c catalogConfigStub) GetTokenURL() string     { return c.tokenURL }

func newTokenServer(t *testing.T, hits *atomic.Int32, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		id, secret, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client-id", id)
		require.Equal(t, "client-secret", secret)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientCredentialsFetcher(t *testing.T) {
	t.Run("grant succeeds", func(t *testing.T) {
		var hits atomic.Int32
		srv := newTokenServer(t, &hits, http.StatusOK, `{"access_token":"app-abc","token_type":"Bearer","expires_in":3600}`)
		f := token.NewClientCredentialsFetcher(catalogConfigStub{"client-id", "client-secret", srv.URL}, srv.Client())

		tr, err := f.FetchAppToken(context.Background())
		require.NoError(t, err)
		require.Equal(t, "app-abc", tr.AccessToken)
		require.Equal(t, int64(3600), tr.ExpiresIn)
		require.EqualValues(t, 1, hits.Load())
	})

	t.Run("rejected grant keeps status and body", func(t *testing.T) {
		var hits atomic.Int32
		srv := newTokenServer(t, &hits, http.StatusBadRequest, `{"error":"invalid_client"}`)
		f := token.NewClientCredentialsFetcher(catalogConfigStub{"client-id", "client-secret", srv.URL}, srv.Client())

		_, err := f.FetchAppToken(context.Background())
		upstreamErr, ok := apperrors.AsUpstream(err)
		require.True(t, ok)
		require.Equal(t, http.StatusBadRequest, upstreamErr.Status)
		require.JSONEq(t, `{"error":"invalid_client"}`, string(upstreamErr.Body))
	})

	t.Run("missing credentials make no request", func(t *testing.T) {
		var hits atomic.Int32
		srv := newTokenServer(t, &hits, http.StatusOK, `{}`)
		f := token.NewClientCredentialsFetcher(catalogConfigStub{"client-id", "", srv.URL}, srv.Client())

		_, err := f.FetchAppToken(context.Background())
		require.ErrorIs(t, err, apperrors.ErrConfigMissing)
		require.EqualValues(t, 0, hits.Load())
	})

	t.Run("unreachable server", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		f := token.NewClientCredentialsFetcher(catalogConfigStub{"client-id", "client-secret", url}, nil)

		_, err := f.FetchAppToken(context.Background())
		require.ErrorIs(t, err, apperrors.ErrUpstreamUnreachable)
	})
}
