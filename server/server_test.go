package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/riff-finder/internal/config"
	"github.com/jrsteele09/riff-finder/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthServer struct {
	*httptest.Server
	clientCredentials atomic.Int32
	codeExchanges     atomic.Int32
	refreshes         atomic.Int32
}

func newFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()
	f := &fakeAuthServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != "client-id" || secret != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"invalid_client"}`)
			return
		}
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("grant_type") {
		case "client_credentials":
			f.clientCredentials.Add(1)
			_, _ = io.WriteString(w, `{"access_token":"app-token","token_type":"Bearer","expires_in":3600}`)
		case "authorization_code":
			f.codeExchanges.Add(1)
			if r.PostForm.Get("code") == "slow" {
				<-r.Context().Done()
				return
			}
			if r.PostForm.Get("code") != "good-code" || r.PostForm.Get("code_verifier") == "" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`)
				return
			}
			_, _ = io.WriteString(w, `{"access_token":"user-token","token_type":"Bearer","expires_in":3600,"refresh_token":"rt"}`)
		case "refresh_token":
			f.refreshes.Add(1)
			if r.PostForm.Get("refresh_token") != "rt" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Refresh token revoked"}`)
				return
			}
			_, _ = io.WriteString(w, `{"access_token":"user-token-2","token_type":"Bearer","expires_in":3600}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"unsupported_grant_type"}`)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

type fakeCatalog struct {
	*httptest.Server
	lastAuthorization atomic.Value
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	f := &fakeCatalog{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lastAuthorization.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/artists/a1":
			_, _ = io.WriteString(w, `{"id":"a1","name":"Sleep","genres":["doom"],"popularity":50}`)
		case "/v1/artists":
			_, _ = io.WriteString(w, `{"artists":[{"id":"a1","name":"Sleep","genres":["doom"],"popularity":50}]}`)
		case "/v1/artists/a1/related-artists":
			_, _ = io.WriteString(w, `{"artists":[{"id":"c1","name":"Om","genres":["doom","drone"],"popularity":55}]}`)
		case "/v1/artists/a1/albums":
			_, _ = io.WriteString(w, `{"items":[{"id":"al1","name":"Holy Mountain"}]}`)
		case "/v1/albums/al1/tracks":
			_, _ = io.WriteString(w, `{"items":[{"id":"t1","name":"Dragonaut","duration_ms":330000}]}`)
		case "/v1/slow":
			<-r.Context().Done()
		case "/v1/broken":
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "<html>bad gateway</html>")
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"status":404,"message":"Not found."}}`)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeCatalog) authorization() string {
	v, _ := f.lastAuthorization.Load().(string)
	return v
}

type harness struct {
	server  *httptest.Server
	auth    *fakeAuthServer
	catalog *fakeCatalog
	client  *http.Client
}

func newHarness(t *testing.T, withCredentials bool) *harness {
	t.Helper()
	auth := newFakeAuthServer(t)
	cat := newFakeCatalog(t)

	clientID, clientSecret := "", ""
	if withCredentials {
		clientID, clientSecret = "client-id", "client-secret"
	}
	t.Setenv("SPOTIFY_CLIENT_ID", clientID)
	t.Setenv("SPOTIFY_CLIENT_SECRET", clientSecret)
	t.Setenv("TOKEN_URL", auth.URL+"/api/token")
	t.Setenv("AUTH_BASE_URL", auth.URL+"/authorize")
	t.Setenv("CATALOG_BASE_URL", cat.URL)
	t.Setenv("BASE_URL", "http://riff.test")
	t.Setenv("ENV", "TEST")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SESSION_SIGNING_KEY", "")
	t.Setenv("CATALOG_RATE_LIMIT", "0")

	s, closer, err := server.Bootstrap(context.Background(), config.New(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer() })

	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	return &harness{
		server:  srv,
		auth:    auth,
		catalog: cat,
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (h *harness) do(t *testing.T, method, path string, body string, mutate ...func(*http.Request)) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	for _, m := range mutate {
		m(req)
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func withCookies(cookies ...*http.Cookie) func(*http.Request) {
	return func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestCatalogProxy_MissingPath(t *testing.T) {
	h := newHarness(t, true)

	resp := h.do(t, http.MethodGet, "/catalog/proxy?path=", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.JSONEq(t, `{"error":"Missing ?path=/v1/..."}`, readBody(t, resp))

	resp = h.do(t, http.MethodGet, "/catalog/proxy?path=/v2/artists", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.JSONEq(t, `{"error":"path must start with /v1/"}`, readBody(t, resp))
	require.EqualValues(t, 0, h.auth.clientCredentials.Load())
}

func TestCatalogProxy_AppTokenIsSharedCacheable(t *testing.T) {
	h := newHarness(t, true)

	for range 3 {
		resp := h.do(t, http.MethodGet, "/catalog/proxy?path="+url.QueryEscape("/v1/artists/a1"), "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "s-maxage=60, stale-while-revalidate=300", resp.Header.Get("Cache-Control"))
		require.JSONEq(t, `{"id":"a1","name":"Sleep","genres":["doom"],"popularity":50}`, readBody(t, resp))
	}
	require.Equal(t, "Bearer app-token", h.catalog.authorization())
	require.EqualValues(t, 1, h.auth.clientCredentials.Load(), "app token is cached")
}

func TestCatalogProxy_UserTokenIsNotCached(t *testing.T) {
	h := newHarness(t, true)

	resp := h.do(t, http.MethodGet, "/catalog/proxy?path=/v1/artists/a1", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer browser-token")
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Equal(t, "Bearer browser-token", h.catalog.authorization())
	require.EqualValues(t, 0, h.auth.clientCredentials.Load())

	resp = h.do(t, http.MethodGet, "/catalog/proxy?path=/v1/artists/a1", "", func(r *http.Request) {
		r.Header.Set("Authorization", "bearer lower-case-token")
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Equal(t, "Bearer lower-case-token", h.catalog.authorization())
	require.EqualValues(t, 0, h.auth.clientCredentials.Load())
}

func TestUpstreamTimeout(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "100ms")
	h := newHarness(t, true)

	for name, send := range map[string]func() *http.Response{
		"catalog proxy": func() *http.Response {
			return h.do(t, http.MethodGet, "/catalog/proxy?path=/v1/slow", "")
		},
		"code exchange": func() *http.Response {
			return h.do(t, http.MethodPost, "/auth/exchange", `{"code":"slow","code_verifier":"v","redirect_uri":"http://riff.test/callback"}`)
		},
	} {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			resp := send()
			require.Less(t, time.Since(start), time.Second)
			require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			require.Empty(t, resp.Header.Get("Cache-Control"))
			require.JSONEq(t, `{"error":"Upstream request failed"}`, readBody(t, resp))
		})
	}
}

func TestCatalogProxy_RelaysUpstreamErrors(t *testing.T) {
	h := newHarness(t, true)

	resp := h.do(t, http.MethodGet, "/catalog/proxy?path=/v1/unknown", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Cache-Control"))
	require.JSONEq(t, `{"error":{"status":404,"message":"Not found."}}`, readBody(t, resp))

	resp = h.do(t, http.MethodGet, "/catalog/proxy?path=/v1/broken", "")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Equal(t, "<html>bad gateway</html>", readBody(t, resp))
}

func TestCatalogProxy_MissingCredentials(t *testing.T) {
	h := newHarness(t, false)

	resp := h.do(t, http.MethodGet, "/catalog/proxy?path=/v1/artists/a1", "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.JSONEq(t, `{"error":"Missing Spotify credentials"}`, readBody(t, resp))
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t, true)

	for path, allowed := range map[string]string{
		"/catalog/proxy":      http.MethodGet,
		"/auth/service-token": http.MethodGet,
		"/auth/exchange":      http.MethodPost,
		"/auth/refresh":       http.MethodPost,
		"/auth/logout":        http.MethodPost,
	} {
		method := http.MethodPost
		if allowed == http.MethodPost {
			method = http.MethodGet
		}
		resp := h.do(t, method, path, "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, path)
		assert.Equal(t, allowed, resp.Header.Get("Allow"), path)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, readBody(t, resp), path)
	}
}

func TestExchange(t *testing.T) {
	h := newHarness(t, true)

	t.Run("missing verifier makes no upstream call", func(t *testing.T) {
		resp := h.do(t, http.MethodPost, "/auth/exchange", `{"code":"good-code","redirect_uri":"http://riff.test/callback"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.JSONEq(t, `{"error":"Missing code/code_verifier/redirect_uri"}`, readBody(t, resp))
		require.EqualValues(t, 0, h.auth.codeExchanges.Load())
	})

	t.Run("invalid json", func(t *testing.T) {
		resp := h.do(t, http.MethodPost, "/auth/exchange", `{"code":`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("success is relayed", func(t *testing.T) {
		resp := h.do(t, http.MethodPost, "/auth/exchange", `{"code":"good-code","code_verifier":"v","redirect_uri":"http://riff.test/callback"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		require.JSONEq(t, `{"access_token":"user-token","token_type":"Bearer","expires_in":3600,"refresh_token":"rt"}`, readBody(t, resp))
	})

	t.Run("upstream rejection keeps status and body", func(t *testing.T) {
		resp := h.do(t, http.MethodPost, "/auth/exchange", `{"code":"expired","code_verifier":"v","redirect_uri":"http://riff.test/callback"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.JSONEq(t, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`, readBody(t, resp))
	})
}

func TestRefresh(t *testing.T) {
	h := newHarness(t, true)

	resp := h.do(t, http.MethodPost, "/auth/refresh", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.JSONEq(t, `{"error":"Missing refresh_token"}`, readBody(t, resp))

	resp = h.do(t, http.MethodPost, "/auth/refresh", `{"refresh_token":"rt"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, readBody(t, resp), "user-token-2")

	resp = h.do(t, http.MethodPost, "/auth/refresh", `{"refresh_token":"revoked"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, readBody(t, resp), "Refresh token revoked")
}

func TestServiceToken(t *testing.T) {
	h := newHarness(t, true)

	resp := h.do(t, http.MethodGet, "/auth/service-token", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "s-maxage=300, stale-while-revalidate=300", resp.Header.Get("Cache-Control"))

	var tok server.ServiceTokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	require.Equal(t, "app-token", tok.AccessToken)
	require.Equal(t, "Bearer", tok.TokenType)
	// the 60s early margin is already applied
	require.InDelta(t, 3540, tok.ExpiresIn, 5)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, true)

	resp := h.do(t, http.MethodOptions, "/catalog/proxy", "", func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:5173")
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, POST", resp.Header.Get("Access-Control-Allow-Methods"))

	resp = h.do(t, http.MethodOptions, "/catalog/proxy", "", func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.test")
	})
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, http.MethodGet, resp.Header.Get("Allow"))
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestServiceTokenHasNoCORS(t *testing.T) {
	h := newHarness(t, true)

	resp := h.do(t, http.MethodGet, "/auth/service-token", "", func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:5173")
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))

	resp = h.do(t, http.MethodOptions, "/auth/service-token", "", func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:5173")
	})
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestDiscoverAndNotableTracks(t *testing.T) {
	h := newHarness(t, true)

	resp := h.do(t, http.MethodGet, "/discover", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/discover?seeds=a1&limit=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "s-maxage=60, stale-while-revalidate=300", resp.Header.Get("Cache-Control"))

	var result struct {
		Seeds      []struct{ ID string } `json:"seeds"`
		Candidates []struct {
			Artist  struct{ ID string } `json:"artist"`
			Score   float64             `json:"score"`
			Reasons []string            `json:"reasons"`
		} `json:"candidates"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Len(t, result.Seeds, 1)
	require.Len(t, result.Candidates, 1)
	require.Equal(t, "c1", result.Candidates[0].Artist.ID)
	require.InDelta(t, 9.0, result.Candidates[0].Score, 1e-9)
	require.Equal(t, []string{"1 shared genre", "similar popularity"}, result.Candidates[0].Reasons)

	resp = h.do(t, http.MethodGet, "/artists/a1/notable-tracks", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer browser-token")
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.JSONEq(t, `{"artist_id":"a1","tracks":[{"id":"t1","name":"Dragonaut","url":"https://open.spotify.com/track/t1","preview_url":null,"duration_ms":330000,"album_id":"al1","album_name":"Holy Mountain"}]}`, readBody(t, resp))
}

func TestLoginFlow(t *testing.T) {
	h := newHarness(t, true)

	resp := h.do(t, http.MethodGet, "/auth/login", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, h.auth.URL+"/authorize", location.Scheme+"://"+location.Host+location.Path)
	q := location.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "client-id", q.Get("client_id"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("code_challenge"))
	require.Equal(t, "user-read-email user-read-private", q.Get("scope"))
	require.Equal(t, "http://riff.test/auth/callback", q.Get("redirect_uri"))
	state := q.Get("state")
	require.NotEmpty(t, state)
	stateCookie := findCookie(resp, "riff_oauth_state")
	require.NotNil(t, stateCookie)

	callback := "/auth/callback?code=good-code&state=" + url.QueryEscape(state)

	t.Run("state must match the browser", func(t *testing.T) {
		resp := h.do(t, http.MethodGet, "/auth/callback?code=good-code&state=other", "", withCookies(stateCookie))
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	resp = h.do(t, http.MethodGet, callback, "", withCookies(stateCookie))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
	sessionCookie := findCookie(resp, "riff_session")
	require.NotNil(t, sessionCookie)
	require.True(t, sessionCookie.HttpOnly)

	// the verifier is single use
	resp = h.do(t, http.MethodGet, callback, "", withCookies(stateCookie))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.JSONEq(t, `{"error":"Missing PKCE verifier. Try logging in again."}`, readBody(t, resp))

	resp = h.do(t, http.MethodGet, "/auth/session", "", withCookies(sessionCookie))
	require.JSONEq(t, `{"connected":true}`, readBody(t, resp))

	resp = h.do(t, http.MethodGet, "/catalog/proxy?path=/v1/artists/a1", "", withCookies(sessionCookie))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Bearer user-token", h.catalog.authorization())
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	tampered := *sessionCookie
	tampered.Value += "x"
	resp = h.do(t, http.MethodGet, "/auth/session", "", withCookies(&tampered))
	require.JSONEq(t, `{"connected":false}`, readBody(t, resp))

	resp = h.do(t, http.MethodPost, "/auth/logout", "", withCookies(sessionCookie))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/auth/session", "", withCookies(sessionCookie))
	require.JSONEq(t, `{"connected":false}`, readBody(t, resp))

	resp = h.do(t, http.MethodGet, "/catalog/proxy?path=/v1/artists/a1", "", withCookies(sessionCookie))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Bearer app-token", h.catalog.authorization())
}

func TestLoginWithoutCredentials(t *testing.T) {
	h := newHarness(t, false)

	resp := h.do(t, http.MethodGet, "/auth/login", "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.JSONEq(t, `{"error":"Missing Spotify credentials"}`, readBody(t, resp))
}

func TestHealth(t *testing.T) {
	h := newHarness(t, true)

	resp := h.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, readBody(t, resp))
}
