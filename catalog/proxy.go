package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// APIVersionPrefix is required at the start of every proxied path
const APIVersionPrefix = "/v1/"

const maxCatalogResponseBytes = 10 << 20

// AppTokenSource supplies the application token (token.AppTokenCache in production).
type AppTokenSource interface {
	GetAppAccessToken(ctx context.Context) (string, error)
}

// Proxy forwards GET requests to the catalog API. A caller-supplied user
// token is used as-is; otherwise the application token is used. The two are
// never combined.
type Proxy struct {
	baseURL    string
	userAgent  string
	appTokens  AppTokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     zerolog.Logger
}

type ProxyOption func(*Proxy)

func WithHTTPClient(client *http.Client) ProxyOption {
	return func(p *Proxy) {
		p.httpClient = client
	}
}

// WithRateLimit caps outbound catalog requests per second (burst of the same size)
func WithRateLimit(perSecond float64) ProxyOption {
	return func(p *Proxy) {
		if perSecond <= 0 {
			p.limiter = nil
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithTimeout(timeout time.Duration) ProxyOption {
	return func(p *Proxy) {
		p.timeout = timeout
	}
}

func WithUserAgent(userAgent string) ProxyOption {
	return func(p *Proxy) {
		p.userAgent = userAgent
	}
}

func WithLogger(logger zerolog.Logger) ProxyOption {
	return func(p *Proxy) {
		p.logger = logger
	}
}

func NewProxy(baseURL string, appTokens AppTokenSource, opts ...ProxyOption) *Proxy {
	p := &Proxy{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  "RiffFinder/1.0 (+go)",
		appTokens:  appTokens,
		httpClient: http.DefaultClient,
		timeout:    10 * time.Second,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ValidatePath checks a catalog-relative path such as "/v1/artists/abc".
func ValidatePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", apperrors.BadRequestf("Missing ?path=/v1/...")
	}
	if !strings.HasPrefix(path, APIVersionPrefix) {
		return "", apperrors.BadRequestf("path must start with %s", APIVersionPrefix)
	}
	return path, nil
}

// Proxy sends GET path to the catalog and relays the result. Upstream non-2xx
// answers are returned as a Response, not an error; errors are reserved for
// validation, credential and transport failures.
func (p *Proxy) Proxy(ctx context.Context, path, userToken string) (Response, error) {
	path, err := ValidatePath(path)
	if err != nil {
		return Response{}, err
	}

	userScoped := userToken != ""
	bearer := userToken
	if !userScoped {
		if bearer, err = p.appTokens.GetAppAccessToken(ctx); err != nil {
			return Response{}, err
		}
	}

	resp, err := p.get(ctx, path, bearer)
	if err != nil {
		return Response{}, err
	}
	resp.UserScoped = userScoped
	resp.CacheControl = CacheControlFor(userScoped, resp.OK())
	return resp, nil
}

func (p *Proxy) get(ctx context.Context, path, bearer string) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("%w: rate limiter: %v", apperrors.ErrUpstreamUnreachable, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return Response{}, apperrors.BadRequestf("invalid catalog path")
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", path).Msg("catalog unreachable")
		return Response{}, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("%w: reading catalog response: %v", apperrors.ErrUpstreamUnreachable, err)
	}

	p.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("catalog request")

	return newResponse(resp.StatusCode, resp.Header.Get("Content-Type"), body), nil
}
