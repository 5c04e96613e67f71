package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/riff-finder/catalog"
	"github.com/jrsteele09/riff-finder/discovery"
	"github.com/jrsteele09/riff-finder/internal/config"
	"github.com/jrsteele09/riff-finder/sessions"
	"github.com/jrsteele09/riff-finder/token"
	"github.com/jrsteele09/riff-finder/token/exchange"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Components are the long-lived services the HTTP layer delegates to. They
// are built once at process start (see Bootstrap).
type Components struct {
	AppTokens    *token.AppTokenCache
	Exchange     *exchange.Service
	Proxy        *catalog.Proxy
	Discovery    *discovery.Service
	UserSessions *sessions.UserSessionStore
	Verifiers    *sessions.VerifierStore
	SigningKey   []byte
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	logger zerolog.Logger

	appTokens    *token.AppTokenCache
	exchange     *exchange.Service
	proxy        *catalog.Proxy
	discovery    *discovery.Service
	userSessions *sessions.UserSessionStore
	verifiers    *sessions.VerifierStore
	cookies      cookieJar
	oauth        *oauth2.Config
	nowFunc      func() time.Time
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

func New(cfg config.Config, c Components, opts ...Option) (*Server, error) {
	if len(c.SigningKey) == 0 {
		return nil, fmt.Errorf("[Server New] a session signing key is required")
	}

	s := &Server{
		env:          cfg.GetEnv(),
		mux:          http.NewServeMux(),
		config:       cfg,
		logger:       zerolog.Nop(),
		appTokens:    c.AppTokens,
		exchange:     c.Exchange,
		proxy:        c.Proxy,
		discovery:    c.Discovery,
		userSessions: c.UserSessions,
		verifiers:    c.Verifiers,
		nowFunc:      time.Now,
		oauth: &oauth2.Config{
			ClientID:     cfg.GetClientID(),
			ClientSecret: cfg.GetClientSecret(),
			RedirectURL:  cfg.GetRedirectURI(),
			Scopes:       cfg.GetScopes(),
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.GetAuthorizeURL(),
				TokenURL: cfg.GetTokenURL(),
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cookies = cookieJar{
		key:     c.SigningKey,
		maxAge:  cfg.GetSessionCookieMaxAge(),
		secure:  strings.HasPrefix(cfg.GetBaseURL(), "https://"),
		nowFunc: s.nowFunc,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.logger.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
