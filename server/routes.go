package server

import (
	"net/http"
)

// Routes are registered without a method in the pattern so that AllowMethod,
// not the mux, answers mismatched methods.
func (s *Server) initRoutes() {
	get := func(h http.HandlerFunc) http.HandlerFunc {
		return ChainMiddleware(h, s.APIMiddleware(http.MethodGet)...)
	}
	post := func(h http.HandlerFunc) http.HandlerFunc {
		return ChainMiddleware(h, s.APIMiddleware(http.MethodPost)...)
	}

	// Token broker
	s.RegisterRouteFunc(RouteAuthExchange, post(s.ExchangeHandler()))
	s.RegisterRouteFunc(RouteAuthRefresh, post(s.RefreshHandler()))
	s.RegisterRouteFunc(RouteAuthServiceToken, ChainMiddleware(s.ServiceTokenHandler(), s.ServerMiddleware(http.MethodGet)...))

	// LOGIN
	s.RegisterRouteFunc(RouteAuthLogin, get(s.LoginHandler()))
	s.RegisterRouteFunc(RouteAuthCallback, get(s.CallbackHandler()))
	s.RegisterRouteFunc(RouteAuthLogout, post(s.LogoutHandler()))
	s.RegisterRouteFunc(RouteAuthSession, get(s.SessionHandler()))

	// Catalog
	s.RegisterRouteFunc(RouteCatalogProxy, get(s.CatalogProxyHandler()))
	s.RegisterRouteFunc(RouteDiscover, get(s.DiscoverHandler()))
	s.RegisterRouteFunc(RouteNotableTracks, get(s.NotableTracksHandler()))

	s.RegisterRouteFunc(RouteHealth, get(s.HealthHandler()))
}
