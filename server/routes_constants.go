package server

// Route path constants
const (
	// Token broker
	RouteAuthExchange     = "/auth/exchange"
	RouteAuthRefresh      = "/auth/refresh"
	RouteAuthServiceToken = "/auth/service-token"

	// Server-hosted login
	RouteAuthLogin    = "/auth/login"
	RouteAuthCallback = "/auth/callback"
	RouteAuthLogout   = "/auth/logout"
	RouteAuthSession  = "/auth/session"

	// Catalog
	RouteCatalogProxy  = "/catalog/proxy"
	RouteDiscover      = "/discover"
	RouteNotableTracks = "/artists/{id}/notable-tracks"

	RouteHealth = "/healthz"
)
