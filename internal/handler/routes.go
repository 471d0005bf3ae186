package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"algoforge-api/internal/svc"
)

// RegisterHandlers wires every route onto the rest server.
func RegisterHandlers(server *rest.Server, svcCtx *svc.ServiceContext) {
	server.AddRoutes([]rest.Route{
		{
			Method:  http.MethodGet,
			Path:    "/",
			Handler: RootHandler(),
		},
		{
			Method:  http.MethodGet,
			Path:    "/healthz",
			Handler: HealthHandler(),
		},
		{
			Method:  http.MethodGet,
			Path:    "/api/market",
			Handler: MarketHandler(svcCtx),
		},
	})

	// The upgrade needs a hijackable response writer; a zero timeout keeps
	// the timeout middleware's wrapper out of the chain for this route.
	server.AddRoutes([]rest.Route{
		{
			Method:  http.MethodGet,
			Path:    "/ws/market",
			Handler: MarketWSHandler(svcCtx),
		},
	}, rest.WithTimeout(0))
}
