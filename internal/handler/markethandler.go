package handler

import (
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"algoforge-api/internal/logic"
	"algoforge-api/internal/svc"
	"algoforge-api/internal/types"
	"algoforge-api/pkg/market"
)

// MarketHandler serves GET /api/market from the snapshot store. Stale data is
// served as-is; only a store that has never been populated yields an error.
func MarketHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewMarketLogic(r.Context(), svcCtx)
		snapshot, err := l.Market()
		if err != nil {
			if errors.Is(err, market.ErrNoSnapshot) {
				httpx.WriteJson(w, http.StatusServiceUnavailable, types.ErrorResponse{
					Error: "No market data available yet.",
				})
				return
			}
			httpx.WriteJson(w, http.StatusInternalServerError, types.ErrorResponse{
				Error:   "Failed to read market data",
				Details: err.Error(),
			})
			return
		}
		httpx.OkJson(w, snapshot)
	}
}
