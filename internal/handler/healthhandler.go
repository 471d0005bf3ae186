package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"algoforge-api/internal/types"
)

// RootHandler answers the bare liveness probe the frontend pings on load.
func RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Market WebSocket + REST hybrid server is active."))
	}
}

// HealthHandler serves GET /healthz.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.OkJson(w, types.HealthResponse{Status: "ok"})
	}
}
