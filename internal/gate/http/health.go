package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/gate/kv"
	"github.com/aussiebroadwan/gatekeeper/internal/gate/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
)

type healthChecks struct {
	Database   string `json:"database,omitempty"`
	TokenStore string `json:"tokenStore,omitempty"`
}

type healthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *healthChecks `json:"checks,omitempty"`
}

// LivezHandler is the liveness probe: it returns 200 whenever the
// process is up, with uptime and version for operators.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler is the readiness probe: it checks the user directory
// and the token store and reports 503 when either is unreachable.
func ReadyzHandler(startTime time.Time, version string, st store.Store, tokens kv.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &healthChecks{
			Database:   "ok",
			TokenStore: "ok",
		}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		if err := tokens.Ping(r.Context()); err != nil {
			checks.TokenStore = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, healthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
