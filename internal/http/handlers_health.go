package httpx

import (
	"net/http"

	domainauth "github.com/target/mmk-console/internal/domain/auth"
)

type healthResponse struct {
	Status  string           `json:"status"`
	Session domainauth.State `json:"session"`
}

// healthHandler reports liveness plus the session lifecycle state. It never exposes identity.
func healthHandler(sessions SessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			return
		}
		WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Session: sessions.Snapshot().State})
	}
}
