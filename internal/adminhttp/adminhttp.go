// Package adminhttp serves an optional HTTP status endpoint alongside the
// SLIM listener: /healthz for liveness, /stats for the current byte/lane
// counters. Grounded on the teacher's control.ControlServer.HandleControlHTTP
// (a net/http ServeMux of small JSON/plain handlers over a second listener),
// enriched with gorilla/mux for path-based routing the teacher's ServeMux
// didn't need.
package adminhttp

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/slimfix/slimd/internal/stats"
)

// NewHandler builds the admin HTTP handler. counters may be nil, in which
// case /stats reports 503.
func NewHandler(counters *stats.Counters) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/stats", handleStats(counters)).Methods(http.MethodGet)
	return router
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleStats(counters *stats.Counters) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if counters == nil {
			http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(counters.Snapshot(time.Now()))
	}
}

// Serve runs the admin HTTP handler on listener until it errors or is
// closed, mirroring HandleControlHTTP's http.Serve(listener, handler) shape.
func Serve(listener net.Listener, handler http.Handler) error {
	return http.Serve(listener, handler)
}
