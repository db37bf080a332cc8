package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes for the catalog API.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	// The API is read-only; a matching path with the wrong verb answers 405,
	// not 404. Subrouter mismatches bubble up to this handler.
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/launches", s.handleListLaunches).Methods("GET")
	v1.HandleFunc("/launches/{id:[0-9]+}", s.handleGetLaunch).Methods("GET")
	v1.HandleFunc("/launches/{id:[0-9]+}/phases", s.handleListPhases).Methods("GET")
	v1.HandleFunc("/launches/{id:[0-9]+}/purchases", s.handleListPurchases).Methods("GET")
	v1.HandleFunc("/collections/{address}/items", s.handleListItems).Methods("GET")

	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	return r
}
