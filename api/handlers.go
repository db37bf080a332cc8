package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleListLaunches handles GET /api/v1/launches?status=<status>&limit=<n>&offset=<n>
func (s *Server) handleListLaunches(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	status := r.URL.Query().Get("status")

	launches, err := s.catalog.ListLaunches(status, limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list launches")
		return
	}
	s.writeData(w, launches)
}

// handleGetLaunch handles GET /api/v1/launches/{id}
func (s *Server) handleGetLaunch(w http.ResponseWriter, r *http.Request) {
	launchID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid launch id")
		return
	}

	l, err := s.catalog.GetLaunch(launchID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "launch not found")
		return
	}
	s.writeData(w, l)
}

// handleListPhases handles GET /api/v1/launches/{id}/phases
func (s *Server) handleListPhases(w http.ResponseWriter, r *http.Request) {
	launchID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid launch id")
		return
	}

	configs, err := s.catalog.PhaseConfigs(launchID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list phases")
		return
	}
	s.writeData(w, configs)
}

// handleListPurchases handles GET /api/v1/launches/{id}/purchases?limit=<n>&offset=<n>
func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	launchID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid launch id")
		return
	}

	limit, offset := pagination(r)
	recs, err := s.catalog.ListPurchases(launchID, limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list purchases")
		return
	}
	s.writeData(w, recs)
}

// handleListItems handles GET /api/v1/collections/{address}/items?limit=<n>&offset=<n>
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	limit, offset := pagination(r)
	items, err := s.catalog.ListItems(address, limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	s.writeData(w, items)
}

func (s *Server) writeData(w http.ResponseWriter, data interface{}) {
	lastBlock, err := s.catalog.LastBlock()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read high-water mark")
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(QueryResponse{
		Data:            data,
		LastSyncedBlock: lastBlock,
	}); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
