package rig

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Handler exposes the controller status over HTTP.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/api/sizes", s.handleSizes).Methods("GET")
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Status())
}

func (s *Server) handleSizes(w http.ResponseWriter, r *http.Request) {
	st := s.Status()
	if st.Payload == 0 {
		http.Error(w, "no session negotiated", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"ctrl":    st.Ctrl,
		"daq":     st.Daq,
		"payload": st.Payload,
	})
}
