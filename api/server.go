package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"huddle/formation"
	"huddle/room"
	"huddle/transport/websocket"
)

// Server is the REST API server. It exposes room inspection and formation
// storage, and routes /ws/{code} into the WebSocket relay.
type Server struct {
	manager    *room.Manager
	formations formation.Store
	hub        *websocket.Hub
	router     *mux.Router
}

// NewServer creates a new API server.
func NewServer(manager *room.Manager, formations formation.Store, hub *websocket.Hub) *Server {
	s := &Server{
		manager:    manager,
		formations: formations,
		hub:        hub,
		router:     mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Rooms
	api.HandleFunc("/rooms", s.handleCreateRoom).Methods("POST")
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{code}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/rooms/{code}", s.handleDeleteRoom).Methods("DELETE")

	// Formations ("default" must be routed before the {name} pattern)
	api.HandleFunc("/formations", s.handleListFormations).Methods("GET")
	api.HandleFunc("/formations", s.handleSaveFormation).Methods("POST")
	api.HandleFunc("/formations/default", s.handleDefaultFormation).Methods("GET")
	api.HandleFunc("/formations/{name}", s.handleGetFormation).Methods("GET")
	api.HandleFunc("/formations/{name}", s.handlePutFormation).Methods("PUT")
	api.HandleFunc("/formations/{name}", s.handleDeleteFormation).Methods("DELETE")

	// WebSocket relay; the code shape mirrors the public join URLs.
	s.router.HandleFunc("/ws/{code:[A-Za-z0-9]{6}}", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

// Room Handlers

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code,omitempty"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	code := req.Code
	if code == "" {
		code = s.manager.GenerateCode()
	}

	rm, err := s.manager.GetOrCreate(code)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, rm.Snapshot())
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.manager.List()

	infos := make([]room.Info, 0, len(rooms))
	for _, rm := range rooms {
		infos = append(infos, rm.Snapshot())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Code < infos[j].Code
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(infos),
		"rooms": infos,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rm, err := s.manager.Get(vars["code"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rm.Snapshot())
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.manager.Delete(vars["code"]); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Room %s deleted", vars["code"]),
	})
}

// Formation Handlers

func (s *Server) handleListFormations(w http.ResponseWriter, r *http.Request) {
	names, err := s.formations.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	sort.Strings(names)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(names),
		"formations": names,
	})
}

func (s *Server) handleSaveFormation(w http.ResponseWriter, r *http.Request) {
	var f formation.Formation
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		respondError(w, http.StatusBadRequest, "invalid formation payload")
		return
	}

	s.saveFormation(w, &f)
}

func (s *Server) handlePutFormation(w http.ResponseWriter, r *http.Request) {
	var f formation.Formation
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		respondError(w, http.StatusBadRequest, "invalid formation payload")
		return
	}

	// The path segment names the formation; the body may omit it.
	f.Name = mux.Vars(r)["name"]
	s.saveFormation(w, &f)
}

func (s *Server) saveFormation(w http.ResponseWriter, f *formation.Formation) {
	created := !s.formations.Exists(f.Name)

	if err := s.formations.Save(f); err != nil {
		if errors.Is(err, formation.ErrInvalidFormation) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, f)
}

func (s *Server) handleDefaultFormation(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, formation.DefaultLineup())
}

func (s *Server) handleGetFormation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	f, err := s.formations.Load(vars["name"])
	if err != nil {
		if errors.Is(err, formation.ErrFormationNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFormation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.formations.Delete(vars["name"]); err != nil {
		if errors.Is(err, formation.ErrFormationNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Formation %s deleted", vars["name"]),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, mux.Vars(r)["code"])
}
