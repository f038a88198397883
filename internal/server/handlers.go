package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// userIDHeader carries the authenticated user identity from the presentation
// collaborator.
const userIDHeader = "X-User-ID"

type conversionRequest struct {
	SourceProvider   string `json:"source_provider"`
	SourcePlaylistID string `json:"source_playlist_id"`
	TargetProvider   string `json:"target_provider"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAuthLogin redirects the user to the provider's consent screen.
//
// A random state token is bound to the user id so the callback can complete
// the connection without a session.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if userID == "" {
		writeError(w, shared.ErrInvalidInput, "user identity is required")
		return
	}

	provider, err := models.ParseProviderID(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, shared.ErrInvalidInput, err.Error())
		return
	}

	state := shared.GenerateID()
	s.states.put(state, userID)

	authURL, err := s.manager.AuthURL(provider, state)
	if err != nil {
		writeError(w, err, "")
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleAuthCallback validates the state token and exchanges the
// authorization code for a stored connection.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, err := models.ParseProviderID(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, shared.ErrInvalidInput, err.Error())
		return
	}

	state := r.URL.Query().Get("state")
	userID, ok := s.states.take(state)
	if !ok {
		writeError(w, shared.ErrInvalidInput, "invalid state parameter")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		writeError(w, shared.ErrAuthFailed, "authorization failed: "+errParam)
		return
	}

	conn, err := s.manager.Connect(r.Context(), userID, provider, code)
	if err != nil {
		writeError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, conn)
}

func (s *Server) handleConnectionStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	statuses, err := s.manager.Status(userID)
	if err != nil {
		writeError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	provider, err := models.ParseProviderID(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, shared.ErrInvalidInput, err.Error())
		return
	}

	if err := s.manager.Disconnect(userID, provider); err != nil {
		writeError(w, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	provider, err := models.ParseProviderID(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, shared.ErrInvalidInput, err.Error())
		return
	}

	forceRefresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	listing, err := s.catalog.ListPlaylists(r.Context(), userID, provider, forceRefresh)
	if err != nil {
		writeError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleRequestConversion(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req conversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, shared.ErrInvalidInput, "malformed request body")
		return
	}

	sourceProvider, err := models.ParseProviderID(req.SourceProvider)
	if err != nil {
		writeError(w, shared.ErrInvalidInput, err.Error())
		return
	}
	targetProvider, err := models.ParseProviderID(req.TargetProvider)
	if err != nil {
		writeError(w, shared.ErrInvalidInput, err.Error())
		return
	}

	job, err := s.orchestrator.RequestConversion(r.Context(), userID, sourceProvider, req.SourcePlaylistID, targetProvider, nil)
	if err != nil {
		writeError(w, err, "")
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListConversions(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := s.orchestrator.ListJobs(userID, limit)
	if err != nil {
		writeError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetConversion(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	job, err := s.orchestrator.GetJob(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "")
		return
	}
	// Another user's job is indistinguishable from a missing one
	if job.UserID != userID {
		writeError(w, shared.ErrJobNotFound, "")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelConversion(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	jobID := chi.URLParam(r, "id")
	job, err := s.orchestrator.GetJob(jobID)
	if err != nil {
		writeError(w, err, "")
		return
	}
	if job.UserID != userID {
		writeError(w, shared.ErrJobNotFound, "")
		return
	}

	if err := s.orchestrator.Cancel(jobID); err != nil {
		writeError(w, err, "")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, shared.ErrInvalidInput, "missing "+userIDHeader+" header")
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the shared error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error, message string) {
	status := http.StatusInternalServerError

	switch {
	case shared.IsAuthError(err):
		status = http.StatusUnauthorized
	case errors.Is(err, shared.ErrConversionInFlight):
		status = http.StatusConflict
	case errors.Is(err, shared.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrJobNotFound), errors.Is(err, shared.ErrPlaylistNotFound), errors.Is(err, shared.ErrTrackNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, shared.ErrRateLimited), errors.Is(err, shared.ErrProviderUnavailable):
		status = http.StatusBadGateway
	}

	if message == "" && err != nil {
		message = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: message})
}

// stateStore holds OAuth state tokens between login redirect and callback.
// Entries expire after ten minutes.
type stateStore struct {
	mu      sync.Mutex
	entries map[string]stateEntry
}

type stateEntry struct {
	userID    string
	createdAt time.Time
}

func newStateStore() *stateStore {
	return &stateStore{entries: make(map[string]stateEntry)}
}

func (s *stateStore) put(state, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.entries {
		if time.Since(v.createdAt) > 10*time.Minute {
			delete(s.entries, k)
		}
	}
	s.entries[state] = stateEntry{userID: userID, createdAt: time.Now()}
}

func (s *stateStore) take(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[state]
	if !ok || time.Since(entry.createdAt) > 10*time.Minute {
		delete(s.entries, state)
		return "", false
	}
	delete(s.entries, state)
	return entry.userID, true
}
