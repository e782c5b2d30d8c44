// ABOUTME: HTTP handlers for race records and leg ingestion
// ABOUTME: Maps store errors onto status codes with JSON error bodies

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389/races/internal/auth"
	"github.com/2389/races/internal/leg"
	"github.com/2389/races/internal/store"
)

// maxBodyBytes bounds request bodies; legs carry full course geometry
const maxBodyBytes = 8 << 20

// CreatedResponse is the JSON response for POST /races and POST /legs.
type CreatedResponse struct {
	ID string `json:"id"`
}

// handleListRaces handles GET /races?archived=true|false.
func (s *Server) handleListRaces(w http.ResponseWriter, r *http.Request) {
	scope := store.ScopeActive
	if raw := r.URL.Query().Get("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			sendJSONError(w, http.StatusBadRequest, "archived must be true or false")
			return
		}
		if archived {
			scope = store.ScopeArchived
		}
	}

	races, err := s.store.List(r.Context(), scope)
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, races)
}

// handleGetRace handles GET /races/{raceID}.
func (s *Server) handleGetRace(w http.ResponseWriter, r *http.Request) {
	race, err := s.store.Get(r.Context(), chi.URLParam(r, "raceID"))
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, race)
}

// handleCreateRace handles POST /races. The body must carry the identifier.
func (s *Server) handleCreateRace(w http.ResponseWriter, r *http.Request) {
	race, ok := s.decodeRace(w, r)
	if !ok {
		return
	}

	if err := s.store.Create(r.Context(), race); err != nil {
		s.sendStoreError(w, r, err)
		return
	}

	s.audit(r, "race created", race.ID)
	w.Header().Set("Location", APIPrefix+"/races/"+race.ID)
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: race.ID})
}

// handleUpdateRace handles PUT /races/{raceID}. A different id in the body renames the race.
func (s *Server) handleUpdateRace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "raceID")
	race, ok := s.decodeRace(w, r)
	if !ok {
		return
	}

	if err := s.store.Update(r.Context(), id, race); err != nil {
		s.sendStoreError(w, r, err)
		return
	}

	if race.ID != "" && race.ID != id {
		s.audit(r, "race renamed", race.ID, "from", id)
	} else {
		s.audit(r, "race updated", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteRace handles DELETE /races/{raceID}.
func (s *Server) handleDeleteRace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "raceID")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	s.audit(r, "race deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleArchiveRace handles POST /races/{raceID}/archive.
func (s *Server) handleArchiveRace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "raceID")
	if err := s.store.Archive(r.Context(), id); err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	s.audit(r, "race archived", id)
	w.WriteHeader(http.StatusOK)
}

// handleRestoreRace handles POST /races/{raceID}/restore.
func (s *Server) handleRestoreRace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "raceID")
	if err := s.store.Restore(r.Context(), id); err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	s.audit(r, "race restored", id)
	w.WriteHeader(http.StatusCreated)
}

// handleCreateFromLeg handles POST /legs: the leg is converted to a race, its boat resolved
// through the polar service, and the result created in the active set.
func (s *Server) handleCreateFromLeg(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		sendJSONError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}
	l, err := leg.Decode(data)
	if err != nil {
		sendJSONError(w, http.StatusBadRequest, "invalid leg JSON")
		return
	}

	race := l.ToRace()
	if boat, ok := s.boats.Resolve(r.Context(), l.Boat.PolarID); ok {
		race.Boat = boat
	}

	if err := s.store.Create(r.Context(), race); err != nil {
		s.sendStoreError(w, r, err)
		return
	}

	s.audit(r, "race created from leg", race.ID, "race_id", race.RaceID, "boat", race.Boat)
	w.Header().Set("Location", APIPrefix+"/races/"+race.ID)
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: race.ID})
}

// decodeRace parses a race body, writing a 400 on failure.
func (s *Server) decodeRace(w http.ResponseWriter, r *http.Request) (*store.Race, bool) {
	var race store.Race
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&race); err != nil {
		sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	race.Archived = false
	race.Normalize()
	return &race, true
}

// audit logs a successful mutation with the caller's identity.
func (s *Server) audit(r *http.Request, msg, id string, args ...any) {
	attrs := append([]any{
		"id", id,
		"subject", auth.SubjectFromContext(r.Context()),
		"request_id", middleware.GetReqID(r.Context()),
	}, args...)
	s.logger.Info(msg, attrs...)
}

// statusForError maps a store error onto an HTTP status code.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, store.ErrIdentifierRequired), errors.Is(err, store.ErrInvalidIdentifier):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// sendStoreError writes the mapped status. Internal failures are logged and their detail
// withheld from the client.
func (s *Server) sendStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("store operation failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		sendJSONError(w, status, "internal server error")
		return
	}
	sendJSONError(w, status, err.Error())
}

// sendJSONError writes {"error": message} with the given status.
func sendJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
