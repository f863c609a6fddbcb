package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aretw0/notebox/pkg/core"
)

// errorBody is the REST error payload.
type errorBody struct {
	Error string `json:"error" cbor:"error"`
}

type saveRequest struct {
	ID      string
	Content string
}

// handleGetNotes lists notes, or returns one note when ?id= is present.
func (s *Server) handleGetNotes(w http.ResponseWriter, r *http.Request) {
	root, err := s.root(r)
	if err != nil {
		s.fail(w, r, err, "Invalid workspace")
		return
	}

	if !r.URL.Query().Has("id") {
		notes, err := s.service.ListNotes(r.Context(), root)
		if err != nil {
			s.fail(w, r, err, "Failed to list notes")
			return
		}
		s.respond(w, r, http.StatusOK, notes)
		return
	}

	note, err := s.service.GetNote(r.Context(), root, r.URL.Query().Get("id"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.respond(w, r, http.StatusNotFound, errorBody{Error: "Note not found"})
			return
		}
		s.fail(w, r, err, "Failed to read note")
		return
	}
	s.respond(w, r, http.StatusOK, note)
}

func (s *Server) handleSaveNote(w http.ResponseWriter, r *http.Request) {
	body, err := s.decodeBody(w, r)
	if err != nil {
		s.respond(w, r, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	req, msg := parseSave(body)
	if msg != "" {
		s.respond(w, r, http.StatusBadRequest, errorBody{Error: msg})
		return
	}

	root, err := s.root(r)
	if err != nil {
		s.fail(w, r, err, "Invalid workspace")
		return
	}

	info, err := s.service.SaveNote(r.Context(), root, req.ID, req.Content)
	if err != nil {
		s.fail(w, r, err, "Failed to save note")
		return
	}
	s.respond(w, r, http.StatusOK, info)
}

// parseSave checks field presence and types. Empty content is allowed.
func parseSave(body map[string]any) (saveRequest, string) {
	id, ok := body["id"].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return saveRequest{}, "Missing id"
	}
	content, ok := body["content"].(string)
	if !ok {
		return saveRequest{}, "Content must be a string"
	}
	return saveRequest{ID: id, Content: content}, ""
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	root, err := s.root(r)
	if err != nil {
		s.fail(w, r, err, "Invalid workspace")
		return
	}

	deleted, err := s.service.DeleteNote(r.Context(), root, r.URL.Query().Get("id"))
	if err != nil {
		s.fail(w, r, err, "Failed to delete note")
		return
	}
	s.respond(w, r, http.StatusOK, map[string]bool{"deleted": deleted})
}

// fail writes the mapped status. Client faults echo the error; server
// faults are logged and answered with the generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, generic string) {
	status := httpStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(generic, "path", r.URL.Path, "error", err)
		msg = generic
	}
	s.respond(w, r, status, errorBody{Error: msg})
}
