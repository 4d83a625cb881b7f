// Package raftnet binds a raft.Replica to the HTTP/JSON wire contract
// of spec.md §6. It is grounded on bernerdschaefer-raft's http package:
// the same Mux seam and path-constant shape, reimplemented fresh since
// the teacher only left behind its test file (see DESIGN.md).
package raftnet

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/colinmarsh/raftd/raft"
)

// Path constants for the four endpoints spec.md §6 defines.
const (
	RequestVotePath   = "/request_vote"
	AppendEntriesPath = "/append_entries"
	RootPath          = "/"
)

// Mux is the minimal HTTP routing seam Server needs. GorillaMux (see
// mux.go) and test doubles satisfy it; *mux.Router and *http.ServeMux do
// not satisfy it directly, because their HandleFunc signatures differ.
type Mux interface {
	HandleFunc(path string, handler http.HandlerFunc)
}

// Receiver is what a Server dispatches inbound RPCs to; *raft.Replica
// implements it.
type Receiver interface {
	HandleRequestVote(req raft.RequestVote) raft.RequestVoteResponse
	HandleAppendEntries(req raft.AppendEntries) raft.AppendEntriesResponse
	HandleCommand(ctx context.Context, command string) string
	Status() string
}

// Server adapts a Receiver to HTTP handlers.
type Server struct {
	receiver Receiver
}

// NewServer wraps receiver for HTTP dispatch.
func NewServer(receiver Receiver) *Server {
	return &Server{receiver: receiver}
}

// Install registers all endpoints on mux. RootPath serves both the
// client-command POST and the status GET, dispatched on method, since
// Mux registers at most one handler per path.
func (s *Server) Install(m Mux) {
	m.HandleFunc(RequestVotePath, s.handleRequestVote)
	m.HandleFunc(AppendEntriesPath, s.handleAppendEntries)
	m.HandleFunc(RootPath, s.handleCommandOrStatus)
}

func (s *Server) handleCommandOrStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.handleStatus(w, r)
		return
	}
	s.handleCommand(w, r)
}

func (s *Server) handleRequestVote(w http.ResponseWriter, r *http.Request) {
	var req raft.RequestVote
	if err := decodeJSON(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, s.receiver.HandleRequestVote(req))
}

func (s *Server) handleAppendEntries(w http.ResponseWriter, r *http.Request) {
	var req raft.AppendEntries
	if err := decodeJSON(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, s.receiver.HandleAppendEntries(req))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Command string `json:"command"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result := s.receiver.HandleCommand(r.Context(), body.Command)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, s.receiver.Status())
}

func decodeJSON(body io.ReadCloser, v interface{}) error {
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
