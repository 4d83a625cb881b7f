package raft

import (
	"encoding/json"
	"fmt"
)

// These types are the in-process representation of spec.md §6's wire
// messages. JSON field names and the [term, command] tuple shape for
// log entries are fixed by the spec, so the json tags here are load
// bearing for interop with the transport/raftnet encoding.

// LogEntry is one position in the replicated log. On the wire it is a
// two-element JSON array [term, command], not an object — MarshalJSON
// and UnmarshalJSON below implement that shape.
type LogEntry struct {
	Term    uint64
	Command string
}

func (e LogEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.Term, e.Command})
}

func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var tuple [2]interface{}
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("log entry: %w", err)
	}
	term, ok := tuple[0].(float64)
	if !ok {
		return fmt.Errorf("log entry: term is not a number")
	}
	command, ok := tuple[1].(string)
	if !ok {
		return fmt.Errorf("log entry: command is not a string")
	}
	e.Term = uint64(term)
	e.Command = command
	return nil
}

// RequestVote is the RequestVote RPC request.
type RequestVote struct {
	Term         uint64 `json:"term"`
	CandidateID  string `json:"candidate_id"`
	LastLogIndex int    `json:"last_log_index"`
	LastLogTerm  uint64 `json:"last_log_term"`
}

// RequestVoteResponse is the RequestVote RPC response. NodeID is ""
// when the vote was not granted, per spec.md §6 and §4.4 — this is how
// Election attributes granted votes to a specific peer.
type RequestVoteResponse struct {
	NodeID      string `json:"node_id"`
	Term        uint64 `json:"term"`
	VoteGranted bool   `json:"vote_granted"`
}

// AppendEntries is the AppendEntries RPC request. LogLength is the
// leader's assumed already-replicated prefix length L; LogTerm is the
// term at position L (0 when L == 0).
type AppendEntries struct {
	Term         uint64     `json:"term"`
	LeaderID     string     `json:"leader_id"`
	LogLength    int        `json:"log_length"`
	LogTerm      uint64     `json:"log_term"`
	Entries      []LogEntry `json:"entries"`
	LeaderCommit int        `json:"leader_commit"`
}

// AppendEntriesResponse is the AppendEntries RPC response.
type AppendEntriesResponse struct {
	Term    uint64 `json:"term"`
	Ack     int    `json:"ack"`
	Success bool   `json:"success"`
}
