package raft_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinmarsh/raftd/raft"
)

// noopTransport never responds; used for single-replica receiver tests
// where no outbound RPCs are expected to fire.
type noopTransport struct{}

func (noopTransport) SendRequestVote(context.Context, string, raft.RequestVote) (raft.RequestVoteResponse, error) {
	return raft.RequestVoteResponse{}, context.DeadlineExceeded
}

func (noopTransport) SendAppendEntries(context.Context, string, raft.AppendEntries) (raft.AppendEntriesResponse, error) {
	return raft.AppendEntriesResponse{}, context.DeadlineExceeded
}

func newTestReplica(peers ...string) *raft.Replica {
	return raft.NewReplica("node1", peers, noopTransport{})
}

// Scenario 1: Fresh vote granted.
func TestHandleRequestVote_FreshVoteGranted(t *testing.T) {
	r := newTestReplica("node2", "node3")

	resp := r.HandleRequestVote(raft.RequestVote{
		Term:         1,
		CandidateID:  "node2",
		LastLogIndex: 0,
		LastLogTerm:  0,
	})

	assert.Equal(t, raft.RequestVoteResponse{NodeID: "node1", Term: 1, VoteGranted: true}, resp)
	assert.EqualValues(t, 1, r.Term())
	assert.Equal(t, raft.Follower, r.Role())
}

// Scenario 2: Reject outdated log.
func TestHandleRequestVote_RejectOutdatedLog(t *testing.T) {
	r := newTestReplica("node2", "node3")
	seedLog(t, r, raft.LogEntry{Term: 2, Command: "m1"})
	bumpTerm(t, r, 2)

	resp := r.HandleRequestVote(raft.RequestVote{
		Term:         2,
		CandidateID:  "node2",
		LastLogIndex: 0,
		LastLogTerm:  1,
	})

	assert.Equal(t, raft.RequestVoteResponse{NodeID: "", Term: 2, VoteGranted: false}, resp)
}

// P1: single vote per term.
func TestHandleRequestVote_SingleVotePerTerm(t *testing.T) {
	r := newTestReplica("node2", "node3")

	first := r.HandleRequestVote(raft.RequestVote{Term: 1, CandidateID: "node2"})
	second := r.HandleRequestVote(raft.RequestVote{Term: 1, CandidateID: "node3"})

	assert.True(t, first.VoteGranted)
	assert.False(t, second.VoteGranted)
}

// Scenario 3: AppendEntries extends log.
func TestHandleAppendEntries_ExtendsLog(t *testing.T) {
	r := newTestReplica("node2", "node3")
	seedLog(t, r, raft.LogEntry{Term: 1, Command: "m1"}, raft.LogEntry{Term: 4, Command: "m2"})
	bumpTerm(t, r, 4)

	resp := r.HandleAppendEntries(raft.AppendEntries{
		Term:         4,
		LeaderID:     "node2",
		LogLength:    2,
		LogTerm:      4,
		Entries:      []raft.LogEntry{{Term: 4, Command: "m3"}, {Term: 4, Command: "m4"}},
		LeaderCommit: 3,
	})

	require.Equal(t, raft.AppendEntriesResponse{Term: 4, Ack: 4, Success: true}, resp)
	assert.Equal(t, []raft.LogEntry{
		{Term: 1, Command: "m1"}, {Term: 4, Command: "m2"}, {Term: 4, Command: "m3"}, {Term: 4, Command: "m4"},
	}, r.LogEntries())
	assert.EqualValues(t, 3, r.CommitLength())
	assert.Equal(t, "_m1_m2_m3_", r.StateMachine())
}

// Scenario 4: AppendEntries with conflict truncates and appends.
func TestHandleAppendEntries_ConflictTruncatesAndAppends(t *testing.T) {
	r := newTestReplica("node2", "node3")
	seedLog(t, r,
		raft.LogEntry{Term: 1, Command: "m1"},
		raft.LogEntry{Term: 2, Command: "m2"},
		raft.LogEntry{Term: 2, Command: "m3"},
	)
	bumpTerm(t, r, 3)

	resp := r.HandleAppendEntries(raft.AppendEntries{
		Term:         3,
		LeaderID:     "node2",
		LogLength:    1,
		LogTerm:      1,
		Entries:      []raft.LogEntry{{Term: 3, Command: "X"}, {Term: 3, Command: "Y"}},
		LeaderCommit: 0,
	})

	require.True(t, resp.Success)
	assert.EqualValues(t, 3, resp.Ack)
	assert.Equal(t, []raft.LogEntry{
		{Term: 1, Command: "m1"}, {Term: 3, Command: "X"}, {Term: 3, Command: "Y"},
	}, r.LogEntries())
}

// Boundary: L == 0 is accepted against any log as long as the term is
// current.
func TestHandleAppendEntries_ZeroLengthPrefixAccepted(t *testing.T) {
	r := newTestReplica("node2", "node3")
	bumpTerm(t, r, 1)

	resp := r.HandleAppendEntries(raft.AppendEntries{
		Term:      1,
		LeaderID:  "node2",
		LogLength: 0,
		LogTerm:   0,
		Entries:   []raft.LogEntry{{Term: 1, Command: "m1"}},
	})

	assert.True(t, resp.Success)
	assert.Equal(t, []raft.LogEntry{{Term: 1, Command: "m1"}}, r.LogEntries())
}

// Replaying the same append_entries twice leaves the log unchanged
// after the first success.
func TestHandleAppendEntries_ReplayIsIdempotent(t *testing.T) {
	r := newTestReplica("node2", "node3")
	bumpTerm(t, r, 1)

	req := raft.AppendEntries{
		Term:      1,
		LeaderID:  "node2",
		LogLength: 0,
		LogTerm:   0,
		Entries:   []raft.LogEntry{{Term: 1, Command: "m1"}},
	}

	first := r.HandleAppendEntries(req)
	second := r.HandleAppendEntries(req)

	assert.Equal(t, first, second)
	assert.Equal(t, []raft.LogEntry{{Term: 1, Command: "m1"}}, r.LogEntries())
}

// An append_entries with empty entries and leader_commit == commit_length
// is a no-op on the log.
func TestHandleAppendEntries_EmptyEntriesNoopOnMatchingCommit(t *testing.T) {
	r := newTestReplica("node2", "node3")
	seedLog(t, r, raft.LogEntry{Term: 1, Command: "m1"})
	bumpTerm(t, r, 1)

	resp := r.HandleAppendEntries(raft.AppendEntries{
		Term:         1,
		LeaderID:     "node2",
		LogLength:    1,
		LogTerm:      1,
		Entries:      nil,
		LeaderCommit: 0,
	})

	assert.True(t, resp.Success)
	assert.Equal(t, []raft.LogEntry{{Term: 1, Command: "m1"}}, r.LogEntries())
	assert.EqualValues(t, 0, r.CommitLength())
}

// Scenario 6: Non-leader rejects command.
func TestHandleCommand_NonLeaderRejects(t *testing.T) {
	r := newTestReplica("node2", "node3")

	resp := r.HandleCommand(context.Background(), "x")

	assert.Equal(t, "ERROR: I am not a LEADER, cannot process command", resp)
	assert.Empty(t, r.LogEntries())
}

// seedLog and bumpTerm are test-only helpers that drive a replica
// through RPCs to reach a desired pre-state, rather than reaching into
// unexported fields.
func seedLog(t *testing.T, r *raft.Replica, entries ...raft.LogEntry) {
	t.Helper()
	resp := r.HandleAppendEntries(raft.AppendEntries{
		Term:      r.Term() + 1,
		LeaderID:  "seed",
		LogLength: 0,
		LogTerm:   0,
		Entries:   entries,
	})
	require.True(t, resp.Success, "seedLog: append rejected")
}

func bumpTerm(t *testing.T, r *raft.Replica, term uint64) {
	t.Helper()
	if r.Term() >= term {
		return
	}
	r.HandleRequestVote(raft.RequestVote{
		Term:         term,
		CandidateID:  "term-bump",
		LastLogIndex: 1 << 30,
		LastLogTerm:  1 << 30,
	})
	require.EqualValues(t, term, r.Term())
}
