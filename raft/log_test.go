package raft_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colinmarsh/raftd/raft"
)

func TestLog_StartsEmpty(t *testing.T) {
	r := newTestReplica()
	assert.Empty(t, r.LogEntries())
	assert.EqualValues(t, 0, r.CommitLength())
}

func TestLog_AppendFromPlainExtend(t *testing.T) {
	r := newTestReplica("node2")
	seedLog(t, r, raft.LogEntry{Term: 1, Command: "a"})

	resp := r.HandleAppendEntries(raft.AppendEntries{
		Term:      r.Term(),
		LeaderID:  "node2",
		LogLength: 1,
		LogTerm:   1,
		Entries:   []raft.LogEntry{{Term: 1, Command: "b"}},
	})

	assert := assert.New(t)
	assert.True(resp.Success)
	assert.Equal([]raft.LogEntry{{Term: 1, Command: "a"}, {Term: 1, Command: "b"}}, r.LogEntries())
}

func TestLog_AppendFromRejectsOnLengthMismatch(t *testing.T) {
	r := newTestReplica("node2")
	bumpTerm(t, r, 1)

	resp := r.HandleAppendEntries(raft.AppendEntries{
		Term:      1,
		LeaderID:  "node2",
		LogLength: 5, // replica only has 0 entries
		LogTerm:   1,
		Entries:   []raft.LogEntry{{Term: 1, Command: "x"}},
	})

	assert.False(t, resp.Success)
	assert.Empty(t, r.LogEntries())
}
