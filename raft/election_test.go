package raft_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinmarsh/raftd/raft"
)

// fakeTransport routes RequestVote/AppendEntries to per-peer canned
// responders, mirroring bernerdschaefer-raft's nonresponsivePeer /
// approvingPeer / disapprovingPeer fakes but as a single injectable
// Transport rather than one type per peer.
type fakeTransport struct {
	mu            sync.Mutex
	requestVote   func(peerID string, req raft.RequestVote) (raft.RequestVoteResponse, error)
	appendEntries func(peerID string, req raft.AppendEntries) (raft.AppendEntriesResponse, error)
	calls         []string
}

func (f *fakeTransport) SendRequestVote(ctx context.Context, peerID string, req raft.RequestVote) (raft.RequestVoteResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "vote:"+peerID)
	handler := f.requestVote
	f.mu.Unlock()
	if handler == nil {
		return raft.RequestVoteResponse{}, context.DeadlineExceeded
	}
	return handler(peerID, req)
}

func (f *fakeTransport) SendAppendEntries(ctx context.Context, peerID string, req raft.AppendEntries) (raft.AppendEntriesResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "append:"+peerID)
	handler := f.appendEntries
	f.mu.Unlock()
	if handler == nil {
		return raft.AppendEntriesResponse{}, context.DeadlineExceeded
	}
	return handler(peerID, req)
}

func approvingTransport() *fakeTransport {
	return &fakeTransport{
		requestVote: func(peerID string, req raft.RequestVote) (raft.RequestVoteResponse, error) {
			return raft.RequestVoteResponse{NodeID: peerID, Term: req.Term, VoteGranted: true}, nil
		},
	}
}

func disapprovingTransport() *fakeTransport {
	return &fakeTransport{
		requestVote: func(peerID string, req raft.RequestVote) (raft.RequestVoteResponse, error) {
			return raft.RequestVoteResponse{NodeID: "", Term: req.Term, VoteGranted: false}, nil
		},
	}
}

func fastConfig() raft.Config {
	return raft.Config{HeartbeatTimeout: 10 * time.Millisecond, ElectionTimeout: 30 * time.Millisecond}
}

func waitForRole(t *testing.T, r *raft.Replica, want raft.Role, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.Role() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, want, r.Role(), "role did not converge in time")
}

func TestElection_BecomesCandidateAfterTimeout(t *testing.T) {
	transport := &fakeTransport{}
	r := raft.NewReplica("node1", []string{"node2", "node3"}, transport, raft.WithConfig(fastConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	assert.Eventually(t, func() bool { return r.Role() != raft.Follower }, time.Second, time.Millisecond)
}

func TestElection_WinsWithQuorum(t *testing.T) {
	transport := approvingTransport()
	r := raft.NewReplica("node1", []string{"node2", "node3"}, transport, raft.WithConfig(fastConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	waitForRole(t, r, raft.Leader, time.Second)
	assert.EqualValues(t, 1, r.Term())
}

func TestElection_LosesWithoutQuorum(t *testing.T) {
	transport := disapprovingTransport()
	r := raft.NewReplica("node1", []string{"node2", "node3"}, transport, raft.WithConfig(fastConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	time.Sleep(200 * time.Millisecond)
	assert.NotEqual(t, raft.Leader, r.Role())
}

func TestElection_StepsDownOnHigherTerm(t *testing.T) {
	transport := &fakeTransport{
		requestVote: func(peerID string, req raft.RequestVote) (raft.RequestVoteResponse, error) {
			return raft.RequestVoteResponse{NodeID: "", Term: req.Term + 10, VoteGranted: false}, nil
		},
	}
	r := raft.NewReplica("node1", []string{"node2"}, transport, raft.WithConfig(fastConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	assert.Eventually(t, func() bool { return r.Role() == raft.Follower && r.Term() >= 10 }, time.Second, time.Millisecond)
}
