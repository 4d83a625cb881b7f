package raft

import "context"

// Transport is the outbound-RPC collaborator a Replica depends on.
// Concrete implementations (see transport/raftnet) own the wire format;
// the core only needs "send this, maybe get that back before the
// deadline". A deadline expiry or any transport failure must be
// reported as a plain error — Replicate and Election treat every error
// here as "peer silent" (spec.md §7), never as a fault.
type Transport interface {
	SendRequestVote(ctx context.Context, peerID string, req RequestVote) (RequestVoteResponse, error)
	SendAppendEntries(ctx context.Context, peerID string, req AppendEntries) (AppendEntriesResponse, error)
}
