package raft

import (
	"context"
	"sync"
	"time"
)

// HandleRequestVote implements the RequestVote receiver of spec.md
// §4.4, using the standard-Raft reading of term_ok (see DESIGN.md's
// Open Question #1) rather than the source's literal predicate.
func (r *Replica) HandleRequestVote(req RequestVote) RequestVoteResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActivityTime = time.Now()

	myLastTerm := r.log.LastTerm()
	logOK := req.LastLogTerm > myLastTerm ||
		(req.LastLogTerm == myLastTerm && req.LastLogIndex >= r.log.Len())
	termOK := req.Term > r.currentTerm ||
		(req.Term == r.currentTerm && (r.votedFor == "" || r.votedFor == req.CandidateID))

	if logOK && termOK {
		r.currentTerm = req.Term
		r.role = Follower
		r.votedFor = req.CandidateID
		r.metrics.SetTerm(req.Term)
		r.logger.Infow("granted vote", "node", r.nodeID, "candidate", req.CandidateID, "term", req.Term)
		r.metrics.VoteGranted()
		return RequestVoteResponse{NodeID: r.nodeID, Term: r.currentTerm, VoteGranted: true}
	}

	r.logger.Debugw("denied vote", "node", r.nodeID, "candidate", req.CandidateID, "term", req.Term, "log_ok", logOK, "term_ok", termOK)
	r.metrics.VoteDenied()
	return RequestVoteResponse{NodeID: "", Term: r.currentTerm, VoteGranted: false}
}

// HandleAppendEntries implements the AppendEntries receiver of spec.md
// §4.5, bounding the commit advance to min(leaderCommit, len(log)) per
// DESIGN.md's Open Question #2.
func (r *Replica) HandleAppendEntries(req AppendEntries) AppendEntriesResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActivityTime = time.Now()

	if req.Term > r.currentTerm {
		r.currentTerm = req.Term
		r.votedFor = ""
		r.role = Follower
		r.currentLeader = req.LeaderID
		r.metrics.SetTerm(req.Term)
	}
	if req.Term == r.currentTerm && r.role == Candidate {
		r.role = Follower
		r.currentLeader = req.LeaderID
	}

	logOK := r.log.Len() >= req.LogLength &&
		(req.LogLength == 0 || r.log.TermAt(req.LogLength) == req.LogTerm)

	if req.Term == r.currentTerm && logOK {
		r.log.AppendFrom(req.LogLength, req.Entries)
		if req.LeaderCommit > r.commitLength {
			newCommit := req.LeaderCommit
			if newCommit > r.log.Len() {
				newCommit = r.log.Len()
			}
			if newCommit > r.commitLength {
				r.applyCommittedLocked(r.commitLength, newCommit)
			}
		}
		r.metrics.AppendEntriesAccepted()
		return AppendEntriesResponse{
			Term:    r.currentTerm,
			Ack:     req.LogLength + len(req.Entries),
			Success: true,
		}
	}

	r.metrics.AppendEntriesRejected()
	return AppendEntriesResponse{Term: r.currentTerm, Ack: 0, Success: false}
}

// HandleCommand implements client-command submission (spec.md §4.9).
// It is serialized end-to-end by cmdMu so a second submission never
// interleaves its replication round with the first's.
func (r *Replica) HandleCommand(ctx context.Context, command string) string {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()

	r.mu.Lock()
	if r.role != Leader {
		r.mu.Unlock()
		r.metrics.CommandRejected()
		return "ERROR: I am not a LEADER, cannot process command"
	}
	if command == "" {
		r.mu.Unlock()
		r.logger.Debugw("rejecting command", "node", r.nodeID, "err", ErrEmptyCommand)
		r.metrics.CommandRejected()
		return "ERROR: No command"
	}

	term := r.currentTerm
	r.log.Append(LogEntry{Term: term, Command: command})
	r.ackedLength[r.nodeID] = r.log.Len()
	peers := append([]string(nil), r.peers...)
	r.mu.Unlock()

	var wg sync.WaitGroup
	succeeded := make([]bool, len(peers))
	for i, peer := range peers {
		wg.Add(1)
		go func(i int, peer string) {
			defer wg.Done()
			succeeded[i] = r.Replicate(ctx, peer)
		}(i, peer)
	}
	wg.Wait()

	quorum := 1 // the leader counts itself
	for _, ok := range succeeded {
		if ok {
			quorum++
		}
	}

	r.mu.Lock()
	majority := r.majority
	r.mu.Unlock()

	if quorum >= majority {
		r.metrics.CommandAccepted()
		return "OK: Command '" + command + "' added to log"
	}
	r.metrics.CommandRejected()
	return "ERROR: Not enough quorum to commit the command"
}
