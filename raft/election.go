package raft

import (
	"context"
	"time"
)

// electionTimerLoop implements spec.md §4.2: while Follower, if no
// activity for the election timeout, become Candidate and run an
// election. It never runs concurrently with itself — each tick
// synchronously drives at most one election before the next check.
func (r *Replica) electionTimerLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.HeartbeatTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			isFollower := r.role == Follower
			elapsed := time.Since(r.lastActivityTime)
			r.mu.Unlock()
			if !isFollower || elapsed < r.cfg.ElectionTimeout {
				continue
			}
			r.mu.Lock()
			if r.role == Follower {
				r.role = Candidate
			}
			becameCandidate := r.role == Candidate
			r.mu.Unlock()
			if becameCandidate {
				r.runElection(ctx)
			}
		}
	}
}

// runElection implements spec.md §4.3. Precondition: role == Candidate.
func (r *Replica) runElection(ctx context.Context) {
	for {
		r.mu.Lock()
		if r.role != Candidate {
			r.mu.Unlock()
			return
		}
		r.currentTerm++
		r.votedFor = r.nodeID
		r.votesReceived = map[string]struct{}{r.nodeID: {}}
		term := r.currentTerm
		lastLogIndex := r.log.Len()
		lastLogTerm := r.log.LastTerm()
		peers := append([]string(nil), r.peers...)
		r.metrics.SetTerm(term)

		if len(r.votesReceived) >= r.majority {
			// No peers to wait on: the self-vote alone is quorum.
			r.role = Leader
			r.currentLeader = r.nodeID
			r.lastActivityTime = time.Now()
			r.logger.Infow("won election unopposed", "node", r.nodeID, "term", term)
			r.metrics.BecameLeader()
			r.metrics.SetRole(Leader)
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		roundID := r.newRoundID()
		r.logger.Infow("election started", "node", r.nodeID, "term", term, "election_id", roundID)
		r.metrics.ElectionStarted()

		req := RequestVote{
			Term:         term,
			CandidateID:  r.nodeID,
			LastLogIndex: lastLogIndex,
			LastLogTerm:  lastLogTerm,
		}

		responses := make(chan voteResult, len(peers))
		rpcCtx, cancel := context.WithTimeout(ctx, r.cfg.HeartbeatTimeout)
		for _, peer := range peers {
			go func(peer string) {
				resp, err := r.transport.SendRequestVote(rpcCtx, peer, req)
				responses <- voteResult{resp, err}
			}(peer)
		}

		won, deposed := r.collectVotes(responses, len(peers), term)
		cancel()
		if won || deposed {
			return
		}

		// No quorum this round and still Candidate: randomized backoff
		// before retrying, per spec.md §4.3 step 4.
		backoff := r.jitteredBackoff()
		select {
		case <-time.After(backoff):
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// voteResult pairs a RequestVote response with the transport error (if
// any) encountered sending it.
type voteResult struct {
	resp RequestVoteResponse
	err  error
}

// collectVotes consumes RequestVote responses as they arrive and
// applies spec.md §4.3 step 3. It returns (won, deposed); when neither
// is true the caller should back off and retry the round.
func (r *Replica) collectVotes(responses <-chan voteResult, want int, electionTerm uint64) (won, deposed bool) {
	for i := 0; i < want; i++ {
		res := <-responses
		if res.err != nil {
			continue // transient transport failure: treated as "peer silent"
		}
		resp := res.resp

		r.mu.Lock()
		if r.role != Candidate {
			r.mu.Unlock()
			return false, false
		}

		if resp.Term > r.currentTerm {
			r.stepDownLocked(resp.Term)
			r.mu.Unlock()
			return false, true
		}

		if resp.Term == electionTerm && resp.VoteGranted && resp.NodeID != "" {
			r.votesReceived[resp.NodeID] = struct{}{}
			if len(r.votesReceived) >= r.majority {
				r.role = Leader
				r.currentLeader = r.nodeID
				r.lastActivityTime = time.Now()
				for _, peer := range r.peers {
					r.sentLength[peer] = r.log.Len()
					r.ackedLength[peer] = 0
				}
				r.logger.Infow("won election", "node", r.nodeID, "term", r.currentTerm, "votes", len(r.votesReceived))
				r.metrics.BecameLeader()
				r.metrics.SetRole(Leader)
				r.mu.Unlock()
				return true, false
			}
		}
		// response with vote_granted but mismatched term: stale, ignored.
		r.mu.Unlock()
	}
	return false, false
}
