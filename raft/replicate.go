package raft

import (
	"context"
	"time"
)

// Replicate implements spec.md §4.6's single-peer replication RPC: send
// the suffix of the log the peer is believed to be missing, and on a
// log mismatch, back off sentLength and retry — as a bounded loop
// rather than recursion, per spec.md §9's concurrency redesign note.
// It returns whether the peer acknowledged the sent entries.
func (r *Replica) Replicate(ctx context.Context, peer string) bool {
	roundID := r.newRoundID()
	for {
		r.mu.Lock()
		if r.role != Leader {
			r.mu.Unlock()
			return false
		}
		sent := r.sentLength[peer]
		entries := r.log.Suffix(sent)
		req := AppendEntries{
			Term:         r.currentTerm,
			LeaderID:     r.nodeID,
			LogLength:    sent,
			LogTerm:      r.log.TermAt(sent),
			Entries:      entries,
			LeaderCommit: r.commitLength,
		}
		term := r.currentTerm
		r.mu.Unlock()

		rpcCtx, cancel := context.WithTimeout(ctx, r.cfg.HeartbeatTimeout)
		resp, err := r.transport.SendAppendEntries(rpcCtx, peer, req)
		cancel()
		if err != nil {
			r.logger.Debugw("replicate round failed", "node", r.nodeID, "peer", peer, "round_id", roundID, "err", err)
			return false
		}

		r.mu.Lock()
		if r.role != Leader || r.currentTerm != term {
			// We are no longer the leader of the term this round was
			// sent under; the response is stale.
			r.mu.Unlock()
			return false
		}

		if resp.Term > r.currentTerm {
			r.stepDownLocked(resp.Term)
			r.mu.Unlock()
			return false
		}

		if resp.Success {
			r.sentLength[peer] = sent + len(entries)
			r.ackedLength[peer] = sent + len(entries)
			r.commitAdvanceLocked()
			r.logger.Debugw("replicate round succeeded", "node", r.nodeID, "peer", peer, "round_id", roundID, "acked", r.ackedLength[peer])
			r.mu.Unlock()
			return true
		}

		// Rejected: back off and retry with a shorter prefix, per
		// spec.md §4.6. sentLength never goes below 0.
		if r.sentLength[peer] > 0 {
			r.sentLength[peer]--
		}
		retry := r.sentLength[peer] != sent
		r.logger.Debugw("replicate round rejected", "node", r.nodeID, "peer", peer, "round_id", roundID, "retry", retry)
		r.mu.Unlock()
		if !retry {
			return false
		}
	}
}

// commitAdvanceLocked implements spec.md §4.7's commit rule: the
// largest length R such that a quorum of replicas (leader included, per
// DESIGN.md's Open Question #3) has acked at least R, and the entry at
// R belongs to the current term. Caller must hold mu.
func (r *Replica) commitAdvanceLocked() {
	if r.role != Leader {
		return
	}
	for length := r.log.Len(); length > r.commitLength; length-- {
		if r.log.TermAt(length) != r.currentTerm {
			continue
		}
		acks := 1 // the leader acks its own log
		for _, peer := range r.peers {
			if r.ackedLength[peer] >= length {
				acks++
			}
		}
		if acks >= r.majority {
			r.applyCommittedLocked(r.commitLength, length)
			return
		}
	}
}

// heartbeatLoop implements spec.md §4.8: while Leader, periodically fan
// out AppendEntries to every peer, sleeping until the next boundary of
// lastActivityTime + HeartbeatTimeout rather than a fixed tick, per
// original_source's generate_heartbeats. While not Leader it sleeps one
// heartbeat interval and re-checks.
func (r *Replica) heartbeatLoop(ctx context.Context) {
	for {
		r.mu.Lock()
		isLeader := r.role == Leader
		wait := r.lastActivityTime.Add(r.cfg.HeartbeatTimeout).Sub(time.Now())
		r.mu.Unlock()

		if !isLeader {
			wait = r.cfg.HeartbeatTimeout
		}
		if wait < 0 {
			wait = 0
		}
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if !isLeader {
			continue
		}

		r.mu.Lock()
		stillLeader := r.role == Leader
		peers := append([]string(nil), r.peers...)
		r.lastActivityTime = time.Now()
		r.mu.Unlock()
		if !stillLeader {
			continue
		}

		heartbeatRoundID := r.newRoundID()
		r.logger.Debugw("heartbeat round", "node", r.nodeID, "round_id", heartbeatRoundID, "peers", len(peers))
		for _, peer := range peers {
			go r.Replicate(ctx, peer)
		}
	}
}
