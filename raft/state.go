package raft

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Metrics is the observability sink a Replica reports protocol events
// to. telemetry.Collector (internal/telemetry) is the concrete
// Prometheus-backed implementation; tests use a no-op stub.
type Metrics interface {
	ElectionStarted()
	VoteGranted()
	VoteDenied()
	BecameLeader()
	BecameFollower()
	AppendEntriesAccepted()
	AppendEntriesRejected()
	CommandAccepted()
	CommandRejected()
	SetTerm(term uint64)
	SetCommitLength(n int)
	SetRole(r Role)
}

type noopMetrics struct{}

func (noopMetrics) ElectionStarted()       {}
func (noopMetrics) VoteGranted()           {}
func (noopMetrics) VoteDenied()            {}
func (noopMetrics) BecameLeader()          {}
func (noopMetrics) BecameFollower()        {}
func (noopMetrics) AppendEntriesAccepted() {}
func (noopMetrics) AppendEntriesRejected() {}
func (noopMetrics) CommandAccepted()       {}
func (noopMetrics) CommandRejected()       {}
func (noopMetrics) SetTerm(uint64)         {}
func (noopMetrics) SetCommitLength(int)    {}
func (noopMetrics) SetRole(Role)           {}

// Replica holds all the state named in spec.md §3's Data Model table.
// Every protocol field is guarded by mu. cmdMu serializes the full
// quorum-wait window of HandleCommand (spec.md §4.1/§5) independently
// of mu, and rngMu guards only the backoff random source.
type Replica struct {
	nodeID string
	peers  []string

	mu sync.Mutex

	role             Role
	currentTerm      uint64
	votedFor         string
	log              Log
	commitLength     int
	stateMachine     string
	votesReceived    map[string]struct{}
	currentLeader    string
	sentLength       map[string]int
	ackedLength      map[string]int
	lastActivityTime time.Time

	cmdMu sync.Mutex

	cfg       Config
	majority  int
	transport Transport
	logger    *zap.SugaredLogger
	metrics   Metrics
	rng       *rand.Rand
	rngMu     sync.Mutex

	// OnCommit, if set, is invoked (holding no lock) once per newly
	// committed entry, each call on its own goroutine; the calls are not
	// ordered relative to one another. It exists purely as a
	// durability hook per spec.md §9's open question — a future
	// write-ahead log could observe commits here without the state
	// machine needing to change shape. Unused by default.
	OnCommit func(index int, entry LogEntry)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Option configures a Replica at construction time.
type Option func(*Replica)

// WithConfig overrides the default heartbeat/election timeouts.
func WithConfig(cfg Config) Option {
	return func(r *Replica) { r.cfg = cfg.withDefaults() }
}

// WithLogger attaches a structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Replica) { r.logger = l }
}

// WithMetrics attaches a Metrics sink. Defaults to a no-op sink.
func WithMetrics(m Metrics) Option {
	return func(r *Replica) { r.metrics = m }
}

// NewReplica constructs a Replica in the Follower role, term 0, with an
// empty log, per spec.md §3's initial lifecycle.
func NewReplica(nodeID string, peers []string, transport Transport, opts ...Option) *Replica {
	r := &Replica{
		nodeID:           nodeID,
		peers:            append([]string(nil), peers...),
		role:             Follower,
		stateMachine:     "_",
		votesReceived:    map[string]struct{}{},
		sentLength:       map[string]int{},
		ackedLength:      map[string]int{},
		lastActivityTime: time.Now(),
		cfg:              DefaultConfig(),
		transport:        transport,
		logger:           zap.NewNop().Sugar(),
		metrics:          noopMetrics{},
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
		stopCh:           make(chan struct{}),
	}
	r.majority = (len(r.peers)+1)/2 + 1
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the election-timer and heartbeat/replication loops.
// It returns immediately; call Stop to shut them down.
func (r *Replica) Start(ctx context.Context) {
	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.electionTimerLoop(ctx)
	}()
	go func() {
		defer r.wg.Done()
		r.heartbeatLoop(ctx)
	}()
}

// Stop signals both background loops to exit and waits for them.
func (r *Replica) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

// NodeID returns this replica's stable identifier.
func (r *Replica) NodeID() string { return r.nodeID }

func (r *Replica) jitteredBackoff() time.Duration {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	lo := r.cfg.ElectionTimeout
	span := int64(lo)
	return lo + time.Duration(r.rng.Int63n(span))
}

func (r *Replica) newRoundID() string {
	return uuid.NewString()
}

// Status renders the plain-text snapshot spec.md §6's GET / returns.
func (r *Replica) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf(
		"Role: %s\nNode: %s\nTerm: %d\nLog : %v\nCommit Length: %d\nSent Length: %v\nAcked Length: %v\nState Machine: %s\nCurrent Leader: %s\n",
		r.role, r.nodeID, r.currentTerm, r.log.Entries(), r.commitLength, r.sentLength, r.ackedLength, r.stateMachine, r.currentLeader,
	)
}

// snapshot fields below are exported read-only accessors used by tests
// and the status/metrics paths; all take the lock.

func (r *Replica) Role() Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.role
}

func (r *Replica) Term() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentTerm
}

func (r *Replica) CommitLength() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commitLength
}

func (r *Replica) StateMachine() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateMachine
}

func (r *Replica) LogEntries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.Entries()
}

func (r *Replica) CurrentLeader() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLeader
}

// stepDownLocked adopts a higher term and reverts to Follower. Caller
// must hold mu.
func (r *Replica) stepDownLocked(term uint64) {
	r.currentTerm = term
	r.votedFor = ""
	if r.role != Follower {
		r.logger.Infow("stepping down", "node", r.nodeID, "new_term", term, "from_role", r.role.String())
	}
	r.role = Follower
	r.metrics.BecameFollower()
	r.metrics.SetTerm(term)
}

// applyCommittedLocked appends command projections for log positions in
// (prevCommit, newCommit] to the state machine, per spec.md §3/§4.5/§4.7.
// Caller must hold mu and must have already bounded newCommit <= log
// length.
func (r *Replica) applyCommittedLocked(prevCommit, newCommit int) {
	for i := prevCommit + 1; i <= newCommit; i++ {
		entry := r.log.EntryAt(i)
		r.stateMachine += entry.Command + "_"
		if r.OnCommit != nil {
			idx, e := i, entry
			go r.OnCommit(idx, e)
		}
	}
	r.commitLength = newCommit
	r.metrics.SetCommitLength(newCommit)
}
