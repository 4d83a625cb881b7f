package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/colinmarsh/raftd/raft"
)

// Collector implements raft.Metrics, exporting protocol events as
// Prometheus counters and gauges.
type Collector struct {
	electionsStarted      prometheus.Counter
	votesGranted          prometheus.Counter
	votesDenied           prometheus.Counter
	becameLeader          prometheus.Counter
	becameFollower        prometheus.Counter
	appendEntriesAccepted prometheus.Counter
	appendEntriesRejected prometheus.Counter
	commandsAccepted      prometheus.Counter
	commandsRejected      prometheus.Counter
	term                  prometheus.Gauge
	commitLength          prometheus.Gauge
	role                  prometheus.Gauge
}

// NewCollector builds a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer, nodeID string) *Collector {
	labels := prometheus.Labels{"node": nodeID}
	c := &Collector{
		electionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raftd_elections_started_total", ConstLabels: labels,
		}),
		votesGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raftd_votes_granted_total", ConstLabels: labels,
		}),
		votesDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raftd_votes_denied_total", ConstLabels: labels,
		}),
		becameLeader: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raftd_became_leader_total", ConstLabels: labels,
		}),
		becameFollower: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raftd_became_follower_total", ConstLabels: labels,
		}),
		appendEntriesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raftd_append_entries_accepted_total", ConstLabels: labels,
		}),
		appendEntriesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raftd_append_entries_rejected_total", ConstLabels: labels,
		}),
		commandsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raftd_commands_accepted_total", ConstLabels: labels,
		}),
		commandsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raftd_commands_rejected_total", ConstLabels: labels,
		}),
		term: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raftd_current_term", ConstLabels: labels,
		}),
		commitLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raftd_commit_length", ConstLabels: labels,
		}),
		role: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raftd_role", ConstLabels: labels,
		}),
	}
	reg.MustRegister(
		c.electionsStarted, c.votesGranted, c.votesDenied,
		c.becameLeader, c.becameFollower,
		c.appendEntriesAccepted, c.appendEntriesRejected,
		c.commandsAccepted, c.commandsRejected,
		c.term, c.commitLength, c.role,
	)
	return c
}

func (c *Collector) ElectionStarted()         { c.electionsStarted.Inc() }
func (c *Collector) VoteGranted()             { c.votesGranted.Inc() }
func (c *Collector) VoteDenied()              { c.votesDenied.Inc() }
func (c *Collector) BecameLeader()            { c.becameLeader.Inc() }
func (c *Collector) BecameFollower()          { c.becameFollower.Inc() }
func (c *Collector) AppendEntriesAccepted()   { c.appendEntriesAccepted.Inc() }
func (c *Collector) AppendEntriesRejected()   { c.appendEntriesRejected.Inc() }
func (c *Collector) CommandAccepted()         { c.commandsAccepted.Inc() }
func (c *Collector) CommandRejected()         { c.commandsRejected.Inc() }
func (c *Collector) SetTerm(term uint64)      { c.term.Set(float64(term)) }
func (c *Collector) SetCommitLength(n int)    { c.commitLength.Set(float64(n)) }
func (c *Collector) SetRole(r raft.Role)      { c.role.Set(float64(r)) }
