package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RaftIsLeader = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "floyd",
		Subsystem: "raft",
		Name:      "is_leader",
		Help:      "Whether this node is the raft leader (1=leader, 0=otherwise)",
	})

	RaftTerm = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "floyd",
		Subsystem: "raft",
		Name:      "term",
		Help:      "Current raft term",
	})

	RaftCommitIndex = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "floyd",
		Subsystem: "raft",
		Name:      "commit_index",
		Help:      "Current raft commit index",
	})

	RaftAppliedIndex = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "floyd",
		Subsystem: "raft",
		Name:      "applied_index",
		Help:      "Last index delivered to the state machine",
	})

	RaftLastLogIndex = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "floyd",
		Subsystem: "raft",
		Name:      "last_log_index",
		Help:      "Last index present in the durable log",
	})

	RaftPeersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "floyd",
		Subsystem: "raft",
		Name:      "peers_total",
		Help:      "Number of remote peers",
	})

	RaftElectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "floyd",
		Subsystem: "raft",
		Name:      "elections_total",
		Help:      "Total elections started by this node",
	})

	RaftMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floyd",
		Subsystem: "raft",
		Name:      "messages_total",
		Help:      "Total consensus messages sent/received",
	}, []string{"direction", "type"})

	RaftMessageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floyd",
		Subsystem: "raft",
		Name:      "message_errors_total",
		Help:      "Total consensus message send failures",
	}, []string{"peer"})

	RaftProposalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "floyd",
		Subsystem: "raft",
		Name:      "proposals_total",
		Help:      "Total proposals submitted",
	})

	RaftProposalsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "floyd",
		Subsystem: "raft",
		Name:      "proposals_failed_total",
		Help:      "Total failed proposals",
	})

	ProposeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "floyd",
		Subsystem: "raft",
		Name:      "propose_duration_seconds",
		Help:      "Time from propose to apply outcome",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 20),
	})

	LogWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "floyd",
		Subsystem: "log",
		Name:      "writes_total",
		Help:      "Total entries appended to the durable log",
	})

	LogWriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "floyd",
		Subsystem: "log",
		Name:      "write_duration_seconds",
		Help:      "Durable log append duration",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 20),
	})

	LogSyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "floyd",
		Subsystem: "log",
		Name:      "sync_duration_seconds",
		Help:      "Durable log sync duration",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 20),
	})

	StoreKeysTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "floyd",
		Subsystem: "store",
		Name:      "keys_total",
		Help:      "Total keys in the KV store",
	})

	StoreLocksTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "floyd",
		Subsystem: "store",
		Name:      "locks_total",
		Help:      "Locks currently held",
	})

	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floyd",
		Subsystem: "command",
		Name:      "total",
		Help:      "Total client commands processed",
	}, []string{"type", "status"})
)
