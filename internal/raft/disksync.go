package raft

import "time"

// diskSyncLoop batches log flushes off the network-handling path. The
// leader queues a sync at append time and moves on; this task takes the
// handle, waits for durability with the mutex released, then feeds the
// synced frontier into commit advancement. The leader's own replica
// never counts toward a quorum before the entry is durable locally.
func (n *Node) diskSyncLoop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for !n.exiting {
		if !n.logSyncQueued {
			n.waitLocked(time.Time{})
			continue
		}

		h := n.log.Sync()
		n.logSyncQueued = false

		n.mu.Unlock()
		err := h.Wait()
		n.mu.Lock()

		if err != nil {
			n.fatal("sync log", err)
		}
		if h.LastIndex > n.lastSynced {
			n.lastSynced = h.LastIndex
		}
		n.advanceCommitIndexLocked()
		n.cond.Broadcast()
	}
}
