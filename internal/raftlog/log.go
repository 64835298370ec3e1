package raftlog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cy99/floyd/internal/metrics"
)

var (
	// ErrNotFound reports a read of an index that was truncated or never
	// existed. It is the only non-fatal log error.
	ErrNotFound = errors.New("raftlog: entry not found")

	// ErrCorrupt reports a structural check failure during recovery.
	ErrCorrupt = errors.New("raftlog: corrupt")
)

// Log is the crash-safe append-only entry sequence plus the small
// metadata record consensus persists alongside it. It has its own mutex:
// Append, Get and TruncateSuffix are safe to call with the consensus
// mutex held; SyncHandle.Wait must not be.
type Log struct {
	mu sync.Mutex

	dir         string
	segmentSize uint64

	meta     manifestRecord
	sealed   []*segment
	active   *segment
	dirty    []*segment
	lastTerm uint64
}

// Open recovers the log in dir, creating it if empty.
func Open(dir string, segmentSize uint64) (*Log, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	l := &Log{dir: dir, segmentSize: segmentSize}
	if err := l.recover(); err != nil {
		return nil, err
	}
	return l, nil
}

// recover loads the manifest, reopens the active segment repairing any
// torn suffix, and rebuilds the sealed-segment table from headers only.
func (l *Log) recover() error {
	m, err := readManifest(l.dir)
	switch {
	case err == nil:
		l.meta = *m
	case os.IsNotExist(err):
		l.meta = manifestRecord{activeFileNum: 1, entryStart: 1}
		// A crash between segment creation and the first manifest save
		// may have left an orphan file behind.
		os.Remove(segmentPath(l.dir, 1))
		active, err := createSegment(l.dir, 1, 1)
		if err != nil {
			return err
		}
		l.active = active
		if err := saveManifest(l.dir, &l.meta); err != nil {
			return err
		}
		slog.Info("created empty log", "dir", l.dir)
		return nil
	default:
		return fmt.Errorf("read manifest: %w", err)
	}

	for num := uint64(1); num < l.meta.activeFileNum; num++ {
		start, end, err := readIndexRange(l.dir, num)
		if err != nil {
			return fmt.Errorf("sealed segment %d: %w", num, err)
		}
		l.sealed = append(l.sealed, &segment{
			fileNum: num,
			path:    segmentPath(l.dir, num),
			header:  segmentHeader{entryStart: start, entryEnd: end},
		})
	}

	active, err := openSegment(l.dir, l.meta.activeFileNum, true)
	if err != nil {
		return err
	}
	l.active = active
	l.meta.entryStart = active.header.entryStart
	l.meta.entryEnd = active.header.entryEnd

	if last := l.lastIndexLocked(); last > 0 {
		e, err := l.getLocked(last)
		if err != nil {
			return fmt.Errorf("recover last term: %w", err)
		}
		l.lastTerm = e.Term
	}

	slog.Info("recovered log",
		"dir", l.dir,
		"segments", len(l.sealed)+1,
		"first_index", l.firstIndexLocked(),
		"last_index", l.lastIndexLocked(),
		"current_term", l.meta.currentTerm,
		"applied_index", l.meta.lastAppliedIndex,
	)
	return nil
}

// Append assigns consecutive indices to entries whose Index field is
// zero, writes them to the active segment, and returns the inclusive
// index range assigned. Entries arriving from a remote leader keep the
// indices they carry; those must continue the local sequence.
func (l *Log) Append(entries []Entry) (first, last uint64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(entries) == 0 {
		idx := l.lastIndexLocked()
		return idx, idx, nil
	}

	start := time.Now()
	next := l.lastIndexLocked() + 1
	first = next

	for i := range entries {
		e := entries[i]
		if e.Index == 0 {
			e.Index = next
		} else if e.Index != next {
			panic(fmt.Sprintf("raftlog: append index %d, next is %d", e.Index, next))
		}

		if err := l.splitIfNeeded(next); err != nil {
			return 0, 0, err
		}
		if err := l.active.appendEntry(e); err != nil {
			return 0, 0, err
		}
		l.markDirty(l.active)
		l.lastTerm = e.Term
		next++
	}

	last = next - 1
	l.meta.entryStart = l.active.header.entryStart
	l.meta.entryEnd = l.active.header.entryEnd

	metrics.LogWritesTotal.Add(float64(len(entries)))
	metrics.LogWriteDuration.Observe(time.Since(start).Seconds())
	metrics.RaftLastLogIndex.Set(float64(last))
	return first, last, nil
}

// splitIfNeeded seals the active segment when it exceeds the configured
// size and opens a fresh one starting at next. Splits land on entry
// boundaries only.
func (l *Log) splitIfNeeded(next uint64) error {
	if l.active.size() < l.segmentSize || l.active.empty() {
		return nil
	}

	if err := l.active.sync(); err != nil {
		return err
	}
	l.sealed = append(l.sealed, l.active)

	fresh, err := createSegment(l.dir, l.active.fileNum+1, next)
	if err != nil {
		return err
	}
	l.active = fresh
	l.meta.activeFileNum = fresh.fileNum
	l.meta.entryStart = next
	l.meta.entryEnd = next - 1
	if err := saveManifest(l.dir, &l.meta); err != nil {
		return err
	}

	slog.Info("sealed log segment",
		"file_num", fresh.fileNum-1,
		"next_index", next,
	)
	return nil
}

// TruncateSuffix removes every entry with index greater than lastKeep.
func (l *Log) TruncateSuffix(lastKeep uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lastKeep >= l.lastIndexLocked() {
		return nil
	}
	if lastKeep < l.firstIndexLocked()-1 {
		return fmt.Errorf("truncate to %d precedes first index %d", lastKeep, l.firstIndexLocked())
	}

	for l.active.header.entryStart > lastKeep+1 {
		doomed := l.active
		if len(l.sealed) == 0 {
			break
		}
		prev := l.sealed[len(l.sealed)-1]
		l.sealed = l.sealed[:len(l.sealed)-1]

		reopened, err := openSegment(l.dir, prev.fileNum, false)
		if err != nil {
			return err
		}
		prev.close()
		l.active = reopened
		l.unmarkDirty(doomed)
		if err := doomed.remove(); err != nil {
			return fmt.Errorf("remove truncated segment: %w", err)
		}
	}

	if err := l.active.truncateTo(lastKeep); err != nil {
		return err
	}

	l.meta.activeFileNum = l.active.fileNum
	l.meta.entryStart = l.active.header.entryStart
	l.meta.entryEnd = l.active.header.entryEnd
	if err := saveManifest(l.dir, &l.meta); err != nil {
		return err
	}

	l.lastTerm = 0
	if last := l.lastIndexLocked(); last > 0 {
		e, err := l.getLocked(last)
		if err != nil {
			return err
		}
		l.lastTerm = e.Term
	}

	slog.Info("truncated log suffix", "last_index", lastKeep)
	return nil
}

// Get returns the entry at index, or ErrNotFound.
func (l *Log) Get(index uint64) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getLocked(index)
}

func (l *Log) getLocked(index uint64) (Entry, error) {
	if index == 0 || index > l.lastIndexLocked() || index < l.firstIndexLocked() {
		return Entry{}, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}

	seg, err := l.segmentFor(index)
	if err != nil {
		return Entry{}, err
	}
	return seg.get(index)
}

// segmentFor locates the segment covering index, lazily opening sealed
// segments (their offset tables are built on first access).
func (l *Log) segmentFor(index uint64) (*segment, error) {
	if index >= l.active.header.entryStart {
		return l.active, nil
	}
	for i := len(l.sealed) - 1; i >= 0; i-- {
		s := l.sealed[i]
		if index >= s.header.entryStart && index <= s.header.entryEnd {
			if s.file == nil {
				opened, err := openSegment(l.dir, s.fileNum, false)
				if err != nil {
					return nil, err
				}
				l.sealed[i] = opened
				return opened, nil
			}
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: index %d", ErrNotFound, index)
}

func (l *Log) FirstIndex() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.firstIndexLocked()
}

func (l *Log) LastIndex() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastIndexLocked()
}

// LastTerm returns the term of the last entry, or zero for an empty log.
func (l *Log) LastTerm() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastTerm
}

func (l *Log) firstIndexLocked() uint64 {
	if len(l.sealed) > 0 {
		return l.sealed[0].header.entryStart
	}
	return l.active.header.entryStart
}

func (l *Log) lastIndexLocked() uint64 {
	if l.active.empty() {
		if len(l.sealed) > 0 {
			return l.sealed[len(l.sealed)-1].header.entryEnd
		}
		return l.active.header.entryStart - 1
	}
	return l.active.header.entryEnd
}

// Metadata returns the persistent consensus record loaded at recovery
// or written by the latest UpdateMetadata.
func (l *Log) Metadata() (currentTerm uint64, votedForIP string, votedForPort int, appliedIndex uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.meta.currentTerm, l.meta.votedForIP, int(l.meta.votedForPort), l.meta.lastAppliedIndex
}

// UpdateMetadata atomically persists the consensus metadata record.
func (l *Log) UpdateMetadata(currentTerm uint64, votedForIP string, votedForPort int, appliedIndex uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.meta.currentTerm = currentTerm
	l.meta.votedForIP = votedForIP
	l.meta.votedForPort = uint32(votedForPort)
	l.meta.lastAppliedIndex = appliedIndex
	return saveManifest(l.dir, &l.meta)
}

// SyncHandle makes a batch of queued appends durable. Wait may be called
// from any goroutine, once or many times, but never with the consensus
// mutex held.
type SyncHandle struct {
	// LastIndex is the last index covered by this handle once Wait
	// returns nil.
	LastIndex uint64

	segments []*segment
	once     sync.Once
	err      error
}

func (h *SyncHandle) Wait() error {
	h.once.Do(func() {
		start := time.Now()
		for _, s := range h.segments {
			if err := s.sync(); err != nil {
				h.err = err
				return
			}
		}
		metrics.LogSyncDuration.Observe(time.Since(start).Seconds())
	})
	return h.err
}

// Sync returns a handle covering every append queued so far.
func (l *Log) Sync() *SyncHandle {
	l.mu.Lock()
	defer l.mu.Unlock()

	h := &SyncHandle{
		LastIndex: l.lastIndexLocked(),
		segments:  l.dirty,
	}
	l.dirty = nil
	return h
}

func (l *Log) markDirty(s *segment) {
	for _, d := range l.dirty {
		if d == s {
			return
		}
	}
	l.dirty = append(l.dirty, s)
}

func (l *Log) unmarkDirty(s *segment) {
	for i, d := range l.dirty {
		if d == s {
			l.dirty = append(l.dirty[:i], l.dirty[i+1:]...)
			return
		}
	}
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	if err := l.active.sync(); err != nil {
		firstErr = err
	}
	if err := l.active.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	for _, s := range l.sealed {
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
