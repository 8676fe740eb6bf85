// Package manager owns the process-wide lifecycle of the single active
// index.
//
// The current snapshot is a single atomically-replaceable cell: writers
// build the next index off to the side, persist it, and only then swap the
// reference. Readers copy the reference once at query start and keep that
// immutable view for the query's duration, so they are never blocked by
// writers or by each other. Writes are serialized: one build/add completes
// fully — persist, then publish — before the next begins.
package manager

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/askdocs/ragd/internal/index"
	"github.com/askdocs/ragd/internal/ragerr"
)

// State is the manager lifecycle state.
type State string

const (
	// StateUninitialized means no snapshot is in memory and none was loaded.
	StateUninitialized State = "uninitialized"
	// StateLoading means the first read is restoring a persisted snapshot.
	StateLoading State = "loading"
	// StateReady means a snapshot is published and serving reads.
	StateReady State = "ready"
	// StateRebuilding means a full build is replacing the index.
	StateRebuilding State = "rebuilding"
	// StateExtending means a single-document add is in progress.
	StateExtending State = "extending"
)

// Snapshot is an immutable, shareable reference to one index instance.
// Readers operate against the snapshot they acquired at query start even if
// a newer one is published mid-query.
type Snapshot struct {
	Index       *index.Index
	PublishedAt time.Time
}

// Store is the persistence collaborator the manager drives.
// *store.FileStore satisfies it.
type Store interface {
	Save(idx *index.Index) error
	Load() (*index.Index, error)
	Exists() bool
	Path() string
}

// Manager coordinates load-on-demand, concurrent reads, serialized writes,
// and atomic snapshot swap.
type Manager struct {
	store  Store
	logger *slog.Logger

	// writeMu serializes writers and the one-time lazy load. Readers only
	// take it when no snapshot is in memory yet.
	writeMu sync.Mutex

	current atomic.Pointer[Snapshot]
	state   atomic.Value // State
}

// New creates a manager over the given store.
func New(st Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{store: st, logger: logger}
	m.state.Store(StateUninitialized)
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return m.state.Load().(State)
}

// Persisted reports whether a complete snapshot exists in the store,
// whether or not it has been loaded into memory.
func (m *Manager) Persisted() bool {
	return m.store.Exists()
}

// StorePath reports where snapshots are persisted.
func (m *Manager) StorePath() string {
	return m.store.Path()
}

func (m *Manager) setState(s State) {
	m.state.Store(s)
}

// GetSnapshot returns the current snapshot, loading the persisted index on
// first call if none is in memory. Fails with an index-unavailable error
// when no persisted index exists and none has been built yet; callers must
// surface that as "service not ready", not as an internal error.
func (m *Manager) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	if snap := m.current.Load(); snap != nil {
		return snap, nil
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	// Another caller may have loaded while we waited.
	if snap := m.current.Load(); snap != nil {
		return snap, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.setState(StateLoading)
	idx, err := m.store.Load()
	if err != nil {
		m.setState(StateUninitialized)
		if ragerr.IsNotFound(err) {
			return nil, ragerr.Unavailable(
				"no index has been built yet; ingest a corpus first")
		}
		// Corrupt or version-mismatched state propagates typed: it requires
		// re-ingestion, and must not be mistaken for "not ready".
		return nil, err
	}

	snap := m.publish(idx)
	m.logger.Info("index loaded from store",
		slog.String("path", m.store.Path()),
		slog.Int("entries", idx.Len()),
		slog.Int("dimensions", idx.Dimensions()))
	return snap, nil
}

// BuildAndPublish constructs a fresh index from the embedded chunks,
// persists it, then atomically replaces the current snapshot. Queries in
// flight against the old snapshot continue unaffected until they complete.
func (m *Manager) BuildAndPublish(ctx context.Context, entries []index.Entry) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	prev := m.State()
	m.setState(StateRebuilding)

	idx, err := index.Build(entries)
	if err != nil {
		m.setState(prev)
		return err
	}
	if err := m.store.Save(idx); err != nil {
		m.setState(prev)
		return err
	}

	m.publish(idx)
	m.logger.Info("index rebuilt and published",
		slog.Int("entries", idx.Len()))
	return nil
}

// AddAndPublish appends embedded chunks to the current index, persists the
// result, and publishes it — in that order. Persist-before-publish: an
// unpublished persisted state is recoverable on restart, a published-but-
// unpersisted one is not.
func (m *Manager) AddAndPublish(ctx context.Context, entries []index.Entry) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	cur, err := m.acquireLocked()
	if err != nil {
		return err
	}

	prev := m.State()
	m.setState(StateExtending)

	next, err := cur.Index.Add(entries)
	if err != nil {
		m.setState(prev)
		return err
	}
	if err := m.store.Save(next); err != nil {
		m.setState(prev)
		return err
	}

	m.publish(next)
	m.logger.Info("index extended and published",
		slog.Int("added", len(entries)),
		slog.Int("entries", next.Len()))
	return nil
}

// acquireLocked returns the current snapshot, loading it from the store if
// needed. Caller holds writeMu.
func (m *Manager) acquireLocked() (*Snapshot, error) {
	if snap := m.current.Load(); snap != nil {
		return snap, nil
	}
	idx, err := m.store.Load()
	if err != nil {
		if ragerr.IsNotFound(err) {
			return nil, ragerr.Unavailable(
				"cannot extend: no index exists; run a full ingest first")
		}
		return nil, err
	}
	return m.publish(idx), nil
}

// publish swaps the current snapshot reference. Caller holds writeMu.
func (m *Manager) publish(idx *index.Index) *Snapshot {
	snap := &Snapshot{Index: idx, PublishedAt: time.Now().UTC()}
	m.current.Store(snap)
	m.setState(StateReady)
	return snap
}
