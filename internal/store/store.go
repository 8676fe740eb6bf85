// Package store persists index snapshots to durable storage.
//
// A snapshot is one file: a magic line, a JSON manifest line (format
// version, dimensionality, metric, entry count, creation time), then the
// gob-encoded records. Writes go to a staging file that is renamed over the
// target, so a crash mid-write can never leave a load observing a partially
// written index: the previous snapshot survives until the rename commits.
package store

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/askdocs/ragd/internal/chunk"
	"github.com/askdocs/ragd/internal/index"
	"github.com/askdocs/ragd/internal/ragerr"
)

// FormatVersion is the persisted layout version. Incompatible future
// layouts must bump this so load detects them instead of misreading.
const FormatVersion = 1

// magic identifies a ragd snapshot file.
const magic = "RAGDIDX"

// manifest is the metadata header of a persisted snapshot.
type manifest struct {
	FormatVersion int       `json:"format_version"`
	Dimensions    int       `json:"dimensions"`
	Metric        string    `json:"metric"`
	Count         int       `json:"count"`
	CreatedAt     time.Time `json:"created_at"`
}

// record is one persisted (vector, chunk text, source) entry.
type record struct {
	Text   string
	Source string
	Seq    int
	Vector []float32
}

// FileStore persists one index snapshot at a fixed path. Cross-process
// writers are excluded with a file lock; in-process write serialization is
// the manager's job.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore creates a store for the given snapshot file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string { return s.path }

// Save serializes the index to the staging file and atomically renames it
// over the target. On success any prior snapshot is fully superseded.
func (s *FileStore) Save(idx *index.Index) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return ragerr.Wrap(ragerr.CodeStoreIO, err)
	}

	if err := s.lock.Lock(); err != nil {
		return ragerr.Wrap(ragerr.CodeStoreIO, err)
	}
	defer func() { _ = s.lock.Unlock() }()

	entries := idx.Entries()
	m := manifest{
		FormatVersion: FormatVersion,
		Dimensions:    idx.Dimensions(),
		Metric:        idx.Metric(),
		Count:         len(entries),
		CreatedAt:     idx.CreatedAt(),
	}
	header, err := json.Marshal(m)
	if err != nil {
		return ragerr.Wrap(ragerr.CodeStoreIO, err)
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ragerr.Wrap(ragerr.CodeStoreIO, err)
	}

	w := bufio.NewWriter(f)
	if err := writeSnapshot(w, header, entries); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return ragerr.Wrap(ragerr.CodeStoreIO, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return ragerr.Wrap(ragerr.CodeStoreIO, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return ragerr.Wrap(ragerr.CodeStoreIO, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return ragerr.Wrap(ragerr.CodeStoreIO, err)
	}

	// The commit point: rename is atomic on POSIX filesystems.
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return ragerr.Wrap(ragerr.CodeStoreIO, err)
	}
	return nil
}

func writeSnapshot(w *bufio.Writer, header []byte, entries []index.Entry) error {
	if _, err := fmt.Fprintf(w, "%s\n", magic); err != nil {
		return err
	}
	if _, err := w.Write(append(header, '\n')); err != nil {
		return err
	}

	records := make([]record, len(entries))
	for i, e := range entries {
		records[i] = record{
			Text:   e.Chunk.Text,
			Source: e.Chunk.Source,
			Seq:    e.Chunk.Seq,
			Vector: e.Vector,
		}
	}
	return gob.NewEncoder(w).Encode(records)
}

// Load reconstructs the persisted index. It fails with NotFound when no
// snapshot exists, VersionMismatch on an incompatible format version, and
// Corrupt when metadata is present but the records cannot be fully
// reconstructed.
func (s *FileStore) Load() (*index.Index, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ragerr.NotFound("no persisted index at "+s.path, err)
		}
		return nil, ragerr.Wrap(ragerr.CodeStoreIO, err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)

	magicLine, err := r.ReadString('\n')
	if err != nil {
		return nil, ragerr.Corrupt("truncated snapshot header", err)
	}
	if strings.TrimRight(magicLine, "\n") != magic {
		return nil, ragerr.Corrupt("not a ragd snapshot: bad magic", nil)
	}

	headerLine, err := r.ReadString('\n')
	if err != nil {
		return nil, ragerr.Corrupt("truncated snapshot manifest", err)
	}
	var m manifest
	if err := json.Unmarshal(bytes.TrimRight([]byte(headerLine), "\n"), &m); err != nil {
		return nil, ragerr.Corrupt("unreadable snapshot manifest", err)
	}
	if m.FormatVersion != FormatVersion {
		return nil, ragerr.VersionMismatch(
			fmt.Sprintf("snapshot format version %d, this build reads %d",
				m.FormatVersion, FormatVersion))
	}
	if m.Metric != index.MetricCosine {
		return nil, ragerr.Corrupt("unsupported distance metric "+m.Metric, nil)
	}

	var records []record
	if err := gob.NewDecoder(r).Decode(&records); err != nil {
		return nil, ragerr.Corrupt("unreadable snapshot records", err)
	}
	if len(records) != m.Count {
		return nil, ragerr.Corrupt(
			fmt.Sprintf("record count mismatch: manifest declares %d, found %d",
				m.Count, len(records)), nil)
	}
	if len(records) == 0 {
		return nil, ragerr.Corrupt("snapshot contains no records", nil)
	}

	entries := make([]index.Entry, len(records))
	for i, rec := range records {
		if len(rec.Vector) != m.Dimensions {
			return nil, ragerr.Corrupt(
				fmt.Sprintf("record %d: vector has %d dimensions, manifest declares %d",
					i, len(rec.Vector), m.Dimensions), nil)
		}
		entries[i] = index.Entry{
			Chunk:  chunk.Chunk{Text: rec.Text, Source: rec.Source, Seq: rec.Seq},
			Vector: rec.Vector,
		}
	}

	idx, err := index.Restore(m.CreatedAt, entries)
	if err != nil {
		return nil, ragerr.Corrupt("rebuild index from snapshot", err)
	}
	return idx, nil
}

// Exists reports whether a complete, loadable snapshot is present —
// not merely that the file exists.
func (s *FileStore) Exists() bool {
	if _, err := os.Stat(s.path); err != nil {
		return false
	}
	_, err := s.Load()
	return err == nil
}
