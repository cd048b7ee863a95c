package catalog

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// snapshotVersion guards the on-disk format. Bump when FileRecord's
// persisted shape changes.
const snapshotVersion = 1

// diskRecord is the gob-encoded shape of a FileRecord: Invalid, Dev and Ino
// are transient/host-specific and are deliberately not part of the snapshot
// (see FileRecord's field comments).
type diskRecord struct {
	Path         string
	Folder       string
	FileSize     int64
	DateCreated  time.Time
	DateModified time.Time
	IsImage      bool
	MediaInfo    *MediaInfo
	Fingerprints map[float64][]byte
	Flags        Flag
}

type diskSnapshot struct {
	Version int
	Records []diskRecord
}

// Store is the in-memory, path-keyed catalog. Its key set (the map itself)
// is only ever mutated under mu; the per-record fields are mutated directly
// on the *FileRecord values via their own lock, which is what lets the
// Fingerprint Builder and Duplicate Comparator run concurrently against the
// same Store without taking mu for every field update.
type Store struct {
	mu      sync.RWMutex
	records map[string]*FileRecord
	path    string
}

// New creates an empty Store backed by the snapshot file at path. Call Load
// to populate it from disk.
func New(path string) *Store {
	return &Store{
		records: make(map[string]*FileRecord),
		path:    path,
	}
}

// Load reads the persisted snapshot into memory, replacing the current
// contents. A missing file is not an error: Load leaves the Store empty,
// matching "created on first load" in the lifecycle contract.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.records = make(map[string]*FileRecord)
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read catalog snapshot: %w", err)
	}

	var snap diskSnapshot
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&snap); err != nil {
		return fmt.Errorf("decode catalog snapshot: %w", err)
	}
	if snap.Version > snapshotVersion {
		return fmt.Errorf("catalog snapshot version %d is newer than supported %d", snap.Version, snapshotVersion)
	}

	records := make(map[string]*FileRecord, len(snap.Records))
	for _, d := range snap.Records {
		records[d.Path] = &FileRecord{
			Path:         d.Path,
			Folder:       d.Folder,
			FileSize:     d.FileSize,
			DateCreated:  d.DateCreated,
			DateModified: d.DateModified,
			IsImage:      d.IsImage,
			MediaInfo:    d.MediaInfo,
			Fingerprints: d.Fingerprints,
			Flags:        d.Flags,
		}
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

// Save atomically writes the current catalog to disk: encode to a temp file
// in the same directory, then rename over the target path. A crash between
// the write and the rename leaves the previous snapshot intact.
func (s *Store) Save() error {
	s.mu.RLock()
	snap := diskSnapshot{
		Version: snapshotVersion,
		Records: make([]diskRecord, 0, len(s.records)),
	}
	for _, r := range s.records {
		r.mu.RLock()
		snap.Records = append(snap.Records, diskRecord{
			Path:         r.Path,
			Folder:       r.Folder,
			FileSize:     r.FileSize,
			DateCreated:  r.DateCreated,
			DateModified: r.DateModified,
			IsImage:      r.IsImage,
			MediaInfo:    r.MediaInfo,
			Fingerprints: r.Fingerprints,
			Flags:        r.Flags,
		})
		r.mu.RUnlock()
	}
	s.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return fmt.Errorf("encode catalog snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename temp snapshot: %w", err)
	}
	return nil
}

// InsertOrReconcile inserts candidate if no record exists at its path. If a
// record exists but (size, date_created, date_modified) differ from
// candidate's, the record is replaced (its stale fingerprints are discarded).
// Returns the live record for the path (new, replaced, or untouched
// existing).
func (s *Store) InsertOrReconcile(candidate *FileRecord) *FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[candidate.Path]
	if !ok {
		s.records[candidate.Path] = candidate
		return candidate
	}
	if !existing.SameIdentity(candidate) {
		candidate.Flags = existing.Flags & FlagManuallyExcluded // manual exclusion survives a content change
		s.records[candidate.Path] = candidate
		return candidate
	}
	// Unchanged: keep existing (with its fingerprints), just refresh the
	// Dev/Ino identity captured by this walk.
	existing.Dev, existing.Ino = candidate.Dev, candidate.Ino
	return existing
}

// Remove deletes the record at path, if any.
func (s *Store) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, path)
}

// UpdatePath renames a record's identity from old to new, e.g. after the
// embedder detects a rename out-of-band.
func (s *Store) UpdatePath(oldPath, newPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[oldPath]
	if !ok {
		return
	}
	delete(s.records, oldPath)
	r.Path = newPath
	r.Folder = filepath.Dir(newPath)
	s.records[newPath] = r
}

// Blacklist marks the record at path MANUALLY_EXCLUDED, leaving it in the
// catalog (permanently excluded from comparison, per the flag taxonomy).
func (s *Store) Blacklist(path string) {
	s.mu.RLock()
	r, ok := s.records[path]
	s.mu.RUnlock()
	if ok {
		r.SetFlag(FlagManuallyExcluded)
	}
}

// Get returns the record at path, if any.
func (s *Store) Get(path string) (*FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[path]
	return r, ok
}

// All returns every record currently in the catalog. The returned slice is a
// snapshot of the key set at call time; concurrent per-record field
// mutations by fingerprint workers are unaffected and visible through the
// returned pointers.
func (s *Store) All() []*FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*FileRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}

// UnderRoots returns every record whose path is inside one of roots.
func (s *Store) UnderRoots(roots []string) []*FileRecord {
	all := s.All()
	if len(roots) == 0 {
		return all
	}
	out := make([]*FileRecord, 0, len(all))
	for _, r := range all {
		for _, root := range roots {
			if isUnder(r.Path, root) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func isUnder(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!filepath.IsAbs(rel) && rel != ".." && !hasDotDotPrefix(rel))
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.'
}

// Len returns the number of records currently catalogued.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// CleanMissing removes every record whose underlying file no longer exists,
// returning the number removed. This is the explicit maintenance operation
// behind the DatabaseCleaned event; it is never run implicitly by a scan.
// When includeNonExisting is true, missing-file records are kept and
// CleanMissing is a no-op that always reports 0 removed.
func (s *Store) CleanMissing(includeNonExisting bool) int {
	if includeNonExisting {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for path := range s.records {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			delete(s.records, path)
			removed++
		}
	}
	return removed
}
