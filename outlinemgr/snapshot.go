package outlinemgr

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/relvacode/iso8601"
	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/storage"
	"github.com/wkalt/outline/util/log"
)

/*
Snapshots are point-in-time JSON copies of a book, written to the configured
storage provider under snapshots/<book>/<timestamp>.json. Timestamps are
fixed-width UTC, so lexical key order is chronological order. A snapshot
records the fingerprint of the rows it holds, and restore refuses a snapshot
whose rows no longer match it.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrSnapshotsDisabled is returned when no snapshot provider is configured.
var ErrSnapshotsDisabled = errors.New("snapshots are not configured")

// ErrSnapshotNotFound is returned when no snapshot matches a restore request.
var ErrSnapshotNotFound = errors.New("snapshot not found")

const snapshotTimeFormat = "2006-01-02T15:04:05.000000000Z"

// Snapshot is the stored form of a book.
type Snapshot struct {
	Book        string              `json:"book"`
	Taken       time.Time           `json:"taken"`
	Fingerprint string              `json:"fingerprint"`
	Divisions   []division.Division `json:"divisions"`
}

// SnapshotInfo describes a stored snapshot.
type SnapshotInfo struct {
	Key   string    `json:"key"`
	Book  string    `json:"book"`
	Taken time.Time `json:"taken"`
}

func snapshotPrefix(book string) string {
	return "snapshots/" + book + "/"
}

func snapshotKey(book string, taken time.Time) string {
	return snapshotPrefix(book) + taken.UTC().Format(snapshotTimeFormat) + ".json"
}

// checkSnapshotKey rejects keys that do not name a single object directly
// under the snapshot prefix of book.
func checkSnapshotKey(book string, key string) error {
	name, ok := strings.CutPrefix(key, snapshotPrefix(book))
	switch {
	case !ok:
		return division.InvalidArgumentError{Field: "snapshot", Reason: fmt.Sprintf("%s is not a snapshot of %s", key, book)}
	case path.Clean(key) != key, strings.Contains(name, "/"), !strings.HasSuffix(name, ".json"):
		return division.InvalidArgumentError{Field: "snapshot", Reason: fmt.Sprintf("malformed snapshot key %s", key)}
	}
	return nil
}

func parseSnapshotKey(book string, key string) (SnapshotInfo, error) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(key, snapshotPrefix(book)), ".json")
	taken, err := iso8601.ParseString(stamp)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("malformed snapshot key %s: %w", key, err)
	}
	return SnapshotInfo{Key: key, Book: book, Taken: taken.UTC()}, nil
}

// Snapshot writes the current state of book to the snapshot provider.
func (m *Manager) Snapshot(ctx context.Context, book string) (SnapshotInfo, error) {
	if m.snapshots == nil {
		return SnapshotInfo{}, ErrSnapshotsDisabled
	}
	if err := division.ValidateBook(book); err != nil {
		return SnapshotInfo{}, err
	}
	divs, err := m.List(ctx, book)
	if err != nil {
		return SnapshotInfo{}, err
	}
	snap := Snapshot{
		Book:        book,
		Taken:       m.now().UTC(),
		Fingerprint: FingerprintOf(divs),
		Divisions:   divs,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	info := SnapshotInfo{Key: snapshotKey(book, snap.Taken), Book: book, Taken: snap.Taken}
	if err := m.snapshots.Put(ctx, info.Key, data); err != nil {
		return SnapshotInfo{}, fmt.Errorf("failed to store snapshot: %w", err)
	}
	log.Infow(ctx, "wrote snapshot", "book", book, "key", info.Key, "divisions", len(divs))
	return info, nil
}

// Snapshots lists the snapshots of book, oldest first.
func (m *Manager) Snapshots(ctx context.Context, book string) ([]SnapshotInfo, error) {
	if m.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	if err := division.ValidateBook(book); err != nil {
		return nil, err
	}
	keys, err := m.snapshots.List(ctx, snapshotPrefix(book))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	infos := make([]SnapshotInfo, 0, len(keys))
	for _, key := range keys {
		info, err := parseSnapshotKey(book, key)
		if err != nil {
			log.Warnw(ctx, "skipping unrecognized snapshot", "key", key, "error", err)
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Restore replaces the contents of book with the snapshot stored at key and
// returns the number of divisions restored.
func (m *Manager) Restore(ctx context.Context, book string, key string) (int, error) {
	if m.snapshots == nil {
		return 0, ErrSnapshotsDisabled
	}
	if err := division.ValidateBook(book); err != nil {
		return 0, err
	}
	if err := checkSnapshotKey(book, key); err != nil {
		return 0, err
	}
	data, err := m.snapshots.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
		}
		return 0, fmt.Errorf("failed to read snapshot: %w", err)
	}
	snap := Snapshot{}
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	if snap.Book != book {
		return 0, division.InvalidArgumentError{Field: "snapshot", Reason: fmt.Sprintf("%s holds book %s", key, snap.Book)}
	}
	if actual := FingerprintOf(snap.Divisions); actual != snap.Fingerprint {
		return 0, division.InvariantViolationError{
			Book:   book,
			Reason: fmt.Sprintf("snapshot %s fingerprint %s does not match contents %s", key, snap.Fingerprint, actual),
		}
	}
	if err := nestedset.Validate(book, snap.Divisions); err != nil {
		return 0, err
	}
	err = m.mutate(ctx, "restore", book, func(ctx context.Context, tx divisionstore.Tx) error {
		if _, err := tx.DeleteSpan(ctx, divisionstore.All); err != nil {
			return err
		}
		for _, d := range snap.Divisions {
			if err := tx.Insert(ctx, d); err != nil {
				return fmt.Errorf("failed to restore division: %w", err)
			}
		}
		log.Infow(ctx, "restored snapshot", "key", key, "divisions", len(snap.Divisions))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(snap.Divisions), nil
}

// DeleteSnapshot removes the snapshot of book stored at key.
func (m *Manager) DeleteSnapshot(ctx context.Context, book string, key string) error {
	if m.snapshots == nil {
		return ErrSnapshotsDisabled
	}
	if err := division.ValidateBook(book); err != nil {
		return err
	}
	if err := checkSnapshotKey(book, key); err != nil {
		return err
	}
	keys, err := m.snapshots.List(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}
	if !slices.Contains(keys, key) {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
	}
	if err := m.snapshots.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	log.Infow(ctx, "deleted snapshot", "book", book, "key", key)
	return nil
}

// RestoreAt restores the newest snapshot of book taken at or before at.
func (m *Manager) RestoreAt(ctx context.Context, book string, at time.Time) (SnapshotInfo, int, error) {
	infos, err := m.Snapshots(ctx, book)
	if err != nil {
		return SnapshotInfo{}, 0, err
	}
	var chosen *SnapshotInfo
	for i := range infos {
		if infos[i].Taken.After(at) {
			break
		}
		chosen = &infos[i]
	}
	if chosen == nil {
		return SnapshotInfo{}, 0, fmt.Errorf("%w: no snapshot of %s at or before %s", ErrSnapshotNotFound, book, at.Format(time.RFC3339))
	}
	n, err := m.Restore(ctx, book, chosen.Key)
	if err != nil {
		return SnapshotInfo{}, 0, err
	}
	return *chosen, n, nil
}
