// Package persistence saves the selection lists between sessions so
// unfinished transfers can be picked up again after a restart.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"

	"github.com/rescp17/s3tui/pkg/model"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// FileName is the snapshot file inside the data directory
const FileName = "pending_transfers.json"

// PersistedTransfers is the on-disk snapshot
type PersistedTransfers struct {
	S3Items    []model.S3SelectedItem    `json:"s3_selected_items"`
	LocalItems []model.LocalSelectedItem `json:"local_selected_items"`
}

// Empty reports whether the snapshot has nothing to restore
func (p PersistedTransfers) Empty() bool {
	return len(p.S3Items) == 0 && len(p.LocalItems) == 0
}

type Store struct {
	path string
	lock *flock.Flock
}

func New(dataDir string) *Store {
	path := filepath.Join(dataDir, FileName)
	return &Store{path: path, lock: flock.New(path + ".lock")}
}

// Path is the snapshot file location
func (s *Store) Path() string {
	return s.path
}

// Save writes every non-terminal item. Terminal children are dropped and a
// directory whose children all finished is dropped with them.
func (s *Store) Save(s3Items []model.S3SelectedItem, localItems []model.LocalSelectedItem) error {
	snapshot := PersistedTransfers{
		S3Items:    model.Prune(s3Items, func(item model.S3SelectedItem) bool { return item.State.IsTerminal() }),
		LocalItems: model.Prune(localItems, func(item model.LocalSelectedItem) bool { return item.State.IsTerminal() }),
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock snapshot: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			slog.Warn("Failed to unlock snapshot", "path", s.path, "error", err)
		}
	}()

	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	slog.Debug("Saved transfer snapshot", "path", s.path,
		"downloads", len(snapshot.S3Items), "uploads", len(snapshot.LocalItems))
	return nil
}

// Load reads the snapshot. A missing or unreadable file yields an empty
// snapshot; only the unreadable case is logged. Job ids are cleared,
// interrupted transfers come back paused and anything terminal comes
// back pending.
func (s *Store) Load() (PersistedTransfers, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to read persisted transfers", "path", s.path, "error", err)
		}
		return PersistedTransfers{}, nil
	}

	var snapshot PersistedTransfers
	if err := json.Unmarshal(data, &snapshot); err != nil {
		slog.Warn("Failed to decode persisted transfers", "path", s.path, "error", err)
		return PersistedTransfers{}, nil
	}

	model.WalkS3(snapshot.S3Items, func(item *model.S3SelectedItem) bool {
		item.JobID = 0
		item.State = restoreState(item.State)
		return false
	})
	model.WalkLocal(snapshot.LocalItems, func(item *model.LocalSelectedItem) bool {
		item.JobID = 0
		item.State = restoreState(item.State)
		return false
	})

	slog.Info("Loaded pending transfers from previous session",
		"downloads", len(snapshot.S3Items), "uploads", len(snapshot.LocalItems))
	return snapshot, nil
}

func restoreState(state transfer.TransferState) transfer.TransferState {
	switch {
	case state.IsInProgress():
		return transfer.Paused(state.Progress())
	case state.IsPending(), state.IsPaused():
		return state
	default:
		return transfer.Pending()
	}
}
