package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const checkpointExt = ".json"

type fileCheckpointStore struct {
	root string
}

// NewFileCheckpointStore creates a CheckpointStore writing one JSON file
// per run under root. Writes go through a temp file and rename so a crash
// never leaves a partial checkpoint.
//
// JSON decoding turns numbers into float64; nodes reading numeric fields
// after Resume must accept that.
func NewFileCheckpointStore(root string) CheckpointStore {
	return &fileCheckpointStore{root: root}
}

func (s *fileCheckpointStore) path(runID string) (string, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) || strings.HasPrefix(runID, ".") {
		return "", fmt.Errorf("invalid run id: %q", runID)
	}
	return filepath.Join(s.root, runID+checkpointExt), nil
}

func (s *fileCheckpointStore) Save(_ context.Context, cp Checkpoint) error {
	path, err := s.path(cp.RunID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint %s: marshal: %w", cp.RunID, err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("checkpoint %s: %w", cp.RunID, err)
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", cp.RunID, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint %s: %w", cp.RunID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint %s: %w", cp.RunID, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint %s: %w", cp.RunID, err)
	}

	return nil
}

func (s *fileCheckpointStore) Load(_ context.Context, runID string) (Checkpoint, error) {
	path, err := s.path(runID)
	if err != nil {
		return Checkpoint{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, fmt.Errorf("%w: %s", ErrCheckpointNotFound, runID)
		}
		return Checkpoint{}, fmt.Errorf("checkpoint %s: %w", runID, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint %s: unmarshal: %w", runID, err)
	}
	return cp, nil
}

func (s *fileCheckpointStore) Delete(_ context.Context, runID string) error {
	path, err := s.path(runID)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete failed: %s: %w", runID, err)
	}
	return nil
}

func (s *fileCheckpointStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, checkpointExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, checkpointExt))
	}
	slices.Sort(ids)
	return ids, nil
}
