package graph

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// Checkpoint is a State snapshot taken after a node completed. Resume
// continues from the node the checkpointed node routes to.
type Checkpoint struct {
	RunID     string         `json:"run_id"`
	Graph     string         `json:"graph"`
	Node      string         `json:"node"`
	Step      int            `json:"step"`
	Path      []string       `json:"path"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// CheckpointStore persists checkpoints keyed by run id.
//
// Lifecycle:
//  1. Run saves a checkpoint every Interval node executions
//  2. On completion the checkpoint is deleted unless Preserve is set
//  3. On failure the checkpoint stays available for Resume
//
// Implementations must be safe for concurrent runs.
type CheckpointStore interface {
	// Save persists cp, overwriting any checkpoint with the same RunID.
	Save(ctx context.Context, cp Checkpoint) error

	// Load returns the checkpoint for runID or an error wrapping
	// ErrCheckpointNotFound.
	Load(ctx context.Context, runID string) (Checkpoint, error)

	// Delete removes the checkpoint for runID. Missing ids are not an error.
	Delete(ctx context.Context, runID string) error

	// List returns the stored run ids, sorted.
	List(ctx context.Context) ([]string, error)
}

type memoryCheckpointStore struct {
	checkpoints map[string]Checkpoint
	mu          sync.RWMutex
}

// NewMemoryCheckpointStore creates a CheckpointStore that lives as long as
// the process. It is registered as "memory".
func NewMemoryCheckpointStore() CheckpointStore {
	return &memoryCheckpointStore{
		checkpoints: make(map[string]Checkpoint),
	}
}

func (m *memoryCheckpointStore) Save(_ context.Context, cp Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp.Path = slices.Clone(cp.Path)
	cp.Data = maps.Clone(cp.Data)
	m.checkpoints[cp.RunID] = cp
	return nil
}

func (m *memoryCheckpointStore) Load(_ context.Context, runID string) (Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, exists := m.checkpoints[runID]
	if !exists {
		return Checkpoint{}, fmt.Errorf("%w: %s", ErrCheckpointNotFound, runID)
	}
	cp.Path = slices.Clone(cp.Path)
	cp.Data = maps.Clone(cp.Data)
	return cp, nil
}

func (m *memoryCheckpointStore) Delete(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.checkpoints, runID)
	return nil
}

func (m *memoryCheckpointStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedKeys(m.checkpoints), nil
}

var (
	checkpointStores = map[string]CheckpointStore{
		"memory": NewMemoryCheckpointStore(),
	}
	storeMutex sync.RWMutex
)

// GetCheckpointStore returns a registered store by name.
func GetCheckpointStore(name string) (CheckpointStore, error) {
	storeMutex.RLock()
	defer storeMutex.RUnlock()

	store, exists := checkpointStores[name]
	if !exists {
		return nil, fmt.Errorf("unknown checkpoint store: %s", name)
	}
	return store, nil
}

// RegisterCheckpointStore adds or replaces a named store. Register before
// building graphs whose config names it.
//
//	graph.RegisterCheckpointStore("file", graph.NewFileCheckpointStore("/var/lib/flowgraph"))
func RegisterCheckpointStore(name string, store CheckpointStore) {
	storeMutex.Lock()
	defer storeMutex.Unlock()

	checkpointStores[name] = store
}
