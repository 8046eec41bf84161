package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore keeps one JSON file per run under a base directory. Suitable for
// single-node use.
type FileStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileStore creates the base directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Save(ctx context.Context, log *RunLog) error {
	if log.RunID == "" {
		return fmt.Errorf("run log has no run ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run log: %w", err)
	}
	// O_EXCL enforces write-once per run.
	f, err := os.OpenFile(s.path(log.RunID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, log.RunID)
		}
		return fmt.Errorf("create run log file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write run log: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, id string) (*RunLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	var log RunLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decode run log %s: %w", id, err)
	}
	return &log, nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	type runFile struct {
		id      string
		modTime int64
	}
	var runs []runFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		runs = append(runs, runFile{
			id:      strings.TrimSuffix(name, ".json"),
			modTime: info.ModTime().UnixNano(),
		})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].modTime > runs[j].modTime })

	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.id
	}
	return ids, nil
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
