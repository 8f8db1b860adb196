package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Chocolatl/nekopara/internal/config"
	"github.com/Chocolatl/nekopara/internal/crawl"
	"github.com/Chocolatl/nekopara/pkg/logx"
)

const snapshotExt = ".snapshot.yaml"

// fileStore keeps one YAML file per snapshot under a directory. Writes go
// through a temp file plus rename, so a crash mid-save never corrupts the
// previous snapshot.
type fileStore struct {
	log logx.Logger
	dir string

	mu sync.Mutex
}

func openFile(cfg config.StorageConfig, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, dir: dir}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) path(name string) string {
	return filepath.Join(s.dir, name+snapshotExt)
}

func (s *fileStore) SaveSnapshot(ctx context.Context, name string, root *crawl.Node) error {
	_ = ctx
	if err := validName(name); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := crawl.EncodeSnapshot(&buf, root); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dst := s.path(name)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	s.log.Debug("snapshot saved", logx.String("name", name), logx.Int("bytes", buf.Len()))
	return nil
}

func (s *fileStore) LoadSnapshot(ctx context.Context, name string) (*crawl.Node, error) {
	_ = ctx
	if err := validName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	b, err := os.ReadFile(s.path(name))
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return crawl.DecodeSnapshot(bytes.NewReader(b))
}

func (s *fileStore) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	_ = ctx
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	out := make([]SnapshotInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, SnapshotInfo{
			Name:    strings.TrimSuffix(e.Name(), snapshotExt),
			SavedAt: fi.ModTime(),
			Size:    fi.Size(),
		})
	}
	return out, nil
}
