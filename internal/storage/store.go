package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Chocolatl/nekopara/internal/config"
	"github.com/Chocolatl/nekopara/internal/crawl"
	"github.com/Chocolatl/nekopara/pkg/logx"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrNotFound = errors.New("snapshot not found")
)

// SnapshotInfo describes one stored snapshot.
type SnapshotInfo struct {
	Name    string
	SavedAt time.Time
	Size    int64
}

// Store persists named crawl snapshots. The crawl core never touches it;
// durability is the caller's act, via the snapshot value.
type Store interface {
	SaveSnapshot(ctx context.Context, name string, root *crawl.Node) error
	LoadSnapshot(ctx context.Context, name string) (*crawl.Node, error)
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg config.StorageConfig, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

func validName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("snapshot name is required")
	}
	if strings.ContainsAny(name, "/\\") {
		return errors.New("snapshot name must not contain path separators")
	}
	return nil
}
