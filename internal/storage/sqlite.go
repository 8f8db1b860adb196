package storage

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Chocolatl/nekopara/internal/config"
	"github.com/Chocolatl/nekopara/internal/crawl"
	"github.com/Chocolatl/nekopara/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg config.StorageConfig, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) SaveSnapshot(ctx context.Context, name string, root *crawl.Node) error {
	if err := validName(name); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := crawl.EncodeSnapshot(&buf, root); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots(name, saved_at, data) VALUES(?,?,?)
		 ON CONFLICT(name) DO UPDATE SET saved_at=excluded.saved_at, data=excluded.data`,
		name, time.Now().UTC().Format(time.RFC3339Nano), buf.Bytes(),
	)
	if err == nil {
		s.log.Debug("snapshot saved", logx.String("name", name), logx.Int("bytes", buf.Len()))
	}
	return err
}

func (s *sqliteStore) LoadSnapshot(ctx context.Context, name string) (*crawl.Node, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return crawl.DecodeSnapshot(bytes.NewReader(data))
}

func (s *sqliteStore) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, saved_at, length(data) FROM snapshots ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var (
			info SnapshotInfo
			at   string
		)
		if err := rows.Scan(&info.Name, &at, &info.Size); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, at); err == nil {
			info.SavedAt = ts
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
