package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	logx "clipbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open initializes the SQLite store and creates the schema if absent.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	st.log.Debug("sqlite store opened", logx.String("path", cfg.Path))
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

func (s *sqliteStore) InsertPost(ctx context.Context, p ScheduledPost) (int64, error) {
	status := p.Status
	if status == "" {
		status = StatusPending
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_posts(video_url, video_title, platform, scheduled_at, created_at, status)
		 VALUES(?,?,?,?,?,?)`,
		p.VideoURL, p.VideoTitle, p.Platform, p.ScheduledAt, p.CreatedAt, string(status),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) GetPost(ctx context.Context, id int64) (*ScheduledPost, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, video_url, video_title, platform, scheduled_at, created_at, status
		 FROM scheduled_posts WHERE id = ?`, id)
	var p ScheduledPost
	var status string
	err := row.Scan(&p.ID, &p.VideoURL, &p.VideoTitle, &p.Platform, &p.ScheduledAt, &p.CreatedAt, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Status = Status(status)
	return &p, nil
}

func (s *sqliteStore) CountPendingInRange(ctx context.Context, start, end int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scheduled_posts
		 WHERE status = ? AND scheduled_at >= ? AND scheduled_at < ?`,
		string(StatusPending), start, end,
	).Scan(&n)
	return n, err
}

func (s *sqliteStore) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scheduled_posts WHERE status = ?`,
		string(StatusPending),
	).Scan(&n)
	return n, err
}

func (s *sqliteStore) ListPendingInRange(ctx context.Context, start, end int64) ([]ScheduledPost, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, video_url, video_title, platform, scheduled_at, created_at, status
		 FROM scheduled_posts
		 WHERE status = ? AND scheduled_at >= ? AND scheduled_at < ?
		 ORDER BY scheduled_at ASC`,
		string(StatusPending), start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduledPost
	for rows.Next() {
		var p ScheduledPost
		var status string
		if err := rows.Scan(&p.ID, &p.VideoURL, &p.VideoTitle, &p.Platform, &p.ScheduledAt, &p.CreatedAt, &status); err != nil {
			return nil, err
		}
		p.Status = Status(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) UpdateStatus(ctx context.Context, id int64, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET status = ? WHERE id = ?`,
		string(status), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
