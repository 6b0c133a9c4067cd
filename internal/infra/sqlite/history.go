package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"tvremote/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS command_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id   TEXT    NOT NULL,
	command     TEXT    NOT NULL,
	executed    INTEGER NOT NULL,
	executed_at INTEGER NOT NULL,
	response_ms INTEGER NOT NULL,
	error       TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_command_history_device ON command_history(device_id);
`

// History persists the command execution history, keeping only the most
// recent entries.
type History struct {
	db   *sql.DB
	keep int
}

// Open opens (or creates) the history database at path. ":memory:" gives a
// private in-memory database.
func Open(path string, keep int) (*History, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if keep <= 0 {
		keep = 100
	}
	return &History{db: db, keep: keep}, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	ctx := context.Background()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}

	return db, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) Record(ctx context.Context, rec domain.CommandRecord) error {
	cmd, err := json.Marshal(rec.Command)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO command_history (device_id, command, executed, executed_at, response_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.DeviceID, string(cmd), rec.Executed, rec.ExecutedAt.UnixMilli(), rec.ResponseTime, rec.Error)
	if err != nil {
		return fmt.Errorf("inserting history: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading insert id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM command_history WHERE id <= ?`, id-int64(h.keep)); err != nil {
		return fmt.Errorf("trimming history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Recent returns the newest entries first. A limit of zero or less returns
// every matching entry.
func (h *History) Recent(ctx context.Context, deviceID string, limit int) ([]domain.CommandRecord, int, error) {
	where := ""
	var args []any
	if deviceID != "" {
		where = " WHERE device_id = ?"
		args = append(args, deviceID)
	}

	var total int
	if err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM command_history`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting history: %w", err)
	}

	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT device_id, command, executed, executed_at, response_ms, error
		 FROM command_history`+where+` ORDER BY id DESC LIMIT ?`,
		append(args, limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []domain.CommandRecord
	for rows.Next() {
		var (
			rec        domain.CommandRecord
			cmd        string
			executedAt int64
		)
		if err := rows.Scan(&rec.DeviceID, &cmd, &rec.Executed, &executedAt, &rec.ResponseTime, &rec.Error); err != nil {
			return nil, 0, fmt.Errorf("scanning history: %w", err)
		}
		if err := json.Unmarshal([]byte(cmd), &rec.Command); err != nil {
			return nil, 0, fmt.Errorf("decoding command: %w", err)
		}
		rec.ExecutedAt = time.UnixMilli(executedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating history: %w", err)
	}
	return out, total, nil
}
