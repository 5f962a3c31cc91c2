package db

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
)

// Version 2 added task ids. Version 1 tasks carry no id and are always
// inserted as new rows.
const snapshotVersion = 2

type snapshotMeta struct {
	RecordType string    `json:"record_type"`
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
}

type snapshotUser struct {
	RecordType string `json:"record_type"`
	Username   string `json:"username"`
}

type snapshotTask struct {
	RecordType  string `json:"record_type"`
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Position    int    `json:"position"`
	Task        string `json:"task"`
	Description string `json:"description"`
	TaskDate    string `json:"task_date"`
	Priority    string `json:"priority"`
	Status      bool   `json:"status"`
}

// EnableAutoSnapshot sets up a hook that automatically exports a snapshot
// to the given path after every successful write operation.
func (db *DB) EnableAutoSnapshot(path string, onError func(error)) {
	db.SetOnChange(func(ctx context.Context) {
		// The write already succeeded; a failed export is only reported.
		if err := db.ExportSnapshot(ctx, path); err != nil && onError != nil {
			onError(err)
		}
	})
}

// ExportSnapshot writes every user and task as JSON lines to path
// atomically using a temporary file. Password hashes are not exported.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	w := bufio.NewWriter(tempFile)
	writeLine := func(v any) error {
		line, err := sonic.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot line: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write snapshot line: %w", err)
		}
		return nil
	}

	if err := writeLine(snapshotMeta{RecordType: "meta", Version: snapshotVersion, ExportedAt: time.Now().UTC()}); err != nil {
		return err
	}

	if err := db.exportUsers(ctx, writeLine); err != nil {
		return err
	}
	if err := db.exportTasks(ctx, writeLine); err != nil {
		return err
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func (db *DB) exportUsers(ctx context.Context, writeLine func(any) error) error {
	rows, err := db.QueryContext(ctx, `SELECT username FROM users ORDER BY username`)
	if err != nil {
		return fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u := snapshotUser{RecordType: "user"}
		if err := rows.Scan(&u.Username); err != nil {
			return fmt.Errorf("failed to scan user: %w", err)
		}
		if err := writeLine(u); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (db *DB) exportTasks(ctx context.Context, writeLine func(any) error) error {
	rows, err := db.QueryContext(ctx, `
		SELECT t.id, u.username, t.position, t.task, t.description, t.task_date, t.priority, t.status
		FROM tasks t
		JOIN users u ON t.user_id = u.id
		ORDER BY u.username, t.position, t.id
	`)
	if err != nil {
		return fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t := snapshotTask{RecordType: "task"}
		var status int
		if err := rows.Scan(&t.ID, &t.Username, &t.Position, &t.Task, &t.Description, &t.TaskDate, &t.Priority, &status); err != nil {
			return fmt.Errorf("failed to scan task: %w", err)
		}
		t.Status = status == 1
		if err := writeLine(t); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ImportSnapshot reads a JSONL snapshot and merges it into the database in
// one transaction. Users are matched by username. A task whose id exists
// for the same owner is updated in place; otherwise it is inserted, keeping
// its id when that id is free. Importing the same snapshot twice is a no-op.
// Imported users get an unusable password and must register again to log in.
func (db *DB) ImportSnapshot(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	userIDs := make(map[string]int64)
	ensureUser := func(username string) (int64, error) {
		if id, ok := userIDs[username]; ok {
			return id, nil
		}
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, username).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			res, err := tx.ExecContext(ctx, `INSERT INTO users (username, password_hash) VALUES (?, '!')`, username)
			if err != nil {
				return 0, fmt.Errorf("failed to create user %s: %w", username, err)
			}
			if id, err = res.LastInsertId(); err != nil {
				return 0, fmt.Errorf("failed to get user id: %w", err)
			}
		} else if err != nil {
			return 0, fmt.Errorf("failed to look up user %s: %w", username, err)
		}
		userIDs[username] = id
		return id, nil
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var base struct {
			RecordType string `json:"record_type"`
		}
		if err := sonic.Unmarshal(line, &base); err != nil {
			return fmt.Errorf("failed to unmarshal base record: %w", err)
		}

		switch base.RecordType {
		case "meta":
			var m snapshotMeta
			if err := sonic.Unmarshal(line, &m); err != nil {
				return fmt.Errorf("failed to unmarshal meta: %w", err)
			}
			if m.Version > snapshotVersion {
				return fmt.Errorf("unsupported snapshot version %d", m.Version)
			}

		case "user":
			var u snapshotUser
			if err := sonic.Unmarshal(line, &u); err != nil {
				return fmt.Errorf("failed to unmarshal user: %w", err)
			}
			if _, err := ensureUser(u.Username); err != nil {
				return err
			}

		case "task":
			var t snapshotTask
			if err := sonic.Unmarshal(line, &t); err != nil {
				return fmt.Errorf("failed to unmarshal task: %w", err)
			}
			if err := validateTitle(t.Task); err != nil {
				return fmt.Errorf("task %q: %w", t.Task, err)
			}
			if err := validateDescription(t.Description); err != nil {
				return fmt.Errorf("task %q: %w", t.Task, err)
			}
			userID, err := ensureUser(t.Username)
			if err != nil {
				return err
			}

			if err := importTask(ctx, tx, userID, t); err != nil {
				return fmt.Errorf("failed to sync task %s: %w", t.Task, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}

func importTask(ctx context.Context, tx *sql.Tx, userID int64, t snapshotTask) error {
	owner := int64(-1)
	if t.ID > 0 {
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM tasks WHERE id = ?`, t.ID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			owner = 0
		} else if err != nil {
			return err
		}
	}

	var err error
	switch owner {
	case userID:
		_, err = tx.ExecContext(ctx, `
			UPDATE tasks SET task = ?, description = ?, task_date = ?, priority = ?, status = ?, position = ?
			WHERE id = ?`,
			t.Task, t.Description, t.TaskDate, t.Priority, boolToInt(t.Status), t.Position, t.ID)
	case 0:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (id, user_id, task, description, task_date, priority, status, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, userID, t.Task, t.Description, t.TaskDate, t.Priority, boolToInt(t.Status), t.Position)
	default:
		// No id, or the id belongs to someone else here.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (user_id, task, description, task_date, priority, status, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, t.Task, t.Description, t.TaskDate, t.Priority, boolToInt(t.Status), t.Position)
	}
	return err
}
