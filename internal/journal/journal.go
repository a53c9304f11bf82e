// Package journal хранит в SQLite историю рендеров: по записи на каждый
// обработанный документ.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Статусы обработки документа.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Entry хранит результат обработки одного документа.
type Entry struct {
	RunID    string
	Job      string
	Source   string
	Output   string
	Status   string
	Error    string
	Duration time.Duration
	At       time.Time
}

// Journal ведёт журнал рендеров. Методы безопасны для параллельного вызова.
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS renders (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT    NOT NULL,
	job         TEXT    NOT NULL,
	source      TEXT    NOT NULL,
	output      TEXT    NOT NULL DEFAULT '',
	status      TEXT    NOT NULL,
	error       TEXT    NOT NULL DEFAULT '',
	duration_us INTEGER NOT NULL DEFAULT 0,
	at_unix_ns  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_renders_run ON renders(run_id);
`

// Open открывает (или создаёт) журнал по DSN SQLite.
func Open(dsn string) (*Journal, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", dsn, err)
	}
	// SQLite сериализует запись; одно соединение убирает SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close закрывает базу.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record добавляет запись. Пустое время заменяется текущим.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO renders (run_id, job, source, output, status, error, duration_us, at_unix_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Job, e.Source, e.Output, e.Status, e.Error, e.Duration.Microseconds(), e.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("journal: record %s: %w", e.Source, err)
	}
	return nil
}

// Recent возвращает последние limit записей, новые первыми.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, job, source, output, status, error, duration_us, at_unix_ns
		 FROM renders ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var durUS, atNS int64
		if err := rows.Scan(&e.RunID, &e.Job, &e.Source, &e.Output, &e.Status, &e.Error, &durUS, &atNS); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Duration = time.Duration(durUS) * time.Microsecond
		e.At = time.Unix(0, atNS)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Summary считает записи запуска по статусам.
func (j *Journal) Summary(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM renders WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
