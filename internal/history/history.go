// File path: internal/history/history.go
package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Entry is one audited answer.
type Entry struct {
	ID         int64     `db:"id" json:"id"`
	Question   string    `db:"question" json:"question"`
	Answer     string    `db:"answer" json:"answer"`
	Confidence float64   `db:"confidence" json:"confidence"`
	Escalate   bool      `db:"escalate" json:"escalate"`
	Lang       string    `db:"lang" json:"lang"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Log records refined answers in SQLite for later review. Logging is
// best-effort at call sites; the answer path never fails on audit errors.
type Log struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS bot_responses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	confidence REAL NOT NULL,
	escalate INTEGER NOT NULL,
	lang TEXT NOT NULL DEFAULT 'ru',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_bot_responses_created ON bot_responses(created_at);
`

// Open constructs the audit log backed by the SQLite database at path,
// creating the schema on first use.
func Open(path string) (*Log, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history path: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", abs, 5000)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record appends one entry. CreatedAt is assigned by the database.
func (l *Log) Record(ctx context.Context, entry Entry) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO bot_responses (question, answer, confidence, escalate, lang) VALUES (?, ?, ?, ?, ?)`,
		entry.Question, entry.Answer, entry.Confidence, entry.Escalate, entry.Lang)
	if err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []Entry
	err := l.db.SelectContext(ctx, &entries,
		`SELECT id, question, answer, confidence, escalate, lang, created_at
		 FROM bot_responses ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}
