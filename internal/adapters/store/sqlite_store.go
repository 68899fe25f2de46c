package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/llm-msg-triage/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the MessageStore interface
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if necessary initializes) a SQLite message store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			sender TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			naive_bayes_score REAL,
			llm_score REAL,
			classification TEXT,
			created_at TEXT NOT NULL,
			processed_at TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_messages_status_created ON messages(status, created_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create messages index: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS filter_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id INTEGER NOT NULL,
			step TEXT NOT NULL,
			result TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create filter_logs table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_filter_logs_message ON filter_logs(message_id)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create filter_logs index: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Enqueue creates a new pending message and returns its id
func (s *SQLiteStore) Enqueue(ctx context.Context, content, sender string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (content, sender, status, created_at)
		VALUES (?, ?, ?, ?)
	`, content, sender, string(core.StatusPending), time.Now().UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get message id: %w", err)
	}
	return id, nil
}

// FetchPending returns pending messages, oldest-created first
func (s *SQLiteStore) FetchPending(ctx context.Context, limit int) ([]*core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE status = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, string(core.StatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending messages: %w", err)
	}
	return collectMessages(rows)
}

// Claim atomically transitions a message from pending to in_progress
func (s *SQLiteStore) Claim(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET status = ? WHERE id = ? AND status = ?
	`, string(core.StatusInProgress), id, string(core.StatusPending))
	if err != nil {
		return false, fmt.Errorf("failed to claim message: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claim result: %w", err)
	}
	return n == 1, nil
}

// Release returns a claimed message to pending
func (s *SQLiteStore) Release(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET status = ? WHERE id = ? AND status = ?
	`, string(core.StatusPending), id, string(core.StatusInProgress))
	if err != nil {
		return fmt.Errorf("failed to release message: %w", err)
	}
	return nil
}

// RequeueInProgress returns all in_progress messages to pending
func (s *SQLiteStore) RequeueInProgress(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET status = ? WHERE status = ?
	`, string(core.StatusPending), string(core.StatusInProgress))
	if err != nil {
		return 0, fmt.Errorf("failed to requeue in_progress messages: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count requeued messages: %w", err)
	}
	return n, nil
}

// Finalize records the verdict. processed_at is only set the first time,
// so a duplicate call overwrites fields without corrupting the timestamp.
func (s *SQLiteStore) Finalize(ctx context.Context, id int64, status core.MessageStatus, classification core.Classification, naiveBayesScore, llmScore *float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET status = ?,
		    classification = ?,
		    naive_bayes_score = ?,
		    llm_score = ?,
		    processed_at = COALESCE(processed_at, ?)
		WHERE id = ?
	`, string(status), nullableClassification(classification),
		nullableFloat(naiveBayesScore), nullableFloat(llmScore),
		time.Now().UTC().Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("failed to finalize message: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finalize result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendLog appends one audit entry, verifying the message exists
func (s *SQLiteStore) AppendLog(ctx context.Context, messageID int64, step, result, details string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO filter_logs (message_id, step, result, details, timestamp)
		SELECT ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM messages WHERE id = ?)
	`, messageID, step, result, details, time.Now().UTC().Format(timeFormat), messageID)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check audit insert: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMessages returns messages with the given status, newest-created first
func (s *SQLiteStore) ListMessages(ctx context.Context, status core.MessageStatus) ([]*core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE status = ?
		ORDER BY created_at DESC, id DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return collectMessages(rows)
}

// ListMessagesWithAudit returns all messages with their concatenated
// audit trails, newest-created first
func (s *SQLiteStore) ListMessagesWithAudit(ctx context.Context) ([]*core.MessageWithAudit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.content, m.sender, m.status, m.naive_bayes_score,
		       m.llm_score, m.classification, m.created_at, m.processed_at,
		       COALESCE(GROUP_CONCAT(
		           fl.step || ': ' || fl.result ||
		           CASE WHEN fl.details != '' THEN ' (' || fl.details || ')' ELSE '' END,
		           ' | '
		       ), '') AS filter_history
		FROM messages m
		LEFT JOIN filter_logs fl ON m.id = fl.message_id
		GROUP BY m.id
		ORDER BY m.created_at DESC, m.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages with audit: %w", err)
	}
	defer rows.Close()

	var out []*core.MessageWithAudit
	for rows.Next() {
		var (
			msg            core.Message
			status         string
			nbScore        sql.NullFloat64
			llmScore       sql.NullFloat64
			classification sql.NullString
			createdAt      string
			processedAt    sql.NullString
			audit          string
		)
		if err := rows.Scan(&msg.ID, &msg.Content, &msg.Sender, &status,
			&nbScore, &llmScore, &classification, &createdAt, &processedAt, &audit); err != nil {
			return nil, err
		}

		msg.Status = core.MessageStatus(status)
		if nbScore.Valid {
			v := nbScore.Float64
			msg.NaiveBayesScore = &v
		}
		if llmScore.Valid {
			v := llmScore.Float64
			msg.LLMScore = &v
		}
		if classification.Valid {
			msg.Classification = core.Classification(classification.String)
		}
		created, err := time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		msg.CreatedAt = created
		if processedAt.Valid {
			processed, err := time.Parse(timeFormat, processedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse processed_at: %w", err)
			}
			msg.ProcessedAt = &processed
		}

		out = append(out, &core.MessageWithAudit{Message: &msg, Audit: audit})
	}
	return out, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close SQLite database: %w", err)
	}
	return nil
}
