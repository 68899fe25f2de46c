package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/llm-msg-triage/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the MessageStore interface.
// Timestamps are stored as RFC 3339 text so both SQL backends share the
// same scan logic and ordering semantics.
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore opens (and if necessary initializes) a MySQL message store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			content TEXT NOT NULL,
			sender VARCHAR(255) NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			naive_bayes_score DOUBLE,
			llm_score DOUBLE,
			classification VARCHAR(16),
			created_at VARCHAR(40) NOT NULL,
			processed_at VARCHAR(40),
			INDEX idx_messages_status_created (status, created_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS filter_logs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			message_id BIGINT NOT NULL,
			step VARCHAR(32) NOT NULL,
			result VARCHAR(255) NOT NULL,
			details TEXT NOT NULL,
			timestamp VARCHAR(40) NOT NULL,
			INDEX idx_filter_logs_message (message_id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create filter_logs table: %w", err)
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// Enqueue creates a new pending message and returns its id
func (s *MySQLStore) Enqueue(ctx context.Context, content, sender string) (int64, error) {
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
func (s *MySQLStore) FetchPending(ctx context.Context, limit int) ([]*core.Message, error) {
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
func (s *MySQLStore) Claim(ctx context.Context, id int64) (bool, error) {
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
func (s *MySQLStore) Release(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET status = ? WHERE id = ? AND status = ?
	`, string(core.StatusPending), id, string(core.StatusInProgress))
	if err != nil {
		return fmt.Errorf("failed to release message: %w", err)
	}
	return nil
}

// RequeueInProgress returns all in_progress messages to pending
func (s *MySQLStore) RequeueInProgress(ctx context.Context) (int64, error) {
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

// Finalize records the verdict; processed_at is only set the first time
func (s *MySQLStore) Finalize(ctx context.Context, id int64, status core.MessageStatus, classification core.Classification, naiveBayesScore, llmScore *float64) error {
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
	// MySQL reports 0 affected rows for a no-op update, so distinguish
	// a missing row explicitly
	if n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM messages WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check message existence: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// AppendLog appends one audit entry, verifying the message exists
func (s *MySQLStore) AppendLog(ctx context.Context, messageID int64, step, result, details string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO filter_logs (message_id, step, result, details, timestamp)
		SELECT ?, ?, ?, ?, ?
		FROM DUAL
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
func (s *MySQLStore) ListMessages(ctx context.Context, status core.MessageStatus) ([]*core.Message, error) {
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
func (s *MySQLStore) ListMessagesWithAudit(ctx context.Context) ([]*core.MessageWithAudit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.content, m.sender, m.status, m.naive_bayes_score,
		       m.llm_score, m.classification, m.created_at, m.processed_at,
		       COALESCE(GROUP_CONCAT(
		           CONCAT(fl.step, ': ', fl.result,
		                  CASE WHEN fl.details != '' THEN CONCAT(' (', fl.details, ')') ELSE '' END)
		           SEPARATOR ' | '
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
func (s *MySQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close MySQL database: %w", err)
	}
	return nil
}
