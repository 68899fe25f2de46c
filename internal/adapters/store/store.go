package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/llm-msg-triage/internal/core"
)

var (
	// ErrNotFound is returned when a referenced message does not exist
	ErrNotFound = errors.New("message not found")
)

// timeFormat is how the SQL backends persist timestamps. The fractional
// second is fixed-width (RFC3339Nano trims trailing zeros, which breaks
// lexical ordering) so ORDER BY created_at matches creation order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const messageColumns = "id, content, sender, status, naive_bayes_score, llm_score, classification, created_at, processed_at"

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMessage reads one messages row into a core.Message
func scanMessage(row rowScanner) (*core.Message, error) {
	var (
		msg            core.Message
		status         string
		nbScore        sql.NullFloat64
		llmScore       sql.NullFloat64
		classification sql.NullString
		createdAt      string
		processedAt    sql.NullString
	)

	if err := row.Scan(&msg.ID, &msg.Content, &msg.Sender, &status,
		&nbScore, &llmScore, &classification, &createdAt, &processedAt); err != nil {
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

	return &msg, nil
}

// collectMessages drains a result set into a slice
func collectMessages(rows *sql.Rows) ([]*core.Message, error) {
	defer rows.Close()

	var messages []*core.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// nullableClassification maps the unset classification to SQL NULL
func nullableClassification(c core.Classification) interface{} {
	if c == "" {
		return nil
	}
	return string(c)
}

// nullableFloat maps a nil score to SQL NULL
func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
