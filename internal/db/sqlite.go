package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RichardoC/vischat/internal/conversation"
	"github.com/RichardoC/vischat/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS messages_session_idx ON messages(session_id, id);`

type Database struct {
	db *sql.DB
}

// New opens the database at dbPath. ":memory:" keeps every conversation in
// process memory, so nothing outlives a restart.
func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db}, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

// Conversation returns the store holding the messages of one session.
func (db *Database) Conversation(sessionID string) *Conversation {
	return &Conversation{db: db, sessionID: sessionID}
}

func (db *Database) SaveMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	content, err := models.MarshalParts(msg.Parts)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO messages (session_id, role, content, created_at)
        VALUES (?, ?, ?, ?)`

	_, err = db.db.ExecContext(ctx, query, sessionID, string(msg.Role), string(content), msg.CreatedAt)
	return err
}

func (db *Database) GetConversationHistory(ctx context.Context, sessionID string) ([]models.Message, error) {
	query := `
        SELECT role, content, created_at
        FROM messages
        WHERE session_id = ?
        ORDER BY id ASC`

	rows, err := db.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var (
			msg     models.Message
			role    string
			content string
		)
		if err := rows.Scan(&role, &content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = models.Role(role)
		if msg.Parts, err = models.UnmarshalParts([]byte(content)); err != nil {
			return nil, fmt.Errorf("failed to decode content: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (db *Database) DeleteConversation(ctx context.Context, sessionID string) error {
	_, err := db.db.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID)
	return err
}

// Purge drops every stored message. The server calls it at startup because
// conversations never outlive the process that owned their sessions.
func (db *Database) Purge(ctx context.Context) error {
	_, err := db.db.ExecContext(ctx, "DELETE FROM messages")
	return err
}

// Conversation is a conversation.Store backed by the messages table.
type Conversation struct {
	db        *Database
	sessionID string
}

func (c *Conversation) Append(ctx context.Context, msg models.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return c.db.SaveMessage(ctx, c.sessionID, &msg)
}

func (c *Conversation) Clear(ctx context.Context) error {
	return c.db.DeleteConversation(ctx, c.sessionID)
}

func (c *Conversation) All(ctx context.Context) ([]models.Message, error) {
	return c.db.GetConversationHistory(ctx, c.sessionID)
}

var _ conversation.Store = (*Conversation)(nil)
