// Package memory persists the conversation trail. Each handled
// utterance and the confirmation it produced become one record; the
// pipeline writes them fire-and-forget so a slow disk never delays a
// reply.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Record is one remembered message.
type Record struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	AgentID   string    `json:"agent_id"`
	RoomID    string    `json:"room_id"`
	Content   Content   `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Content is a record's payload. Source names the subsystem that
// produced the text.
type Content struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// Store is a SQLite-backed memory store.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the memory database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		room_id TEXT NOT NULL,
		text TEXT NOT NULL,
		source TEXT,
		embedding TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_room ON memories(room_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateMemory inserts a record. A nil ID gets a fresh time-ordered
// UUID and a zero CreatedAt gets the current time.
func (s *Store) CreateMemory(ctx context.Context, rec Record) error {
	if rec.ID == uuid.Nil {
		rec.ID, _ = uuid.NewV7()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var embedding any
	if len(rec.Embedding) > 0 {
		b, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		embedding = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, user_id, agent_id, room_id, text, source, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID.String(), rec.UserID, rec.AgentID, rec.RoomID, rec.Content.Text, rec.Content.Source, embedding, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// Recent returns the newest records for a room, newest first.
func (s *Store) Recent(ctx context.Context, roomID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 1000 {
		limit = 1000 // Cap to prevent memory exhaustion
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, agent_id, room_id, text, source, embedding, created_at
		FROM memories
		WHERE room_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var id string
		var source, embedding sql.NullString
		if err := rows.Scan(&id, &rec.UserID, &rec.AgentID, &rec.RoomID,
			&rec.Content.Text, &source, &embedding, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		rec.ID, _ = uuid.Parse(id)
		if source.Valid {
			rec.Content.Source = source.String
		}
		if embedding.Valid && embedding.String != "" {
			_ = json.Unmarshal([]byte(embedding.String), &rec.Embedding)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Stats returns store statistics.
func (s *Store) Stats() map[string]any {
	var count int
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&count)

	return map[string]any{
		"memories": count,
		"storage":  "sqlite",
	}
}
