package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite"

	"mdpilot/model"
)

// HistoryStore persists the conversation timeline in <dataDir>/history.db.
type HistoryStore struct {
	db *sql.DB
}

// HistoryMatch is a search hit in the stored conversation.
type HistoryMatch struct {
	Message model.DisplayMessage
	Preview string
}

func NewHistoryStore(dataDir string) (*HistoryStore, error) {
	dbPath := filepath.Join(dataDir, "history.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; hooks fire from the UI and the orchestrator
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	hs := &HistoryStore{db: db}
	if err := hs.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return hs, nil
}

func (hs *HistoryStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		associated_file TEXT NOT NULL DEFAULT '',
		associated_list_item TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_messages_file ON messages(associated_file);
	`
	_, err := hs.db.Exec(schema)
	return err
}

// Append stores msg. A message already stored under the same id is ignored.
func (hs *HistoryStore) Append(msg model.DisplayMessage) error {
	query := `
	INSERT OR IGNORE INTO messages (id, role, content, created_at, associated_file, associated_list_item)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := hs.db.Exec(query,
		msg.ID,
		msg.Role,
		msg.Content,
		msg.Timestamp.UnixMilli(),
		msg.AssociatedFile,
		msg.AssociatedListItem,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Load returns the stored messages in insertion order. With limit > 0 only
// the last limit messages are returned.
func (hs *HistoryStore) Load(limit int) ([]model.DisplayMessage, error) {
	query := `
	SELECT id, role, content, created_at, associated_file, associated_list_item
	FROM (
		SELECT * FROM messages ORDER BY seq DESC LIMIT ?
	)
	ORDER BY seq ASC
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := hs.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var messages []model.DisplayMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// Search returns messages whose content contains query, case-insensitively,
// newest first.
func (hs *HistoryStore) Search(query string, limit int) ([]HistoryMatch, error) {
	if strings.TrimSpace(query) == "" {
		return []HistoryMatch{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := hs.db.Query(`
	SELECT id, role, content, created_at, associated_file, associated_list_item
	FROM messages
	WHERE lower(content) LIKE ? ESCAPE '\'
	ORDER BY seq DESC
	LIMIT ?
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search history: %w", err)
	}
	defer rows.Close()

	matches := []HistoryMatch{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, HistoryMatch{
			Message: msg,
			Preview: preview(msg.Content, query),
		})
	}

	return matches, rows.Err()
}

// Count returns the number of stored messages.
func (hs *HistoryStore) Count() (int, error) {
	var n int
	err := hs.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// Clear deletes every stored message.
func (hs *HistoryStore) Clear() error {
	if _, err := hs.db.Exec(`DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// ExportJSON writes the full history to exportPath as indented JSON.
func (hs *HistoryStore) ExportJSON(exportPath string) error {
	messages, err := hs.Load(0)
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []model.DisplayMessage{}
	}

	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

func (hs *HistoryStore) Close() error {
	return hs.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(rows rowScanner) (model.DisplayMessage, error) {
	var (
		msg     model.DisplayMessage
		created int64
	)
	err := rows.Scan(
		&msg.ID,
		&msg.Role,
		&msg.Content,
		&created,
		&msg.AssociatedFile,
		&msg.AssociatedListItem,
	)
	if err != nil {
		return msg, fmt.Errorf("failed to scan message: %w", err)
	}
	msg.Timestamp = time.UnixMilli(created)
	return msg, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// preview returns up to 100 bytes of content around the first match.
func preview(content, query string) string {
	const width = 100
	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx < 0 || idx >= len(content) || len(content) <= width {
		if len(content) > width {
			return truncateBytes(content, width) + "..."
		}
		return content
	}

	start := max(idx-width/4, 0)
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	body := truncateBytes(content[start:], width)
	out := body
	if start > 0 {
		out = "..." + out
	}
	if start+len(body) < len(content) {
		out += "..."
	}
	return out
}
