// Package sandbox is a self-contained workspace server for local
// development: every contract the client consumes, backed by an embedded
// sqlite database, with a background worker that moves documents through
// their processing statuses and a pluggable assistant responder.
package sandbox

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/workbench-ai/cli/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    owner_id    TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chats (
    id         TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    title      TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    id         TEXT PRIMARY KEY,
    chat_id    TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
    role       TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
    content    TEXT NOT NULL,
    author     TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
    id         TEXT PRIMARY KEY,
    message_id TEXT NOT NULL,
    rating     TEXT NOT NULL CHECK (rating IN ('like', 'dislike')),
    comment    TEXT NOT NULL DEFAULT '',
    category   TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
    id          TEXT PRIMARY KEY,
    project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    source      TEXT NOT NULL,
    status      TEXT NOT NULL CHECK (status IN ('queued', 'processing', 'completed', 'failed')),
    detail      TEXT NOT NULL DEFAULT '',
    storage_key TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    project_id TEXT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
    data       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS uploads (
    storage_key  TEXT PRIMARY KEY,
    project_id   TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    name         TEXT NOT NULL,
    size         INTEGER NOT NULL,
    content_type TEXT NOT NULL DEFAULT '',
    data         BLOB,
    created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chats_project ON chats(project_id);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id);
CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id);
`

// Open opens the sandbox database, creating the file and schema as needed
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running schema migration: %w", err)
	}
	return db, nil
}

// Queries wraps all SQL access to the sandbox database
type Queries struct {
	db *sql.DB
}

// NewQueries creates the query layer over an open database
func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// UploadRecord is a stored upload slot plus the bytes received for it
type UploadRecord struct {
	StorageKey  string
	ProjectID   string
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// Timestamps are stored at nanosecond precision so a message pair always
// reads back in insertion order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Projects

func (q *Queries) CreateProject(p models.Project) error {
	_, err := q.db.Exec(
		`INSERT INTO projects (id, name, description, owner_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.OwnerID, formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	return nil
}

func (q *Queries) Project(id string) (*models.Project, error) {
	p := &models.Project{}
	var createdAt string
	err := q.db.QueryRow(
		`SELECT id, name, description, owner_id, created_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &createdAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing project timestamp: %w", err)
	}
	return p, nil
}

// Chats

func (q *Queries) InsertChat(c models.Chat) error {
	_, err := q.db.Exec(
		`INSERT INTO chats (id, project_id, title, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Title, formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("creating chat: %w", err)
	}
	return nil
}

// ProjectChats lists a project's chats newest first, matching the client's
// prepend-on-create ordering.
func (q *Queries) ProjectChats(projectID string) ([]models.Chat, error) {
	rows, err := q.db.Query(
		`SELECT id, project_id, title, created_at FROM chats WHERE project_id = ? ORDER BY created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	var results []models.Chat
	for rows.Next() {
		var c models.Chat
		var createdAt string
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Title, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		c.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing chat timestamp: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (q *Queries) Chat(id string) (*models.Chat, error) {
	c := &models.Chat{}
	var createdAt string
	err := q.db.QueryRow(
		`SELECT id, project_id, title, created_at FROM chats WHERE id = ?`, id,
	).Scan(&c.ID, &c.ProjectID, &c.Title, &createdAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing chat timestamp: %w", err)
	}
	return c, nil
}

func (q *Queries) DeleteChat(id string) error {
	res, err := q.db.Exec(`DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Messages

func (q *Queries) ChatMessages(chatID string) ([]models.Message, error) {
	rows, err := q.db.Query(
		`SELECT id, chat_id, role, content, author, created_at FROM messages WHERE chat_id = ? ORDER BY created_at ASC`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var results []models.Message
	for rows.Next() {
		var m models.Message
		var id, role, createdAt string
		if err := rows.Scan(&id, &m.ChatID, &role, &m.Content, &m.Author, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.ID = models.DurableID(id)
		m.Role = models.Role(role)
		m.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing message timestamp: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// InsertExchange stores a user message and its assistant reply in one
// transaction, so a half-written exchange can never be observed.
func (q *Queries) InsertExchange(user, reply models.Message) error {
	tx, err := q.db.Begin()
	if err != nil {
		return fmt.Errorf("starting exchange transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := `INSERT INTO messages (id, chat_id, role, content, author, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.Exec(stmt, user.ID.Value(), user.ChatID, string(user.Role), user.Content, user.Author, formatTime(user.CreatedAt)); err != nil {
		return fmt.Errorf("storing user message: %w", err)
	}
	if _, err := tx.Exec(stmt, reply.ID.Value(), reply.ChatID, string(reply.Role), reply.Content, reply.Author, formatTime(reply.CreatedAt)); err != nil {
		return fmt.Errorf("storing assistant reply: %w", err)
	}
	return tx.Commit()
}

func (q *Queries) InsertMessage(m models.Message) error {
	_, err := q.db.Exec(
		`INSERT INTO messages (id, chat_id, role, content, author, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID.Value(), m.ChatID, string(m.Role), m.Content, m.Author, formatTime(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("storing message: %w", err)
	}
	return nil
}

// Feedback

func (q *Queries) InsertFeedback(messageID string, rating models.Rating, comment, category string) error {
	_, err := q.db.Exec(
		`INSERT INTO feedback (id, message_id, rating, comment, category, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), messageID, string(rating), comment, category, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("storing feedback: %w", err)
	}
	return nil
}

// Documents

func (q *Queries) InsertDocument(d models.Document, storageKey string) error {
	_, err := q.db.Exec(
		`INSERT INTO documents (id, project_id, source, status, detail, storage_key, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, d.Source, string(d.Status), d.Detail, storageKey, formatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	return nil
}

func (q *Queries) Document(id string) (*models.Document, error) {
	d := &models.Document{}
	var status, createdAt string
	err := q.db.QueryRow(
		`SELECT id, project_id, source, status, detail, created_at FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.ProjectID, &d.Source, &status, &d.Detail, &createdAt)
	if err != nil {
		return nil, err
	}
	d.Status = models.DocumentStatus(status)
	d.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing document timestamp: %w", err)
	}
	return d, nil
}

func (q *Queries) DocumentStorageKey(id string) (string, error) {
	var key string
	err := q.db.QueryRow(`SELECT storage_key FROM documents WHERE id = ?`, id).Scan(&key)
	if err != nil {
		return "", fmt.Errorf("reading document storage key: %w", err)
	}
	return key, nil
}

func (q *Queries) ProjectDocuments(projectID string) ([]models.Document, error) {
	rows, err := q.db.Query(
		`SELECT id, project_id, source, status, detail, created_at FROM documents WHERE project_id = ? ORDER BY created_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var results []models.Document
	for rows.Next() {
		var d models.Document
		var status, createdAt string
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Source, &status, &d.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.Status = models.DocumentStatus(status)
		d.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing document timestamp: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// PendingDocuments returns identifiers still awaiting work. Documents stuck
// in processing from an interrupted run are reclaimed too.
func (q *Queries) PendingDocuments() ([]string, error) {
	rows, err := q.db.Query(
		`SELECT id FROM documents WHERE status IN ('queued', 'processing') ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning pending document: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *Queries) UpdateDocumentStatus(id string, status models.DocumentStatus, detail string) error {
	_, err := q.db.Exec(
		`UPDATE documents SET status = ?, detail = ? WHERE id = ?`,
		string(status), detail, id,
	)
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}
	return nil
}

func (q *Queries) DeleteDocument(id string) error {
	res, err := q.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Settings

func (q *Queries) SaveSettings(projectID string, s models.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	_, err = q.db.Exec(
		`INSERT INTO settings (project_id, data) VALUES (?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET data = excluded.data`,
		projectID, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

func (q *Queries) ProjectSettings(projectID string) (models.Settings, error) {
	var data string
	err := q.db.QueryRow(`SELECT data FROM settings WHERE project_id = ?`, projectID).Scan(&data)
	if err == sql.ErrNoRows {
		return models.Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	var s models.Settings
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return s, nil
}

// Uploads

func (q *Queries) CreateUpload(storageKey, projectID, name string, size int64, contentType string) error {
	_, err := q.db.Exec(
		`INSERT INTO uploads (storage_key, project_id, name, size, content_type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		storageKey, projectID, name, size, contentType, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("creating upload slot: %w", err)
	}
	return nil
}

func (q *Queries) Upload(storageKey string) (*UploadRecord, error) {
	u := &UploadRecord{}
	err := q.db.QueryRow(
		`SELECT storage_key, project_id, name, size, content_type, data FROM uploads WHERE storage_key = ?`,
		storageKey,
	).Scan(&u.StorageKey, &u.ProjectID, &u.Name, &u.Size, &u.ContentType, &u.Data)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (q *Queries) StoreUploadData(storageKey string, data []byte) error {
	res, err := q.db.Exec(`UPDATE uploads SET data = ? WHERE storage_key = ?`, data, storageKey)
	if err != nil {
		return fmt.Errorf("storing upload data: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// EnsureSeed creates the demo project the default client config points at,
// so a fresh checkout works end to end without any setup.
func (q *Queries) EnsureSeed() error {
	if _, err := q.Project("demo"); err == nil {
		return nil
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("checking seed project: %w", err)
	}

	now := time.Now()
	project := models.Project{
		ID:          "demo",
		Name:        "Demo Project",
		Description: "A seeded workspace to explore the client against.",
		OwnerID:     "local-user",
		CreatedAt:   now,
	}
	if err := q.CreateProject(project); err != nil {
		return err
	}

	settings := models.Settings{
		"model":       "sandbox-small",
		"temperature": 0.3,
		"citations":   true,
	}
	if err := q.SaveSettings(project.ID, settings); err != nil {
		return err
	}

	chat := models.Chat{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		Title:     "Welcome",
		CreatedAt: now,
	}
	if err := q.InsertChat(chat); err != nil {
		return err
	}
	welcome := models.Message{
		ID:        models.DurableID(uuid.NewString()),
		ChatID:    chat.ID,
		Role:      models.RoleAssistant,
		Content:   "Welcome to your workspace. Ask a question, or add documents to build up the knowledge base.",
		CreatedAt: now,
	}
	return q.InsertMessage(welcome)
}
