package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/fixtures"
	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database that lives as long as the process.
const MemoryDSN = ":memory:"

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens the database at dbPath, creates the schema and loads seed when it is non-nil.
func NewSQLite(ctx context.Context, dbPath string, seed *fixtures.Set) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = MemoryDSN
	}
	if dbPath != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if seed != nil {
		if err := s.load(ctx, seed); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed database: %w", err)
		}
	}

	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS agents (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		platform TEXT NOT NULL,
		platform_token TEXT NOT NULL DEFAULT '',
		store_name TEXT NOT NULL DEFAULT '',
		store_url TEXT NOT NULL,
		consumer_key TEXT NOT NULL DEFAULT '',
		consumer_secret TEXT NOT NULL DEFAULT '',
		openai_key TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL,
		params_json TEXT NOT NULL,
		personality TEXT NOT NULL DEFAULT '',
		system_prompt TEXT NOT NULL DEFAULT '',
		welcome_message TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		knowledge_json TEXT NOT NULL DEFAULT '[]',
		conversations_count INTEGER NOT NULL DEFAULT 0,
		growth REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		role TEXT NOT NULL DEFAULT 'user',
		password TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS knowledge_bases (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		item_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) load(ctx context.Context, seed *fixtures.Set) error {
	for _, a := range seed.Agents {
		if err := s.CreateAgent(ctx, a.Domain()); err != nil {
			return err
		}
	}
	now := time.Now().UTC()
	for _, u := range seed.Users {
		user := &domain.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: now, UpdatedAt: now}
		if err := s.UpsertUser(ctx, user); err != nil {
			return err
		}
		if u.Password != "" {
			if err := s.SetPassword(ctx, u.ID, u.Password); err != nil {
				return err
			}
		}
	}
	for _, kb := range seed.KnowledgeBases {
		if err := s.CreateKnowledgeBase(ctx, kb.Domain()); err != nil {
			return err
		}
	}
	slog.Debug("Store seeded",
		"agents", len(seed.Agents),
		"users", len(seed.Users),
		"knowledge_bases", len(seed.KnowledgeBases))
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// exec runs a write statement and returns the number of affected rows.
func (s *SQLiteStore) exec(ctx context.Context, what, query string, args ...any) (int64, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return rows, nil
}

const agentColumns = `id, name, description, platform, platform_token, store_name, store_url,
	consumer_key, consumer_secret, openai_key, model, params_json, personality,
	system_prompt, welcome_message, status, knowledge_json, conversations_count, growth,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var a domain.Agent
	var paramsJSON, knowledgeJSON string
	var createdAt, updatedAt int64

	err := row.Scan(
		&a.ID, &a.Name, &a.Description, &a.Platform, &a.PlatformToken, &a.StoreName, &a.StoreURL,
		&a.ConsumerKey, &a.ConsumerSecret, &a.OpenAIKey, &a.Model, &paramsJSON, &a.Personality,
		&a.SystemPrompt, &a.WelcomeMessage, &a.Status, &knowledgeJSON, &a.ConversationsCount, &a.Growth,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(paramsJSON), &a.Params); err != nil {
		return nil, fmt.Errorf("decode params of agent %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(knowledgeJSON), &a.KnowledgeSources); err != nil {
		return nil, fmt.Errorf("decode knowledge of agent %s: %w", a.ID, err)
	}
	if a.KnowledgeSources == nil {
		a.KnowledgeSources = []domain.KnowledgeSource{}
	}
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	a.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &a, nil
}

// agentArgs returns the agent's fields in agentColumns order.
func agentArgs(a *domain.Agent) ([]any, error) {
	params, err := json.Marshal(a.Params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	sources := a.KnowledgeSources
	if sources == nil {
		sources = []domain.KnowledgeSource{}
	}
	knowledge, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("encode knowledge sources: %w", err)
	}
	return []any{
		a.ID, a.Name, a.Description, string(a.Platform), a.PlatformToken, a.StoreName, a.StoreURL,
		a.ConsumerKey, a.ConsumerSecret, a.OpenAIKey, a.Model, string(params), a.Personality,
		a.SystemPrompt, a.WelcomeMessage, string(a.Status), string(knowledge), a.ConversationsCount, a.Growth,
		a.CreatedAt.UnixMilli(), a.UpdatedAt.UnixMilli(),
	}, nil
}

// ListAgents returns every agent in insertion order.
func (s *SQLiteStore) ListAgents(ctx context.Context) ([]*domain.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close agent rows", "error", closeErr)
		}
	}()

	agents := []*domain.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return agents, nil
}

// GetAgent retrieves an agent by id.
func (s *SQLiteStore) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent: %w", err)
	}
	return a, nil
}

// CreateAgent inserts a new agent.
func (s *SQLiteStore) CreateAgent(ctx context.Context, a *domain.Agent) error {
	args, err := agentArgs(a)
	if err != nil {
		return err
	}
	query := `INSERT INTO agents (` + agentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.exec(ctx, "insert agent", query, args...)
	return err
}

// UpdateAgent replaces the stored agent with the same id.
func (s *SQLiteStore) UpdateAgent(ctx context.Context, a *domain.Agent) error {
	args, err := agentArgs(a)
	if err != nil {
		return err
	}
	query := `UPDATE agents SET
		name = ?, description = ?, platform = ?, platform_token = ?, store_name = ?, store_url = ?,
		consumer_key = ?, consumer_secret = ?, openai_key = ?, model = ?, params_json = ?, personality = ?,
		system_prompt = ?, welcome_message = ?, status = ?, knowledge_json = ?, conversations_count = ?, growth = ?,
		created_at = ?, updated_at = ?
		WHERE id = ?`
	// Move the id from the front to the WHERE clause.
	args = append(args[1:], args[0])

	rows, err := s.exec(ctx, "update agent", query, args...)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}

// DeleteAgent removes an agent.
func (s *SQLiteStore) DeleteAgent(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "agents", id, domain.ErrAgentNotFound)
}

func (s *SQLiteStore) deleteByID(ctx context.Context, table, id string, notFound error) error {
	rows, err := s.exec(ctx, "delete from "+table, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

const userColumns = `id, name, email, role, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var createdAt, updatedAt int64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	u.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &u, nil
}

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// UpsertUser creates or updates a user record. The stored password is left untouched.
func (s *SQLiteStore) UpsertUser(ctx context.Context, u *domain.User) error {
	query := `
	INSERT INTO users (id, name, email, role, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		email = excluded.email,
		role = excluded.role,
		updated_at = excluded.updated_at`

	_, err := s.exec(ctx, "upsert user", query,
		u.ID, u.Name, u.Email, u.Role,
		u.CreatedAt.UnixMilli(), u.UpdatedAt.UnixMilli(),
	)
	return err
}

// CheckPassword compares password with the stored one.
func (s *SQLiteStore) CheckPassword(ctx context.Context, userID, password string) (bool, error) {
	var stored sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT password FROM users WHERE id = ?`, userID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrUserNotFound
	}
	if err != nil {
		return false, fmt.Errorf("read password: %w", err)
	}
	if !stored.Valid {
		return true, nil
	}
	return stored.String == password, nil
}

// SetPassword replaces the stored password.
func (s *SQLiteStore) SetPassword(ctx context.Context, userID, password string) error {
	rows, err := s.exec(ctx, "update password",
		`UPDATE users SET password = ?, updated_at = ? WHERE id = ?`,
		password, time.Now().UnixMilli(), userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

const knowledgeColumns = `id, name, description, type, item_count, created_at, updated_at`

func scanKnowledgeBase(row rowScanner) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	var createdAt, updatedAt int64
	if err := row.Scan(&kb.ID, &kb.Name, &kb.Description, &kb.Type, &kb.ItemCount, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	kb.CreatedAt = time.UnixMilli(createdAt).UTC()
	kb.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &kb, nil
}

// ListKnowledgeBases returns every knowledge base in insertion order.
func (s *SQLiteStore) ListKnowledgeBases(ctx context.Context) ([]*domain.KnowledgeBase, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+knowledgeColumns+` FROM knowledge_bases ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query knowledge bases: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close knowledge base rows", "error", closeErr)
		}
	}()

	out := []*domain.KnowledgeBase{}
	for rows.Next() {
		kb, err := scanKnowledgeBase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan knowledge base row: %w", err)
		}
		out = append(out, kb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge bases: %w", err)
	}
	return out, nil
}

// GetKnowledgeBase retrieves a knowledge base by id.
func (s *SQLiteStore) GetKnowledgeBase(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+knowledgeColumns+` FROM knowledge_bases WHERE id = ?`, id)
	kb, err := scanKnowledgeBase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrKnowledgeBaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan knowledge base: %w", err)
	}
	return kb, nil
}

// CreateKnowledgeBase inserts a new knowledge base.
func (s *SQLiteStore) CreateKnowledgeBase(ctx context.Context, kb *domain.KnowledgeBase) error {
	query := `INSERT INTO knowledge_bases (` + knowledgeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.exec(ctx, "insert knowledge base", query,
		kb.ID, kb.Name, kb.Description, string(kb.Type), kb.ItemCount,
		kb.CreatedAt.UnixMilli(), kb.UpdatedAt.UnixMilli())
	return err
}

// UpdateKnowledgeBase replaces the stored knowledge base with the same id.
func (s *SQLiteStore) UpdateKnowledgeBase(ctx context.Context, kb *domain.KnowledgeBase) error {
	query := `UPDATE knowledge_bases SET name = ?, description = ?, type = ?, item_count = ?, updated_at = ?
		WHERE id = ?`
	rows, err := s.exec(ctx, "update knowledge base", query,
		kb.Name, kb.Description, string(kb.Type), kb.ItemCount, kb.UpdatedAt.UnixMilli(), kb.ID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrKnowledgeBaseNotFound
	}
	return nil
}

// DeleteKnowledgeBase removes a knowledge base.
func (s *SQLiteStore) DeleteKnowledgeBase(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "knowledge_bases", id, domain.ErrKnowledgeBaseNotFound)
}
