// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ashureev/wooagent/internal/domain"
)

// Repository is the single authoritative source of agents, users and knowledge bases.
// Lookups of unknown ids return the matching domain sentinel error.
type Repository interface {
	// ListAgents returns every agent in creation order.
	ListAgents(ctx context.Context) ([]*domain.Agent, error)

	// GetAgent retrieves an agent by id.
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)

	// CreateAgent inserts a new agent. The id must be unused.
	CreateAgent(ctx context.Context, agent *domain.Agent) error

	// UpdateAgent replaces the stored record with the same id.
	UpdateAgent(ctx context.Context, agent *domain.Agent) error

	// DeleteAgent removes an agent permanently.
	DeleteAgent(ctx context.Context, id string) error

	// GetUser retrieves a user by id.
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// GetUserByEmail retrieves a user by email, case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// CheckPassword reports whether password matches the stored one.
	// A user without a stored password accepts any password.
	CheckPassword(ctx context.Context, userID, password string) (bool, error)

	// SetPassword replaces the stored password.
	SetPassword(ctx context.Context, userID, password string) error

	// ListKnowledgeBases returns every knowledge base in creation order.
	ListKnowledgeBases(ctx context.Context) ([]*domain.KnowledgeBase, error)

	// GetKnowledgeBase retrieves a knowledge base by id.
	GetKnowledgeBase(ctx context.Context, id string) (*domain.KnowledgeBase, error)

	// CreateKnowledgeBase inserts a new knowledge base.
	CreateKnowledgeBase(ctx context.Context, kb *domain.KnowledgeBase) error

	// UpdateKnowledgeBase replaces the stored knowledge base with the same id.
	UpdateKnowledgeBase(ctx context.Context, kb *domain.KnowledgeBase) error

	// DeleteKnowledgeBase removes a knowledge base.
	DeleteKnowledgeBase(ctx context.Context, id string) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
