// Package fixtures holds the embedded seed and canned data served by the in-memory
// backend and replayed by the simulators.
package fixtures

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/ashureev/wooagent/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var raw []byte

// Set is the decoded fixture file.
type Set struct {
	Users          []User                                       `yaml:"users"`
	Agents         []Agent                                      `yaml:"agents"`
	KnowledgeBases []KnowledgeBase                              `yaml:"knowledgeBases"`
	KnowledgeItems map[domain.KnowledgeBaseType][]KnowledgeItem `yaml:"knowledgeItems"`
	Conversations  []Conversation                               `yaml:"conversations"`
	Transcript     []Message                                    `yaml:"transcript"`
	AgentLogs      []AgentLog                                   `yaml:"agentLogs"`
	Overview       Overview                                     `yaml:"overview"`
	AgentStats     AgentStats                                   `yaml:"agentStats"`
	SeedLogs       []SeedLog                                    `yaml:"seedLogs"`
	LogTemplates   map[domain.LogType][]string                  `yaml:"logTemplates"`
	Scripts        []domain.Script                              `yaml:"scripts"`
}

// User is a seeded operator account.
type User struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

// Agent is a seeded agent record.
type Agent struct {
	ID                 string          `yaml:"id"`
	Name               string          `yaml:"name"`
	Description        string          `yaml:"description"`
	Status             domain.Status   `yaml:"status"`
	Platform           domain.Platform `yaml:"platform"`
	PlatformToken      string          `yaml:"platformToken"`
	StoreName          string          `yaml:"storeName"`
	StoreURL           string          `yaml:"storeUrl"`
	Model              string          `yaml:"model"`
	WelcomeMessage     string          `yaml:"welcomeMessage"`
	ConversationsCount int             `yaml:"conversationsCount"`
	Growth             float64         `yaml:"growth"`
	CreatedAt          time.Time       `yaml:"createdAt"`
	UpdatedAt          time.Time       `yaml:"updatedAt"`
}

// Domain converts the seed into a domain record with default generation params.
func (a Agent) Domain() *domain.Agent {
	return &domain.Agent{
		ID:                 a.ID,
		Name:               a.Name,
		Description:        a.Description,
		Platform:           a.Platform,
		PlatformToken:      a.PlatformToken,
		StoreName:          a.StoreName,
		StoreURL:           a.StoreURL,
		Model:              a.Model,
		Params:             domain.DefaultGenerationParams(),
		WelcomeMessage:     a.WelcomeMessage,
		Status:             a.Status,
		KnowledgeSources:   []domain.KnowledgeSource{},
		ConversationsCount: a.ConversationsCount,
		Growth:             a.Growth,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

// KnowledgeBase is a seeded knowledge base.
type KnowledgeBase struct {
	ID          string                   `yaml:"id"`
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description"`
	Type        domain.KnowledgeBaseType `yaml:"type"`
	ItemCount   int                      `yaml:"itemCount"`
	CreatedAt   time.Time                `yaml:"createdAt"`
	UpdatedAt   time.Time                `yaml:"updatedAt"`
}

// Domain converts the seed into a domain record.
func (k KnowledgeBase) Domain() *domain.KnowledgeBase {
	return &domain.KnowledgeBase{
		ID:          k.ID,
		Name:        k.Name,
		Description: k.Description,
		Type:        k.Type,
		ItemCount:   k.ItemCount,
		CreatedAt:   k.CreatedAt,
		UpdatedAt:   k.UpdatedAt,
	}
}

// KnowledgeItem is a canned knowledge base entry.
type KnowledgeItem struct {
	ID      string    `yaml:"id"`
	Name    string    `yaml:"name"`
	Content string    `yaml:"content"`
	Size    int64     `yaml:"size"`
	AddedAt time.Time `yaml:"addedAt"`
}

// Conversation is a canned conversation summary.
type Conversation struct {
	ID           string                    `yaml:"id"`
	UserID       string                    `yaml:"userId"`
	UserName     string                    `yaml:"userName"`
	StartTime    time.Time                 `yaml:"startTime"`
	EndTime      *time.Time                `yaml:"endTime"`
	MessageCount int                       `yaml:"messageCount"`
	Status       domain.ConversationStatus `yaml:"status"`
	Summary      string                    `yaml:"summary"`
}

// Message is a canned transcript line.
type Message struct {
	ID        string      `yaml:"id"`
	Role      domain.Role `yaml:"role"`
	Content   string      `yaml:"content"`
	Timestamp time.Time   `yaml:"timestamp"`
}

// AgentLog is a canned activity log line.
type AgentLog struct {
	Type      domain.LogType `yaml:"type"`
	Message   string         `yaml:"message"`
	Timestamp time.Time      `yaml:"timestamp"`
}

// Overview holds the constant parts of the global statistics.
type Overview struct {
	AverageResponseTime float64             `yaml:"averageResponseTime"`
	ConversionRate      float64             `yaml:"conversionRate"`
	DailyConversations  []domain.DailyCount `yaml:"dailyConversations"`
}

// AgentStats holds the constant parts of per-agent statistics.
type AgentStats struct {
	AverageResponseTime float64                `yaml:"averageResponseTime"`
	UserSatisfaction    float64                `yaml:"userSatisfaction"`
	ConversionRate      float64                `yaml:"conversionRate"`
	DailyConversations  []domain.DailyCount    `yaml:"dailyConversations"`
	TopQuestions        []domain.QuestionCount `yaml:"topQuestions"`
}

// SeedLog is a log-stream line placed relative to the moment the stream opens.
type SeedLog struct {
	Offset  time.Duration  `yaml:"offset"`
	Type    domain.LogType `yaml:"type"`
	Message string         `yaml:"message"`
}

// Script returns the demo script with the given name, falling back to "general".
func (s *Set) Script(name string) domain.Script {
	var fallback domain.Script
	for _, sc := range s.Scripts {
		if sc.Name == name {
			return sc
		}
		if sc.Name == "general" {
			fallback = sc
		}
	}
	return fallback
}

var load = sync.OnceValues(func() (*Set, error) {
	return Parse(raw)
})

// Load returns the embedded fixture set. The result is shared and must not be mutated.
func Load() (*Set, error) {
	return load()
}

// Parse decodes a fixture document.
func Parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid fixtures: %w", err)
	}
	return &s, nil
}

func (s *Set) validate() error {
	for _, t := range domain.LogTypes {
		if len(s.LogTemplates[t]) == 0 {
			return fmt.Errorf("no log templates for type %s", t)
		}
	}
	for _, l := range s.SeedLogs {
		if _, err := domain.ParseLogType(string(l.Type)); err != nil {
			return err
		}
	}
	if len(s.Scripts) == 0 {
		return fmt.Errorf("no demo scripts")
	}
	return nil
}
