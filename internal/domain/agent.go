// Package domain contains core domain types for the WooAgent console.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an agent.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// statusAliases maps the dashboard's display labels onto canonical values.
var statusAliases = map[string]Status{
	"active":   StatusActive,
	"פעיל":     StatusActive,
	"inactive": StatusInactive,
	"לא פעיל":  StatusInactive,
}

// ParseStatus normalizes a status value or display label.
func ParseStatus(s string) (Status, error) {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Label returns the Hebrew display label used across the dashboard.
func (s Status) Label() string {
	if s == StatusActive {
		return "פעיל"
	}
	return "לא פעיל"
}

// Toggle returns the opposite status.
func (s Status) Toggle() Status {
	if s == StatusActive {
		return StatusInactive
	}
	return StatusActive
}

// UnmarshalJSON accepts canonical values and display labels.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Platform is the messaging platform an agent is connected to.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformWhatsApp Platform = "whatsapp"
)

var platformAliases = map[string]Platform{
	"telegram": PlatformTelegram,
	"טלגרם":    PlatformTelegram,
	"whatsapp": PlatformWhatsApp,
	"וואטסאפ":  PlatformWhatsApp,
	"ווצאפ":    PlatformWhatsApp,
}

// ParsePlatform normalizes a platform value or display label.
func ParsePlatform(s string) (Platform, error) {
	if p, ok := platformAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Label returns the Hebrew display label.
func (p Platform) Label() string {
	switch p {
	case PlatformTelegram:
		return "טלגרם"
	case PlatformWhatsApp:
		return "וואטסאפ"
	default:
		return string(p)
	}
}

// UnmarshalJSON accepts canonical values and display labels.
func (p *Platform) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParsePlatform(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Models lists the language models an agent may be configured with.
var Models = []string{"gpt-3.5-turbo", "gpt-4", "gpt-4-turbo", "gpt-4o"}

// DefaultModel is used when an agent is created without a model.
const DefaultModel = "gpt-3.5-turbo"

// IsKnownModel reports whether m is one of Models.
func IsKnownModel(m string) bool {
	for _, known := range Models {
		if known == m {
			return true
		}
	}
	return false
}

// GenerationParams are the advanced model settings of an agent.
type GenerationParams struct {
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"maxTokens"`
	TopP             float64 `json:"topP"`
	FrequencyPenalty float64 `json:"frequencyPenalty"`
	PresencePenalty  float64 `json:"presencePenalty"`
}

// DefaultGenerationParams returns the settings applied to new agents.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Temperature: 0.7,
		MaxTokens:   2048,
		TopP:        1,
	}
}

// Validate checks every parameter against its allowed range.
func (p GenerationParams) Validate() error {
	fields := map[string]string{}
	if p.Temperature < 0 || p.Temperature > 2 {
		fields["temperature"] = "temperature must be between 0 and 2"
	}
	if p.MaxTokens < 1 || p.MaxTokens > 4096 {
		fields["maxTokens"] = "maxTokens must be between 1 and 4096"
	}
	if p.TopP < 0 || p.TopP > 1 {
		fields["topP"] = "topP must be between 0 and 1"
	}
	if p.FrequencyPenalty < -2 || p.FrequencyPenalty > 2 {
		fields["frequencyPenalty"] = "frequencyPenalty must be between -2 and 2"
	}
	if p.PresencePenalty < -2 || p.PresencePenalty > 2 {
		fields["presencePenalty"] = "presencePenalty must be between -2 and 2"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// KnowledgeSourceType is the kind of content attached to an agent.
type KnowledgeSourceType string

const (
	SourceURL  KnowledgeSourceType = "url"
	SourceText KnowledgeSourceType = "text"
	SourceFile KnowledgeSourceType = "file"
)

// KnowledgeSource is one ordered entry of an agent's knowledge.
type KnowledgeSource struct {
	ID       string              `json:"id"`
	Type     KnowledgeSourceType `json:"type"`
	Name     string              `json:"name,omitempty"`
	Content  string              `json:"content"`
	FileType string              `json:"fileType,omitempty"`
	FileSize int64               `json:"fileSize,omitempty"`
	AddedAt  time.Time           `json:"addedAt"`
}

// Agent is a configured AI sales/support assistant bound to one store and one platform.
type Agent struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	Platform           Platform          `json:"platform"`
	PlatformToken      string            `json:"platformToken,omitempty"`
	StoreName          string            `json:"storeName,omitempty"`
	StoreURL           string            `json:"storeUrl"`
	ConsumerKey        string            `json:"consumerKey,omitempty"`
	ConsumerSecret     string            `json:"consumerSecret,omitempty"`
	OpenAIKey          string            `json:"openaiKey,omitempty"`
	Model              string            `json:"model"`
	Params             GenerationParams  `json:"params"`
	Personality        string            `json:"personality,omitempty"`
	SystemPrompt       string            `json:"systemPrompt,omitempty"`
	WelcomeMessage     string            `json:"welcomeMessage,omitempty"`
	Status             Status            `json:"status"`
	KnowledgeSources   []KnowledgeSource `json:"knowledgeSources"`
	ConversationsCount int               `json:"conversationsCount"`
	Growth             float64           `json:"growth"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// IsActive reports whether the agent is accepting conversations.
func (a *Agent) IsActive() bool {
	return a.Status == StatusActive
}

// Clone returns a deep copy so callers never share the knowledge slice.
func (a *Agent) Clone() *Agent {
	c := *a
	c.KnowledgeSources = append([]KnowledgeSource(nil), a.KnowledgeSources...)
	return &c
}

// AgentInput is the payload for creating an agent.
type AgentInput struct {
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Platform         Platform          `json:"platform"`
	PlatformToken    string            `json:"platformToken"`
	StoreName        string            `json:"storeName,omitempty"`
	StoreURL         string            `json:"storeUrl"`
	ConsumerKey      string            `json:"consumerKey"`
	ConsumerSecret   string            `json:"consumerSecret"`
	OpenAIKey        string            `json:"openaiKey"`
	Model            string            `json:"model,omitempty"`
	Params           *GenerationParams `json:"params,omitempty"`
	Personality      string            `json:"personality,omitempty"`
	SystemPrompt     string            `json:"systemPrompt,omitempty"`
	WelcomeMessage   string            `json:"welcomeMessage,omitempty"`
	Status           Status            `json:"status,omitempty"`
	KnowledgeSources []KnowledgeSource `json:"knowledgeSources,omitempty"`
}

// Validate checks the fields required to create an agent.
func (in AgentInput) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if in.Platform == "" {
		fields["platform"] = "platform is required"
	}
	if strings.TrimSpace(in.StoreURL) == "" {
		fields["storeUrl"] = "storeUrl is required"
	} else if !hasHTTPScheme(in.StoreURL) {
		fields["storeUrl"] = "storeUrl must start with http:// or https://"
	}
	if in.Model != "" && !IsKnownModel(in.Model) {
		fields["model"] = fmt.Sprintf("unknown model %q", in.Model)
	}
	if in.Params != nil {
		if err := in.Params.Validate(); err != nil {
			for k, v := range err.(*ValidationError).Fields {
				fields[k] = v
			}
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// NewAgent builds a record from input, applying creation defaults.
func NewAgent(id string, in AgentInput, now time.Time) *Agent {
	a := &Agent{
		ID:               id,
		Name:             strings.TrimSpace(in.Name),
		Description:      in.Description,
		Platform:         in.Platform,
		PlatformToken:    in.PlatformToken,
		StoreName:        in.StoreName,
		StoreURL:         strings.TrimSpace(in.StoreURL),
		ConsumerKey:      in.ConsumerKey,
		ConsumerSecret:   in.ConsumerSecret,
		OpenAIKey:        in.OpenAIKey,
		Model:            in.Model,
		Params:           DefaultGenerationParams(),
		Personality:      in.Personality,
		SystemPrompt:     in.SystemPrompt,
		WelcomeMessage:   in.WelcomeMessage,
		Status:           in.Status,
		KnowledgeSources: append([]KnowledgeSource{}, in.KnowledgeSources...),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if a.Model == "" {
		a.Model = DefaultModel
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	if in.Params != nil {
		a.Params = *in.Params
	}
	return a
}

// AgentPatch is a partial update; nil fields are left untouched.
type AgentPatch struct {
	Name             *string           `json:"name,omitempty"`
	Description      *string           `json:"description,omitempty"`
	Platform         *Platform         `json:"platform,omitempty"`
	PlatformToken    *string           `json:"platformToken,omitempty"`
	StoreName        *string           `json:"storeName,omitempty"`
	StoreURL         *string           `json:"storeUrl,omitempty"`
	ConsumerKey      *string           `json:"consumerKey,omitempty"`
	ConsumerSecret   *string           `json:"consumerSecret,omitempty"`
	OpenAIKey        *string           `json:"openaiKey,omitempty"`
	Model            *string           `json:"model,omitempty"`
	Params           *GenerationParams `json:"params,omitempty"`
	Personality      *string           `json:"personality,omitempty"`
	SystemPrompt     *string           `json:"systemPrompt,omitempty"`
	WelcomeMessage   *string           `json:"welcomeMessage,omitempty"`
	Status           *Status           `json:"status,omitempty"`
	// KnowledgeSources replaces the whole list; a pointer to an empty slice clears it.
	KnowledgeSources *[]KnowledgeSource `json:"knowledgeSources,omitempty"`
}

// Validate checks the fields present in the patch.
func (p AgentPatch) Validate() error {
	fields := map[string]string{}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		fields["name"] = "name cannot be empty"
	}
	if p.StoreURL != nil && !hasHTTPScheme(*p.StoreURL) {
		fields["storeUrl"] = "storeUrl must start with http:// or https://"
	}
	if p.Model != nil && !IsKnownModel(*p.Model) {
		fields["model"] = fmt.Sprintf("unknown model %q", *p.Model)
	}
	if p.Params != nil {
		if err := p.Params.Validate(); err != nil {
			for k, v := range err.(*ValidationError).Fields {
				fields[k] = v
			}
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// IsZero reports whether the patch changes nothing.
func (p AgentPatch) IsZero() bool {
	return p.Name == nil && p.Description == nil && p.Platform == nil &&
		p.PlatformToken == nil && p.StoreName == nil && p.StoreURL == nil &&
		p.ConsumerKey == nil && p.ConsumerSecret == nil && p.OpenAIKey == nil &&
		p.Model == nil && p.Params == nil && p.Personality == nil &&
		p.SystemPrompt == nil && p.WelcomeMessage == nil && p.Status == nil &&
		p.KnowledgeSources == nil
}

// Apply merges the patch into a copy of a and stamps UpdatedAt.
func (p AgentPatch) Apply(a *Agent, now time.Time) *Agent {
	out := a.Clone()
	setString(&out.Name, p.Name)
	setString(&out.Description, p.Description)
	setString(&out.PlatformToken, p.PlatformToken)
	setString(&out.StoreName, p.StoreName)
	setString(&out.StoreURL, p.StoreURL)
	setString(&out.ConsumerKey, p.ConsumerKey)
	setString(&out.ConsumerSecret, p.ConsumerSecret)
	setString(&out.OpenAIKey, p.OpenAIKey)
	setString(&out.Model, p.Model)
	setString(&out.Personality, p.Personality)
	setString(&out.SystemPrompt, p.SystemPrompt)
	setString(&out.WelcomeMessage, p.WelcomeMessage)
	if p.Platform != nil {
		out.Platform = *p.Platform
	}
	if p.Params != nil {
		out.Params = *p.Params
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.KnowledgeSources != nil {
		out.KnowledgeSources = append([]KnowledgeSource{}, (*p.KnowledgeSources)...)
	}
	out.UpdatedAt = now
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func hasHTTPScheme(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
