package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/shopspring/decimal"
)

func platformRule() Rule {
	return func(v string, _ Values) string {
		if _, err := domain.ParsePlatform(v); err != nil {
			return "platform must be telegram or whatsapp"
		}
		return ""
	}
}

func statusRule() Rule {
	return func(v string, _ Values) string {
		if _, err := domain.ParseStatus(v); err != nil {
			return "status must be active or inactive"
		}
		return ""
	}
}

// NewCreateAgent is the four step agent creation form: agent and platform,
// store connection, model and key, then a final review.
func NewCreateAgent() *Wizard {
	return New(
		Step{Title: "Agent & platform", Fields: []Field{
			{Name: "name", Label: "Agent name", Rules: []Rule{Required("name is required")}},
			{Name: "description", Label: "Description"},
			{Name: "platform", Label: "Platform (telegram|whatsapp)", Default: string(domain.PlatformTelegram),
				Rules: []Rule{Required("platform is required"), platformRule()}},
			{Name: "platformToken", Label: "Platform token", Secret: true,
				Rules: []Rule{Required("platform token is required")}},
		}},
		Step{Title: "Store", Fields: []Field{
			{Name: "storeName", Label: "Store name"},
			{Name: "storeUrl", Label: "Store URL", Rules: []Rule{
				Required("storeUrl is required"),
				HTTPURL("storeUrl must start with http:// or https://"),
			}},
			{Name: "consumerKey", Label: "Consumer key", Rules: []Rule{Required("consumer key is required")}},
			{Name: "consumerSecret", Label: "Consumer secret", Secret: true,
				Rules: []Rule{Required("consumer secret is required")}},
		}},
		Step{Title: "Model & key", Fields: []Field{
			{Name: "model", Label: "Model", Default: domain.DefaultModel,
				Rules: []Rule{OneOf(domain.Models, "unknown model")}},
			{Name: "openaiKey", Label: "OpenAI key", Secret: true, Rules: []Rule{Required("OpenAI key is required")}},
		}},
		Step{Title: "Done"},
	)
}

// CreateAgentInput converts create form values into the API payload.
func CreateAgentInput(v Values) domain.AgentInput {
	platform, _ := domain.ParsePlatform(v["platform"])
	return domain.AgentInput{
		Name:           strings.TrimSpace(v["name"]),
		Description:    v["description"],
		Platform:       platform,
		PlatformToken:  v["platformToken"],
		StoreName:      v["storeName"],
		StoreURL:       strings.TrimSpace(v["storeUrl"]),
		ConsumerKey:    v["consumerKey"],
		ConsumerSecret: v["consumerSecret"],
		OpenAIKey:      v["openaiKey"],
		Model:          v["model"],
	}
}

// agentFields are the fields of the edit form, in display order.
var agentFields = []Field{
	{Name: "name", Label: "Agent name", Rules: []Rule{Required("name is required")}},
	{Name: "description", Label: "Description"},
	{Name: "platform", Label: "Platform", Rules: []Rule{platformRule()}},
	{Name: "platformToken", Label: "Platform token", Secret: true},
	{Name: "storeName", Label: "Store name"},
	{Name: "storeUrl", Label: "Store URL", Rules: []Rule{
		Required("storeUrl is required"),
		HTTPURL("storeUrl must start with http:// or https://"),
	}},
	{Name: "consumerKey", Label: "Consumer key"},
	{Name: "consumerSecret", Label: "Consumer secret", Secret: true},
	{Name: "model", Label: "Model", Rules: []Rule{OneOf(domain.Models, "unknown model")}},
	{Name: "personality", Label: "Personality"},
	{Name: "systemPrompt", Label: "System prompt"},
	{Name: "welcomeMessage", Label: "Welcome message"},
	{Name: "status", Label: "Status (active|inactive)", Rules: []Rule{statusRule()}},
}

func agentValues(a *domain.Agent) map[string]string {
	return map[string]string{
		"name":           a.Name,
		"description":    a.Description,
		"platform":       string(a.Platform),
		"platformToken":  a.PlatformToken,
		"storeName":      a.StoreName,
		"storeUrl":       a.StoreURL,
		"consumerKey":    a.ConsumerKey,
		"consumerSecret": a.ConsumerSecret,
		"model":          a.Model,
		"personality":    a.Personality,
		"systemPrompt":   a.SystemPrompt,
		"welcomeMessage": a.WelcomeMessage,
		"status":         string(a.Status),
	}
}

// NewEditAgent is a single step form prefilled from a.
func NewEditAgent(a *domain.Agent) *Wizard {
	current := agentValues(a)
	fields := make([]Field, len(agentFields))
	for i, f := range agentFields {
		f.Default = current[f.Name]
		fields[i] = f
	}
	return New(Step{Title: "Edit agent", Fields: fields})
}

// EditAgentPatch returns a patch holding only the fields that differ from a.
func EditAgentPatch(v Values, a *domain.Agent) domain.AgentPatch {
	current := agentValues(a)
	changed := func(name string) *string {
		if val, ok := v[name]; ok && val != current[name] {
			return &val
		}
		return nil
	}
	p := domain.AgentPatch{
		Name:           changed("name"),
		Description:    changed("description"),
		PlatformToken:  changed("platformToken"),
		StoreName:      changed("storeName"),
		StoreURL:       changed("storeUrl"),
		ConsumerKey:    changed("consumerKey"),
		ConsumerSecret: changed("consumerSecret"),
		Model:          changed("model"),
		Personality:    changed("personality"),
		SystemPrompt:   changed("systemPrompt"),
		WelcomeMessage: changed("welcomeMessage"),
	}
	if s := changed("platform"); s != nil {
		if pl, err := domain.ParsePlatform(*s); err == nil && pl != a.Platform {
			p.Platform = &pl
		}
	}
	if s := changed("status"); s != nil {
		if st, err := domain.ParseStatus(*s); err == nil && st != a.Status {
			p.Status = &st
		}
	}
	return p
}

// NewAdvancedSettings edits the generation parameters within their allowed ranges.
func NewAdvancedSettings(p domain.GenerationParams) *Wizard {
	f := func(x float64) string { return decimal.NewFromFloat(x).String() }
	return New(Step{Title: "Advanced settings", Fields: []Field{
		{Name: "temperature", Label: "Temperature (0-2)", Default: f(p.Temperature),
			Rules: []Rule{Between(0, 2, "temperature")}},
		{Name: "maxTokens", Label: "Max tokens (1-4096)", Default: strconv.Itoa(p.MaxTokens),
			Rules: []Rule{IntBetween(1, 4096, "maxTokens")}},
		{Name: "topP", Label: "Top P (0-1)", Default: f(p.TopP),
			Rules: []Rule{Between(0, 1, "topP")}},
		{Name: "frequencyPenalty", Label: "Frequency penalty (-2-2)", Default: f(p.FrequencyPenalty),
			Rules: []Rule{Between(-2, 2, "frequencyPenalty")}},
		{Name: "presencePenalty", Label: "Presence penalty (-2-2)", Default: f(p.PresencePenalty),
			Rules: []Rule{Between(-2, 2, "presencePenalty")}},
	}})
}

// GenerationParams parses validated advanced settings values.
func GenerationParams(v Values) (domain.GenerationParams, error) {
	var out domain.GenerationParams
	floats := map[string]*float64{
		"temperature":      &out.Temperature,
		"topP":             &out.TopP,
		"frequencyPenalty": &out.FrequencyPenalty,
		"presencePenalty":  &out.PresencePenalty,
	}
	for name, dst := range floats {
		d, err := decimal.NewFromString(strings.TrimSpace(v[name]))
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", name, err)
		}
		*dst = d.InexactFloat64()
	}
	n, err := strconv.Atoi(strings.TrimSpace(v["maxTokens"]))
	if err != nil {
		return out, fmt.Errorf("parse maxTokens: %w", err)
	}
	out.MaxTokens = n
	return out, nil
}

// NewLogin is the login form.
func NewLogin() *Wizard {
	return New(Step{Title: "Login", Fields: []Field{
		{Name: "email", Label: "Email", Rules: []Rule{Required("email is required"), Email("email is invalid")}},
		{Name: "password", Label: "Password", Secret: true, Rules: []Rule{
			Required("password is required"),
			MinLength(domain.MinPasswordLength, fmt.Sprintf("password must be at least %d characters", domain.MinPasswordLength)),
		}},
	}})
}

func LoginCredentials(v Values) domain.Credentials {
	return domain.Credentials{Email: strings.TrimSpace(v["email"]), Password: v["password"]}
}

// NewAccount edits the profile and optionally changes the password. The
// password fields are only checked once a current password is entered.
func NewAccount(u *domain.User) *Wizard {
	tooShort := fmt.Sprintf("new password must be at least %d characters", domain.MinPasswordLength)
	return New(Step{Title: "Account settings", Fields: []Field{
		{Name: "name", Label: "Username", Default: u.Name, Rules: []Rule{Required("name is required")}},
		{Name: "email", Label: "Email", Default: u.Email, Rules: []Rule{Required("email is required"), Email("email is invalid")}},
		{Name: "currentPassword", Label: "Current password", Secret: true,
			Rules: []Rule{RequiredWith("newPassword", "current password is required")}},
		{Name: "newPassword", Label: "New password", Secret: true, Rules: []Rule{
			RequiredWith("currentPassword", "new password is required"),
			Optional(MinLength(domain.MinPasswordLength, tooShort)),
		}},
		{Name: "confirmPassword", Label: "Confirm password", Secret: true,
			Rules: []Rule{Matches("newPassword", "passwords do not match")}},
	}})
}

// AccountChanges splits account values into a profile patch and an optional
// password change. Unchanged profile fields are left out of the patch.
func AccountChanges(v Values, u *domain.User) (domain.UserPatch, *domain.PasswordChange) {
	var patch domain.UserPatch
	if name := strings.TrimSpace(v["name"]); name != u.Name {
		patch.Name = &name
	}
	if email := strings.TrimSpace(v["email"]); email != u.Email {
		patch.Email = &email
	}
	if v["newPassword"] == "" {
		return patch, nil
	}
	return patch, &domain.PasswordChange{
		CurrentPassword: v["currentPassword"],
		NewPassword:     v["newPassword"],
		ConfirmPassword: v["confirmPassword"],
	}
}
