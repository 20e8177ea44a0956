package wizard

import (
	"errors"
	"net/http"
	"testing"

	"github.com/ashureev/wooagent/internal/client"
	"github.com/ashureev/wooagent/internal/domain"
)

func fillStepOne(w *Wizard) {
	w.Set("name", "Test")
	w.Set("platform", "telegram")
	w.Set("platformToken", "123:ABC")
}

func TestCreateAgentEmptyStoreURLBlocksStepTwo(t *testing.T) {
	w := NewCreateAgent()
	if w.Len() != 4 {
		t.Fatalf("expected 4 steps, got %d", w.Len())
	}
	fillStepOne(w)
	if !w.Next() || w.Step() != 1 {
		t.Fatalf("expected to reach step 2, at %d with %v", w.Step()+1, w.Errors())
	}

	w.Set("consumerKey", "ck_1")
	w.Set("consumerSecret", "cs_1")
	if w.Next() {
		t.Fatal("expected step 2 to block on empty storeUrl")
	}
	if w.Step() != 1 {
		t.Errorf("expected to stay on step 2, at %d", w.Step()+1)
	}
	if w.Error("storeUrl") != "storeUrl is required" {
		t.Errorf("expected required error, got %q", w.Error("storeUrl"))
	}
}

func TestSetClearsOnlyThatFieldError(t *testing.T) {
	w := NewCreateAgent()
	if w.Next() {
		t.Fatal("expected empty first step to fail")
	}
	errs := w.Errors()
	if errs["name"] == "" || errs["platformToken"] == "" {
		t.Fatalf("expected name and platformToken errors, got %v", errs)
	}

	w.Set("name", "")
	w.Set("name", "Agent")
	if w.Error("name") != "" {
		t.Error("expected name error cleared by retyping")
	}
	if w.Error("platformToken") == "" {
		t.Error("other field errors must stay")
	}
}

func TestStepAdvancesOnlyWhenValid(t *testing.T) {
	tests := []struct {
		name   string
		values Values
		want   bool
	}{
		{"all valid", Values{"storeUrl": "https://x.com", "consumerKey": "ck", "consumerSecret": "cs"}, true},
		{"no scheme", Values{"storeUrl": "x.com", "consumerKey": "ck", "consumerSecret": "cs"}, false},
		{"missing key", Values{"storeUrl": "https://x.com", "consumerSecret": "cs"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewCreateAgent()
			fillStepOne(w)
			w.Next()
			for k, v := range tt.values {
				w.Set(k, v)
			}
			if got := w.Next(); got != tt.want {
				t.Errorf("Next() = %v, want %v (errors %v)", got, tt.want, w.Errors())
			}
		})
	}
}

func TestPrevAndLastStep(t *testing.T) {
	w := NewCreateAgent()
	if w.Prev() {
		t.Error("Prev on first step must not move")
	}
	fillStepOne(w)
	w.Next()
	w.Set("storeUrl", "https://x.com")
	w.Set("consumerKey", "ck_1")
	w.Set("consumerSecret", "cs_1")
	w.Next()
	w.Set("openaiKey", "sk-1")
	if !w.Next() || !w.IsLast() {
		t.Fatalf("expected to reach the last step, at %d", w.Step()+1)
	}
	if !w.Prev() || w.Step() != 2 {
		t.Errorf("expected step 3 after Prev, at %d", w.Step()+1)
	}
	if w.Value("storeUrl") != "https://x.com" {
		t.Error("values must survive navigation")
	}
}

func TestSubmitValidatesEveryStep(t *testing.T) {
	w := NewCreateAgent()
	fillStepOne(w)
	w.Next()
	w.Next() // blocked
	w.Prev()

	called := false
	err := w.Submit(func(Values) error { called = true; return nil })
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields["storeUrl"] == "" {
		t.Fatalf("expected storeUrl validation error, got %v", err)
	}
	if called {
		t.Error("submit must not run with invalid steps")
	}
	if w.Step() != 1 {
		t.Errorf("expected jump to step 2, at %d", w.Step()+1)
	}
}

func TestSubmitRecordsServerFieldErrors(t *testing.T) {
	w := NewCreateAgent()
	fillStepOne(w)
	w.Set("storeUrl", "https://x.com")
	w.Set("consumerKey", "ck_1")
	w.Set("consumerSecret", "cs_1")
	w.Set("openaiKey", "sk-1")

	var got domain.AgentInput
	err := w.Submit(func(v Values) error {
		got = CreateAgentInput(v)
		return &client.Error{Status: http.StatusBadRequest, Message: "invalid", Fields: map[string]string{"consumerKey": "rejected"}}
	})
	if err == nil {
		t.Fatal("expected error from submit")
	}
	if got.Name != "Test" || got.Platform != domain.PlatformTelegram || got.Model != domain.DefaultModel {
		t.Errorf("unexpected input %+v", got)
	}
	if w.Error("consumerKey") != "rejected" || w.Step() != 1 {
		t.Errorf("expected server error on step 2, got %q at %d", w.Error("consumerKey"), w.Step()+1)
	}
}

func TestAdvancedSettingsBounds(t *testing.T) {
	tests := []struct {
		field, value string
		ok           bool
	}{
		{"temperature", "1.5", true},
		{"temperature", "2.1", false},
		{"temperature", "warm", false},
		{"maxTokens", "4096", true},
		{"maxTokens", "0", false},
		{"maxTokens", "10.5", false},
		{"topP", "1", true},
		{"topP", "-0.1", false},
		{"frequencyPenalty", "-2", true},
		{"presencePenalty", "2.01", false},
	}
	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			w := NewAdvancedSettings(domain.DefaultGenerationParams())
			w.Set(tt.field, tt.value)
			if got := w.Next(); got != tt.ok {
				t.Errorf("Next() = %v, want %v (%v)", got, tt.ok, w.Errors())
			}
		})
	}
}

func TestGenerationParamsRoundTrip(t *testing.T) {
	w := NewAdvancedSettings(domain.DefaultGenerationParams())
	w.Set("temperature", "0.2")
	p, err := GenerationParams(w.Values())
	if err != nil {
		t.Fatalf("GenerationParams: %v", err)
	}
	want := domain.DefaultGenerationParams()
	want.Temperature = 0.2
	if p != want {
		t.Errorf("expected %+v, got %+v", want, p)
	}
}

func TestLoginForm(t *testing.T) {
	w := NewLogin()
	w.Set("email", "dev@example")
	w.Set("password", "12345")
	if w.Next() {
		t.Fatal("expected invalid login form")
	}
	if w.Error("email") != "email is invalid" || w.Error("password") == "" {
		t.Errorf("unexpected errors %v", w.Errors())
	}
	w.Set("email", "dev@example.com")
	w.Set("password", "123456")
	if !w.Next() {
		t.Fatalf("expected valid form, got %v", w.Errors())
	}
	if c := LoginCredentials(w.Values()); c.Email != "dev@example.com" || c.Password != "123456" {
		t.Errorf("unexpected credentials %+v", c)
	}
}

func TestAccountForm(t *testing.T) {
	u := &domain.User{ID: "1", Name: "Dev", Email: "dev@example.com"}

	w := NewAccount(u)
	w.Set("name", "Dev Ops")
	if !w.Next() {
		t.Fatalf("profile only change should pass, got %v", w.Errors())
	}
	patch, change := AccountChanges(w.Values(), u)
	if patch.Name == nil || *patch.Name != "Dev Ops" || patch.Email != nil || change != nil {
		t.Errorf("unexpected changes %+v %+v", patch, change)
	}

	w = NewAccount(u)
	w.Set("newPassword", "secret99")
	w.Set("confirmPassword", "secret98")
	if w.Next() {
		t.Fatal("expected password errors")
	}
	if w.Error("currentPassword") == "" || w.Error("confirmPassword") != "passwords do not match" {
		t.Errorf("unexpected errors %v", w.Errors())
	}

	w.Set("currentPassword", "password123")
	w.Set("confirmPassword", "secret99")
	if !w.Next() {
		t.Fatalf("expected valid form, got %v", w.Errors())
	}
	_, change = AccountChanges(w.Values(), u)
	if change == nil || change.NewPassword != "secret99" {
		t.Errorf("expected password change, got %+v", change)
	}
}

func TestEditAgentPatchOnlyChangedFields(t *testing.T) {
	a := &domain.Agent{ID: "1", Name: "Sales", Platform: domain.PlatformTelegram, StoreURL: "https://shop.example.com",
		Model: domain.DefaultModel, Status: domain.StatusActive}
	w := NewEditAgent(a)
	if w.Value("name") != "Sales" {
		t.Fatalf("expected prefilled name, got %q", w.Value("name"))
	}
	w.Set("status", "לא פעיל")
	w.Set("welcomeMessage", "Hi")
	if !w.Next() {
		t.Fatalf("expected valid edit, got %v", w.Errors())
	}

	p := EditAgentPatch(w.Values(), a)
	if p.Status == nil || *p.Status != domain.StatusInactive {
		t.Errorf("expected status patch, got %v", p.Status)
	}
	if p.WelcomeMessage == nil || *p.WelcomeMessage != "Hi" {
		t.Errorf("expected welcome message patch")
	}
	if p.Name != nil || p.StoreURL != nil || p.Platform != nil || p.Model != nil {
		t.Errorf("unchanged fields must stay nil: %+v", p)
	}
}
