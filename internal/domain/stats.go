package domain

import "github.com/shopspring/decimal"

// Stats is the dashboard aggregate shown on the overview page.
type Stats struct {
	TotalInteractions     int     `json:"totalInteractions"`
	TotalStores           int     `json:"totalStores"`
	ActiveAgents          int     `json:"activeAgents"`
	InactiveAgents        int     `json:"inactiveAgents"`
	AverageResponseTime   float64 `json:"averageResponseTime"`
	AverageCompletionTime float64 `json:"averageCompletionTime"`
	ResponseAccuracy      float64 `json:"responseAccuracy"`
	ConversionRate        float64 `json:"conversionRate"`
}

// InitialStats is the aggregate before the first agent list arrives.
func InitialStats() Stats {
	return Stats{
		TotalInteractions:     2680,
		TotalStores:           5,
		ActiveAgents:          3,
		InactiveAgents:        2,
		AverageResponseTime:   2.4,
		AverageCompletionTime: 5.7,
		ResponseAccuracy:      94.2,
		ConversionRate:        3.8,
	}
}

// ActivePercent is the share of active agents, in percent with one decimal.
func (s Stats) ActivePercent() float64 {
	return Ratio(int64(s.ActiveAgents)*100, int64(s.ActiveAgents+s.InactiveAgents), 1)
}

// StatsPatch is a shallow partial update of Stats.
type StatsPatch struct {
	TotalInteractions     *int     `json:"totalInteractions,omitempty"`
	TotalStores           *int     `json:"totalStores,omitempty"`
	ActiveAgents          *int     `json:"activeAgents,omitempty"`
	InactiveAgents        *int     `json:"inactiveAgents,omitempty"`
	AverageResponseTime   *float64 `json:"averageResponseTime,omitempty"`
	AverageCompletionTime *float64 `json:"averageCompletionTime,omitempty"`
	ResponseAccuracy      *float64 `json:"responseAccuracy,omitempty"`
	ConversionRate        *float64 `json:"conversionRate,omitempty"`
}

// Merge returns s with every non-nil field of p applied.
func (s Stats) Merge(p StatsPatch) Stats {
	if p.TotalInteractions != nil {
		s.TotalInteractions = *p.TotalInteractions
	}
	if p.TotalStores != nil {
		s.TotalStores = *p.TotalStores
	}
	if p.ActiveAgents != nil {
		s.ActiveAgents = *p.ActiveAgents
	}
	if p.InactiveAgents != nil {
		s.InactiveAgents = *p.InactiveAgents
	}
	if p.AverageResponseTime != nil {
		s.AverageResponseTime = *p.AverageResponseTime
	}
	if p.AverageCompletionTime != nil {
		s.AverageCompletionTime = *p.AverageCompletionTime
	}
	if p.ResponseAccuracy != nil {
		s.ResponseAccuracy = *p.ResponseAccuracy
	}
	if p.ConversionRate != nil {
		s.ConversionRate = *p.ConversionRate
	}
	return s
}

// CountStats derives the list-dependent fields of Stats from agents.
func CountStats(agents []Agent) StatsPatch {
	var active, inactive, interactions int
	stores := make(map[string]struct{})
	for i := range agents {
		if agents[i].IsActive() {
			active++
		} else {
			inactive++
		}
		interactions += agents[i].ConversationsCount
		if agents[i].StoreURL != "" {
			stores[agents[i].StoreURL] = struct{}{}
		}
	}
	total := len(stores)
	return StatsPatch{
		TotalInteractions: &interactions,
		TotalStores:       &total,
		ActiveAgents:      &active,
		InactiveAgents:    &inactive,
	}
}

// DailyCount is one point of a daily conversation series.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// QuestionCount is a frequently asked customer question.
type QuestionCount struct {
	Question string `json:"question"`
	Count    int    `json:"count"`
}

// Overview is the global statistics read model.
type Overview struct {
	TotalAgents         int          `json:"totalAgents"`
	ActiveAgents        int          `json:"activeAgents"`
	TotalConversations  int          `json:"totalConversations"`
	DailyConversations  []DailyCount `json:"dailyConversations"`
	AverageResponseTime float64      `json:"averageResponseTime"`
	ConversionRate      float64      `json:"conversionRate"`
}

// AgentStats is the per-agent statistics read model.
type AgentStats struct {
	AgentID             string          `json:"agentId"`
	TotalConversations  int             `json:"totalConversations"`
	DailyConversations  []DailyCount    `json:"dailyConversations"`
	AverageResponseTime float64         `json:"averageResponseTime"`
	TopQuestions        []QuestionCount `json:"topQuestions"`
	UserSatisfaction    float64         `json:"userSatisfaction"`
	ConversionRate      float64         `json:"conversionRate"`
}

// Ratio returns part/whole rounded to places decimal digits, or 0 when whole is 0.
func Ratio(part, whole int64, places int32) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(part).
		Div(decimal.NewFromInt(whole)).
		Round(places).
		InexactFloat64()
}
