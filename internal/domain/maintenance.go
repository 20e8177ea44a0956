package domain

import "strings"

// CacheClearResult reports the outcome of a cache flush.
type CacheClearResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ClearedEntries int    `json:"clearedEntries"`
}

// NormalizeID trims an identifier received at a boundary (path, flag, query).
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}
