// Package format provides display and validation helpers shared by the API and the console.
package format

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	emailPattern  = regexp.MustCompile(`\S+@\S+\.\S+`)
	schemePattern = regexp.MustCompile(`(?i)^https?://`)

	printer = message.NewPrinter(language.Hebrew)

	hebrewMonths = [...]string{
		"בינואר", "בפברואר", "במרץ", "באפריל", "במאי", "ביוני",
		"ביולי", "באוגוסט", "בספטמבר", "באוקטובר", "בנובמבר", "בדצמבר",
	}

	fileSizeUnits = [...]string{"Bytes", "KB", "MB", "GB", "TB"}
)

// IsValidURL reports whether s parses as an absolute URL.
func IsValidURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return u.Scheme != "" && (u.Host != "" || u.Opaque != "")
}

// HasHTTPScheme reports whether s starts with http:// or https://.
func HasHTTPScheme(s string) bool {
	return schemePattern.MatchString(strings.TrimSpace(s))
}

// IsValidEmail reports whether s looks like an email address.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Number formats n with locale thousands separators.
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Date formats t as a long Hebrew date, e.g. "16 במרץ 2023".
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %d", t.Day(), hebrewMonths[t.Month()-1], t.Year())
}

// DateTime formats t as a long Hebrew date followed by HH:MM.
func DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return Date(t) + " בשעה " + t.Format("15:04")
}

// Timestamp formats t the way log lines are displayed.
func Timestamp(t time.Time) string {
	return t.Format("15:04:05")
}

// Truncate shortens s to max runes and appends an ellipsis when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// FileSize renders a byte count with binary units rounded to two places.
func FileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := 0
	div := int64(1)
	for i < len(fileSizeUnits)-1 && bytes >= div*1024 {
		div *= 1024
		i++
	}
	v := decimal.NewFromInt(bytes).Div(decimal.NewFromInt(div)).Round(2)
	return v.String() + " " + fileSizeUnits[i]
}

// Color is a palette name the console maps to terminal colors.
type Color string

const (
	Gray   Color = "gray"
	Green  Color = "green"
	Red    Color = "red"
	Yellow Color = "yellow"
	Blue   Color = "blue"
	Purple Color = "purple"
	Indigo Color = "indigo"
	Pink   Color = "pink"
	Teal   Color = "teal"
)

var statusColors = map[string]Color{
	"active":      Green,
	"פעיל":        Green,
	"inactive":    Red,
	"לא פעיל":     Red,
	"pending":     Yellow,
	"בהמתנה":      Yellow,
	"in_progress": Blue,
	"בתהליך":      Blue,
	"completed":   Green,
	"הושלם":       Green,
	"failed":      Red,
	"נכשל":        Red,
	"cancelled":   Gray,
	"בוטל":        Gray,
}

// StatusColor maps a status value or label to a color. Unknown statuses are gray.
func StatusColor(status string) Color {
	if c, ok := statusColors[strings.TrimSpace(status)]; ok {
		return c
	}
	return Gray
}

var hashPalette = [...]Color{Blue, Green, Purple, Yellow, Red, Indigo, Pink, Teal}

// StringToColor picks a stable palette color for s. Empty strings are gray.
func StringToColor(s string) Color {
	if s == "" {
		return Gray
	}
	var hash int32
	for _, c := range utf16.Encode([]rune(s)) {
		hash = int32(c) + ((hash << 5) - hash)
	}
	idx := int(hash) % len(hashPalette)
	if idx < 0 {
		idx = -idx
	}
	return hashPalette[idx]
}

// PlatformIcon returns the icon name for a platform value or label.
func PlatformIcon(platform string) string {
	switch strings.TrimSpace(platform) {
	case "telegram", "טלגרם":
		return "telegram"
	case "whatsapp", "ווצאפ", "וואטסאפ":
		return "whatsapp"
	default:
		return "question"
	}
}
