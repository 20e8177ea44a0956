package wizard

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ashureev/wooagent/internal/format"
	"github.com/shopspring/decimal"
)

// Required fails on blank values.
func Required(msg string) Rule {
	return func(v string, _ Values) string {
		if strings.TrimSpace(v) == "" {
			return msg
		}
		return ""
	}
}

// Optional runs rules only when the value is not blank.
func Optional(rules ...Rule) Rule {
	return func(v string, all Values) string {
		if strings.TrimSpace(v) == "" {
			return ""
		}
		for _, r := range rules {
			if msg := r(v, all); msg != "" {
				return msg
			}
		}
		return ""
	}
}

func HTTPURL(msg string) Rule {
	return func(v string, _ Values) string {
		if !format.HasHTTPScheme(v) {
			return msg
		}
		return ""
	}
}

func Email(msg string) Rule {
	return func(v string, _ Values) string {
		if !format.IsValidEmail(v) {
			return msg
		}
		return ""
	}
}

// MinLength counts characters, not bytes.
func MinLength(n int, msg string) Rule {
	return func(v string, _ Values) string {
		if len([]rune(v)) < n {
			return msg
		}
		return ""
	}
}

func OneOf(allowed []string, msg string) Rule {
	return func(v string, _ Values) string {
		if !slices.Contains(allowed, strings.TrimSpace(v)) {
			return msg
		}
		return ""
	}
}

// Matches requires the value to equal another field's value.
func Matches(field, msg string) Rule {
	return func(v string, all Values) string {
		if v != all[field] {
			return msg
		}
		return ""
	}
}

// RequiredWith makes the field mandatory once other is filled in.
func RequiredWith(other, msg string) Rule {
	return func(v string, all Values) string {
		if strings.TrimSpace(all[other]) != "" && strings.TrimSpace(v) == "" {
			return msg
		}
		return ""
	}
}

// Between parses the value as a decimal number within [min, max].
func Between(min, max float64, name string) Rule {
	lo, hi := decimal.NewFromFloat(min), decimal.NewFromFloat(max)
	return func(v string, _ Values) string {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return fmt.Sprintf("%s must be a number", name)
		}
		if d.LessThan(lo) || d.GreaterThan(hi) {
			return fmt.Sprintf("%s must be between %s and %s", name, lo, hi)
		}
		return ""
	}
}

// IntBetween is Between restricted to whole numbers.
func IntBetween(min, max int, name string) Rule {
	between := Between(float64(min), float64(max), name)
	return func(v string, all Values) string {
		if msg := between(v, all); msg != "" {
			return msg
		}
		if d, _ := decimal.NewFromString(strings.TrimSpace(v)); !d.IsInteger() {
			return fmt.Sprintf("%s must be a whole number", name)
		}
		return ""
	}
}
