// Package wizard implements multi-step forms with per-step validation.
package wizard

import (
	"errors"
	"maps"

	"github.com/ashureev/wooagent/internal/client"
	"github.com/ashureev/wooagent/internal/domain"
)

// Values holds the raw text of every field, keyed by field name.
type Values map[string]string

// Rule checks one field. It returns the error message, or "" when the value passes.
type Rule func(value string, all Values) string

// Field is one input of a step.
type Field struct {
	Name    string
	Label   string
	Default string
	Secret  bool
	Rules   []Rule
}

// Step groups the fields shown together.
type Step struct {
	Title  string
	Fields []Field
}

// Wizard walks a fixed list of steps. Next only advances when every rule of the
// current step passes.
type Wizard struct {
	steps   []Step
	current int
	values  Values
	errs    map[string]string
}

// New returns a wizard on its first step with field defaults applied.
func New(steps ...Step) *Wizard {
	w := &Wizard{steps: steps, values: Values{}, errs: map[string]string{}}
	for _, s := range steps {
		for _, f := range s.Fields {
			w.values[f.Name] = f.Default
		}
	}
	return w
}

// Set stores value and clears that field's error only.
func (w *Wizard) Set(field, value string) {
	w.values[field] = value
	delete(w.errs, field)
}

func (w *Wizard) Value(field string) string {
	return w.values[field]
}

// Values returns a copy of every field value.
func (w *Wizard) Values() Values {
	return maps.Clone(w.values)
}

// Errors returns a copy of the current field errors.
func (w *Wizard) Errors() map[string]string {
	return maps.Clone(w.errs)
}

func (w *Wizard) Error(field string) string {
	return w.errs[field]
}

// Step returns the zero-based index of the current step.
func (w *Wizard) Step() int {
	return w.current
}

func (w *Wizard) Current() Step {
	return w.steps[w.current]
}

func (w *Wizard) Len() int {
	return len(w.steps)
}

func (w *Wizard) IsLast() bool {
	return w.current == len(w.steps)-1
}

// Next validates the current step and advances when it passed.
func (w *Wizard) Next() bool {
	if errs := w.check(w.current); len(errs) > 0 {
		maps.Copy(w.errs, errs)
		return false
	}
	if w.current < len(w.steps)-1 {
		w.current++
	}
	return true
}

// Prev moves back one step without validating.
func (w *Wizard) Prev() bool {
	if w.current == 0 {
		return false
	}
	w.current--
	return true
}

// Validate checks every step. On failure it records the errors and moves to
// the first step that failed.
func (w *Wizard) Validate() bool {
	ok := true
	for i := range w.steps {
		errs := w.check(i)
		if len(errs) == 0 {
			continue
		}
		if ok {
			w.current = i
			ok = false
		}
		maps.Copy(w.errs, errs)
	}
	return ok
}

// Submit validates the whole form and hands the values to fn. Field errors
// reported by fn are recorded against the matching fields.
func (w *Wizard) Submit(fn func(Values) error) error {
	if !w.Validate() {
		return &domain.ValidationError{Fields: w.Errors()}
	}
	err := fn(w.Values())
	if err == nil {
		return nil
	}
	var cerr *client.Error
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &cerr) && len(cerr.Fields) > 0:
		w.reject(cerr.Fields)
	case errors.As(err, &verr):
		w.reject(verr.Fields)
	}
	return err
}

// reject records server-side field errors and jumps to the earliest step holding one.
func (w *Wizard) reject(fields map[string]string) {
	maps.Copy(w.errs, fields)
	for i, s := range w.steps {
		for _, f := range s.Fields {
			if _, ok := fields[f.Name]; ok {
				w.current = i
				return
			}
		}
	}
}

func (w *Wizard) check(step int) map[string]string {
	errs := map[string]string{}
	for _, f := range w.steps[step].Fields {
		for _, rule := range f.Rules {
			if msg := rule(w.values[f.Name], w.values); msg != "" {
				errs[f.Name] = msg
				break
			}
		}
	}
	return errs
}
