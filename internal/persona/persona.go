// Package persona defines the named prompt templates ("personalities") that
// govern assistant tone and behavior.
//
// Every template is written against a closed set of placeholders:
// {retrieved_context}, {history} and {user_query}. Templates referencing
// anything else are rejected at registration time, before they can corrupt a
// prompt at request time.
package persona

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultID is the persona used when a lookup misses.
const DefaultID = "assistant"

// Recognized template placeholders.
const (
	PlaceholderContext = "retrieved_context"
	PlaceholderHistory = "history"
	PlaceholderQuery   = "user_query"
)

// ErrInvalidTemplate indicates a persona template references an unrecognized
// placeholder. This is a configuration-time failure.
var ErrInvalidTemplate = errors.New("invalid persona template")

// Persona is a named prompt template with display metadata.
// Personas are immutable once registered.
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Template    string `json:"-"`
}

// ValidateTemplate checks that every {placeholder} in tmpl is one of the
// recognized placeholders. Unmatched opening braces are tolerated only when
// they do not form a {word} span.
func ValidateTemplate(tmpl string) error {
	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return nil
		}
		rest = rest[open+1:]
		closing := strings.IndexByte(rest, '}')
		if closing < 0 {
			return nil
		}
		name := rest[:closing]
		if !isPlaceholderName(name) {
			// Not a {word} span. Rescan from just past this opening brace so
			// a nested brace, as in {{name}}, still forms its own span.
			continue
		}
		rest = rest[closing+1:]
		switch name {
		case PlaceholderContext, PlaceholderHistory, PlaceholderQuery:
		default:
			return fmt.Errorf("%w: unrecognized placeholder {%s}", ErrInvalidTemplate, name)
		}
	}
}

// isPlaceholderName reports whether s looks like a placeholder identifier
// (lowercase letters and underscores only, non-empty).
func isPlaceholderName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && c != '_' {
			return false
		}
	}
	return true
}

// Registry is an immutable, process-wide mapping from persona id to Persona.
// The zero value is not useful; use NewRegistry.
//
// Registry is safe for concurrent reads; Register must only be called during
// setup, before the registry is shared.
type Registry struct {
	personas map[string]Persona
}

// NewRegistry creates a registry populated with the built-in personas.
// All built-in templates are validated; a validation failure here is a
// programming error and is returned for the caller to treat as fatal.
func NewRegistry() (*Registry, error) {
	r := &Registry{personas: make(map[string]Persona, len(builtins))}
	for _, p := range builtins {
		if err := r.Register(p); err != nil {
			return nil, fmt.Errorf("built-in persona %q: %w", p.ID, err)
		}
	}
	return r, nil
}

// Register adds a persona after validating its template.
func (r *Registry) Register(p Persona) error {
	if p.ID == "" {
		return fmt.Errorf("%w: empty persona id", ErrInvalidTemplate)
	}
	if err := ValidateTemplate(p.Template); err != nil {
		return err
	}
	r.personas[p.ID] = p
	return nil
}

// Get returns the persona with the given id, falling back to the default
// persona when the id is unknown. It never fails.
func (r *Registry) Get(id string) Persona {
	if p, ok := r.personas[id]; ok {
		return p
	}
	return r.personas[DefaultID]
}

// Has reports whether a persona with the given id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.personas[id]
	return ok
}

// List returns all registered personas ordered by id.
func (r *Registry) List() []Persona {
	out := make([]Persona, 0, len(r.personas))
	for _, p := range r.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
