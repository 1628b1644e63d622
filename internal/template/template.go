// Package template implements the {{Name}} placeholder syntax used by
// personalized messages. Placeholder names are word characters only; a
// template literal like "{{First Name}}" is plain text, not a token.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/EngOREOO/whats-app-front/internal/model"
)

var tokenPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Tokens returns the distinct placeholder names in tmpl, in first-occurrence
// order. A template without placeholders yields nil.
func Tokens(tmpl string) []string {
	matches := tokenPattern.FindAllStringSubmatch(tmpl, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	var names []string
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// MissingKeyError reports a placeholder that the record carries no key for.
type MissingKeyError struct {
	Token string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing value for placeholder {{%s}}", e.Token)
}

// Render replaces every {{Name}} occurrence in tmpl with the stringified
// record value for Name. It fails on the first referenced name (in template
// order) the record has no key for. Rendering has no side effects; identical
// inputs always produce identical output.
func Render(tmpl string, rec model.Record) (string, error) {
	for _, name := range Tokens(tmpl) {
		if !rec.Has(name) {
			return "", &MissingKeyError{Token: name}
		}
	}

	out := tokenPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(m, "{{"), "}}")
		return rec.Value(name)
	})
	return out, nil
}
