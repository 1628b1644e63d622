// Package validate checks bulk payloads before a job is created. It is
// fail-fast: the first violation aborts validation and nothing is recorded.
package validate

import (
	"errors"
	"fmt"

	"github.com/EngOREOO/whats-app-front/internal/model"
	"github.com/EngOREOO/whats-app-front/internal/template"
)

// ErrEmptyData reports a payload that is missing, not an array, or empty.
var ErrEmptyData = errors.New("data must be a non-empty array")

// InvalidItemError reports an array element that is not an object.
type InvalidItemError struct {
	Index int
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("item at index %d must be an object", e.Index)
}

// MissingPhoneError reports a record without a usable Phone value.
type MissingPhoneError struct {
	Index int
}

func (e *MissingPhoneError) Error() string {
	return fmt.Sprintf("item at index %d is missing a phone number", e.Index)
}

// MissingPlaceholderError reports a record that carries no key for a
// placeholder the template references.
type MissingPlaceholderError struct {
	Token string
	Index int
}

func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf("item at index %d is missing a value for placeholder {{%s}}", e.Index, e.Token)
}

// Records validates a template against its decoded JSON payload and returns
// the payload as records, in input order.
//
// Checks run in a fixed order: the payload must be a non-empty array; every
// element must be an object with a non-empty Phone value; every record must
// carry a key for every placeholder, placeholders taken in template-occurrence
// order. Each pass covers all records before the next pass starts.
func Records(tmpl string, data any) ([]model.Record, error) {
	items, ok := data.([]any)
	if !ok || len(items) == 0 {
		return nil, ErrEmptyData
	}

	records := make([]model.Record, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &InvalidItemError{Index: i}
		}
		rec := model.Record(obj)
		if rec.Phone() == "" {
			return nil, &MissingPhoneError{Index: i}
		}
		records[i] = rec
	}

	tokens := template.Tokens(tmpl)
	for i, rec := range records {
		for _, name := range tokens {
			if !rec.Has(name) {
				return nil, &MissingPlaceholderError{Token: name, Index: i}
			}
		}
	}

	return records, nil
}
