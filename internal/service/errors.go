package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"habit-planner/internal/recurrence"
	"habit-planner/internal/repository"
)

var (
	// ErrNotFound covers both missing records and records owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrPersistence wraps storage failures. The operation was rolled back.
	ErrPersistence = errors.New("persistence failure")
	// ErrUnauthorized is returned for bad credentials.
	ErrUnauthorized = errors.New("invalid credentials")
)

// ValidationError carries a message per offending input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalidField(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// ruleError turns a rule validation failure into field errors, prefixing keys when asked.
func ruleError(err error, prefix string) error {
	var fe recurrence.FieldErrors
	if !errors.As(err, &fe) {
		key := strings.TrimSuffix(prefix, ".")
		if key == "" {
			key = "rule"
		}
		return invalidField(key, err.Error())
	}
	out := &ValidationError{Fields: make(map[string]string, len(fe))}
	for k, v := range fe {
		out.Fields[prefix+k] = v
	}
	return out
}

// storageErr maps repository errors onto the service taxonomy.
func storageErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrPersistence):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
	}
}
