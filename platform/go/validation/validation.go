// Package validation carries field-level input errors from services to transports.
package validation

import "sort"

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// Error is returned when the input payload is invalid. It is raised before any write is attempted.
type Error struct {
	Fields FieldErrors
}

func (e *Error) Error() string {
	return "validation error"
}

// Add appends a message for field.
func (f FieldErrors) Add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}

// Err returns nil when no field failed, else an *Error.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &Error{Fields: f}
}

// Keys returns the failing fields in stable order.
func (f FieldErrors) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New builds an *Error from single messages per field.
func New(fields map[string]string) error {
	fe := FieldErrors{}
	for key, message := range fields {
		fe.Add(key, message)
	}
	return fe.Err()
}
