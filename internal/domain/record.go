package domain

import (
	"github.com/google/uuid"
)

// Record is one row of a heterogeneous collection under filter. Field values
// carry whatever runtime shape the host application loaded them with; the
// engine never mutates a record it evaluates.
type Record struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entityType,omitempty"`
	Fields     map[string]any `json:"fields"`
}

// NewRecord creates a record with a fresh id and a defensive copy of the
// field bag.
func NewRecord(entityType string, fields map[string]any) Record {
	return Record{
		ID:         uuid.NewString(),
		EntityType: entityType,
		Fields:     copyFieldBag(fields),
	}
}

// Field returns the named field value and whether it is present. A stored nil
// still reports present; the empty-value rules treat both the same.
func (r Record) Field(name string) (any, bool) {
	value, ok := r.Fields[name]
	return value, ok
}

// WithField returns a new record with the field set.
func (r Record) WithField(name string, value any) Record {
	newFields := copyFieldBag(r.Fields)
	newFields[name] = value
	return Record{
		ID:         r.ID,
		EntityType: r.EntityType,
		Fields:     newFields,
	}
}

func copyFieldBag(fields map[string]any) map[string]any {
	newFields := make(map[string]any, len(fields))
	for k, v := range fields {
		newFields[k] = v
	}
	return newFields
}
