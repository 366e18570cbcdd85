package domain

// DataType represents the semantic type of a filterable field
type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
	DataTypeDate    DataType = "date"
	DataTypeArray   DataType = "array"
	DataTypeObject  DataType = "object"
)

// FieldDefinition describes one filterable field of an entity type. Definitions
// are supplied by the host application and treated as immutable for the
// duration of a filter session.
type FieldDefinition struct {
	Label      string   `json:"label"`
	Type       DataType `json:"type"`
	Searchable bool     `json:"searchable"`
	// Options is an optional closed set of allowed values for the field.
	Options []string `json:"options,omitempty"`
}

// FieldCatalog maps field names to their definitions for one entity type.
type FieldCatalog map[string]FieldDefinition

// Definition returns the definition for the named field.
func (c FieldCatalog) Definition(name string) (FieldDefinition, bool) {
	def, ok := c[name]
	return def, ok
}

// FieldNames returns the catalog's field names in unspecified order.
func (c FieldCatalog) FieldNames() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	return names
}
