package engine

import (
	"fmt"

	"github.com/rpattn/advfilter/internal/domain"
)

// ResetForField returns a copy of the criterion retargeted at a new field. The
// operator resets to the first entry registered for the field's data type and
// the value is cleared, mirroring what the console does when a field is
// selected. The criterion keeps its id.
func ResetForField(criterion domain.Criterion, newField string, catalog domain.FieldCatalog) (domain.Criterion, error) {
	def, ok := catalog.Definition(newField)
	if !ok {
		return domain.Criterion{}, fmt.Errorf("unknown field %q", newField)
	}

	operator, ok := DefaultOperator(def.Type)
	if !ok {
		return domain.Criterion{}, fmt.Errorf("no operators registered for type %q", def.Type)
	}

	return domain.Criterion{
		ID:       criterion.ID,
		Field:    newField,
		Operator: operator,
		Value:    domain.NoValue(),
		DataType: def.Type,
	}, nil
}
