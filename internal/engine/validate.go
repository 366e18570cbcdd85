package engine

import (
	"encoding/json"
	"fmt"

	"github.com/rpattn/advfilter/internal/domain"
)

// Validate checks a filter definition against a field catalog and returns
// every issue found, errors and warnings alike, keyed by group and criterion
// index. A nil catalog skips the unknown-field and declared-type checks so
// ad-hoc definitions can still be validated for shape.
func Validate(filter domain.Filter, catalog domain.FieldCatalog) []domain.ValidationIssue {
	var issues []domain.ValidationIssue

	for groupIndex, group := range filter.Groups {
		if group.IsActive && len(group.Criteria) == 0 {
			issues = append(issues, domain.ValidationIssue{
				GroupIndex: groupIndex,
				Reason:     domain.ReasonEmptyGroup,
				Severity:   domain.SeverityWarning,
				Message:    fmt.Sprintf("group %q has no criteria and will match nothing", group.Name),
			})
		}

		for criterionIndex, criterion := range group.Criteria {
			issues = append(issues, validateCriterion(groupIndex, criterionIndex, criterion, catalog)...)
		}
	}

	return issues
}

// Check validates the filter and returns a DefinitionError when any blocking
// issue exists. Both apply and the save path call this before doing anything
// else, so a malformed definition never fails mid-scan.
func Check(filter domain.Filter, catalog domain.FieldCatalog) error {
	issues := Validate(filter, catalog)
	var blocking []domain.ValidationIssue
	for _, issue := range issues {
		if issue.Severity == domain.SeverityError {
			blocking = append(blocking, issue)
		}
	}
	if len(blocking) > 0 {
		return &domain.DefinitionError{Issues: issues}
	}
	return nil
}

func validateCriterion(groupIndex, criterionIndex int, criterion domain.Criterion, catalog domain.FieldCatalog) []domain.ValidationIssue {
	var issues []domain.ValidationIssue
	idx := criterionIndex
	report := func(reason domain.ValidationReason, severity domain.Severity, message string) {
		issues = append(issues, domain.ValidationIssue{
			GroupIndex:     groupIndex,
			CriterionIndex: &idx,
			Field:          criterion.Field,
			Reason:         reason,
			Severity:       severity,
			Message:        message,
		})
	}

	dataType := criterion.DataType
	if catalog != nil {
		def, known := catalog.Definition(criterion.Field)
		if !known {
			report(domain.ReasonUnknownField, domain.SeverityError,
				fmt.Sprintf("unknown field %q", criterion.Field))
			return issues
		}
		// A criterion type that disagrees with the catalog means the operator
		// was not reset when the field changed. Evaluation dispatches on the
		// criterion's type, so the mismatch must be rejected here instead of
		// surfacing as per-record skips mid-scan.
		if criterion.DataType != def.Type {
			report(domain.ReasonOperatorMismatch, domain.SeverityError,
				fmt.Sprintf("criterion declares type %q but field %q is %s", criterion.DataType, criterion.Field, def.Type))
			return issues
		}
		dataType = def.Type
	}

	if !IsValidOperator(dataType, criterion.Operator) {
		report(domain.ReasonOperatorMismatch, domain.SeverityError,
			fmt.Sprintf("operator %q is not valid for %s fields", criterion.Operator, dataType))
		return issues
	}

	arity, _ := ArityOf(criterion.Operator)
	if arity != domain.ArityNone && criterion.Value.IsZero() {
		report(domain.ReasonMissingValue, domain.SeverityError,
			fmt.Sprintf("operator %q requires a value", criterion.Operator))
		return issues
	}

	value, err := criterion.Value.Coerce(arity)
	if err != nil {
		report(domain.ReasonMalformedValue, domain.SeverityError, err.Error())
		return issues
	}

	switch dataType {
	case domain.DataTypeNumber:
		validateNumberValue(report, criterion.Operator, arity, value)
	case domain.DataTypeDate:
		validateDateValue(report, criterion.Operator, arity, value)
	case domain.DataTypeObject:
		if arity == domain.ArityScalar {
			var probe any
			if err := json.Unmarshal([]byte(value.Scalar.Text()), &probe); err != nil {
				report(domain.ReasonMalformedValue, domain.SeverityError,
					"object comparison value must be valid JSON")
			}
		}
	}

	return issues
}

type reportFunc func(domain.ValidationReason, domain.Severity, string)

func validateNumberValue(report reportFunc, operator domain.Operator, arity domain.Arity, value domain.Value) {
	switch arity {
	case domain.ArityScalar:
		if _, ok := value.Scalar.Float(); !ok {
			report(domain.ReasonMalformedValue, domain.SeverityError,
				fmt.Sprintf("operator %q requires a numeric value", operator))
		}
	case domain.ArityPair:
		low, okLow := value.Low.Float()
		high, okHigh := value.High.Float()
		if !okLow || !okHigh {
			report(domain.ReasonMalformedValue, domain.SeverityError,
				"between bounds must be numeric")
			return
		}
		// Reported, not auto-corrected: the inverted range still evaluates
		// (to no match) so the console can show why nothing is selected.
		if low > high {
			report(domain.ReasonInvertedRange, domain.SeverityWarning,
				fmt.Sprintf("range low %v is greater than high %v and matches nothing", low, high))
		}
	}
}

func validateDateValue(report reportFunc, operator domain.Operator, arity domain.Arity, value domain.Value) {
	switch arity {
	case domain.ArityScalar:
		if _, ok := value.Scalar.AsTime(); !ok {
			report(domain.ReasonMalformedValue, domain.SeverityError,
				fmt.Sprintf("operator %q requires a date value", operator))
		}
	case domain.ArityPair:
		low, okLow := value.Low.AsTime()
		high, okHigh := value.High.AsTime()
		if !okLow || !okHigh {
			report(domain.ReasonMalformedValue, domain.SeverityError,
				"dateBetween bounds must be dates")
			return
		}
		if low.After(high) {
			report(domain.ReasonInvertedRange, domain.SeverityWarning,
				fmt.Sprintf("date range starts %s after it ends %s and matches nothing",
					low.Format("2006-01-02"), high.Format("2006-01-02")))
		}
	}
}
