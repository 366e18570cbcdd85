package domain

import (
	"fmt"
	"strings"
)

// ValidationReason identifies why a filter definition failed validation.
type ValidationReason string

const (
	ReasonUnknownField     ValidationReason = "unknown_field"
	ReasonOperatorMismatch ValidationReason = "operator_not_valid_for_field_type"
	ReasonMissingValue     ValidationReason = "missing_required_value"
	ReasonMalformedValue   ValidationReason = "malformed_value"
	ReasonEmptyGroup       ValidationReason = "empty_group"
	ReasonInvertedRange    ValidationReason = "inverted_range"
)

// Severity distinguishes blocking errors from advisory warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationIssue names one problem in a filter definition, keyed by group and
// criterion index so the caller can render it at the offending form field.
type ValidationIssue struct {
	GroupIndex     int              `json:"groupIndex"`
	CriterionIndex *int             `json:"criterionIndex,omitempty"`
	Field          string           `json:"field,omitempty"`
	Reason         ValidationReason `json:"reason"`
	Severity       Severity         `json:"severity"`
	Message        string           `json:"message"`
}

func (i ValidationIssue) String() string {
	if i.CriterionIndex != nil {
		return fmt.Sprintf("group %d criterion %d: %s", i.GroupIndex, *i.CriterionIndex, i.Message)
	}
	return fmt.Sprintf("group %d: %s", i.GroupIndex, i.Message)
}

// DefinitionError aggregates the blocking validation issues of a malformed
// filter. It is always raised before any record is evaluated.
type DefinitionError struct {
	Issues []ValidationIssue
}

func (e *DefinitionError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Severity == SeverityError {
			parts = append(parts, issue.String())
		}
	}
	return fmt.Sprintf("invalid filter definition: %s", strings.Join(parts, "; "))
}

// EvaluationError reports a record whose runtime value shape does not match
// its declared data type. Offending records are skipped, not fatal.
type EvaluationError struct {
	Field    string
	DataType DataType
	Value    any
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("field %q: value of type %T is not usable as %s", e.Field, e.Value, e.DataType)
}
