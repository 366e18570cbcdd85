package domain

import (
	"time"

	"github.com/google/uuid"
)

// LogicalOperator combines criterion or group results.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// Operator identifies one comparison registered for a data type.
type Operator string

const (
	OperatorEquals             Operator = "equals"
	OperatorNotEquals          Operator = "notEquals"
	OperatorContains           Operator = "contains"
	OperatorNotContains        Operator = "notContains"
	OperatorStartsWith         Operator = "startsWith"
	OperatorEndsWith           Operator = "endsWith"
	OperatorGreaterThan        Operator = "greaterThan"
	OperatorLessThan           Operator = "lessThan"
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OperatorLessThanOrEqual    Operator = "lessThanOrEqual"
	OperatorBetween            Operator = "between"
	OperatorIsEmpty            Operator = "isEmpty"
	OperatorIsNotEmpty         Operator = "isNotEmpty"
	OperatorIsTrue             Operator = "isTrue"
	OperatorIsFalse            Operator = "isFalse"
	OperatorDateEquals         Operator = "dateEquals"
	OperatorDateBefore         Operator = "dateBefore"
	OperatorDateAfter          Operator = "dateAfter"
	OperatorDateBetween        Operator = "dateBetween"
	OperatorDateToday          Operator = "dateToday"
	OperatorDateYesterday      Operator = "dateYesterday"
	OperatorDateThisWeek       Operator = "dateThisWeek"
	OperatorDateThisMonth      Operator = "dateThisMonth"
	OperatorDateThisYear       Operator = "dateThisYear"
	OperatorIn                 Operator = "in"
	OperatorNotIn              Operator = "notIn"
)

// Criterion is a single typed comparison against one record field.
type Criterion struct {
	ID       string   `json:"id"`
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
	DataType DataType `json:"dataType"`
}

// NewCriterion creates a criterion with a fresh id. Ids are assigned at
// creation and never reused within the owning group.
func NewCriterion(field string, operator Operator, value Value, dataType DataType) Criterion {
	return Criterion{
		ID:       uuid.NewString(),
		Field:    field,
		Operator: operator,
		Value:    value,
		DataType: dataType,
	}
}

// Group is a set of criteria combined by one logical operator. Groups can be
// toggled off without losing their configuration.
type Group struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Criteria        []Criterion     `json:"criteria"`
	LogicalOperator LogicalOperator `json:"logicalOperator"`
	IsActive        bool            `json:"isActive"`
}

// NewGroup creates an active AND group with no criteria.
func NewGroup(name string) Group {
	return Group{
		ID:              uuid.NewString(),
		Name:            name,
		Criteria:        []Criterion{},
		LogicalOperator: LogicalAnd,
		IsActive:        true,
	}
}

// WithCriterion returns a new group with the criterion appended, or replaced
// when a criterion with the same id already exists.
func (g Group) WithCriterion(criterion Criterion) Group {
	newCriteria := copyCriteria(g.Criteria)

	found := false
	for i, existing := range newCriteria {
		if existing.ID == criterion.ID {
			newCriteria[i] = criterion
			found = true
			break
		}
	}
	if !found {
		newCriteria = append(newCriteria, criterion)
	}

	return Group{
		ID:              g.ID,
		Name:            g.Name,
		Criteria:        newCriteria,
		LogicalOperator: g.LogicalOperator,
		IsActive:        g.IsActive,
	}
}

// WithoutCriterion returns a new group without the identified criterion.
func (g Group) WithoutCriterion(id string) Group {
	newCriteria := make([]Criterion, 0, len(g.Criteria))
	for _, criterion := range g.Criteria {
		if criterion.ID != id {
			newCriteria = append(newCriteria, criterion)
		}
	}

	return Group{
		ID:              g.ID,
		Name:            g.Name,
		Criteria:        newCriteria,
		LogicalOperator: g.LogicalOperator,
		IsActive:        g.IsActive,
	}
}

// WithLogicalOperator returns a new group with the combination operator set.
func (g Group) WithLogicalOperator(op LogicalOperator) Group {
	return Group{
		ID:              g.ID,
		Name:            g.Name,
		Criteria:        copyCriteria(g.Criteria),
		LogicalOperator: op,
		IsActive:        g.IsActive,
	}
}

// WithActive returns a new group with the activation toggle set.
func (g Group) WithActive(active bool) Group {
	return Group{
		ID:              g.ID,
		Name:            g.Name,
		Criteria:        copyCriteria(g.Criteria),
		LogicalOperator: g.LogicalOperator,
		IsActive:        active,
	}
}

// Filter is a named collection of groups combined by a global logical
// operator. EntityType constrains which field definitions are valid for the
// filter's criteria.
type Filter struct {
	ID                    string          `json:"id,omitempty"`
	Name                  string          `json:"name"`
	Description           string          `json:"description,omitempty"`
	EntityType            string          `json:"entityType"`
	Groups                []Group         `json:"groups"`
	GlobalLogicalOperator LogicalOperator `json:"globalLogicalOperator"`
	IsShared              bool            `json:"isShared"`
	Tags                  []string        `json:"tags,omitempty"`
}

// NewFilter creates an empty AND filter for the entity type.
func NewFilter(name, entityType string) Filter {
	return Filter{
		ID:                    uuid.NewString(),
		Name:                  name,
		EntityType:            entityType,
		Groups:                []Group{},
		GlobalLogicalOperator: LogicalAnd,
	}
}

// WithGroup returns a new filter with the group appended, or replaced when a
// group with the same id already exists.
func (f Filter) WithGroup(group Group) Filter {
	newGroups := copyGroups(f.Groups)

	found := false
	for i, existing := range newGroups {
		if existing.ID == group.ID {
			newGroups[i] = group
			found = true
			break
		}
	}
	if !found {
		newGroups = append(newGroups, group)
	}

	clone := f
	clone.Groups = newGroups
	return clone
}

// WithoutGroup returns a new filter without the identified group.
func (f Filter) WithoutGroup(id string) Filter {
	newGroups := make([]Group, 0, len(f.Groups))
	for _, group := range f.Groups {
		if group.ID != id {
			newGroups = append(newGroups, group)
		}
	}

	clone := f
	clone.Groups = newGroups
	return clone
}

// WithGlobalLogicalOperator returns a new filter with the global operator set.
func (f Filter) WithGlobalLogicalOperator(op LogicalOperator) Filter {
	clone := f
	clone.Groups = copyGroups(f.Groups)
	clone.GlobalLogicalOperator = op
	return clone
}

// ActiveGroups returns the groups whose activation toggle is on, in filter
// order.
func (f Filter) ActiveGroups() []Group {
	active := make([]Group, 0, len(f.Groups))
	for _, group := range f.Groups {
		if group.IsActive {
			active = append(active, group)
		}
	}
	return active
}

// SavedFilter wraps a filter definition with the bookkeeping owned by the
// definition store.
type SavedFilter struct {
	ID         uuid.UUID `json:"id"`
	Definition Filter    `json:"definition"`
	UsageCount int       `json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func copyCriteria(criteria []Criterion) []Criterion {
	if criteria == nil {
		return nil
	}
	newCriteria := make([]Criterion, len(criteria))
	copy(newCriteria, criteria)
	return newCriteria
}

func copyGroups(groups []Group) []Group {
	if groups == nil {
		return nil
	}
	newGroups := make([]Group, len(groups))
	for i, group := range groups {
		clone := group
		clone.Criteria = copyCriteria(group.Criteria)
		newGroups[i] = clone
	}
	return newGroups
}
