package engine

import (
	"github.com/rpattn/advfilter/internal/domain"
)

// operatorsByType fixes the legal comparison operators per data type, in the
// order the console presents them. The first entry is the default an operator
// resets to when a criterion is retargeted at a field of that type.
var operatorsByType = map[domain.DataType][]domain.Operator{
	domain.DataTypeString: {
		domain.OperatorEquals,
		domain.OperatorNotEquals,
		domain.OperatorContains,
		domain.OperatorNotContains,
		domain.OperatorStartsWith,
		domain.OperatorEndsWith,
		domain.OperatorIsEmpty,
		domain.OperatorIsNotEmpty,
	},
	domain.DataTypeNumber: {
		domain.OperatorEquals,
		domain.OperatorNotEquals,
		domain.OperatorGreaterThan,
		domain.OperatorLessThan,
		domain.OperatorGreaterThanOrEqual,
		domain.OperatorLessThanOrEqual,
		domain.OperatorBetween,
		domain.OperatorIsEmpty,
		domain.OperatorIsNotEmpty,
	},
	domain.DataTypeBoolean: {
		domain.OperatorIsTrue,
		domain.OperatorIsFalse,
	},
	domain.DataTypeDate: {
		domain.OperatorDateEquals,
		domain.OperatorDateBefore,
		domain.OperatorDateAfter,
		domain.OperatorDateBetween,
		domain.OperatorDateToday,
		domain.OperatorDateYesterday,
		domain.OperatorDateThisWeek,
		domain.OperatorDateThisMonth,
		domain.OperatorDateThisYear,
	},
	domain.DataTypeArray: {
		domain.OperatorContains,
		domain.OperatorNotContains,
		domain.OperatorIn,
		domain.OperatorNotIn,
		domain.OperatorIsEmpty,
		domain.OperatorIsNotEmpty,
	},
	domain.DataTypeObject: {
		domain.OperatorEquals,
		domain.OperatorNotEquals,
		domain.OperatorIsEmpty,
		domain.OperatorIsNotEmpty,
	},
}

// operatorArity declares how many values each operator requires. An operator
// keeps the same arity across every data type it is registered for.
var operatorArity = map[domain.Operator]domain.Arity{
	domain.OperatorEquals:             domain.ArityScalar,
	domain.OperatorNotEquals:          domain.ArityScalar,
	domain.OperatorContains:           domain.ArityScalar,
	domain.OperatorNotContains:        domain.ArityScalar,
	domain.OperatorStartsWith:         domain.ArityScalar,
	domain.OperatorEndsWith:           domain.ArityScalar,
	domain.OperatorGreaterThan:        domain.ArityScalar,
	domain.OperatorLessThan:           domain.ArityScalar,
	domain.OperatorGreaterThanOrEqual: domain.ArityScalar,
	domain.OperatorLessThanOrEqual:    domain.ArityScalar,
	domain.OperatorBetween:            domain.ArityPair,
	domain.OperatorIsEmpty:            domain.ArityNone,
	domain.OperatorIsNotEmpty:         domain.ArityNone,
	domain.OperatorIsTrue:             domain.ArityNone,
	domain.OperatorIsFalse:            domain.ArityNone,
	domain.OperatorDateEquals:         domain.ArityScalar,
	domain.OperatorDateBefore:         domain.ArityScalar,
	domain.OperatorDateAfter:          domain.ArityScalar,
	domain.OperatorDateBetween:        domain.ArityPair,
	domain.OperatorDateToday:          domain.ArityNone,
	domain.OperatorDateYesterday:      domain.ArityNone,
	domain.OperatorDateThisWeek:       domain.ArityNone,
	domain.OperatorDateThisMonth:      domain.ArityNone,
	domain.OperatorDateThisYear:       domain.ArityNone,
	domain.OperatorIn:                 domain.ArityList,
	domain.OperatorNotIn:              domain.ArityList,
}

// OperatorsFor returns the ordered operator set registered for the data type.
func OperatorsFor(dataType domain.DataType) []domain.Operator {
	operators, ok := operatorsByType[dataType]
	if !ok {
		return nil
	}
	clone := make([]domain.Operator, len(operators))
	copy(clone, operators)
	return clone
}

// ArityOf returns the value shape the operator requires.
func ArityOf(operator domain.Operator) (domain.Arity, bool) {
	arity, ok := operatorArity[operator]
	return arity, ok
}

// DefaultOperator returns the first registered operator for the data type.
func DefaultOperator(dataType domain.DataType) (domain.Operator, bool) {
	operators, ok := operatorsByType[dataType]
	if !ok || len(operators) == 0 {
		return "", false
	}
	return operators[0], true
}

// IsValidOperator reports whether the operator belongs to the data type's
// registered set.
func IsValidOperator(dataType domain.DataType, operator domain.Operator) bool {
	for _, candidate := range operatorsByType[dataType] {
		if candidate == operator {
			return true
		}
	}
	return false
}
