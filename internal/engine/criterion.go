package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/rpattn/advfilter/internal/domain"
)

// EvaluateCriterion evaluates one typed criterion against one record. It is a
// pure function of the criterion, the record and the evaluator's instant.
//
// Missing or null record fields never match; only the emptiness operators see
// them. A record value whose runtime shape does not fit the declared data type
// yields an EvaluationError so the matching service can skip and report it.
func (e *Evaluator) EvaluateCriterion(criterion domain.Criterion, record domain.Record) (bool, error) {
	arity, ok := ArityOf(criterion.Operator)
	if !ok {
		return false, fmt.Errorf("unknown operator %q", criterion.Operator)
	}
	value, err := criterion.Value.Coerce(arity)
	if err != nil {
		return false, fmt.Errorf("criterion %s: %w", criterion.ID, err)
	}

	raw, present := record.Field(criterion.Field)

	switch criterion.Operator {
	case domain.OperatorIsEmpty:
		return isEmptyValue(raw), nil
	case domain.OperatorIsNotEmpty:
		return !isEmptyValue(raw), nil
	}

	if !present || raw == nil {
		return false, nil
	}

	switch criterion.DataType {
	case domain.DataTypeString:
		return e.evaluateString(criterion, value, raw)
	case domain.DataTypeNumber:
		return e.evaluateNumber(criterion, value, raw)
	case domain.DataTypeBoolean:
		return e.evaluateBoolean(criterion, raw)
	case domain.DataTypeDate:
		return e.evaluateDate(criterion, value, raw)
	case domain.DataTypeArray:
		return e.evaluateArray(criterion, value, raw)
	case domain.DataTypeObject:
		return e.evaluateObject(criterion, value, raw)
	default:
		return false, fmt.Errorf("unknown data type %q", criterion.DataType)
	}
}

func (e *Evaluator) evaluateString(criterion domain.Criterion, value domain.Value, raw any) (bool, error) {
	s, ok := raw.(string)
	if !ok {
		return false, &domain.EvaluationError{Field: criterion.Field, DataType: criterion.DataType, Value: raw}
	}
	want := value.Scalar.Text()

	switch criterion.Operator {
	case domain.OperatorEquals:
		return s == want, nil
	case domain.OperatorNotEquals:
		return s != want, nil
	case domain.OperatorContains:
		return strings.Contains(s, want), nil
	case domain.OperatorNotContains:
		return !strings.Contains(s, want), nil
	case domain.OperatorStartsWith:
		return strings.HasPrefix(s, want), nil
	case domain.OperatorEndsWith:
		return strings.HasSuffix(s, want), nil
	default:
		return false, fmt.Errorf("operator %q is not valid for strings", criterion.Operator)
	}
}

func (e *Evaluator) evaluateNumber(criterion domain.Criterion, value domain.Value, raw any) (bool, error) {
	f, ok := toFloat(raw)
	if !ok {
		return false, &domain.EvaluationError{Field: criterion.Field, DataType: criterion.DataType, Value: raw}
	}

	if criterion.Operator == domain.OperatorBetween {
		low, okLow := value.Low.Float()
		high, okHigh := value.High.Float()
		if !okLow || !okHigh {
			return false, fmt.Errorf("between bounds must be numeric")
		}
		// An inverted range matches nothing; validation reports it as a
		// warning rather than silently swapping the bounds.
		if low > high {
			return false, nil
		}
		return f >= low && f <= high, nil
	}

	want, ok := value.Scalar.Float()
	if !ok {
		return false, fmt.Errorf("operator %q requires a numeric value", criterion.Operator)
	}

	switch criterion.Operator {
	case domain.OperatorEquals:
		return f == want, nil
	case domain.OperatorNotEquals:
		return f != want, nil
	case domain.OperatorGreaterThan:
		return f > want, nil
	case domain.OperatorLessThan:
		return f < want, nil
	case domain.OperatorGreaterThanOrEqual:
		return f >= want, nil
	case domain.OperatorLessThanOrEqual:
		return f <= want, nil
	default:
		return false, fmt.Errorf("operator %q is not valid for numbers", criterion.Operator)
	}
}

func (e *Evaluator) evaluateBoolean(criterion domain.Criterion, raw any) (bool, error) {
	// Strict boolean equality when the record value is a bool; anything else
	// is coerced by truthiness for this operator family only.
	truth, isBool := raw.(bool)
	if !isBool {
		truth = truthiness(raw)
	}

	switch criterion.Operator {
	case domain.OperatorIsTrue:
		return truth, nil
	case domain.OperatorIsFalse:
		return !truth, nil
	default:
		return false, fmt.Errorf("operator %q is not valid for booleans", criterion.Operator)
	}
}

func (e *Evaluator) evaluateDate(criterion domain.Criterion, value domain.Value, raw any) (bool, error) {
	t, ok := toTime(raw)
	if !ok {
		return false, &domain.EvaluationError{Field: criterion.Field, DataType: criterion.DataType, Value: raw}
	}
	day := e.calendarDay(t)
	today := e.calendarDay(e.now)

	switch criterion.Operator {
	case domain.OperatorDateToday:
		return day.Equal(today), nil
	case domain.OperatorDateYesterday:
		return day.Equal(today.AddDate(0, 0, -1)), nil
	case domain.OperatorDateThisWeek:
		start := weekStart(today)
		return !day.Before(start) && day.Before(start.AddDate(0, 0, 7)), nil
	case domain.OperatorDateThisMonth:
		return day.Year() == today.Year() && day.Month() == today.Month(), nil
	case domain.OperatorDateThisYear:
		return day.Year() == today.Year(), nil
	}

	if criterion.Operator == domain.OperatorDateBetween {
		lowTime, okLow := value.Low.AsTime()
		highTime, okHigh := value.High.AsTime()
		if !okLow || !okHigh {
			return false, fmt.Errorf("dateBetween bounds must be timestamps")
		}
		low := e.calendarDay(lowTime)
		high := e.calendarDay(highTime)
		if low.After(high) {
			return false, nil
		}
		return !day.Before(low) && !day.After(high), nil
	}

	wantTime, ok := value.Scalar.AsTime()
	if !ok {
		return false, fmt.Errorf("operator %q requires a timestamp value", criterion.Operator)
	}
	want := e.calendarDay(wantTime)

	switch criterion.Operator {
	case domain.OperatorDateEquals:
		return day.Equal(want), nil
	case domain.OperatorDateBefore:
		return day.Before(want), nil
	case domain.OperatorDateAfter:
		return day.After(want), nil
	default:
		return false, fmt.Errorf("operator %q is not valid for dates", criterion.Operator)
	}
}

func (e *Evaluator) evaluateArray(criterion domain.Criterion, value domain.Value, raw any) (bool, error) {
	members, ok := toMembers(raw)
	if !ok {
		return false, &domain.EvaluationError{Field: criterion.Field, DataType: criterion.DataType, Value: raw}
	}

	switch criterion.Operator {
	case domain.OperatorContains:
		return membersContain(members, value.Scalar), nil
	case domain.OperatorNotContains:
		return !membersContain(members, value.Scalar), nil
	case domain.OperatorIn:
		return membersIntersect(members, value.Items), nil
	case domain.OperatorNotIn:
		return !membersIntersect(members, value.Items), nil
	default:
		return false, fmt.Errorf("operator %q is not valid for arrays", criterion.Operator)
	}
}

func (e *Evaluator) evaluateObject(criterion domain.Criterion, value domain.Value, raw any) (bool, error) {
	recordJSON, err := canonicalJSON(raw)
	if err != nil {
		return false, &domain.EvaluationError{Field: criterion.Field, DataType: criterion.DataType, Value: raw}
	}

	var wantValue any
	if err := json.Unmarshal([]byte(value.Scalar.Text()), &wantValue); err != nil {
		return false, fmt.Errorf("object comparison value is not valid JSON: %w", err)
	}
	wantJSON, err := canonicalJSON(wantValue)
	if err != nil {
		return false, err
	}

	switch criterion.Operator {
	case domain.OperatorEquals:
		return recordJSON == wantJSON, nil
	case domain.OperatorNotEquals:
		return recordJSON != wantJSON, nil
	default:
		return false, fmt.Errorf("operator %q is not valid for objects", criterion.Operator)
	}
}

// calendarDay truncates an instant to its calendar day in the evaluation
// clock's location.
func (e *Evaluator) calendarDay(t time.Time) time.Time {
	local := t.In(e.now.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.now.Location())
}

// weekStart returns the Monday beginning the ISO week containing day.
func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func truthiness(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != ""
	}
	if f, ok := toFloat(value); ok {
		return f != 0
	}
	return !isEmptyValue(value)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		t, err := domain.ParseTime(v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// toMembers flattens the record value into comparable elements. Scalars count
// as single-element collections so list operators work on option-typed fields
// whose records hold plain values.
func toMembers(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		members := make([]any, len(v))
		for i, s := range v {
			members[i] = s
		}
		return members, true
	case string, bool:
		return []any{v}, true
	case map[string]any:
		return nil, false
	}
	if _, ok := toFloat(value); ok {
		return []any{value}, true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice {
		members := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			members[i] = rv.Index(i).Interface()
		}
		return members, true
	}
	return nil, false
}

func membersContain(members []any, want domain.Scalar) bool {
	for _, member := range members {
		if scalarMatches(want, member) {
			return true
		}
	}
	return false
}

func membersIntersect(members []any, items []domain.Scalar) bool {
	for _, item := range items {
		if membersContain(members, item) {
			return true
		}
	}
	return false
}

// scalarMatches compares a criterion scalar against one record element.
// Numbers compare numerically, never lexically.
func scalarMatches(want domain.Scalar, member any) bool {
	if f, ok := toFloat(member); ok {
		wantF, okWant := want.Float()
		return okWant && f == wantF
	}
	switch v := member.(type) {
	case string:
		return want.Kind == domain.ScalarString && want.Str == v
	case bool:
		return want.Kind == domain.ScalarBool && want.Bool == v
	default:
		return false
	}
}

// canonicalJSON renders a value as deterministic JSON. Map keys marshal in
// sorted order, so structurally equal values produce identical bytes.
func canonicalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
