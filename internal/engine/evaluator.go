package engine

import (
	"time"

	"github.com/rpattn/advfilter/internal/domain"
)

// Evaluator evaluates filter definitions against records. It holds no mutable
// state beyond the instant it was created at: relative-date operators compute
// their windows from that instant, so one evaluator yields consistent results
// for an entire pass even across midnight. Results are time-dependent across
// days by design.
type Evaluator struct {
	now time.Time
}

// New creates an evaluator pinned to the current clock.
func New() *Evaluator {
	return NewAt(time.Now())
}

// NewAt creates an evaluator pinned to the given instant.
func NewAt(now time.Time) *Evaluator {
	return &Evaluator{now: now}
}

// Instant returns the evaluation instant the evaluator is pinned to.
func (e *Evaluator) Instant() time.Time {
	return e.now
}

// EvaluateGroup folds the group's criteria left to right with its logical
// operator. AND short-circuits on the first false, OR on the first true. An
// active group with no criteria matches nothing, so an incompletely configured
// group cannot cause an accidental full-table match. Inactive groups are
// excluded from the filter-level combination before this is called; evaluated
// directly, they contribute nothing and return false.
func (e *Evaluator) EvaluateGroup(group domain.Group, record domain.Record) (bool, error) {
	if !group.IsActive {
		return false, nil
	}
	if len(group.Criteria) == 0 {
		return false, nil
	}

	for _, criterion := range group.Criteria {
		matched, err := e.EvaluateCriterion(criterion, record)
		if err != nil {
			return false, err
		}
		switch group.LogicalOperator {
		case domain.LogicalOr:
			if matched {
				return true, nil
			}
		default:
			if !matched {
				return false, nil
			}
		}
	}

	return group.LogicalOperator != domain.LogicalOr, nil
}

// EvaluateFilter folds the results of the filter's active groups with the
// global logical operator, with the same short-circuit rule as groups.
// Inactive groups are treated as absent, not as false, so toggling a group off
// never forces an AND combination to fail or an OR combination to pass. A
// filter with zero active groups applies no filtering and matches everything.
func (e *Evaluator) EvaluateFilter(filter domain.Filter, record domain.Record) (bool, error) {
	active := filter.ActiveGroups()
	if len(active) == 0 {
		return true, nil
	}

	for _, group := range active {
		matched, err := e.EvaluateGroup(group, record)
		if err != nil {
			return false, err
		}
		switch filter.GlobalLogicalOperator {
		case domain.LogicalOr:
			if matched {
				return true, nil
			}
		default:
			if !matched {
				return false, nil
			}
		}
	}

	return filter.GlobalLogicalOperator != domain.LogicalOr, nil
}
