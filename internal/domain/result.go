package domain

// AppliedFilterSummary is one per-group entry of a match result, present even
// for inactive groups so callers can render why nothing changed.
type AppliedFilterSummary struct {
	GroupName     string `json:"groupName"`
	CriteriaCount int    `json:"criteriaCount"`
	IsActive      bool   `json:"isActive"`
}

// SkippedRecord names a record excluded from a match because its runtime shape
// did not fit the filter, so silent data loss is never possible.
type SkippedRecord struct {
	RecordID string `json:"recordId"`
	Reason   string `json:"reason"`
}

// MatchResult is the outcome of applying a filter across a record collection.
// Data preserves the original collection order.
type MatchResult struct {
	Data            []Record               `json:"data"`
	Total           int                    `json:"total"`
	FilteredCount   int                    `json:"filteredCount"`
	ExecutionTimeMs int64                  `json:"executionTime"`
	AppliedFilters  []AppliedFilterSummary `json:"appliedFilters"`
	Skipped         []SkippedRecord        `json:"skipped,omitempty"`
}
