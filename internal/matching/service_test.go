package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rpattn/advfilter/internal/domain"
)

var testNow = time.Date(2024, time.January, 3, 12, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testCatalog() domain.FieldCatalog {
	return domain.FieldCatalog{
		"title":       {Label: "Title", Type: domain.DataTypeString, Searchable: true},
		"status":      {Label: "Status", Type: domain.DataTypeString, Searchable: true},
		"priority":    {Label: "Priority", Type: domain.DataTypeArray, Options: []string{"low", "medium", "high", "urgent"}},
		"responses":   {Label: "Responses", Type: domain.DataTypeNumber},
		"completedAt": {Label: "Completed at", Type: domain.DataTypeDate},
	}
}

func testRecord(id string, fields map[string]any) domain.Record {
	return domain.Record{ID: id, EntityType: "form", Fields: fields}
}

func singleCriterionFilter(c domain.Criterion) domain.Filter {
	return domain.Filter{
		Name:       "test",
		EntityType: "form",
		Groups: []domain.Group{{
			ID:              "g1",
			Name:            "group",
			Criteria:        []domain.Criterion{c},
			LogicalOperator: domain.LogicalAnd,
			IsActive:        true,
		}},
		GlobalLogicalOperator: domain.LogicalAnd,
	}
}

func statusRecords() []domain.Record {
	return []domain.Record{
		testRecord("r1", map[string]any{"status": "completed", "responses": 3}),
		testRecord("r2", map[string]any{"status": "draft", "responses": 7}),
		testRecord("r3", map[string]any{"status": "completed", "responses": 12}),
		testRecord("r4", map[string]any{"status": "archived", "responses": 1}),
	}
}

func TestApplyReturnsMatchesInOriginalOrder(t *testing.T) {
	filter := singleCriterionFilter(domain.NewCriterion(
		"status", domain.OperatorEquals, domain.ScalarValue(domain.StringScalar("completed")), domain.DataTypeString))

	result, err := NewServiceAt(fixedClock).Apply(context.Background(), filter, statusRecords(), testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Total != 4 {
		t.Errorf("expected total 4, got %d", result.Total)
	}
	if result.FilteredCount != 2 {
		t.Fatalf("expected 2 matches, got %d", result.FilteredCount)
	}
	if result.Data[0].ID != "r1" || result.Data[1].ID != "r3" {
		t.Errorf("expected [r1 r3], got [%s %s]", result.Data[0].ID, result.Data[1].ID)
	}
	if len(result.AppliedFilters) != 1 || result.AppliedFilters[0].CriteriaCount != 1 {
		t.Errorf("unexpected applied filter summary: %+v", result.AppliedFilters)
	}
	if result.ExecutionTimeMs < 0 {
		t.Errorf("execution time must be non-negative, got %d", result.ExecutionTimeMs)
	}
}

func TestApplyEmptyFilterReturnsEverything(t *testing.T) {
	filter := domain.Filter{
		Name:                  "empty",
		EntityType:            "form",
		GlobalLogicalOperator: domain.LogicalAnd,
	}

	records := statusRecords()
	result, err := NewServiceAt(fixedClock).Apply(context.Background(), filter, records, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FilteredCount != len(records) {
		t.Errorf("expected all %d records, got %d", len(records), result.FilteredCount)
	}
}

func TestApplyFailsFastOnInvalidDefinition(t *testing.T) {
	filter := singleCriterionFilter(domain.NewCriterion(
		"nonexistent", domain.OperatorEquals, domain.ScalarValue(domain.StringScalar("x")), domain.DataTypeString))

	_, err := NewServiceAt(fixedClock).Apply(context.Background(), filter, statusRecords(), testCatalog())

	var defErr *domain.DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("expected DefinitionError before any record is scanned, got %v", err)
	}
}

func TestApplyFailsFastOnStaleCriterionType(t *testing.T) {
	// responses is declared as a number; a criterion still carrying the string
	// type from a previous field choice is a definition defect and must be
	// rejected before any record is scanned, not skipped record by record.
	filter := singleCriterionFilter(domain.NewCriterion(
		"responses", domain.OperatorGreaterThan, domain.ScalarValue(domain.NumberScalar(5)), domain.DataTypeString))

	records := []domain.Record{
		testRecord("r1", map[string]any{"responses": 3}),
		testRecord("r2", map[string]any{"responses": 9}),
	}

	result, err := NewServiceAt(fixedClock).Apply(context.Background(), filter, records, testCatalog())

	var defErr *domain.DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("expected DefinitionError, got %v", err)
	}
	if len(result.Skipped) != 0 || len(result.Data) != 0 {
		t.Fatalf("definition defects must not surface as per-record outcomes, got %+v", result)
	}
}

func TestApplySkipsMismatchedRecordsAndReportsThem(t *testing.T) {
	filter := singleCriterionFilter(domain.NewCriterion(
		"responses", domain.OperatorGreaterThan, domain.ScalarValue(domain.NumberScalar(5)), domain.DataTypeNumber))

	records := []domain.Record{
		testRecord("ok-low", map[string]any{"responses": 3}),
		testRecord("bad-shape", map[string]any{"responses": "lots"}),
		testRecord("ok-high", map[string]any{"responses": 9}),
	}

	result, err := NewServiceAt(fixedClock).Apply(context.Background(), filter, records, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FilteredCount != 1 || result.Data[0].ID != "ok-high" {
		t.Fatalf("expected only ok-high to match, got %+v", result.Data)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].RecordID != "bad-shape" {
		t.Fatalf("expected bad-shape to be skipped, got %+v", result.Skipped)
	}
	if result.Skipped[0].Reason == "" {
		t.Error("skip reason must be populated")
	}
}

func TestApplyCancellation(t *testing.T) {
	filter := singleCriterionFilter(domain.NewCriterion(
		"status", domain.OperatorEquals, domain.ScalarValue(domain.StringScalar("completed")), domain.DataTypeString))

	records := make([]domain.Record, 5000)
	for i := range records {
		records[i] = testRecord(fmt.Sprintf("r%d", i), map[string]any{"status": "completed"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewServiceAt(fixedClock).Apply(ctx, filter, records, testCatalog())
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(result.Data) != 0 {
		t.Error("a cancelled apply must not return partial data")
	}
}

func TestApplyParallelMatchesSequential(t *testing.T) {
	filter := singleCriterionFilter(domain.NewCriterion(
		"responses", domain.OperatorGreaterThanOrEqual, domain.ScalarValue(domain.NumberScalar(500)), domain.DataTypeNumber))

	records := make([]domain.Record, 2000)
	for i := range records {
		records[i] = testRecord(fmt.Sprintf("r%04d", i), map[string]any{"responses": i})
	}

	sequential := NewServiceAt(fixedClock)
	sequential.workers = 1
	parallel := NewServiceAt(fixedClock)
	parallel.workers = 8

	seqResult, err := sequential.Apply(context.Background(), filter, records, testCatalog())
	if err != nil {
		t.Fatalf("sequential apply: %v", err)
	}
	parResult, err := parallel.Apply(context.Background(), filter, records, testCatalog())
	if err != nil {
		t.Fatalf("parallel apply: %v", err)
	}

	if seqResult.FilteredCount != 1500 || parResult.FilteredCount != seqResult.FilteredCount {
		t.Fatalf("expected identical counts, got %d vs %d", seqResult.FilteredCount, parResult.FilteredCount)
	}
	for i := range seqResult.Data {
		if seqResult.Data[i].ID != parResult.Data[i].ID {
			t.Fatalf("order diverged at %d: %s vs %s", i, seqResult.Data[i].ID, parResult.Data[i].ID)
		}
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	filter := singleCriterionFilter(domain.NewCriterion(
		"status", domain.OperatorNotEquals, domain.ScalarValue(domain.StringScalar("draft")), domain.DataTypeString))

	records := statusRecords()
	service := NewServiceAt(fixedClock)

	first, err := service.Apply(context.Background(), filter, records, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := service.Apply(context.Background(), filter, records, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.FilteredCount != second.FilteredCount {
		t.Fatalf("counts diverged: %d vs %d", first.FilteredCount, second.FilteredCount)
	}
	for i := range first.Data {
		if first.Data[i].ID != second.Data[i].ID {
			t.Fatalf("order diverged at %d", i)
		}
	}
}

func TestApplyPriorityInScenario(t *testing.T) {
	filter := singleCriterionFilter(domain.NewCriterion(
		"priority", domain.OperatorIn,
		domain.ListValue(domain.StringScalar("high"), domain.StringScalar("urgent")), domain.DataTypeArray))

	records := []domain.Record{
		testRecord("a", map[string]any{"priority": "high"}),
		testRecord("b", map[string]any{"priority": "low"}),
		testRecord("c", map[string]any{"priority": "urgent"}),
		testRecord("d", map[string]any{"priority": "medium"}),
		testRecord("e", map[string]any{}),
	}

	result, err := NewServiceAt(fixedClock).Apply(context.Background(), filter, records, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FilteredCount != 2 {
		t.Fatalf("expected 2 matches, got %d", result.FilteredCount)
	}
	if result.Data[0].ID != "a" || result.Data[1].ID != "c" {
		t.Errorf("expected [a c], got [%s %s]", result.Data[0].ID, result.Data[1].ID)
	}
}

func TestApplyThisWeekDependsOnEvaluationInstant(t *testing.T) {
	group := domain.Group{
		ID:   "g1",
		Name: "completed this week",
		Criteria: []domain.Criterion{
			domain.NewCriterion("status", domain.OperatorEquals,
				domain.ScalarValue(domain.StringScalar("completed")), domain.DataTypeString),
			domain.NewCriterion("completedAt", domain.OperatorDateThisWeek,
				domain.NoValue(), domain.DataTypeDate),
		},
		LogicalOperator: domain.LogicalAnd,
		IsActive:        true,
	}
	filter := domain.Filter{
		Name:                  "recent completions",
		EntityType:            "form",
		Groups:                []domain.Group{group},
		GlobalLogicalOperator: domain.LogicalAnd,
	}

	records := []domain.Record{
		testRecord("in-week", map[string]any{"status": "completed", "completedAt": "2024-01-05"}),
		testRecord("prev-week", map[string]any{"status": "completed", "completedAt": "2023-12-28"}),
		testRecord("wrong-status", map[string]any{"status": "draft", "completedAt": "2024-01-05"}),
	}

	// 2024-01-03 falls in the ISO week of Jan 1 through Jan 7.
	result, err := NewServiceAt(fixedClock).Apply(context.Background(), filter, records, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FilteredCount != 1 || result.Data[0].ID != "in-week" {
		t.Fatalf("expected only in-week at %v, got %+v", testNow, result.Data)
	}

	// A week later the same definition selects neither record.
	later := func() time.Time { return testNow.AddDate(0, 0, 7) }
	result, err = NewServiceAt(later).Apply(context.Background(), filter, records, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FilteredCount != 0 {
		t.Fatalf("expected no matches a week later, got %+v", result.Data)
	}
}

func TestApplySummariesIncludeInactiveGroups(t *testing.T) {
	active := domain.Group{
		ID: "g1", Name: "active", IsActive: true, LogicalOperator: domain.LogicalAnd,
		Criteria: []domain.Criterion{domain.NewCriterion("status", domain.OperatorEquals,
			domain.ScalarValue(domain.StringScalar("completed")), domain.DataTypeString)},
	}
	inactive := domain.Group{
		ID: "g2", Name: "disabled", IsActive: false, LogicalOperator: domain.LogicalAnd,
		Criteria: []domain.Criterion{domain.NewCriterion("responses", domain.OperatorGreaterThan,
			domain.ScalarValue(domain.NumberScalar(100)), domain.DataTypeNumber)},
	}
	filter := domain.Filter{
		Name:                  "mixed",
		EntityType:            "form",
		Groups:                []domain.Group{active, inactive},
		GlobalLogicalOperator: domain.LogicalAnd,
	}

	result, err := NewServiceAt(fixedClock).Apply(context.Background(), filter, statusRecords(), testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.AppliedFilters) != 2 {
		t.Fatalf("expected summaries for both groups, got %+v", result.AppliedFilters)
	}
	if result.AppliedFilters[1].GroupName != "disabled" || result.AppliedFilters[1].IsActive {
		t.Errorf("expected the disabled group reported inactive, got %+v", result.AppliedFilters[1])
	}
	// The disabled threshold must not constrain results.
	if result.FilteredCount != 2 {
		t.Errorf("expected 2 matches, got %d", result.FilteredCount)
	}
}
